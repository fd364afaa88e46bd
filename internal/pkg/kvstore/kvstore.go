// Package kvstore provides the durable string-keyed storage the repositories
// serialize their collections into.
package kvstore

import (
	"context"
	"errors"
)

// ErrClosed is returned by operations on a store that has been closed
var ErrClosed = errors.New("kvstore: store is closed")

// Store is a synchronous key-value store. Values are opaque bytes; a missing
// key is reported through the boolean result, never as an error.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Close() error
}
