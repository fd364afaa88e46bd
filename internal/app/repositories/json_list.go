package repositories

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/yigit/submity/internal/pkg/apperrors"
	"github.com/yigit/submity/internal/pkg/kvstore"
)

// Storage keys. All collections live side by side in one store.
const (
	SubmissionsKey = "submity_submissions"
	UsersKey       = "submity_users"
	SessionsKey    = "submity_sessions"

	corruptSuffix = ".corrupt"
)

// jsonList keeps a whole collection as one JSON array under a single key.
// Every mutation reads the array, changes it and writes it back.
type jsonList[T any] struct {
	store  kvstore.Store
	key    string
	logger zerolog.Logger
}

// snapshot is a decoded collection plus the raw bytes when they could not be decoded
type snapshot[T any] struct {
	items   []T
	corrupt []byte
}

func newJSONList[T any](store kvstore.Store, key string, logger zerolog.Logger) *jsonList[T] {
	return &jsonList[T]{store: store, key: key, logger: logger}
}

// load returns the stored items. Undecodable data yields an empty list.
func (l *jsonList[T]) load(ctx context.Context) (snapshot[T], error) {
	raw, ok, err := l.store.Get(ctx, l.key)
	if err != nil {
		return snapshot[T]{}, fmt.Errorf("failed to read %s: %w", l.key, err)
	}
	if !ok || len(bytes.TrimSpace(raw)) == 0 {
		return snapshot[T]{}, nil
	}

	var items []T
	if err := json.Unmarshal(raw, &items); err != nil {
		l.logger.Error().
			Err(fmt.Errorf("%w: %v", apperrors.ErrCorruptStore, err)).
			Str("key", l.key).
			Int("bytes", len(raw)).
			Msg("Stored collection is unreadable, treating it as empty")
		return snapshot[T]{corrupt: raw}, nil
	}
	return snapshot[T]{items: items}, nil
}

// save writes items back. Unreadable bytes from the load are copied aside first.
func (l *jsonList[T]) save(ctx context.Context, snap snapshot[T], items []T) error {
	if snap.corrupt != nil {
		backupKey := l.key + corruptSuffix
		if err := l.store.Set(ctx, backupKey, snap.corrupt); err != nil {
			return fmt.Errorf("failed to back up unreadable %s: %w", l.key, err)
		}
		l.logger.Warn().Str("key", l.key).Str("backup", backupKey).Msg("Unreadable collection backed up before overwrite")
	}

	// an empty collection is stored as an absent key
	if len(items) == 0 {
		if err := l.store.Delete(ctx, l.key); err != nil {
			return fmt.Errorf("failed to clear %s: %w", l.key, err)
		}
		return nil
	}

	raw, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", l.key, err)
	}
	if err := l.store.Set(ctx, l.key, raw); err != nil {
		return fmt.Errorf("failed to write %s: %w", l.key, err)
	}
	return nil
}
