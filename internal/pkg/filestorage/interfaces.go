package filestorage

import (
	"context"
	"io"
)

// FileInfo represents information about a stored file
type FileInfo struct {
	Key      string // storage key, unique per upload
	URL      string // where the bytes can be fetched
	Filename string // original filename
	FileSize int64  // size in bytes
	MimeType string // detected MIME type
}

// FileStorage defines the interface for file storage operations
type FileStorage interface {
	// SaveFile stores the content of r under a fresh key derived from filename
	SaveFile(ctx context.Context, r io.Reader, filename, mimeType string) (*FileInfo, error)

	// DeleteFile removes a stored file by the URL SaveFile returned. Missing files are not an error.
	DeleteFile(ctx context.Context, fileURL string) error
}

func keyFromURL(fileURL string) string {
	for i := len(fileURL) - 1; i >= 0; i-- {
		if fileURL[i] == '/' {
			return fileURL[i+1:]
		}
	}
	return fileURL
}
