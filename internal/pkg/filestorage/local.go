package filestorage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/yigit/submity/internal/pkg/logger"
)

// LocalStorage handles saving files to the local filesystem.
type LocalStorage struct {
	basePath string // root directory where files are stored
	baseURL  string // public URL prefix the directory is served under
}

// NewLocalStorage creates a new LocalStorage instance.
// basePath is the directory on the server, baseURL the prefix returned URLs start with.
func NewLocalStorage(basePath, baseURL string) (*LocalStorage, error) {
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		logger.Error().Err(err).Str("path", basePath).Msg("Failed to create storage directory")
		return nil, fmt.Errorf("failed to create storage directory %s: %w", basePath, err)
	}
	logger.Info().Str("path", basePath).Msg("Local storage directory ensured")

	return &LocalStorage{
		basePath: basePath,
		baseURL:  strings.TrimRight(baseURL, "/"),
	}, nil
}

// SaveFile writes r to a uuid-named file keeping the original extension
func (ls *LocalStorage) SaveFile(ctx context.Context, r io.Reader, filename, mimeType string) (*FileInfo, error) {
	key := uuid.New().String() + strings.ToLower(filepath.Ext(filename))
	dstPath := filepath.Join(ls.basePath, key)

	dst, err := os.Create(dstPath)
	if err != nil {
		logger.Error().Err(err).Str("path", dstPath).Msg("Failed to create destination file")
		return nil, fmt.Errorf("failed to create destination file: %w", err)
	}

	size, err := io.Copy(dst, r)
	if closeErr := dst.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		logger.Error().Err(err).Str("path", dstPath).Msg("Failed to copy uploaded file content")
		_ = os.Remove(dstPath)
		return nil, fmt.Errorf("failed to save file content: %w", err)
	}

	info := &FileInfo{
		Key:      key,
		URL:      ls.baseURL + "/" + key,
		Filename: filename,
		FileSize: size,
		MimeType: mimeType,
	}
	logger.Info().Str("filename", filename).Str("saved_as", key).Int64("size", size).Msg("File saved successfully")
	return info, nil
}

// DeleteFile removes a file from the storage directory
func (ls *LocalStorage) DeleteFile(ctx context.Context, fileURL string) error {
	physicalPath := ls.GetFullPath(fileURL)
	if physicalPath == "" {
		return fmt.Errorf("invalid file path: %s", fileURL)
	}

	if err := os.Remove(physicalPath); err != nil {
		if os.IsNotExist(err) {
			logger.Warn().Str("path", physicalPath).Msg("File to delete does not exist")
			return nil
		}
		logger.Error().Err(err).Str("path", physicalPath).Msg("Failed to delete file")
		return fmt.Errorf("failed to delete file: %w", err)
	}

	logger.Info().Str("path", physicalPath).Msg("File deleted successfully")
	return nil
}

// GetFullPath returns the filesystem path for a URL returned by SaveFile
func (ls *LocalStorage) GetFullPath(fileURL string) string {
	key := keyFromURL(fileURL)
	if key == "" || key == "." || key == ".." {
		return ""
	}
	return filepath.Join(ls.basePath, key)
}
