package filestorage

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/kurin/blazer/b2"
	"github.com/yigit/submity/internal/pkg/logger"
)

// B2Config holds the Backblaze B2 credentials and bucket
type B2Config struct {
	KeyID   string
	AppKey  string
	Bucket  string
	BaseURL string // optional public prefix, defaults to the account download URL
}

// B2Storage stores files in a Backblaze B2 bucket
type B2Storage struct {
	client  *b2.Client
	bucket  *b2.Bucket
	baseURL string
}

// NewB2Storage authorizes against B2 and opens the configured bucket
func NewB2Storage(ctx context.Context, cfg B2Config) (*B2Storage, error) {
	client, err := b2.NewClient(ctx, cfg.KeyID, cfg.AppKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create b2 client: %w", err)
	}

	bucket, err := client.Bucket(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to get bucket %s: %w", cfg.Bucket, err)
	}

	baseURL := b2PublicURL(cfg.BaseURL, bucket.BaseURL(), bucket.Name())

	logger.Info().Str("bucket", bucket.Name()).Str("baseURL", baseURL).Msg("B2 file storage ready")
	return &B2Storage{client: client, bucket: bucket, baseURL: baseURL}, nil
}

// b2PublicURL returns the prefix object keys are appended to. An explicit
// prefix wins over the bucket's friendly download URL.
func b2PublicURL(configured, downloadURL, bucketName string) string {
	if configured = strings.TrimRight(configured, "/"); configured != "" {
		return configured
	}
	return fmt.Sprintf("%s/file/%s", strings.TrimRight(downloadURL, "/"), bucketName)
}

// SaveFile uploads r as a new object
func (s *B2Storage) SaveFile(ctx context.Context, r io.Reader, filename, mimeType string) (*FileInfo, error) {
	key := uuid.New().String() + strings.ToLower(filepath.Ext(filename))

	w := s.bucket.Object(key).NewWriter(ctx, b2.WithAttrsOption(&b2.Attrs{ContentType: mimeType}))
	size, err := io.Copy(w, r)
	if err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("failed to write object: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("failed to close writer: %w", err)
	}

	logger.Info().Str("filename", filename).Str("key", key).Int64("size", size).Msg("File uploaded to B2")
	return &FileInfo{
		Key:      key,
		URL:      s.baseURL + "/" + key,
		Filename: filename,
		FileSize: size,
		MimeType: mimeType,
	}, nil
}

// DeleteFile removes the object behind fileURL
func (s *B2Storage) DeleteFile(ctx context.Context, fileURL string) error {
	key := keyFromURL(fileURL)
	if key == "" {
		return fmt.Errorf("invalid file url: %s", fileURL)
	}

	if err := s.bucket.Object(key).Delete(ctx); err != nil {
		if b2.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to delete object %s: %w", key, err)
	}
	return nil
}
