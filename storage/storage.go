// Package storage abstracts where exported audio lives: the local
// filesystem, or a Cloudflare R2 bucket reached over the S3 API.
package storage

import (
	"context"

	"github.com/mager/bandsaw/config"
	"go.uber.org/zap"
)

// Storage is the backend contract. Keys are DataDir-relative paths like
// "tracks/practice/2026-02-14_1_00m00s-05m00s.m4a".
type Storage interface {
	// IsRemote reports whether files live outside the local filesystem.
	IsRemote() bool

	// Put uploads a local file under key. No-op for the local backend.
	Put(ctx context.Context, key, localPath string) error

	// Get ensures the file for key is available at localPath, downloading
	// it first when it only exists remotely. Returns the local path.
	Get(ctx context.Context, key, localPath string) (string, error)

	// Delete removes the file from storage.
	Delete(ctx context.Context, key string) error

	// Rename moves a file to a new key.
	Rename(ctx context.Context, oldKey, newKey string) error

	// Exists reports whether the key is present.
	Exists(ctx context.Context, key string) bool

	// URL returns a browser-reachable URL for the key. ok is false for
	// backends that serve files through the API instead.
	URL(ctx context.Context, key string) (url string, ok bool)

	// PresignedPutURL returns a direct-upload URL, or ok=false when the
	// backend does not support one.
	PresignedPutURL(ctx context.Context, key, contentType string, ttlSeconds int64) (url string, ok bool, err error)
}

// ProvideStorage picks R2 when a bucket is configured, else local disk.
func ProvideStorage(logger *zap.SugaredLogger, cfg config.Config) (Storage, error) {
	if cfg.R2Bucket != "" {
		r2, err := NewR2(cfg, logger)
		if err != nil {
			logger.Errorw("Failed to build R2 storage", "bucket", cfg.R2Bucket, "error", err)
			return nil, err
		}
		logger.Infow("Using R2 storage", "bucket", cfg.R2Bucket)
		return r2, nil
	}
	return NewLocal(cfg), nil
}

var Options = ProvideStorage
