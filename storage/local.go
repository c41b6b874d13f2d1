package storage

import (
	"context"
	"errors"
	"io/fs"
	"os"

	"github.com/mager/bandsaw/config"
)

// Local keeps files on disk under the configured data directory. Put is a
// no-op because exported files are already written in place.
type Local struct {
	cfg config.Config
}

var _ Storage = (*Local)(nil)

func NewLocal(cfg config.Config) *Local {
	return &Local{cfg: cfg}
}

func (l *Local) IsRemote() bool { return false }

func (l *Local) Put(ctx context.Context, key, localPath string) error {
	return nil
}

func (l *Local) Get(ctx context.Context, key, localPath string) (string, error) {
	return l.cfg.ResolvePath(key), nil
}

func (l *Local) Delete(ctx context.Context, key string) error {
	err := os.Remove(l.cfg.ResolvePath(key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

func (l *Local) Rename(ctx context.Context, oldKey, newKey string) error {
	oldPath := l.cfg.ResolvePath(oldKey)
	newPath := l.cfg.ResolvePath(newKey)
	if oldPath == newPath {
		return nil
	}
	if _, err := os.Stat(oldPath); errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return os.Rename(oldPath, newPath)
}

func (l *Local) Exists(ctx context.Context, key string) bool {
	_, err := os.Stat(l.cfg.ResolvePath(key))
	return err == nil
}

func (l *Local) URL(ctx context.Context, key string) (string, bool) {
	return "", false
}

func (l *Local) PresignedPutURL(ctx context.Context, key, contentType string, ttlSeconds int64) (string, bool, error) {
	return "", false, nil
}
