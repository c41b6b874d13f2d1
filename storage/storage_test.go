package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/mager/bandsaw/config"
	"github.com/mager/bandsaw/logger"
)

func localForTest(t *testing.T) (*Local, string) {
	t.Helper()
	dir := t.TempDir()
	return NewLocal(config.Config{DataDir: dir}), dir
}

func writeFile(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("audio"), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestLocalLifecycle(t *testing.T) {
	l, dir := localForTest(t)
	ctx := context.Background()

	key := "tracks/jam/one.m4a"
	path := filepath.Join(dir, key)
	writeFile(t, path)

	if l.IsRemote() {
		t.Error("local storage claims to be remote")
	}
	if !l.Exists(ctx, key) {
		t.Error("file should exist")
	}

	got, err := l.Get(ctx, key, filepath.Join(dir, "scratch"))
	if err != nil {
		t.Fatal(err)
	}
	if got != path {
		t.Errorf("Get returned %q, want %q", got, path)
	}

	// Put is a no-op for local files already in place.
	if err := l.Put(ctx, key, path); err != nil {
		t.Errorf("Put: %v", err)
	}

	if _, ok := l.URL(ctx, key); ok {
		t.Error("local storage should not hand out URLs")
	}
	if _, ok, err := l.PresignedPutURL(ctx, key, "audio/mp4", 600); ok || err != nil {
		t.Errorf("presigned put = %v, %v", ok, err)
	}
}

func TestLocalRename(t *testing.T) {
	l, dir := localForTest(t)
	ctx := context.Background()

	oldKey := "tracks/jam/one.m4a"
	newKey := "tracks/jam/one-renamed.m4a"
	writeFile(t, filepath.Join(dir, oldKey))

	if err := l.Rename(ctx, oldKey, newKey); err != nil {
		t.Fatal(err)
	}
	if l.Exists(ctx, oldKey) {
		t.Error("old key still exists")
	}
	if !l.Exists(ctx, newKey) {
		t.Error("new key missing")
	}

	// Renaming a missing file is not an error.
	if err := l.Rename(ctx, "tracks/nope.m4a", "tracks/still-nope.m4a"); err != nil {
		t.Errorf("missing rename: %v", err)
	}
	// Nor is a rename onto itself.
	if err := l.Rename(ctx, newKey, newKey); err != nil {
		t.Errorf("self rename: %v", err)
	}
}

func TestLocalDelete(t *testing.T) {
	l, dir := localForTest(t)
	ctx := context.Background()

	key := "tracks/jam/one.m4a"
	writeFile(t, filepath.Join(dir, key))

	if err := l.Delete(ctx, key); err != nil {
		t.Fatal(err)
	}
	if l.Exists(ctx, key) {
		t.Error("file survived the delete")
	}
	// Deleting again is a no-op.
	if err := l.Delete(ctx, key); err != nil {
		t.Errorf("second delete: %v", err)
	}
}

func TestProvideStoragePicksBackend(t *testing.T) {
	log, _ := logger.NewTestLogger()

	s, err := ProvideStorage(log, config.Config{DataDir: t.TempDir()})
	if err != nil {
		t.Fatal(err)
	}
	if s.IsRemote() {
		t.Error("no bucket configured should mean local storage")
	}
}
