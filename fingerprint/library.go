package fingerprint

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	"github.com/mager/bandsaw/audio"
)

const refCacheSize = 256

var referenceExtensions = map[string]bool{
	".m4a": true,
	".wav": true,
	".mp3": true,
	".mp4": true,
}

// Entry is one reference song: its cleaned name and summarized chroma.
type Entry struct {
	Name    string
	Summary [][]float64
}

// Library loads reference songs from a directory and caches their
// summaries, keyed by path, size, and mtime so edits invalidate.
type Library struct {
	dec   audio.Decoder
	log   *zap.SugaredLogger
	cache *lru.Cache[string, [][]float64]
}

func NewLibrary(dec audio.Decoder, log *zap.SugaredLogger) *Library {
	cache, _ := lru.New[string, [][]float64](refCacheSize)
	return &Library{dec: dec, log: log, cache: cache}
}

// Load scans dir for reference audio files in name order. Unreadable
// files are skipped with a warning so one bad reference cannot sink a
// whole analysis run.
func (l *Library) Load(ctx context.Context, dir string) ([]Entry, error) {
	dirEntries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var refs []Entry
	for _, e := range dirEntries {
		if e.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if !referenceExtensions[ext] {
			continue
		}
		path := filepath.Join(dir, e.Name())
		summary, err := l.summaryFor(ctx, path, e)
		if err != nil {
			l.log.Warnw("Skipping unreadable reference", "file", e.Name(), "error", err)
			continue
		}
		stem := strings.TrimSuffix(e.Name(), filepath.Ext(e.Name()))
		refs = append(refs, Entry{Name: CleanReferenceName(stem), Summary: summary})
	}
	return refs, nil
}

func (l *Library) summaryFor(ctx context.Context, path string, e os.DirEntry) ([][]float64, error) {
	key := path
	if info, err := e.Info(); err == nil {
		key = fmt.Sprintf("%s|%d|%d", path, info.Size(), info.ModTime().UnixNano())
	}
	if cached, ok := l.cache.Get(key); ok {
		return cached, nil
	}

	ch, err := ChromagramForFile(ctx, l.dec, path, 0, 0)
	if err != nil {
		return nil, err
	}
	summary := Summarize(TrimEdges(ch))
	l.cache.Add(key, summary)
	return summary, nil
}
