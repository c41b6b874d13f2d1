package trackops

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/mager/bandsaw/bandsaw"
	"github.com/mager/bandsaw/config"
	"github.com/mager/bandsaw/database"
	"github.com/mager/bandsaw/logger"
	"github.com/mager/bandsaw/output"
)

type exportCall struct {
	source, dest string
	start, end   float64
}

type fakeExporter struct {
	calls      []exportCall
	failOnCall int // 1-based call index that fails; 0 never fails
}

func (f *fakeExporter) Export(_ context.Context, source, dest string, start, end float64, _ output.AudioFormat) error {
	if f.failOnCall == len(f.calls)+1 {
		return errors.New("encoder exploded")
	}
	f.calls = append(f.calls, exportCall{source: source, dest: dest, start: start, end: end})
	return nil
}

type fakeStorage struct {
	remote  bool
	deleted []string
	renamed [][2]string
	puts    []string
	gets    []string
}

func (f *fakeStorage) IsRemote() bool { return f.remote }

func (f *fakeStorage) Put(_ context.Context, key, _ string) error {
	f.puts = append(f.puts, key)
	return nil
}

func (f *fakeStorage) Get(_ context.Context, key, localPath string) (string, error) {
	f.gets = append(f.gets, key)
	return localPath, nil
}

func (f *fakeStorage) Delete(_ context.Context, key string) error {
	f.deleted = append(f.deleted, key)
	return nil
}

func (f *fakeStorage) Rename(_ context.Context, oldKey, newKey string) error {
	f.renamed = append(f.renamed, [2]string{oldKey, newKey})
	return nil
}

func (f *fakeStorage) Exists(_ context.Context, _ string) bool { return true }

func (f *fakeStorage) URL(_ context.Context, _ string) (string, bool) { return "", false }

func (f *fakeStorage) PresignedPutURL(_ context.Context, _, _ string, _ int64) (string, bool, error) {
	return "", false, nil
}

func newTestReconciler(t *testing.T) (*Reconciler, *database.DB, *fakeStorage, *fakeExporter) {
	t.Helper()
	log, _ := logger.NewTestLogger()
	db, err := database.Open(":memory:", log)
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	cfg := config.Config{DataDir: t.TempDir()}
	store := &fakeStorage{}
	exp := &fakeExporter{}
	return NewReconciler(db, store, exp, cfg, log), db, store, exp
}

func seedSession(t *testing.T, db *database.DB, ranges [][2]float64) (int64, []bandsaw.Track) {
	t.Helper()
	sid, err := db.CreateSession(0, "recordings/practice.m4a", "2026-02-14", "")
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	for i, rng := range ranges {
		path := fmt.Sprintf("tracks/%02d.m4a", i+1)
		if _, err := db.CreateTrack(sid, i+1, rng[0], rng[1], path, ""); err != nil {
			t.Fatalf("create track: %v", err)
		}
	}
	tracks, err := db.TracksForSession(sid)
	if err != nil {
		t.Fatalf("list tracks: %v", err)
	}
	return sid, tracks
}

func TestMergeAdjacentTracks(t *testing.T) {
	r, db, store, exp := newTestReconciler(t)
	_, tracks := seedSession(t, db, [][2]float64{{0, 300}, {300, 600}, {600, 900}})

	if _, err := db.TagTrack(tracks[0].ID, "Fat Cat"); err != nil {
		t.Fatalf("tag: %v", err)
	}
	if err := db.UpdateTrackNotes(tracks[0].ID, "keeper"); err != nil {
		t.Fatalf("notes: %v", err)
	}

	got, err := r.Merge(context.Background(), tracks[0].ID, tracks[1].ID, output.AAC)
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}

	if len(exp.calls) != 1 {
		t.Fatalf("exports = %d, want 1", len(exp.calls))
	}
	call := exp.calls[0]
	if call.start != 0 || call.end != 600 {
		t.Errorf("export range = (%v, %v), want (0, 600)", call.start, call.end)
	}
	if base := filepath.Base(call.dest); base != "2026-02-14_1_00m00s-10m00s.m4a" {
		t.Errorf("merged filename = %q", base)
	}

	if len(got) != 2 {
		t.Fatalf("tracks after merge = %d, want 2", len(got))
	}
	merged := got[0]
	if merged.TrackNumber != 1 || merged.StartSec != 0 || merged.EndSec != 600 {
		t.Errorf("merged track = %+v", merged)
	}
	if merged.SongName == nil || *merged.SongName != "Fat Cat" {
		t.Errorf("merged track lost its song tag: %+v", merged)
	}
	if merged.Notes != "keeper" {
		t.Errorf("merged track lost its notes: %q", merged.Notes)
	}

	last := got[1]
	if last.TrackNumber != 2 || last.StartSec != 600 || last.EndSec != 900 {
		t.Errorf("trailing track not renumbered: %+v", last)
	}
	if base := filepath.Base(last.AudioPath); base != "2026-02-14_2_10m00s-15m00s.m4a" {
		t.Errorf("renumbered filename = %q", base)
	}

	wantDeleted := map[string]bool{"tracks/01.m4a": true, "tracks/02.m4a": true}
	if len(store.deleted) != 2 || !wantDeleted[store.deleted[0]] || !wantDeleted[store.deleted[1]] {
		t.Errorf("deleted = %v", store.deleted)
	}
	if len(store.renamed) != 1 || store.renamed[0][0] != "tracks/03.m4a" {
		t.Errorf("renamed = %v", store.renamed)
	}
	if len(store.puts) != 0 || len(store.gets) != 0 {
		t.Errorf("local storage should see no put/get: %v %v", store.puts, store.gets)
	}
}

func TestMergeArgumentOrderIrrelevant(t *testing.T) {
	r, db, _, exp := newTestReconciler(t)
	_, tracks := seedSession(t, db, [][2]float64{{0, 120}, {120, 300}})

	if _, err := r.Merge(context.Background(), tracks[1].ID, tracks[0].ID, output.AAC); err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if exp.calls[0].start != 0 || exp.calls[0].end != 300 {
		t.Errorf("export range = (%v, %v), want (0, 300)", exp.calls[0].start, exp.calls[0].end)
	}
}

func TestMergeValidation(t *testing.T) {
	r, db, _, _ := newTestReconciler(t)
	_, tracks := seedSession(t, db, [][2]float64{{0, 120}, {120, 300}, {300, 450}})
	_, other := seedSession(t, db, [][2]float64{{0, 100}})

	_, err := r.Merge(context.Background(), tracks[0].ID, 9999, output.AAC)
	var nf *bandsaw.NotFoundError
	if !errors.As(err, &nf) || nf.Msg != "Track not found" {
		t.Errorf("missing track error = %v", err)
	}

	_, err = r.Merge(context.Background(), tracks[0].ID, other[0].ID, output.AAC)
	var ve *bandsaw.ValidationError
	if !errors.As(err, &ve) || ve.Msg != "Tracks must belong to the same session" {
		t.Errorf("cross-session error = %v", err)
	}

	_, err = r.Merge(context.Background(), tracks[0].ID, tracks[2].ID, output.AAC)
	ve = nil
	if !errors.As(err, &ve) || ve.Msg != "Tracks must be adjacent" {
		t.Errorf("non-adjacent error = %v", err)
	}
}

func TestMergeExportFailureLeavesStateIntact(t *testing.T) {
	r, db, store, exp := newTestReconciler(t)
	sid, tracks := seedSession(t, db, [][2]float64{{0, 120}, {120, 300}})
	exp.failOnCall = 1

	_, err := r.Merge(context.Background(), tracks[0].ID, tracks[1].ID, output.AAC)
	var pe *bandsaw.ProcessingError
	if !errors.As(err, &pe) {
		t.Fatalf("want ProcessingError, got %v", err)
	}

	after, _ := db.TracksForSession(sid)
	if len(after) != 2 {
		t.Fatalf("tracks after failed merge = %d, want 2", len(after))
	}
	for i, tr := range after {
		if tr.ID != tracks[i].ID || tr.TrackNumber != tracks[i].TrackNumber || tr.AudioPath != tracks[i].AudioPath {
			t.Errorf("track %d changed after failed merge: %+v", i, tr)
		}
	}
	if len(store.deleted) != 0 || len(store.renamed) != 0 {
		t.Errorf("storage touched after failed merge: %v %v", store.deleted, store.renamed)
	}
}

func TestMergeRemoteStorageRoundTrip(t *testing.T) {
	r, db, store, _ := newTestReconciler(t)
	_, tracks := seedSession(t, db, [][2]float64{{0, 120}, {120, 300}})
	store.remote = true

	if _, err := r.Merge(context.Background(), tracks[0].ID, tracks[1].ID, output.AAC); err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if len(store.gets) != 1 || store.gets[0] != "recordings/practice.m4a" {
		t.Errorf("source fetch = %v", store.gets)
	}
	if len(store.puts) != 1 || filepath.Base(store.puts[0]) != "2026-02-14_1_00m00s-05m00s.m4a" {
		t.Errorf("uploads = %v", store.puts)
	}
}

func TestSplitTrack(t *testing.T) {
	r, db, store, exp := newTestReconciler(t)
	_, tracks := seedSession(t, db, [][2]float64{{0, 300}, {300, 480}})

	if _, err := db.TagTrack(tracks[0].ID, "Fat Cat"); err != nil {
		t.Fatalf("tag: %v", err)
	}
	if err := db.UpdateTrackNotes(tracks[0].ID, "solo take"); err != nil {
		t.Fatalf("notes: %v", err)
	}

	got, err := r.Split(context.Background(), tracks[0].ID, 150, output.AAC)
	if err != nil {
		t.Fatalf("Split: %v", err)
	}

	if len(exp.calls) != 2 {
		t.Fatalf("exports = %d, want 2", len(exp.calls))
	}
	if exp.calls[0].start != 0 || exp.calls[0].end != 150 {
		t.Errorf("first half range = (%v, %v)", exp.calls[0].start, exp.calls[0].end)
	}
	if exp.calls[1].start != 150 || exp.calls[1].end != 300 {
		t.Errorf("second half range = (%v, %v)", exp.calls[1].start, exp.calls[1].end)
	}
	if base := filepath.Base(exp.calls[0].dest); base != "2026-02-14_1_00m00s-02m30s.m4a" {
		t.Errorf("first half filename = %q", base)
	}
	if base := filepath.Base(exp.calls[1].dest); base != "2026-02-14_2_02m30s-05m00s.m4a" {
		t.Errorf("second half filename = %q", base)
	}

	if len(got) != 3 {
		t.Fatalf("tracks after split = %d, want 3", len(got))
	}
	first, second, third := got[0], got[1], got[2]
	if first.SongName == nil || *first.SongName != "Fat Cat" || first.Notes != "solo take" {
		t.Errorf("first half lost metadata: %+v", first)
	}
	if first.StartSec != 0 || first.EndSec != 150 {
		t.Errorf("first half range = (%v, %v)", first.StartSec, first.EndSec)
	}
	if second.SongID != nil || second.Notes != "" {
		t.Errorf("second half should start blank: %+v", second)
	}
	if second.StartSec != 150 || second.EndSec != 300 || second.TrackNumber != 2 {
		t.Errorf("second half = %+v", second)
	}
	if third.TrackNumber != 3 || third.StartSec != 300 {
		t.Errorf("trailing track not renumbered: %+v", third)
	}
	if base := filepath.Base(third.AudioPath); base != "2026-02-14_3_05m00s-08m00s.m4a" {
		t.Errorf("renumbered filename = %q", base)
	}

	if len(store.deleted) != 1 || store.deleted[0] != "tracks/01.m4a" {
		t.Errorf("deleted = %v", store.deleted)
	}
}

func TestSplitValidation(t *testing.T) {
	r, db, _, _ := newTestReconciler(t)
	_, tracks := seedSession(t, db, [][2]float64{{0, 200}})

	_, err := r.Split(context.Background(), 9999, 50, output.AAC)
	var nf *bandsaw.NotFoundError
	if !errors.As(err, &nf) {
		t.Errorf("missing track error = %v", err)
	}

	for _, offset := range []float64{0.5, 1.0, 199.0, 250} {
		_, err := r.Split(context.Background(), tracks[0].ID, offset, output.AAC)
		var ve *bandsaw.ValidationError
		if !errors.As(err, &ve) || ve.Msg != "Split point must be more than 1 second from either edge" {
			t.Errorf("Split(%v) error = %v", offset, err)
		}
	}
}

func TestSplitSecondExportFailureLeavesStateIntact(t *testing.T) {
	r, db, store, exp := newTestReconciler(t)
	sid, tracks := seedSession(t, db, [][2]float64{{0, 200}})
	exp.failOnCall = 2

	_, err := r.Split(context.Background(), tracks[0].ID, 100, output.AAC)
	var pe *bandsaw.ProcessingError
	if !errors.As(err, &pe) {
		t.Fatalf("want ProcessingError, got %v", err)
	}

	after, _ := db.TracksForSession(sid)
	if len(after) != 1 || after[0].ID != tracks[0].ID {
		t.Errorf("tracks after failed split = %+v", after)
	}
	if len(store.deleted) != 0 {
		t.Errorf("storage touched after failed split: %v", store.deleted)
	}
}

func TestSplitUsesOpusExtension(t *testing.T) {
	r, db, _, exp := newTestReconciler(t)
	_, tracks := seedSession(t, db, [][2]float64{{0, 200}})

	if _, err := r.Split(context.Background(), tracks[0].ID, 100, output.OPUS); err != nil {
		t.Fatalf("Split: %v", err)
	}
	for _, call := range exp.calls {
		if filepath.Ext(call.dest) != ".ogg" {
			t.Errorf("opus export should use .ogg: %q", call.dest)
		}
	}
}

func TestParseSessionDate(t *testing.T) {
	if got := parseSessionDate("2026-02-14"); got == nil || got.Format("2006-01-02") != "2026-02-14" {
		t.Errorf("parseSessionDate = %v", got)
	}
	if got := parseSessionDate(""); got != nil {
		t.Errorf("empty date should parse to nil, got %v", got)
	}
	if got := parseSessionDate("02/14/2026"); got != nil {
		t.Errorf("bad date should parse to nil, got %v", got)
	}
}
