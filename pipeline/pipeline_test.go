package pipeline

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/mager/bandsaw/audio"
	"github.com/mager/bandsaw/bandsaw"
	"github.com/mager/bandsaw/config"
	"github.com/mager/bandsaw/database"
	"github.com/mager/bandsaw/fingerprint"
	"github.com/mager/bandsaw/jobs"
	"github.com/mager/bandsaw/logger"
	"github.com/mager/bandsaw/output"
	"github.com/mager/bandsaw/splitter"
	"github.com/mager/bandsaw/storage"
)

// fakeDecoder serves a fixed 35s recording at the detection rate (two
// loud tones around a silent middle) and a steady 440 Hz tone at the
// fingerprint rate, so detection and matching are fully deterministic.
type fakeDecoder struct {
	fail   bool
	silent bool
}

func (d *fakeDecoder) Decode(_ context.Context, _ string, sampleRate int, _, durationSec float64) ([]int16, error) {
	if d.fail {
		return nil, fmt.Errorf("ffmpeg exited with status 1")
	}
	if sampleRate == splitter.AnalysisSampleRate {
		if d.silent {
			return make([]int16, 35*sampleRate), nil
		}
		return jamRecording(), nil
	}
	dur := durationSec
	if dur <= 0 {
		dur = 10
	}
	return tone(440, sampleRate, int(dur*float64(sampleRate))), nil
}

// jamRecording is 10s of loud tone, 15s of silence, 10s of loud tone.
// After smoothing it detects as [0,8) and [27,35) windows, which pad
// out to segments (0,10) and (25,35).
func jamRecording() []int16 {
	rate := splitter.AnalysisSampleRate
	out := make([]int16, 0, 35*rate)
	out = append(out, tone(220, rate, 10*rate)...)
	out = append(out, make([]int16, 15*rate)...)
	out = append(out, tone(220, rate, 10*rate)...)
	return out
}

func tone(freq float64, rate, n int) []int16 {
	out := make([]int16, n)
	for i := range out {
		out[i] = int16(23170 * math.Sin(2*math.Pi*freq*float64(i)/float64(rate)))
	}
	return out
}

type fakeProber struct {
	err  error
	date *time.Time
}

func (p *fakeProber) Probe(context.Context, string) (*audio.Metadata, error) {
	if p.err != nil {
		return nil, p.err
	}
	return &audio.Metadata{DurationSeconds: 35, RecordingDate: p.date}, nil
}

type exportCall struct {
	source, dest     string
	startSec, endSec float64
	format           output.AudioFormat
}

type fakeExporter struct {
	calls []exportCall
	fail  bool
}

func (e *fakeExporter) Export(_ context.Context, source, dest string, startSec, endSec float64, format output.AudioFormat) error {
	if e.fail {
		return fmt.Errorf("encoder crashed")
	}
	e.calls = append(e.calls, exportCall{source, dest, startSec, endSec, format})
	return nil
}

type fakeStorage struct {
	mu     sync.Mutex
	remote bool
	puts   []string
}

func (s *fakeStorage) IsRemote() bool { return s.remote }

func (s *fakeStorage) Put(_ context.Context, key, _ string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.puts = append(s.puts, key)
	return nil
}

func (s *fakeStorage) Get(_ context.Context, _, localPath string) (string, error) {
	return localPath, nil
}

func (s *fakeStorage) Delete(context.Context, string) error         { return nil }
func (s *fakeStorage) Rename(context.Context, string, string) error { return nil }
func (s *fakeStorage) Exists(context.Context, string) bool          { return true }
func (s *fakeStorage) URL(context.Context, string) (string, bool)   { return "", false }

func (s *fakeStorage) PresignedPutURL(context.Context, string, string, int64) (string, bool, error) {
	return "", false, nil
}

func newTestProcessor(t *testing.T, dec audio.Decoder, prober audio.Prober, exp output.Exporter, store storage.Storage) (*Processor, config.Config) {
	t.Helper()
	log, _ := logger.NewTestLogger()
	db, err := database.Open(":memory:", log)
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	dir := t.TempDir()
	cfg := config.Config{
		DataDir:   dir,
		InputDir:  filepath.Join(dir, "recordings"),
		OutputDir: filepath.Join(dir, "tracks"),
	}
	p := NewProcessor(db, store, dec, prober, exp, fingerprint.NewLibrary(dec, log), jobs.NewRegistry(log), cfg, log)
	return p, cfg
}

func recordedOn(t *testing.T) *time.Time {
	t.Helper()
	d := time.Date(2026, 2, 14, 19, 0, 0, 0, time.UTC)
	return &d
}

func TestRunProcessesRecording(t *testing.T) {
	exp := &fakeExporter{}
	store := &fakeStorage{}
	p, cfg := newTestProcessor(t, &fakeDecoder{}, &fakeProber{date: recordedOn(t)}, exp, store)

	job := p.reg.Create(jobs.KindProcess)
	source := filepath.Join(cfg.InputDir, "practice.m4a")
	session, err := p.Run(context.Background(), job.ID, DefaultParams(source, 0))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if session.TrackCount != 2 {
		t.Fatalf("track count = %d, want 2", session.TrackCount)
	}
	if session.Date != "2026-02-14" {
		t.Errorf("session date = %q", session.Date)
	}
	if session.SourceFile != filepath.Join("recordings", "practice.m4a") {
		t.Errorf("source file = %q", session.SourceFile)
	}

	tracks, err := p.db.TracksForSession(session.ID)
	if err != nil {
		t.Fatalf("TracksForSession: %v", err)
	}
	if len(tracks) != 2 {
		t.Fatalf("got %d tracks", len(tracks))
	}
	for i, want := range []bandsaw.Segment{{StartSec: 0, EndSec: 10}, {StartSec: 25, EndSec: 35}} {
		tr := tracks[i]
		if tr.TrackNumber != i+1 || tr.StartSec != want.StartSec || tr.EndSec != want.EndSec {
			t.Errorf("track %d = #%d (%.1f, %.1f), want #%d (%.1f, %.1f)",
				i, tr.TrackNumber, tr.StartSec, tr.EndSec, i+1, want.StartSec, want.EndSec)
		}
		if len(tr.Fingerprint) != 16 {
			t.Errorf("track %d fingerprint = %q", i, tr.Fingerprint)
		}
		if tr.SongID != nil {
			t.Errorf("track %d tagged without references", i)
		}
	}

	wantName := fmt.Sprintf("2026-02-14_1_00m00s-00m10s_%s.m4a", tracks[0].Fingerprint)
	if tracks[0].AudioPath != filepath.Join("tracks", "practice", wantName) {
		t.Errorf("audio path = %q, want %q", tracks[0].AudioPath, filepath.Join("tracks", "practice", wantName))
	}

	if len(exp.calls) != 2 {
		t.Fatalf("got %d exports", len(exp.calls))
	}
	if exp.calls[0].source != source || exp.calls[0].startSec != 0 || exp.calls[0].endSec != 10 {
		t.Errorf("first export = %+v", exp.calls[0])
	}
	if exp.calls[1].startSec != 25 || exp.calls[1].endSec != 35 {
		t.Errorf("second export = %+v", exp.calls[1])
	}
	if exp.calls[0].format != output.DefaultFormat {
		t.Errorf("export format = %+v", exp.calls[0].format)
	}
	if len(store.puts) != 0 {
		t.Errorf("local storage saw %d puts", len(store.puts))
	}

	done, ok := p.reg.Get(job.ID)
	if !ok || done.Status != bandsaw.JobComplete || done.Progress != 100 {
		t.Fatalf("job = %+v", done)
	}
	if done.Result["session_id"] != session.ID || done.Result["tracks"] != 2 {
		t.Errorf("job result = %+v", done.Result)
	}
}

func TestRunAutoTagsWithReferences(t *testing.T) {
	exp := &fakeExporter{}
	p, cfg := newTestProcessor(t, &fakeDecoder{}, &fakeProber{date: recordedOn(t)}, exp, &fakeStorage{})

	refDir := filepath.Join(cfg.DataDir, "references")
	if err := os.MkdirAll(refDir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(refDir, "fat-cat.m4a"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	params := DefaultParams(filepath.Join(cfg.InputDir, "practice.m4a"), 0)
	params.ReferenceDir = refDir

	job := p.reg.Create(jobs.KindProcess)
	session, err := p.Run(context.Background(), job.ID, params)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	tracks, err := p.db.TracksForSession(session.ID)
	if err != nil {
		t.Fatal(err)
	}
	for i, tr := range tracks {
		if tr.SongName == nil || *tr.SongName != "fat-cat" {
			t.Errorf("track %d song = %v, want fat-cat", i, tr.SongName)
		}
	}
	if session.TaggedCount != 2 {
		t.Errorf("tagged count = %d", session.TaggedCount)
	}
	for _, c := range exp.calls {
		if !strings.HasSuffix(c.dest, "_fat-cat.m4a") {
			t.Errorf("export dest %q missing song suffix", c.dest)
		}
	}
}

func TestRunRemoteStoragePushesArtifacts(t *testing.T) {
	store := &fakeStorage{remote: true}
	p, cfg := newTestProcessor(t, &fakeDecoder{}, &fakeProber{date: recordedOn(t)}, &fakeExporter{}, store)

	job := p.reg.Create(jobs.KindProcess)
	_, err := p.Run(context.Background(), job.ID, DefaultParams(filepath.Join(cfg.InputDir, "practice.m4a"), 0))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(store.puts) != 3 {
		t.Fatalf("got %d puts: %v", len(store.puts), store.puts)
	}
	if store.puts[0] != filepath.Join("recordings", "practice.m4a") {
		t.Errorf("first put = %q, want the source file", store.puts[0])
	}
	for _, key := range store.puts[1:] {
		if !strings.HasPrefix(key, filepath.Join("tracks", "practice")+string(filepath.Separator)) {
			t.Errorf("track put key = %q", key)
		}
	}
}

func TestRunDecodeFailureFailsJob(t *testing.T) {
	p, cfg := newTestProcessor(t, &fakeDecoder{fail: true}, &fakeProber{date: recordedOn(t)}, &fakeExporter{}, &fakeStorage{})

	job := p.reg.Create(jobs.KindProcess)
	_, err := p.Run(context.Background(), job.ID, DefaultParams(filepath.Join(cfg.InputDir, "practice.m4a"), 0))
	var procErr *bandsaw.ProcessingError
	if !errors.As(err, &procErr) {
		t.Fatalf("err = %v, want ProcessingError", err)
	}

	failed, _ := p.reg.Get(job.ID)
	if failed.Status != bandsaw.JobFailed || failed.Error == "" {
		t.Errorf("job = %+v", failed)
	}

	sessions, err := p.db.ListSessions(nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(sessions) != 0 {
		t.Errorf("failed run left %d sessions", len(sessions))
	}
}

func TestRunSilentRecordingCreatesEmptySession(t *testing.T) {
	exp := &fakeExporter{}
	p, cfg := newTestProcessor(t, &fakeDecoder{silent: true}, &fakeProber{date: recordedOn(t)}, exp, &fakeStorage{})

	job := p.reg.Create(jobs.KindProcess)
	session, err := p.Run(context.Background(), job.ID, DefaultParams(filepath.Join(cfg.InputDir, "quiet.m4a"), 0))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if session.TrackCount != 0 {
		t.Errorf("track count = %d", session.TrackCount)
	}
	if len(exp.calls) != 0 {
		t.Errorf("silent recording exported %d tracks", len(exp.calls))
	}
	done, _ := p.reg.Get(job.ID)
	if done.Status != bandsaw.JobComplete || done.Result["tracks"] != 0 {
		t.Errorf("job = %+v", done)
	}
}

func TestRunProbeFailureStillProcesses(t *testing.T) {
	exp := &fakeExporter{}
	p, cfg := newTestProcessor(t, &fakeDecoder{}, &fakeProber{err: fmt.Errorf("ffprobe missing")}, exp, &fakeStorage{})

	job := p.reg.Create(jobs.KindProcess)
	session, err := p.Run(context.Background(), job.ID, DefaultParams(filepath.Join(cfg.InputDir, "practice.m4a"), 0))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if session.Date != "" {
		t.Errorf("session date = %q, want empty", session.Date)
	}
	if len(exp.calls) != 2 {
		t.Fatalf("got %d exports", len(exp.calls))
	}
	if !strings.HasPrefix(filepath.Base(exp.calls[0].dest), "unknown-date_1_") {
		t.Errorf("export name = %q", filepath.Base(exp.calls[0].dest))
	}
}

func TestRunFilenameDateBeatsMetadata(t *testing.T) {
	exp := &fakeExporter{}
	p, cfg := newTestProcessor(t, &fakeDecoder{}, &fakeProber{date: recordedOn(t)}, exp, &fakeStorage{})

	job := p.reg.Create(jobs.KindProcess)
	session, err := p.Run(context.Background(), job.ID,
		DefaultParams(filepath.Join(cfg.InputDir, "Slow Burners 1-22-26.m4a"), 0))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if session.Date != "2026-01-22" {
		t.Errorf("session date = %q, want filename date 2026-01-22", session.Date)
	}
	if session.Name != "Slow Burners" {
		t.Errorf("session name = %q", session.Name)
	}
	if !strings.HasPrefix(filepath.Base(exp.calls[0].dest), "2026-01-22_1_") {
		t.Errorf("export name = %q", filepath.Base(exp.calls[0].dest))
	}
}

func TestRunExplicitDateWins(t *testing.T) {
	p, cfg := newTestProcessor(t, &fakeDecoder{}, &fakeProber{date: recordedOn(t)}, &fakeExporter{}, &fakeStorage{})

	params := DefaultParams(filepath.Join(cfg.InputDir, "Slow Burners 1-22-26.m4a"), 0)
	params.Date = "2025-12-31"
	params.Notes = "first set only"

	job := p.reg.Create(jobs.KindProcess)
	session, err := p.Run(context.Background(), job.ID, params)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if session.Date != "2025-12-31" {
		t.Errorf("session date = %q", session.Date)
	}
	if session.Notes != "first set only" {
		t.Errorf("session notes = %q", session.Notes)
	}
}

func TestRunFillsExistingSession(t *testing.T) {
	p, cfg := newTestProcessor(t, &fakeDecoder{}, &fakeProber{date: recordedOn(t)}, &fakeExporter{}, &fakeStorage{})

	source := filepath.Join(cfg.InputDir, "practice.m4a")
	sessionID, err := p.db.CreateSession(0, cfg.MakeRelative(source), "", "")
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}

	params := DefaultParams(source, 0)
	params.SessionID = sessionID

	job := p.reg.Create(jobs.KindProcess)
	session, err := p.Run(context.Background(), job.ID, params)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if session.ID != sessionID {
		t.Fatalf("session id = %d, want %d", session.ID, sessionID)
	}
	if session.Date != "2026-02-14" {
		t.Errorf("session date = %q, want filled from metadata", session.Date)
	}
	if session.TrackCount != 2 {
		t.Errorf("track count = %d", session.TrackCount)
	}

	sessions, err := p.db.ListSessions(nil)
	if err != nil {
		t.Fatalf("ListSessions: %v", err)
	}
	if len(sessions) != 1 {
		t.Errorf("got %d sessions, want the pre-created one only", len(sessions))
	}
}

func TestRunMissingSessionFailsJob(t *testing.T) {
	p, cfg := newTestProcessor(t, &fakeDecoder{}, &fakeProber{}, &fakeExporter{}, &fakeStorage{})

	params := DefaultParams(filepath.Join(cfg.InputDir, "practice.m4a"), 0)
	params.SessionID = 999

	job := p.reg.Create(jobs.KindProcess)
	_, err := p.Run(context.Background(), job.ID, params)
	var nfErr *bandsaw.NotFoundError
	if !errors.As(err, &nfErr) {
		t.Fatalf("err = %v, want NotFoundError", err)
	}
}

func TestRunExportFailureFailsJob(t *testing.T) {
	p, cfg := newTestProcessor(t, &fakeDecoder{}, &fakeProber{date: recordedOn(t)}, &fakeExporter{fail: true}, &fakeStorage{})

	job := p.reg.Create(jobs.KindProcess)
	_, err := p.Run(context.Background(), job.ID, DefaultParams(filepath.Join(cfg.InputDir, "practice.m4a"), 0))
	var procErr *bandsaw.ProcessingError
	if !errors.As(err, &procErr) {
		t.Fatalf("err = %v, want ProcessingError", err)
	}
	failed, _ := p.reg.Get(job.ID)
	if failed.Status != bandsaw.JobFailed {
		t.Errorf("job status = %q", failed.Status)
	}
}

func TestDefaultParams(t *testing.T) {
	p := DefaultParams("/data/recordings/jam.m4a", 3)
	if p.EnergyThresholdDB != splitter.DefaultEnergyThresholdDB {
		t.Errorf("threshold = %v", p.EnergyThresholdDB)
	}
	if p.MinSongDurationSec != splitter.DefaultMinSongDurationSec {
		t.Errorf("min duration = %v", p.MinSongDurationSec)
	}
	if p.Format != output.DefaultFormat {
		t.Errorf("format = %+v", p.Format)
	}
	if p.GroupID != 3 {
		t.Errorf("group = %d", p.GroupID)
	}
}
