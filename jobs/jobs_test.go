package jobs

import (
	"errors"
	"testing"

	"github.com/mager/bandsaw/bandsaw"
	"github.com/mager/bandsaw/logger"
)

func newRegistry() *Registry {
	log, _ := logger.NewTestLogger()
	return NewRegistry(log)
}

func TestJobLifecycle(t *testing.T) {
	reg := newRegistry()
	job := reg.Create(KindProcess)

	if job.ID == "" || job.Status != bandsaw.JobPending {
		t.Fatalf("new job = %+v", job)
	}
	if job.Done() {
		t.Error("pending job should not be done")
	}

	reg.SetRunning(job.ID)
	reg.SetProgress(job.ID, 40, "Analyzing track 2/5")

	got, ok := reg.Get(job.ID)
	if !ok {
		t.Fatal("job disappeared")
	}
	if got.Status != bandsaw.JobRunning || got.Progress != 40 || got.Message != "Analyzing track 2/5" {
		t.Errorf("running job = %+v", got)
	}

	reg.Complete(job.ID, map[string]any{"session_id": int64(7), "tracks": 5})
	got, _ = reg.Get(job.ID)
	if got.Status != bandsaw.JobComplete || got.Progress != 100 || !got.Done() {
		t.Errorf("completed job = %+v", got)
	}
	if got.Result["tracks"] != 5 {
		t.Errorf("result = %v", got.Result)
	}
}

func TestJobFailure(t *testing.T) {
	reg := newRegistry()
	job := reg.Create(KindProcess)
	reg.SetRunning(job.ID)
	reg.Fail(job.ID, errors.New("decode blew up"))

	got, _ := reg.Get(job.ID)
	if got.Status != bandsaw.JobFailed || !got.Done() {
		t.Errorf("failed job = %+v", got)
	}
	if got.Error != "decode blew up" {
		t.Errorf("error = %q", got.Error)
	}
}

func TestProgressClamped(t *testing.T) {
	reg := newRegistry()
	job := reg.Create(KindProcess)

	reg.SetProgress(job.ID, -5, "")
	if got, _ := reg.Get(job.ID); got.Progress != 0 {
		t.Errorf("progress = %v, want 0", got.Progress)
	}
	reg.SetProgress(job.ID, 250, "")
	if got, _ := reg.Get(job.ID); got.Progress != 100 {
		t.Errorf("progress = %v, want 100", got.Progress)
	}
}

func TestGetUnknownJob(t *testing.T) {
	reg := newRegistry()
	if _, ok := reg.Get("nope"); ok {
		t.Error("unknown job should not resolve")
	}
}

func TestSnapshotsAreIsolated(t *testing.T) {
	reg := newRegistry()
	job := reg.Create(KindProcess)

	snap, _ := reg.Get(job.ID)
	snap.Status = bandsaw.JobFailed

	got, _ := reg.Get(job.ID)
	if got.Status != bandsaw.JobPending {
		t.Errorf("mutating a snapshot should not affect the registry: %+v", got)
	}
}
