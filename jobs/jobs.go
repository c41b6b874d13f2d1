// Package jobs tracks background processing runs. State is in-memory
// only: a restart forgets jobs, while their durable output (sessions,
// tracks) lives in the database.
package jobs

import (
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mager/bandsaw/bandsaw"
)

// Job kinds.
const (
	KindProcess = "process"
	KindRescan  = "rescan"
)

type Registry struct {
	log *zap.SugaredLogger

	mu   sync.RWMutex
	jobs map[string]*bandsaw.Job
}

func NewRegistry(log *zap.SugaredLogger) *Registry {
	return &Registry{log: log, jobs: map[string]*bandsaw.Job{}}
}

// Create registers a new pending job and returns a snapshot of it.
func (r *Registry) Create(kind string) bandsaw.Job {
	job := &bandsaw.Job{
		ID:     uuid.NewString(),
		Kind:   kind,
		Status: bandsaw.JobPending,
	}
	r.mu.Lock()
	r.jobs[job.ID] = job
	r.mu.Unlock()
	return *job
}

// Get returns a snapshot of the job, so callers can serialize it without
// racing updates.
func (r *Registry) Get(id string) (bandsaw.Job, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	job, ok := r.jobs[id]
	if !ok {
		return bandsaw.Job{}, false
	}
	return *job, true
}

func (r *Registry) update(id string, fn func(*bandsaw.Job)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if job, ok := r.jobs[id]; ok {
		fn(job)
	}
}

func (r *Registry) SetRunning(id string) {
	r.update(id, func(j *bandsaw.Job) {
		j.Status = bandsaw.JobRunning
	})
}

// SetProgress records progress (clamped to 0-100) and a status message.
func (r *Registry) SetProgress(id string, progress float64, message string) {
	if progress < 0 {
		progress = 0
	}
	if progress > 100 {
		progress = 100
	}
	r.update(id, func(j *bandsaw.Job) {
		j.Progress = progress
		j.Message = message
	})
}

func (r *Registry) Complete(id string, result map[string]any) {
	r.update(id, func(j *bandsaw.Job) {
		j.Status = bandsaw.JobComplete
		j.Progress = 100
		j.Result = result
	})
	r.log.Infow("Job complete", "jobID", id)
}

func (r *Registry) Fail(id string, err error) {
	r.update(id, func(j *bandsaw.Job) {
		j.Status = bandsaw.JobFailed
		j.Error = err.Error()
	})
	r.log.Errorw("Job failed", "jobID", id, "error", err)
}

var Options = NewRegistry
