// Package jobs implements the background job registry backing the bash
// tool: a process-wide map from 8-hex job id to the running child process,
// its live output file, and its original command.
package jobs

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"github.com/lucentsys/agentspace/internal/models"
)

// Registry is the shared map of running background jobs. One Registry
// instance is process-wide so that bash and bash_kill observe the same
// state.
type Registry struct {
	mu   sync.Mutex
	jobs map[string]*job
}

// job is the internal handle kept alongside the spec-visible
// models.BackgroundJob record.
type job struct {
	record models.BackgroundJob
	proc   *process
	done   chan struct{}
}

// NewRegistry returns an empty, process-wide job registry.
func NewRegistry() *Registry {
	return &Registry{jobs: make(map[string]*job)}
}

// newJobID returns a fresh 8-hex id, retrying on the astronomically
// unlikely collision.
func (r *Registry) newJobID() string {
	for {
		buf := make([]byte, 4)
		_, _ = rand.Read(buf)
		id := hex.EncodeToString(buf)
		if _, taken := r.jobs[id]; !taken {
			return id
		}
	}
}

func (r *Registry) register(id string, record models.BackgroundJob, p *process) *job {
	r.mu.Lock()
	defer r.mu.Unlock()
	j := &job{record: record, proc: p, done: make(chan struct{})}
	r.jobs[id] = j
	return j
}

func (r *Registry) unregister(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.jobs, id)
}

// Get returns the record for a running job.
func (r *Registry) Get(id string) (models.BackgroundJob, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	j, ok := r.jobs[id]
	if !ok {
		return models.BackgroundJob{}, false
	}
	return j.record, true
}

// List returns every currently running job's record.
func (r *Registry) List() []models.BackgroundJob {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.BackgroundJob, 0, len(r.jobs))
	for _, j := range r.jobs {
		out = append(out, j.record)
	}
	return out
}

// Kill sends a graceful termination signal to the job, force-killing it
// after a 2s grace period if it's still alive. Returns the output path for
// the caller's confirmation message.
func (r *Registry) Kill(id string) (outputPath string, err error) {
	r.mu.Lock()
	j, ok := r.jobs[id]
	r.mu.Unlock()
	if !ok {
		return "", fmt.Errorf("no such job %q", id)
	}

	j.proc.terminate(2 * time.Second)
	return j.record.OutputPath, nil
}
