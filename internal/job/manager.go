package job

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/epitopelab/bindscope/internal/iedb"
)

// Manager owns the set of live jobs, keyed by locally generated UUID.
// Jobs stay addressable after they finish so the results page can keep
// interacting with them; Teardown removes them explicitly.
type Manager struct {
	client   PollClient
	interval time.Duration
	log      *slog.Logger

	mu   sync.RWMutex
	jobs map[string]*Job
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithPollInterval overrides the delay between polls.
func WithPollInterval(d time.Duration) ManagerOption {
	return func(m *Manager) { m.interval = d }
}

// NewManager creates an empty job manager.
func NewManager(client PollClient, log *slog.Logger, opts ...ManagerOption) *Manager {
	m := &Manager{
		client:   client,
		interval: DefaultPollInterval,
		log:      log,
		jobs:     make(map[string]*Job),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Params describes the run being tracked, for display alongside results.
type Params struct {
	Title        string
	SequenceText string
	Alleles      []string
	Method       string
}

// Start registers a submitted pipeline and launches its poll loop. The
// loop runs until a terminal phase or Teardown.
func (m *Manager) Start(handle iedb.JobHandle, p Params) *Job {
	ctx, cancel := context.WithCancel(context.Background())
	j := &Job{
		ID:           uuid.NewString(),
		Handle:       handle,
		Title:        p.Title,
		SequenceText: p.SequenceText,
		Alleles:      p.Alleles,
		Method:       p.Method,
		phase:        PhasePending,
		listeners:    make(map[chan struct{}]struct{}),
		cancel:       cancel,
		done:         make(chan struct{}),
	}

	m.mu.Lock()
	m.jobs[j.ID] = j
	m.mu.Unlock()

	go j.run(ctx, m.client, m.interval, m.log.With("job_id", j.ID))
	return j
}

// Get returns the job with the given ID, if it is still tracked.
func (m *Manager) Get(id string) (*Job, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	j, ok := m.jobs[id]
	return j, ok
}

// List returns all tracked jobs.
func (m *Manager) List() []*Job {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Job, 0, len(m.jobs))
	for _, j := range m.jobs {
		out = append(out, j)
	}
	return out
}

// Teardown cancels the job's poll loop and forgets it. Safe to call for
// unknown IDs and for jobs that already finished.
func (m *Manager) Teardown(id string) {
	m.mu.Lock()
	j, ok := m.jobs[id]
	delete(m.jobs, id)
	m.mu.Unlock()
	if !ok {
		return
	}
	j.cancel()
	<-j.Done()
	m.log.Info("job torn down", "job_id", id)
}

// Shutdown tears down every live job.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	jobs := m.jobs
	m.jobs = make(map[string]*Job)
	m.mu.Unlock()
	for id, j := range jobs {
		j.cancel()
		<-j.Done()
		m.log.Debug("job torn down", "job_id", id)
	}
}
