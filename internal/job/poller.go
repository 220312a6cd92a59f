// Package job tracks in-flight prediction runs: each submitted pipeline
// gets a Job that polls the upstream API until it reaches a terminal
// state, then holds the interactive result (table view and chart) for the
// web handlers.
package job

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/epitopelab/bindscope/internal/chart"
	"github.com/epitopelab/bindscope/internal/iedb"
	"github.com/epitopelab/bindscope/internal/results"
	"github.com/epitopelab/bindscope/internal/table"
)

// DefaultPollInterval is the fixed delay between status polls.
const DefaultPollInterval = 2 * time.Second

// Phase is the lifecycle state of a run as presented to the UI.
type Phase string

const (
	PhasePending Phase = "pending"
	PhaseRunning Phase = "running"
	PhaseDone    Phase = "done"
	PhaseError   Phase = "error"
)

// Terminal reports whether no further polls will happen.
func (p Phase) Terminal() bool {
	return p == PhaseDone || p == PhaseError
}

// PollClient fetches the current state of a submitted pipeline.
type PollClient interface {
	Poll(ctx context.Context, handle iedb.JobHandle) (*iedb.ResultEnvelope, error)
}

// Snapshot is a point-in-time copy of a job's externally visible state.
type Snapshot struct {
	Phase        Phase
	ErrorMessage string
	RowCount     int
}

// Job is one tracked prediction run. The poll loop owns the state; readers
// take snapshots or access the view and chart after the job is done.
type Job struct {
	ID     string
	Handle iedb.JobHandle

	Title        string
	SequenceText string
	Alleles      []string
	Method       string

	mu      sync.RWMutex
	phase   Phase
	errMsg  string
	view    *table.View
	chart   *chart.Chart
	rawRows []results.Row

	listeners map[chan struct{}]struct{}
	cancel    context.CancelFunc
	done      chan struct{}
}

// Snapshot returns the current phase and summary counts.
func (j *Job) Snapshot() Snapshot {
	j.mu.RLock()
	defer j.mu.RUnlock()
	n := 0
	if j.view != nil {
		n = len(j.view.AllRows())
	}
	return Snapshot{Phase: j.phase, ErrorMessage: j.errMsg, RowCount: n}
}

// View returns the table view, or nil until the job is done.
func (j *Job) View() *table.View {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.view
}

// Chart returns the chart, or nil until the job is done.
func (j *Job) Chart() *chart.Chart {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.chart
}

// Rows returns all relevant rows, or nil until the job is done.
func (j *Job) Rows() []results.Row {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.rawRows
}

// Subscribe returns a channel that receives a ping whenever the job's
// state changes. Callers must Unsubscribe when done.
func (j *Job) Subscribe() chan struct{} {
	ch := make(chan struct{}, 1)
	j.mu.Lock()
	j.listeners[ch] = struct{}{}
	j.mu.Unlock()
	return ch
}

// Unsubscribe removes a listener channel and closes it.
func (j *Job) Unsubscribe(ch chan struct{}) {
	j.mu.Lock()
	delete(j.listeners, ch)
	j.mu.Unlock()
	close(ch)
}

// Done is closed when the poll loop exits for any reason.
func (j *Job) Done() <-chan struct{} { return j.done }

func (j *Job) notify() {
	j.mu.RLock()
	defer j.mu.RUnlock()
	for ch := range j.listeners {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

func (j *Job) setPhase(p Phase) {
	j.mu.Lock()
	changed := j.phase != p
	j.phase = p
	j.mu.Unlock()
	if changed {
		j.notify()
	}
}

func (j *Job) fail(msg string) {
	j.mu.Lock()
	j.phase = PhaseError
	j.errMsg = msg
	j.mu.Unlock()
	j.notify()
}

func (j *Job) complete(rows []results.Row) {
	relevant := results.Relevant(rows)
	series := results.BuildSeries(relevant)
	flat := results.Flatten(series)

	j.mu.Lock()
	j.phase = PhaseDone
	j.rawRows = flat
	j.view = table.NewView(flat)
	j.chart = chart.New(series)
	j.mu.Unlock()
	j.notify()
}

// run polls until the job reaches a terminal phase or ctx is cancelled.
// The first poll happens immediately; later polls are spaced by interval.
// Every response is discarded if the context was cancelled while the
// request was in flight, so a torn-down job never mutates state again.
func (j *Job) run(ctx context.Context, client PollClient, interval time.Duration, log *slog.Logger) {
	defer close(j.done)

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}

		env, err := client.Poll(ctx, j.Handle)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			log.Error("poll failed", "job_id", j.ID, "error", err)
			j.fail(err.Error())
			return
		}

		switch env.EffectiveStatus() {
		case iedb.StatusPending:
			j.setPhase(PhasePending)
		case iedb.StatusRunning:
			j.setPhase(PhaseRunning)
		case iedb.StatusError:
			msg := env.FirstError()
			if msg == "" {
				msg = "prediction failed upstream"
			}
			j.fail(msg)
			return
		case iedb.StatusDone:
			if msg := env.FirstError(); msg != "" {
				j.fail(msg)
				return
			}
			pt := env.PeptideTable()
			if pt == nil {
				j.fail("no peptide table in results")
				return
			}
			j.complete(results.Normalize(pt))
			log.Info("prediction complete", "job_id", j.ID, "rows", len(j.Rows()))
			return
		default:
			j.fail(fmt.Sprintf("unknown status %q", env.EffectiveStatus()))
			return
		}

		timer.Reset(interval)
	}
}
