package job

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/epitopelab/bindscope/internal/iedb"
	"github.com/epitopelab/bindscope/internal/testutil"
)

// scriptClient serves a fixed sequence of poll responses, repeating the
// last step once the script is exhausted, and records call times.
type scriptClient struct {
	mu    sync.Mutex
	steps []pollStep
	next  int
	calls []time.Time
}

type pollStep struct {
	env *iedb.ResultEnvelope
	err error
}

func (c *scriptClient) Poll(ctx context.Context, _ iedb.JobHandle) (*iedb.ResultEnvelope, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, time.Now())
	step := c.steps[c.next]
	if c.next < len(c.steps)-1 {
		c.next++
	}
	return step.env, step.err
}

func (c *scriptClient) callTimes() []time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]time.Time(nil), c.calls...)
}

func doneEnvelope() *iedb.ResultEnvelope {
	return &iedb.ResultEnvelope{
		Status: iedb.StatusDone,
		Data: &iedb.ResultData{
			Results: []iedb.ResultBlock{{
				Type: "peptide_table",
				TableColumns: []iedb.Column{
					{Name: "allele"}, {Name: "start"}, {Name: "end"},
					{Name: "peptide"}, {Name: "ic50"},
				},
				TableData: [][]any{
					{"HLA-A*02:01", 5.0, 12.0, "SIINFEKL", 120.0},
					{"HLA-A*02:01", 9.0, 16.0, "FEKLTEWT", 9900.0},
					{"HLA-B*07:02", 3.0, 11.0, "RPKSNIVLL", 250.0},
				},
			}},
		},
	}
}

func statusEnvelope(status string) *iedb.ResultEnvelope {
	return &iedb.ResultEnvelope{Status: status}
}

func newTestManager(t *testing.T, client PollClient, interval time.Duration) *Manager {
	t.Helper()
	m := NewManager(client, testutil.NewTestLogger(t), WithPollInterval(interval))
	t.Cleanup(m.Shutdown)
	return m
}

func waitDone(t *testing.T, j *Job) {
	t.Helper()
	select {
	case <-j.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("poll loop did not terminate")
	}
}

func TestJob_RunsToCompletion(t *testing.T) {
	client := &scriptClient{steps: []pollStep{
		{env: statusEnvelope(iedb.StatusPending)},
		{env: statusEnvelope(iedb.StatusRunning)},
		{env: doneEnvelope()},
	}}
	m := newTestManager(t, client, 10*time.Millisecond)

	j := m.Start(iedb.JobHandle{ResultID: "r1"}, Params{Title: "flu run"})
	waitDone(t, j)

	snap := j.Snapshot()
	assert.Equal(t, PhaseDone, snap.Phase)
	assert.Empty(t, snap.ErrorMessage)
	assert.Equal(t, 3, snap.RowCount)
	require.NotNil(t, j.View())
	require.NotNil(t, j.Chart())
	assert.Len(t, j.Chart().Series(), 2)
	assert.Len(t, client.callTimes(), 3)
}

func TestJob_FirstPollIsImmediate(t *testing.T) {
	client := &scriptClient{steps: []pollStep{{env: doneEnvelope()}}}
	m := newTestManager(t, client, time.Minute)

	start := time.Now()
	j := m.Start(iedb.JobHandle{ResultID: "r1"}, Params{})
	waitDone(t, j)

	calls := client.callTimes()
	require.Len(t, calls, 1)
	assert.Less(t, calls[0].Sub(start), 5*time.Second)
}

func TestJob_PollsAreSpacedByInterval(t *testing.T) {
	const interval = 50 * time.Millisecond
	client := &scriptClient{steps: []pollStep{
		{env: statusEnvelope(iedb.StatusRunning)},
		{env: statusEnvelope(iedb.StatusRunning)},
		{env: doneEnvelope()},
	}}
	m := newTestManager(t, client, interval)

	j := m.Start(iedb.JobHandle{ResultID: "r1"}, Params{})
	waitDone(t, j)

	calls := client.callTimes()
	require.Len(t, calls, 3)
	for i := 1; i < len(calls); i++ {
		assert.GreaterOrEqual(t, calls[i].Sub(calls[i-1]), interval)
	}
}

func TestJob_TransportErrorIsTerminal(t *testing.T) {
	client := &scriptClient{steps: []pollStep{
		{err: errors.New("connection refused")},
	}}
	m := newTestManager(t, client, 10*time.Millisecond)

	j := m.Start(iedb.JobHandle{ResultID: "r1"}, Params{})
	waitDone(t, j)

	snap := j.Snapshot()
	assert.Equal(t, PhaseError, snap.Phase)
	assert.Contains(t, snap.ErrorMessage, "connection refused")
	assert.Len(t, client.callTimes(), 1, "no retry after a transport error")
}

func TestJob_DoneWithUpstreamErrors(t *testing.T) {
	env := doneEnvelope()
	env.Data.Errors = []json.RawMessage{
		json.RawMessage(`"invalid allele HLA-X*99:99"`),
		json.RawMessage(`"second error"`),
	}
	client := &scriptClient{steps: []pollStep{{env: env}}}
	m := newTestManager(t, client, 10*time.Millisecond)

	j := m.Start(iedb.JobHandle{ResultID: "r1"}, Params{})
	waitDone(t, j)

	snap := j.Snapshot()
	assert.Equal(t, PhaseError, snap.Phase)
	assert.Equal(t, "invalid allele HLA-X*99:99", snap.ErrorMessage)
}

func TestJob_DoneWithoutPeptideTable(t *testing.T) {
	env := &iedb.ResultEnvelope{
		Status: iedb.StatusDone,
		Data: &iedb.ResultData{
			Results: []iedb.ResultBlock{{Type: "summary_table"}},
		},
	}
	client := &scriptClient{steps: []pollStep{{env: env}}}
	m := newTestManager(t, client, 10*time.Millisecond)

	j := m.Start(iedb.JobHandle{ResultID: "r1"}, Params{})
	waitDone(t, j)

	snap := j.Snapshot()
	assert.Equal(t, PhaseError, snap.Phase)
	assert.Contains(t, snap.ErrorMessage, "no peptide table")
}

func TestJob_SubscribeReceivesPings(t *testing.T) {
	client := &scriptClient{steps: []pollStep{
		{env: statusEnvelope(iedb.StatusRunning)},
		{env: doneEnvelope()},
	}}
	m := newTestManager(t, client, 10*time.Millisecond)

	j := m.Start(iedb.JobHandle{ResultID: "r1"}, Params{})
	ch := j.Subscribe()
	defer j.Unsubscribe(ch)

	select {
	case <-ch:
	case <-time.After(5 * time.Second):
		t.Fatal("no update ping received")
	}
	waitDone(t, j)
}

func TestManager_GetAndTeardown(t *testing.T) {
	client := &scriptClient{steps: []pollStep{
		{env: statusEnvelope(iedb.StatusRunning)},
	}}
	m := newTestManager(t, client, 10*time.Millisecond)

	j := m.Start(iedb.JobHandle{ResultID: "r1"}, Params{})
	got, ok := m.Get(j.ID)
	require.True(t, ok)
	assert.Same(t, j, got)
	assert.Len(t, m.List(), 1)

	require.Eventually(t, func() bool {
		return j.Snapshot().Phase == PhaseRunning
	}, 5*time.Second, time.Millisecond)

	m.Teardown(j.ID)
	_, ok = m.Get(j.ID)
	assert.False(t, ok)

	// The poll loop has exited and the phase stays non-terminal: the
	// cancelled response was discarded.
	select {
	case <-j.Done():
	default:
		t.Fatal("teardown should wait for the poll loop to exit")
	}
	assert.Equal(t, PhaseRunning, j.Snapshot().Phase)

	// Unknown IDs are a no-op.
	m.Teardown("nope")
}
