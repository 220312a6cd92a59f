// Package features provides shared test utilities for UI feature tests.
package features

import (
	"context"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/epitopelab/bindscope/internal/alleles"
	"github.com/epitopelab/bindscope/internal/iedb"
	"github.com/epitopelab/bindscope/internal/job"
	"github.com/epitopelab/bindscope/internal/state"
	"github.com/epitopelab/bindscope/internal/testutil"
	"github.com/epitopelab/bindscope/internal/ui/notifier"
)

// TestFixture holds all dependencies needed for UI handler tests.
type TestFixture struct {
	Store    state.Store
	Catalog  *alleles.Catalog
	Notifier *notifier.Notifier
	Manager  *job.Manager
	Client   *FakeClient
	Sessions *FixedSession
}

// SetupTestFixture builds an in-memory dependency set.
func SetupTestFixture(t *testing.T) *TestFixture {
	t.Helper()

	logger := testutil.NewTestLogger(t)

	store, err := state.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	catalog, err := alleles.NewCatalog(logger)
	require.NoError(t, err)

	client := &FakeClient{}
	manager := job.NewManager(client, logger, job.WithPollInterval(10*time.Millisecond))
	t.Cleanup(manager.Shutdown)

	return &TestFixture{
		Store:    store,
		Catalog:  catalog,
		Notifier: notifier.New(),
		Manager:  manager,
		Client:   client,
		Sessions: &FixedSession{},
	}
}

// FakeClient scripts Submit and Poll responses for handler tests.
type FakeClient struct {
	mu sync.Mutex

	SubmitHandle iedb.JobHandle
	SubmitErr    error
	Submitted    []iedb.PipelineRequest

	PollEnvelope *iedb.ResultEnvelope
	PollErr      error
}

func (c *FakeClient) Submit(_ context.Context, req iedb.PipelineRequest) (iedb.JobHandle, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Submitted = append(c.Submitted, req)
	return c.SubmitHandle, c.SubmitErr
}

func (c *FakeClient) Poll(_ context.Context, _ iedb.JobHandle) (*iedb.ResultEnvelope, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.PollEnvelope == nil && c.PollErr == nil {
		return &iedb.ResultEnvelope{Status: iedb.StatusRunning}, nil
	}
	return c.PollEnvelope, c.PollErr
}

// DoneEnvelope returns a terminal envelope with a small peptide table.
func DoneEnvelope() *iedb.ResultEnvelope {
	return &iedb.ResultEnvelope{
		Status: iedb.StatusDone,
		Data: &iedb.ResultData{
			Results: []iedb.ResultBlock{{
				Type: iedb.BlockTypePeptideTable,
				TableColumns: []iedb.Column{
					{Name: "allele"}, {Name: "start"}, {Name: "end"},
					{Name: "peptide"}, {Name: "ic50"}, {Name: "method"},
					{Name: "sequence_text"},
				},
				TableData: [][]any{
					{"HLA-A*02:01", 5.0, 12.0, "SIINFEKL", 120.0, "netmhcpan_el", "MKTASIINFEKLRPKSNIVLLGQ"},
					{"HLA-B*07:02", 9.0, 17.0, "RPKSNIVLL", 250.0, "netmhcpan_el", "MKTASIINFEKLRPKSNIVLLGQ"},
				},
			}},
		},
	}
}

// FixedSession is a Provider with a settable token.
type FixedSession struct {
	mu      sync.Mutex
	Current string
}

func (s *FixedSession) Token(*http.Request) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Current, nil
}

func (s *FixedSession) SetToken(_ http.ResponseWriter, _ *http.Request, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Current = token
	return nil
}

func (s *FixedSession) Clear(http.ResponseWriter, *http.Request) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Current = ""
	return nil
}
