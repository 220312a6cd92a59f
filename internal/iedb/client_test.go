package iedb

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubmit(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantErr    bool
		wantID     string
		wantURI    string
	}{
		{
			name:   "returns handle with result id",
			status: http.StatusOK,
			body:   `{"result_id":"abc-123"}`,
			wantID: "abc-123",
		},
		{
			name:    "returns handle with results uri",
			status:  http.StatusCreated,
			body:    `{"results_uri":"http://example.com/results/9"}`,
			wantURI: "http://example.com/results/9",
		},
		{
			name:    "fails on non-success status",
			status:  http.StatusBadGateway,
			body:    `{}`,
			wantErr: true,
		},
		{
			name:    "fails when no handle returned",
			status:  http.StatusOK,
			body:    `{"warnings":[]}`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotBody PipelineRequest
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodPost, r.Method)
				assert.Equal(t, "/pipeline", r.URL.Path)
				require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			c := NewClient(srv.URL)
			req := NewBindingRequest(ToolGroupMHCI, "MKTAYIAK", "HLA-A*02:01", 9, 9, "netmhcpan_el")

			handle, err := c.Submit(context.Background(), req)
			if tt.wantErr {
				var se *SubmissionError
				require.ErrorAs(t, err, &se)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantID, handle.ResultID)
			assert.Equal(t, tt.wantURI, handle.ResultsURI)
			assert.False(t, handle.SubmittedAt.IsZero())

			// Wire shape per the NextGen API reference.
			assert.Equal(t, [2]int{1, 1}, gotBody.RunStageRange)
			require.Len(t, gotBody.Stages, 1)
			st := gotBody.Stages[0]
			assert.Equal(t, 1, st.StageNumber)
			assert.Equal(t, "mhci", st.ToolGroup)
			assert.Equal(t, "HLA-A*02:01", st.InputParameters.Alleles)
			assert.Equal(t, [2]int{9, 9}, st.InputParameters.PeptideLengthRange)
			require.Len(t, st.InputParameters.Predictors, 1)
			assert.Equal(t, "binding", st.InputParameters.Predictors[0].Type)
			assert.Equal(t, "netmhcpan_el", st.InputParameters.Predictors[0].Method)
		})
	}
}

func TestPoll(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/results/abc-123", r.URL.Path)
		_, _ = w.Write([]byte(`{"status":"running"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	env, err := c.Poll(context.Background(), JobHandle{ResultID: "abc-123"})
	require.NoError(t, err)
	assert.Equal(t, StatusRunning, env.EffectiveStatus())
}

func TestPoll_PrefersResultsURI(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/custom/uri", r.URL.Path)
		_, _ = w.Write([]byte(`{"data":{"results":[]}}`))
	}))
	defer srv.Close()

	c := NewClient("http://ignored.invalid")
	env, err := c.Poll(context.Background(), JobHandle{ResultID: "x", ResultsURI: srv.URL + "/custom/uri"})
	require.NoError(t, err)
	// Results list present without explicit status resolves to done.
	assert.Equal(t, StatusDone, env.EffectiveStatus())
}

func TestPoll_NonSuccessStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "gateway timeout", http.StatusGatewayTimeout)
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	_, err := c.Poll(context.Background(), JobHandle{ResultID: "abc"})
	var pe *PollError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, http.StatusGatewayTimeout, pe.StatusCode)
}

func TestEnvelopeHelpers(t *testing.T) {
	env := &ResultEnvelope{}
	assert.Equal(t, StatusPending, env.EffectiveStatus())
	assert.Nil(t, env.PeptideTable())
	assert.Empty(t, env.FirstError())

	env = &ResultEnvelope{
		Status: StatusDone,
		Data: &ResultData{
			Results: []ResultBlock{
				{Type: "input_sequences"},
				{Type: BlockTypePeptideTable, TableColumns: []Column{{Name: "peptide"}}},
			},
			Errors: []json.RawMessage{json.RawMessage(`"allele not supported"`)},
		},
	}
	require.NotNil(t, env.PeptideTable())
	assert.Equal(t, BlockTypePeptideTable, env.PeptideTable().Type)
	assert.Equal(t, `"allele not supported"`, env.FirstError())
}
