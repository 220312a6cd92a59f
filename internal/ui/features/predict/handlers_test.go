package predict

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/epitopelab/bindscope/internal/iedb"
	"github.com/epitopelab/bindscope/internal/state"
	"github.com/epitopelab/bindscope/internal/testutil"
	"github.com/epitopelab/bindscope/internal/ui/features"
)

func setupRouter(t *testing.T) (*chi.Mux, *features.TestFixture) {
	t.Helper()
	fixture := features.SetupTestFixture(t)
	r := chi.NewRouter()
	SetupRoutes(r, fixture.Client, fixture.Manager, fixture.Store, fixture.Catalog, fixture.Notifier, testutil.NewTestLogger(t))
	return r, fixture
}

func validForm() url.Values {
	return url.Values{
		"title":         {"flu scan"},
		"tool_group":    {"mhci"},
		"method":        {"netmhcpan_el"},
		"alleles":       {"HLA-A*02:01", "HLA-B*07:02"},
		"length_min":    {"8"},
		"length_max":    {"11"},
		"sequence_text": {">seq1\nmsiinfekl\nGILGFVFTL"},
	}
}

func postForm(r http.Handler, path string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestFormPage(t *testing.T) {
	r, _ := setupRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "Peptide binding prediction")
	assert.Contains(t, body, "HLA-A*02:01")
	assert.Contains(t, body, "netmhcpan_el")
}

func TestFormPage_PrefillFromSavedSearch(t *testing.T) {
	r, fixture := setupRouter(t)

	saved := &state.SavedSearch{
		Name: "cmv panel", ToolGroup: "mhci", Method: "netmhcpan_ba",
		Alleles: "HLA-A*02:01", LengthMin: 9, LengthMax: 10,
		SequenceText: "NLVPMVATV",
	}
	require.NoError(t, fixture.Store.CreateSearch(saved))

	req := httptest.NewRequest(http.MethodGet, "/?search="+saved.ID, nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	body := w.Body.String()
	assert.Contains(t, body, "NLVPMVATV")
	assert.Contains(t, body, "cmv panel")
}

func TestSubmit(t *testing.T) {
	r, fixture := setupRouter(t)
	fixture.Client.SubmitHandle = iedb.JobHandle{ResultID: "res-42"}

	w := postForm(r, "/predict", validForm())

	require.Equal(t, http.StatusSeeOther, w.Code)
	assert.True(t, strings.HasPrefix(w.Header().Get("Location"), "/results/"))

	// Wire request shape.
	require.Len(t, fixture.Client.Submitted, 1)
	req := fixture.Client.Submitted[0]
	assert.Equal(t, "flu scan", req.PipelineTitle)
	assert.Equal(t, [2]int{1, 1}, req.RunStageRange)
	require.Len(t, req.Stages, 1)
	stage := req.Stages[0]
	assert.Equal(t, "mhci", stage.ToolGroup)
	// FASTA header dropped, residues uppercased and joined.
	assert.Equal(t, "MSIINFEKLGILGFVFTL", stage.InputSequenceText)
	assert.Equal(t, "HLA-A*02:01,HLA-B*07:02", stage.InputParameters.Alleles)
	assert.Equal(t, [2]int{8, 11}, stage.InputParameters.PeptideLengthRange)
	require.Len(t, stage.InputParameters.Predictors, 1)
	assert.Equal(t, "binding", stage.InputParameters.Predictors[0].Type)
	assert.Equal(t, "netmhcpan_el", stage.InputParameters.Predictors[0].Method)

	// The job is tracked and the run recorded.
	jobID := strings.TrimPrefix(w.Header().Get("Location"), "/results/")
	_, ok := fixture.Manager.Get(jobID)
	assert.True(t, ok)

	require.Eventually(t, func() bool {
		runs, err := fixture.Store.ListRuns(1)
		return err == nil && len(runs) == 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestSubmit_ValidationErrors(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(url.Values)
		message string
	}{
		{"no alleles", func(f url.Values) { f.Del("alleles") }, "at least one allele"},
		{"no sequence", func(f url.Values) { f.Set("sequence_text", ">header only\n") }, "protein sequence"},
		{"bad lengths", func(f url.Values) { f.Set("length_min", "12"); f.Set("length_max", "9") }, "Peptide lengths"},
		{"bad method", func(f url.Values) { f.Set("method", "magic") }, "Unknown prediction method"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, fixture := setupRouter(t)
			form := validForm()
			tt.mutate(form)

			w := postForm(r, "/predict", form)

			assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
			assert.Contains(t, w.Body.String(), tt.message)
			assert.Empty(t, fixture.Client.Submitted, "invalid form must not hit the API")
		})
	}
}

func TestSubmit_UpstreamFailure(t *testing.T) {
	r, fixture := setupRouter(t)
	fixture.Client.SubmitErr = &iedb.SubmissionError{
		StatusCode: http.StatusServiceUnavailable,
		Err:        errors.New("upstream unavailable"),
	}

	w := postForm(r, "/predict", validForm())

	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Contains(t, w.Body.String(), "Submission failed")
	// The form keeps the user's sequence.
	assert.Contains(t, w.Body.String(), "MSIINFEKLGILGFVFTL")
}
