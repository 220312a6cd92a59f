package searches

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/epitopelab/bindscope/internal/testutil"
	"github.com/epitopelab/bindscope/internal/ui/features"
)

func setupRouter(t *testing.T) (*chi.Mux, *features.TestFixture) {
	t.Helper()
	fixture := features.SetupTestFixture(t)
	r := chi.NewRouter()
	SetupRoutes(r, fixture.Store, fixture.Sessions, testutil.NewTestLogger(t))
	return r, fixture
}

func TestPage_LoggedOut(t *testing.T) {
	r, _ := setupRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/searches", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Sign in")
}

func TestCreateListDelete(t *testing.T) {
	r, fixture := setupRouter(t)
	fixture.Sessions.Current = "token-1"

	form := url.Values{
		"name":       {"flu panel"},
		"tool_group": {"mhci"},
		"method":     {"netmhcpan_el"},
		"alleles":    {"HLA-A*02:01"},
		"length_min": {"8"},
		"length_max": {"11"},
	}
	req := httptest.NewRequest(http.MethodPost, "/api/searches", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusSeeOther, w.Code)

	searches, err := fixture.Store.ListSearches()
	require.NoError(t, err)
	require.Len(t, searches, 1)

	// The list page shows it.
	req = httptest.NewRequest(http.MethodGet, "/searches", nil)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Contains(t, w.Body.String(), "flu panel")

	// Delete it.
	req = httptest.NewRequest(http.MethodPost, "/api/searches/"+searches[0].ID+"/delete", nil)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusSeeOther, w.Code)

	searches, err = fixture.Store.ListSearches()
	require.NoError(t, err)
	assert.Empty(t, searches)
}

func TestCreate_SameNameReplaces(t *testing.T) {
	r, fixture := setupRouter(t)
	fixture.Sessions.Current = "token-1"

	save := func(method string) {
		form := url.Values{
			"name":       {"flu panel"},
			"tool_group": {"mhci"},
			"method":     {method},
			"alleles":    {"HLA-A*02:01"},
			"length_min": {"8"},
			"length_max": {"11"},
		}
		req := httptest.NewRequest(http.MethodPost, "/api/searches", strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		require.Equal(t, http.StatusSeeOther, w.Code)
	}

	save("netmhcpan_el")
	save("ann")

	searches, err := fixture.Store.ListSearches()
	require.NoError(t, err)
	require.Len(t, searches, 1)
	assert.Equal(t, "ann", searches[0].Method)
}

func TestCreate_RequiresSession(t *testing.T) {
	r, fixture := setupRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/api/searches", strings.NewReader("name=x"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	searches, err := fixture.Store.ListSearches()
	require.NoError(t, err)
	assert.Empty(t, searches)
}
