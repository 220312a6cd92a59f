package state

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSavedSearchCRUD(t *testing.T) {
	s := newTestStore(t)

	search := &SavedSearch{
		Name:      "flu panel",
		ToolGroup: "mhci",
		Method:    "netmhcpan_el",
		Alleles:   "HLA-A*02:01,HLA-B*07:02",
		LengthMin: 8,
		LengthMax: 11,
	}
	require.NoError(t, s.CreateSearch(search))
	require.NotEmpty(t, search.ID)

	got, err := s.GetSearch(search.ID)
	require.NoError(t, err)
	assert.Equal(t, "flu panel", got.Name)
	assert.Equal(t, "HLA-A*02:01,HLA-B*07:02", got.Alleles)
	assert.Equal(t, 8, got.LengthMin)

	got.Name = "flu panel v2"
	got.LengthMax = 14
	require.NoError(t, s.UpdateSearch(got))

	got2, err := s.GetSearch(search.ID)
	require.NoError(t, err)
	assert.Equal(t, "flu panel v2", got2.Name)
	assert.Equal(t, 14, got2.LengthMax)
	assert.True(t, got2.UpdatedAt.After(got2.CreatedAt) || got2.UpdatedAt.Equal(got2.CreatedAt))

	require.NoError(t, s.DeleteSearch(search.ID))
	_, err = s.GetSearch(search.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSavedSearch_NotFound(t *testing.T) {
	s := newTestStore(t)

	_, err := s.GetSearch("missing")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, s.DeleteSearch("missing"), ErrNotFound)
	assert.ErrorIs(t, s.UpdateSearch(&SavedSearch{ID: "missing"}), ErrNotFound)
}

func TestListSearches_Order(t *testing.T) {
	s := newTestStore(t)

	a := &SavedSearch{Name: "a", ToolGroup: "mhci", Method: "netmhcpan_el", Alleles: "HLA-A*02:01", LengthMin: 9, LengthMax: 9}
	b := &SavedSearch{Name: "b", ToolGroup: "mhcii", Method: "netmhciipan_el", Alleles: "DRB1*01:01", LengthMin: 15, LengthMax: 15}
	require.NoError(t, s.CreateSearch(a))
	require.NoError(t, s.CreateSearch(b))

	// Touch the older one so it sorts first.
	require.NoError(t, s.UpdateSearch(a))

	list, err := s.ListSearches()
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "a", list[0].Name)
}

func TestRunHistory(t *testing.T) {
	s := newTestStore(t)

	r := &RunRecord{
		ResultID:  "abc-123",
		Title:     "spike protein scan",
		ToolGroup: "mhci",
		Method:    "netmhcpan_el",
		Alleles:   "HLA-A*02:01",
		SeqLength: 1273,
		Status:    "pending",
	}
	require.NoError(t, s.RecordRun(r))
	require.NotEmpty(t, r.ID)
	require.False(t, r.SubmittedAt.IsZero())

	require.NoError(t, s.CompleteRun(r.ID, "done", ""))

	runs, err := s.ListRuns(10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "done", runs[0].Status)
	require.NotNil(t, runs[0].CompletedAt)

	assert.ErrorIs(t, s.CompleteRun("missing", "done", ""), ErrNotFound)
}

func TestListRuns_Limit(t *testing.T) {
	s := newTestStore(t)

	for i := 0; i < 5; i++ {
		require.NoError(t, s.RecordRun(&RunRecord{
			ResultID: "r", Title: "t", ToolGroup: "mhci", Method: "m", Alleles: "a", Status: "pending",
		}))
	}
	runs, err := s.ListRuns(3)
	require.NoError(t, err)
	assert.Len(t, runs, 3)

	all, err := s.ListRuns(0)
	require.NoError(t, err)
	assert.Len(t, all, 5)
}
