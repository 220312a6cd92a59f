package results

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/epitopelab/bindscope/internal/iedb"
)

func peptideTable(colNames []string, data [][]any) *iedb.ResultBlock {
	cols := make([]iedb.Column, len(colNames))
	for i, n := range colNames {
		cols[i] = iedb.Column{Name: n}
	}
	return &iedb.ResultBlock{
		Type:         iedb.BlockTypePeptideTable,
		TableColumns: cols,
		TableData:    data,
	}
}

func TestResolveColumns(t *testing.T) {
	t.Run("exact match wins over substring", func(t *testing.T) {
		// "core_peptide" contains "peptide"; the peptide role must still
		// resolve to the exact "peptide" column.
		idx := ResolveColumns([]string{"core_peptide", "peptide"})
		assert.Equal(t, 1, idx[RolePeptide])
		assert.Equal(t, 0, idx[RoleCorePeptide])
	})

	t.Run("substring fallback", func(t *testing.T) {
		idx := ResolveColumns([]string{"mhc_allele", "start_position"})
		assert.Equal(t, 0, idx[RoleAllele])
		assert.Equal(t, 1, idx[RoleStart])
	})

	t.Run("case insensitive", func(t *testing.T) {
		idx := ResolveColumns([]string{"Allele", " Peptide "})
		assert.Equal(t, 0, idx[RoleAllele])
		assert.Equal(t, 1, idx[RolePeptide])
	})

	t.Run("unresolved role", func(t *testing.T) {
		idx := ResolveColumns([]string{"allele"})
		assert.Equal(t, -1, idx[RoleScore])
	})

	t.Run("alias order respected", func(t *testing.T) {
		idx := ResolveColumns([]string{"affinity", "ic50"})
		assert.Equal(t, 1, idx[RoleAffinity])
	})
}

func TestNormalize_AffinityDerivation(t *testing.T) {
	cols := []string{"allele", "start", "end", "peptide", "ic50", "score"}

	tests := []struct {
		name string
		row  []any
		want *float64
	}{
		{
			name: "raw affinity preferred",
			row:  []any{"HLA-A*02:01", 1.0, 9.0, "MKTAYIAKN", 321.5, 0.95},
			want: ptr(321.5),
		},
		{
			name: "derived from score when affinity absent",
			row:  []any{"HLA-A*02:01", 1.0, 9.0, "MKTAYIAKN", nil, 0.95},
			want: ptr(math.Round(math.Pow(50000, 0.05))),
		},
		{
			name: "nil when both absent",
			row:  []any{"HLA-A*02:01", 1.0, 9.0, "MKTAYIAKN", nil, nil},
			want: nil,
		},
		{
			name: "non-numeric affinity falls through to score",
			row:  []any{"HLA-A*02:01", 1.0, 9.0, "MKTAYIAKN", "n/a", 0.5},
			want: ptr(math.Round(math.Pow(50000, 0.5))),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows := Normalize(peptideTable(cols, [][]any{tt.row}))
			require.Len(t, rows, 1)
			if tt.want == nil {
				assert.Nil(t, rows[0].Affinity)
			} else {
				require.NotNil(t, rows[0].Affinity)
				assert.Equal(t, *tt.want, *rows[0].Affinity)
			}
		})
	}
}

func TestNormalize_PositionFallbacks(t *testing.T) {
	// No positional columns at all: start falls back to the row's 1-based
	// position, end to start, length to 1, seq_num to 1.
	rows := Normalize(peptideTable([]string{"allele", "peptide"}, [][]any{
		{"HLA-A*02:01", "MKTAYIAKN"},
		{"HLA-A*02:01", "KTAYIAKNV"},
	}))
	require.Len(t, rows, 2)
	assert.Equal(t, 1, rows[0].Start)
	assert.Equal(t, 2, rows[1].Start)
	assert.Equal(t, 2, rows[1].End)
	assert.Equal(t, 1, rows[1].Length)
	assert.Equal(t, 1, rows[1].SeqNum)
	assert.Empty(t, rows[1].Method)
}

func TestNormalize_BadCellDoesNotAbortBatch(t *testing.T) {
	cols := []string{"allele", "start", "score"}
	rows := Normalize(peptideTable(cols, [][]any{
		{"HLA-A*02:01", "garbage", 0.9},
		{"HLA-A*02:01", 4.0, 0.8},
	}))
	require.Len(t, rows, 2)
	// Bad start coerces to the positional fallback, not zero.
	assert.Equal(t, 1, rows[0].Start)
	assert.Equal(t, 4, rows[1].Start)
	require.NotNil(t, rows[0].Affinity)
}

func TestRelevant(t *testing.T) {
	rows := []Row{
		{Allele: "a", Affinity: ptr(50.0)},
		{Allele: "b", Affinity: ptr(9999.9)},
		{Allele: "c", Affinity: ptr(10000.0)}, // at threshold: excluded
		{Allele: "d", Affinity: ptr(20000.0)},
		{Allele: "e"}, // nil affinity
	}
	got := Relevant(rows)
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].Allele)
	assert.Equal(t, "b", got[1].Allele)
}

func ptr(f float64) *float64 { return &f }
