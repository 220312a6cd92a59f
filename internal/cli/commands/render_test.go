package commands

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/epitopelab/bindscope/internal/results"
)

func renderTestRows() []results.Row {
	kd := 120.0
	rank := 0.4
	return []results.Row{
		{Allele: "HLA-A*02:01", Peptide: "SIINFEKL", Start: 5, End: 12, Length: 8, Affinity: &kd, PercentileRank: &rank},
		{Allele: "HLA-B*07:02", Peptide: "RPKSNIVLL", Start: 9, End: 17, Length: 9},
	}
}

func TestRenderRows_Table(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, renderRows(&buf, renderTestRows(), "table"))
	out := buf.String()
	assert.Contains(t, out, "SIINFEKL")
	assert.Contains(t, out, "120.0")
	assert.Contains(t, out, "(2 rows)")
}

func TestRenderRows_CSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, renderRows(&buf, renderTestRows(), "csv"))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "allele,peptide,start,end,length,kd_nm,percentile", lines[0])
	assert.Equal(t, "HLA-A*02:01,SIINFEKL,5,12,8,120.0,0.4", lines[1])
	// Missing values render as a dash.
	assert.Equal(t, "HLA-B*07:02,RPKSNIVLL,9,17,9,-,-", lines[2])
}

func TestRenderRows_Markdown(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, renderRows(&buf, renderTestRows(), "md"))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 4)
	assert.True(t, strings.HasPrefix(lines[0], "| allele |"))
	assert.Contains(t, lines[2], "| SIINFEKL |")
}

func TestRenderRows_JSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, renderRows(&buf, renderTestRows(), "json"))

	var out []map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	require.Len(t, out, 2)
	assert.Equal(t, "SIINFEKL", out[0]["peptide"])
	assert.Equal(t, 120.0, out[0]["kd_nm"])
	assert.Nil(t, out[1]["kd_nm"])
}
