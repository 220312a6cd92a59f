package commands

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/epitopelab/bindscope/internal/config"
	"github.com/epitopelab/bindscope/internal/testutil"
)

func searchesContext(t *testing.T, statePath string) context.Context {
	t.Helper()
	ctx := WithConfig(context.Background(), &config.Config{StatePath: statePath})
	return WithLogger(ctx, testutil.NewTestLogger(t))
}

func TestSearchesCommand_SaveAndList(t *testing.T) {
	statePath := filepath.Join(t.TempDir(), "state.db")

	save := NewSearchesCommand()
	buf := new(bytes.Buffer)
	save.SetOut(buf)
	save.SetArgs([]string{"save", "flu panel", "--alleles", "HLA-A*02:01,HLA-B*07:02", "--method", "ann"})
	require.NoError(t, save.ExecuteContext(searchesContext(t, statePath)))
	assert.Contains(t, buf.String(), "flu panel")

	list := NewSearchesCommand()
	buf = new(bytes.Buffer)
	list.SetOut(buf)
	list.SetArgs([]string{"list"})
	require.NoError(t, list.ExecuteContext(searchesContext(t, statePath)))
	out := buf.String()
	assert.Contains(t, out, "flu panel")
	assert.Contains(t, out, "ann")
	assert.Contains(t, out, "8-11")
}

func TestSearchesCommand_SaveRequiresAlleles(t *testing.T) {
	statePath := filepath.Join(t.TempDir(), "state.db")

	cmd := NewSearchesCommand()
	cmd.SetArgs([]string{"save", "empty panel"})
	err := cmd.ExecuteContext(searchesContext(t, statePath))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "allele is required")
}

func TestSearchesCommand_ListEmpty(t *testing.T) {
	statePath := filepath.Join(t.TempDir(), "state.db")

	cmd := NewSearchesCommand()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"list"})
	require.NoError(t, cmd.ExecuteContext(searchesContext(t, statePath)))
	assert.Contains(t, buf.String(), "(no saved searches)")
}
