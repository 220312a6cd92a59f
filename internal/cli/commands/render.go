package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/epitopelab/bindscope/internal/results"
)

var displayColumns = []string{"allele", "peptide", "start", "end", "length", "kd_nm", "percentile"}

// renderRows prints prediction rows in the requested format.
func renderRows(w io.Writer, rows []results.Row, format string) error {
	switch format {
	case "json":
		return renderJSON(w, rows)
	case "csv":
		return renderCSV(w, rows)
	case "md", "markdown":
		return renderMarkdown(w, rows)
	default:
		return renderTable(w, rows)
	}
}

func renderTable(w io.Writer, rows []results.Row) error {
	if len(rows) == 0 {
		_, _ = fmt.Fprintln(w, "(0 rows)")
		return nil
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Allele", "Peptide", "Start", "End", "Length", "Kd (nM)", "Percentile"})
	for _, r := range rows {
		t.AppendRow(table.Row{
			r.Allele, r.Peptide, r.Start, r.End, r.Length,
			formatOptional(r.Affinity), formatOptional(r.PercentileRank),
		})
	}
	t.Render()
	_, _ = fmt.Fprintf(w, "(%d rows)\n", len(rows))
	return nil
}

func renderJSON(w io.Writer, rows []results.Row) error {
	type jsonRow struct {
		Allele     string   `json:"allele"`
		Peptide    string   `json:"peptide"`
		Start      int      `json:"start"`
		End        int      `json:"end"`
		Length     int      `json:"length"`
		Kd         *float64 `json:"kd_nm"`
		Percentile *float64 `json:"percentile"`
	}
	out := make([]jsonRow, 0, len(rows))
	for _, r := range rows {
		out = append(out, jsonRow{
			Allele: r.Allele, Peptide: r.Peptide, Start: r.Start, End: r.End,
			Length: r.Length, Kd: r.Affinity, Percentile: r.PercentileRank,
		})
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func renderCSV(w io.Writer, rows []results.Row) error {
	_, _ = fmt.Fprintln(w, strings.Join(displayColumns, ","))
	for _, r := range rows {
		_, _ = fmt.Fprintln(w, strings.Join(displayValues(r), ","))
	}
	return nil
}

func renderMarkdown(w io.Writer, rows []results.Row) error {
	if len(rows) == 0 {
		_, _ = fmt.Fprintln(w, "(0 rows)")
		return nil
	}

	_, _ = fmt.Fprintf(w, "| %s |\n", strings.Join(displayColumns, " | "))
	seps := make([]string, len(displayColumns))
	for i := range seps {
		seps[i] = "---"
	}
	_, _ = fmt.Fprintf(w, "| %s |\n", strings.Join(seps, " | "))
	for _, r := range rows {
		_, _ = fmt.Fprintf(w, "| %s |\n", strings.Join(displayValues(r), " | "))
	}
	return nil
}

func formatOptional(v *float64) string {
	if v == nil {
		return "-"
	}
	return strconv.FormatFloat(*v, 'f', 1, 64)
}

func displayValues(r results.Row) []string {
	return []string{
		r.Allele, r.Peptide,
		fmt.Sprintf("%d", r.Start), fmt.Sprintf("%d", r.End), fmt.Sprintf("%d", r.Length),
		formatOptional(r.Affinity), formatOptional(r.PercentileRank),
	}
}
