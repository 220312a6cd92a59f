package table

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/epitopelab/bindscope/internal/results"
)

// exportColumns is the fixed export column order. The full input sequence is
// last so the variable-width text does not push the numeric columns around.
var exportColumns = []string{
	"allele",
	"seq_num",
	"start",
	"end",
	"length",
	"core_peptide",
	"peptide",
	"affinity",
	"percentile_rank",
	"method",
	"datasetIndex",
	"sequence_text",
}

// WriteCSV writes the rows as CSV with a header line. Values containing
// commas, quotes, or newlines are quoted with doubled inner quotes.
func WriteCSV(w io.Writer, rows []results.Row) error {
	if _, err := fmt.Fprintln(w, strings.Join(exportColumns, ",")); err != nil {
		return err
	}
	for _, r := range rows {
		values := exportValues(r)
		for i, v := range values {
			values[i] = escapeCSV(v)
		}
		if _, err := fmt.Fprintln(w, strings.Join(values, ",")); err != nil {
			return err
		}
	}
	return nil
}

// WriteXLSX writes the rows as a single-sheet spreadsheet.
func WriteXLSX(w io.Writer, rows []results.Row) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	const sheet = "Predictions"
	f.SetSheetName("Sheet1", sheet)

	header := make([]any, len(exportColumns))
	for i, c := range exportColumns {
		header[i] = c
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for i, r := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		values := exportValues(r)
		cells := make([]any, len(values))
		for j, v := range values {
			cells[j] = v
		}
		if err := f.SetSheetRow(sheet, cell, &cells); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+1, err)
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func exportValues(r results.Row) []string {
	return []string{
		r.Allele,
		strconv.Itoa(r.SeqNum),
		strconv.Itoa(r.Start),
		strconv.Itoa(r.End),
		strconv.Itoa(r.Length),
		r.CorePeptide,
		r.Peptide,
		formatFloat(r.Affinity),
		formatFloat(r.PercentileRank),
		r.Method,
		strconv.Itoa(r.DatasetIndex),
		r.SequenceText,
	}
}

func formatFloat(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

func escapeCSV(s string) string {
	if strings.ContainsAny(s, ",\"\n") {
		return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
	}
	return s
}
