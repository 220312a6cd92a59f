package results

import (
	"fmt"
	"math"
	"strconv"

	"github.com/epitopelab/bindscope/internal/iedb"
)

// Displayed-value constants. ScoreToAffinityBase is the base of the
// score-to-Kd transform used upstream; changing it changes displayed values.
const (
	ScoreToAffinityBase = 50000
	RelevanceThreshold  = 10000
	AffinityCeiling     = 20000
)

// Row is the canonical unit of data after adaptation of a raw peptide table.
type Row struct {
	Allele         string
	SeqNum         int
	Start          int
	End            int
	Length         int
	CorePeptide    string
	Peptide        string
	Affinity       *float64 // predicted Kd in nM; nil when underivable
	Score          *float64
	PercentileRank *float64
	SequenceText   string
	Method         string
	DatasetIndex   int
	Color          string
}

// Normalize maps a raw peptide table onto Rows. Malformed individual cells
// never abort the batch: numeric cells that fail coercion are treated as
// absent and fall back to position-derived defaults where one exists.
// All rows are kept; apply Relevant before charting or tabulating.
func Normalize(pt *iedb.ResultBlock) []Row {
	if pt == nil {
		return nil
	}

	names := make([]string, len(pt.TableColumns))
	for i, c := range pt.TableColumns {
		if c.Name != "" {
			names[i] = c.Name
		} else {
			names[i] = c.DisplayName
		}
	}
	idx := ResolveColumns(names)

	rows := make([]Row, 0, len(pt.TableData))
	for i, raw := range pt.TableData {
		row := Row{
			Allele:       stringAt(raw, idx[RoleAllele], "Unknown"),
			Start:        intAt(raw, idx[RoleStart], i+1),
			CorePeptide:  stringAt(raw, idx[RoleCorePeptide], ""),
			Peptide:      stringAt(raw, idx[RolePeptide], ""),
			SequenceText: stringAt(raw, idx[RoleSequenceText], ""),
			Method:       stringAt(raw, idx[RoleMethod], ""),
			SeqNum:       intAt(raw, idx[RoleSeqNum], 1),
		}
		row.End = intAt(raw, idx[RoleEnd], row.Start)
		defLen := row.End - row.Start + 1
		if defLen < 1 {
			defLen = 1
		}
		row.Length = intAt(raw, idx[RoleLength], defLen)

		affinity := floatAt(raw, idx[RoleAffinity])
		score := floatAt(raw, idx[RoleScore])
		row.Score = score
		row.PercentileRank = floatAt(raw, idx[RolePercentileRank])

		// Affinity is the raw value when present; otherwise derived from the
		// score via the fixed monotonic transform; otherwise unknown.
		switch {
		case affinity != nil:
			row.Affinity = affinity
		case score != nil:
			kd := math.Round(math.Pow(ScoreToAffinityBase, 1-*score))
			row.Affinity = &kd
		}

		rows = append(rows, row)
	}
	return rows
}

// Relevant returns the rows whose affinity is finite and below the
// biological-relevance threshold. Rows filtered here still count toward the
// raw total.
func Relevant(rows []Row) []Row {
	out := make([]Row, 0, len(rows))
	for _, r := range rows {
		if r.Relevant() {
			out = append(out, r)
		}
	}
	return out
}

// Relevant reports whether the row carries a chartable affinity.
func (r Row) Relevant() bool {
	return r.Affinity != nil && !math.IsNaN(*r.Affinity) && !math.IsInf(*r.Affinity, 0) &&
		*r.Affinity < RelevanceThreshold
}

// cell coercion helpers, lenient so one bad cell never poisons the batch

func stringAt(raw []any, col int, def string) string {
	if col < 0 || col >= len(raw) || raw[col] == nil {
		return def
	}
	switch v := raw[col].(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return fmt.Sprintf("%v", v)
	}
}

func floatAt(raw []any, col int) *float64 {
	if col < 0 || col >= len(raw) || raw[col] == nil {
		return nil
	}
	var f float64
	switch v := raw[col].(type) {
	case float64:
		f = v
	case int:
		f = float64(v)
	case string:
		parsed, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil
		}
		f = parsed
	default:
		return nil
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return &f
}

func intAt(raw []any, col int, def int) int {
	f := floatAt(raw, col)
	if f == nil {
		return def
	}
	return int(*f)
}
