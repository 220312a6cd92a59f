package results

// DefaultGapThreshold is the largest start-position step that still renders
// as a continuous line.
const DefaultGapThreshold = 1

// DisplayRow is a chartable point: a real row, a ceiling sentinel shaping the
// series boundary, or a nil-affinity filler breaking the line across a gap.
type DisplayRow struct {
	Row
	Sentinel bool // true for synthetic boundary/gap points
}

// InjectGapSentinels prepares one series for plotting. A ceiling sentinel
// (AffinityCeiling) is placed immediately before the first and after the last
// real row, so every series visually starts and ends at the "no binding"
// ceiling. Wherever consecutive start positions differ by more than
// gapThreshold, the line is walked up to the ceiling on both sides of the gap
// and broken by nil fillers in between, so sparse regions never read as
// continuous binding data.
func InjectGapSentinels(s Series, gapThreshold int) []DisplayRow {
	if len(s.Rows) == 0 {
		return nil
	}

	out := make([]DisplayRow, 0, len(s.Rows)+2)
	out = append(out, ceilingAt(s.Rows[0], s.Rows[0].Start-1))

	for i := 0; i < len(s.Rows); i++ {
		out = append(out, DisplayRow{Row: s.Rows[i]})

		if i == len(s.Rows)-1 {
			break
		}
		next := s.Rows[i+1]
		if next.Start-s.Rows[i].Start <= gapThreshold {
			continue
		}

		out = append(out, ceilingAt(s.Rows[i], s.Rows[i].Start+1))
		for pos := s.Rows[i].Start + 2; pos < next.Start-1; pos++ {
			out = append(out, fillerAt(s.Rows[i], pos))
		}
		out = append(out, ceilingAt(s.Rows[i], next.Start-1))
	}

	last := s.Rows[len(s.Rows)-1]
	out = append(out, ceilingAt(last, last.Start+1))
	return out
}

// BuildDisplay applies gap-sentinel injection to every series.
func BuildDisplay(series []Series, gapThreshold int) [][]DisplayRow {
	out := make([][]DisplayRow, len(series))
	for i, s := range series {
		out[i] = InjectGapSentinels(s, gapThreshold)
	}
	return out
}

func ceilingAt(template Row, start int) DisplayRow {
	ceiling := float64(AffinityCeiling)
	r := template
	r.Start = start
	r.Affinity = &ceiling
	return DisplayRow{Row: r, Sentinel: true}
}

func fillerAt(template Row, start int) DisplayRow {
	r := template
	r.Start = start
	r.Affinity = nil
	return DisplayRow{Row: r, Sentinel: true}
}
