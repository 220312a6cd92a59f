package results

import (
	"fmt"
	"sort"
)

// Series is one allele's rows, sorted ascending by start position. All rows
// carry the same dataset index and color.
type Series struct {
	Allele       string
	DatasetIndex int // 1-based, assignment order = first appearance
	Color        string
	Rows         []Row
}

// BuildSeries groups relevant rows by allele in insertion order, sorts each
// group by start position and stamps dataset indices and colors. Re-running
// on the same allele set yields the same color-to-allele mapping.
func BuildSeries(rows []Row) []Series {
	var order []string
	byAllele := make(map[string][]Row)
	for _, r := range rows {
		if _, seen := byAllele[r.Allele]; !seen {
			order = append(order, r.Allele)
		}
		byAllele[r.Allele] = append(byAllele[r.Allele], r)
	}

	colors := GenerateColors(len(order))
	series := make([]Series, 0, len(order))
	for i, allele := range order {
		group := byAllele[allele]
		sort.SliceStable(group, func(a, b int) bool {
			return group[a].Start < group[b].Start
		})
		for j := range group {
			group[j].DatasetIndex = i + 1
			group[j].Color = colors[i]
		}
		series = append(series, Series{
			Allele:       allele,
			DatasetIndex: i + 1,
			Color:        colors[i],
			Rows:         group,
		})
	}
	return series
}

// GenerateColors produces n visually distinct colors via evenly spaced hue
// rotation.
func GenerateColors(n int) []string {
	colors := make([]string, n)
	div := n
	if div < 1 {
		div = 1
	}
	for i := range colors {
		colors[i] = fmt.Sprintf("hsl(%d, 50%%, 40%%)", i*360/div)
	}
	return colors
}

// Alleles lists the series' alleles in dataset-index order.
func Alleles(series []Series) []string {
	out := make([]string, len(series))
	for i, s := range series {
		out[i] = s.Allele
	}
	return out
}

// Flatten merges series back into a single row slice in series order,
// preserving the stamped dataset indices and colors.
func Flatten(series []Series) []Row {
	var out []Row
	for _, s := range series {
		out = append(out, s.Rows...)
	}
	return out
}
