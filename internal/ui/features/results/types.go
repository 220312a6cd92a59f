package results

import (
	"html/template"

	"github.com/epitopelab/bindscope/internal/chart"
	core "github.com/epitopelab/bindscope/internal/results"
	"github.com/epitopelab/bindscope/internal/table"
)

// jobView drives the results page and its SSE patches.
type jobView struct {
	ID    string
	Title string
	Phase string
	Error string

	Chart    template.HTML
	Settings chart.Settings
	Viewport chart.Viewport
	Zoomed   bool
	Legend   []legendEntry

	Criteria     table.Criteria
	FilterError  string
	Rows         []core.Row
	RowCount     int
	VisibleCount int

	Clicked   bool
	ClickRows []core.Row
}

// legendEntry is one allele's series in the chart legend controls.
type legendEntry struct {
	Allele  string
	Color   string
	Visible bool
}
