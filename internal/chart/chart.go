// Package chart renders per-allele binding-affinity traces as an SVG line
// chart and implements the interactions on it: horizontal zoom, point
// lookup by position, and axis scale settings.
package chart

import (
	"sort"
	"sync"

	"github.com/epitopelab/bindscope/internal/results"
)

// Scale selects the Y-axis transform. Affinity is plotted inverted so that
// strong binders (low kd) sit at the top of the chart.
type Scale string

const (
	ScaleLinear      Scale = "linear"
	ScaleLogarithmic Scale = "logarithmic"
)

// Y-axis lower-bound choices. The bound caps the weakest affinity shown;
// everything above it is clamped to the axis floor.
const (
	BoundTight   = 500
	BoundMedium  = 5000
	BoundCeiling = results.AffinityCeiling
)

// ReferenceAffinity marks the conventional strong-binding threshold drawn
// as a horizontal guide line.
const ReferenceAffinity = 50.0

// Settings are the user-adjustable display options.
type Settings struct {
	Scale         Scale
	LowerBound    float64
	LineThickness float64
}

// DefaultSettings returns the initial display configuration.
func DefaultSettings() Settings {
	return Settings{
		Scale:         ScaleLogarithmic,
		LowerBound:    BoundCeiling,
		LineThickness: 2,
	}
}

// Viewport is the visible X (sequence position) window.
type Viewport struct {
	Min int
	Max int
}

// Chart owns the series, their gap-padded display traces, and the current
// viewport and display settings. Methods are safe for concurrent use;
// request handlers mutate a shared chart from multiple goroutines.
type Chart struct {
	mu       sync.RWMutex
	series   []results.Series
	display  [][]results.DisplayRow
	hidden   map[string]bool
	full     Viewport
	viewport Viewport
	settings Settings
}

// New builds a chart over the given series. The full X domain spans the
// global minimum and maximum start position across all series.
func New(series []results.Series) *Chart {
	c := &Chart{
		series:   series,
		display:  results.BuildDisplay(series, results.DefaultGapThreshold),
		hidden:   map[string]bool{},
		settings: DefaultSettings(),
	}
	c.full = fullDomain(series)
	c.viewport = c.full
	return c
}

func fullDomain(series []results.Series) Viewport {
	v := Viewport{}
	first := true
	for _, s := range series {
		for _, r := range s.Rows {
			if first {
				v.Min, v.Max = r.Start, r.Start
				first = false
				continue
			}
			if r.Start < v.Min {
				v.Min = r.Start
			}
			if r.Start > v.Max {
				v.Max = r.Start
			}
		}
	}
	return v
}

// Series returns the charted series.
func (c *Chart) Series() []results.Series { return c.series }

// Viewport returns the currently visible X window.
func (c *Chart) Viewport() Viewport {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.viewport
}

// Settings returns the current display settings.
func (c *Chart) Settings() Settings {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.settings
}

// SetSettings applies display settings, falling back to defaults for
// unset fields.
func (c *Chart) SetSettings(s Settings) {
	def := DefaultSettings()
	if s.Scale != ScaleLinear && s.Scale != ScaleLogarithmic {
		s.Scale = def.Scale
	}
	switch s.LowerBound {
	case BoundTight, BoundMedium, BoundCeiling:
	default:
		s.LowerBound = def.LowerBound
	}
	if s.LineThickness <= 0 {
		s.LineThickness = def.LineThickness
	}
	c.mu.Lock()
	c.settings = s
	c.mu.Unlock()
}

// ZoomTo narrows the viewport to [a, b]. The endpoints may arrive in
// either order; a zero-width selection is ignored.
func (c *Chart) ZoomTo(a, b int) {
	if a == b {
		return
	}
	if a > b {
		a, b = b, a
	}
	c.mu.Lock()
	c.viewport = Viewport{Min: a, Max: b}
	c.mu.Unlock()
}

// ZoomOut restores the full X domain.
func (c *Chart) ZoomOut() {
	c.mu.Lock()
	c.viewport = c.full
	c.mu.Unlock()
}

// Zoomed reports whether the viewport is narrower than the full domain.
func (c *Chart) Zoomed() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.viewport != c.full
}

// ToggleAllele flips the visibility of one series' trace. Hidden series
// are skipped when rendering and in click lookups.
func (c *Chart) ToggleAllele(allele string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.hidden[allele] {
		delete(c.hidden, allele)
		return
	}
	for _, s := range c.series {
		if s.Allele == allele {
			c.hidden[allele] = true
			return
		}
	}
}

// Visible reports whether the named series' trace is shown.
func (c *Chart) Visible(allele string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return !c.hidden[allele]
}

// ClickAt returns every visible data point whose start position equals
// pos, across all series, ordered by ascending affinity (strongest binder
// first). Gap sentinels never match.
func (c *Chart) ClickAt(pos int) []results.Row {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var hits []results.Row
	for _, s := range c.series {
		if c.hidden[s.Allele] {
			continue
		}
		for _, r := range s.Rows {
			if r.Start == pos {
				hits = append(hits, r)
			}
		}
	}
	sort.SliceStable(hits, func(i, j int) bool {
		return affinityOf(hits[i]) < affinityOf(hits[j])
	})
	return hits
}

func affinityOf(r results.Row) float64 {
	if r.Affinity == nil {
		return float64(results.AffinityCeiling)
	}
	return *r.Affinity
}
