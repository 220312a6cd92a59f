// Package table maintains the tabular view of normalized prediction rows:
// multi-criteria filtering with validation, plus CSV and XLSX export.
package table

import (
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/epitopelab/bindscope/internal/results"
)

// SearchType selects which text field a substring query matches against.
type SearchType string

const (
	SearchPeptide     SearchType = "peptide"
	SearchCorePeptide SearchType = "core_peptide"
)

// Criteria is a view-level projection over the row set. Numeric bounds are
// kept as submitted; empty means "not supplied" (open-ended).
type Criteria struct {
	SearchType  SearchType
	Query       string
	StartMin    string
	StartMax    string
	AffinityMin string
	AffinityMax string
}

// IsZero reports whether no criterion is supplied.
func (c Criteria) IsZero() bool {
	return c.Query == "" && c.StartMin == "" && c.StartMax == "" &&
		c.AffinityMin == "" && c.AffinityMax == ""
}

// Validation failure reasons.
const (
	ReasonNotANumber    = "not-a-number"
	ReasonRangeInverted = "range-inverted"
)

// ValidationError reports malformed filter criteria. The filter is not
// applied; the offending field is identified for highlighting.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid filter: %s (%s)", e.Field, e.Reason)
}

// View holds the full relevant row set and the currently visible subset.
// Methods are safe for concurrent use; request handlers filter and export
// a shared view from multiple goroutines.
type View struct {
	mu       sync.RWMutex
	allRows  []results.Row
	visible  []results.Row
	criteria Criteria
}

// NewView creates a view with no filter applied.
func NewView(rows []results.Row) *View {
	return &View{allRows: rows, visible: rows}
}

// AllRows returns the complete relevant row set.
func (v *View) AllRows() []results.Row {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.allRows
}

// Rows returns the filtered view.
func (v *View) Rows() []results.Row {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.visible
}

// Criteria returns the currently applied criteria.
func (v *View) Criteria() Criteria {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.criteria
}

// ClearFilter resets the visible set to all rows and clears the criteria.
func (v *View) ClearFilter() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.visible = v.allRows
	v.criteria = Criteria{}
}

// ApplyFilter validates the criteria and recomputes the visible set. All
// supplied predicates are ANDed; unsupplied criteria are vacuously true.
// Applying the same criteria twice yields the same visible set as once.
func (v *View) ApplyFilter(c Criteria) error {
	if c.SearchType == "" {
		c.SearchType = SearchPeptide
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	if c.IsZero() {
		v.visible = v.allRows
		v.criteria = c
		return nil
	}

	startMin, err := parseBound(c.StartMin, "start-min")
	if err != nil {
		return err
	}
	startMax, err := parseBound(c.StartMax, "start-max")
	if err != nil {
		return err
	}
	affMin, err := parseBound(c.AffinityMin, "affinity-min")
	if err != nil {
		return err
	}
	affMax, err := parseBound(c.AffinityMax, "affinity-max")
	if err != nil {
		return err
	}

	if startMin != nil && startMax != nil && *startMin > *startMax {
		return &ValidationError{Field: "start", Reason: ReasonRangeInverted}
	}
	if affMin != nil && affMax != nil && *affMin > *affMax {
		return &ValidationError{Field: "affinity", Reason: ReasonRangeInverted}
	}

	// Default upper bounds: the maximum observed start position, and the
	// no-binding ceiling for affinity.
	startFiltering := startMin != nil || startMax != nil
	if startFiltering && startMax == nil {
		m := v.maxStart()
		startMax = &m
	}
	affFiltering := affMin != nil || affMax != nil
	if affFiltering && affMax == nil {
		ceiling := float64(results.AffinityCeiling)
		affMax = &ceiling
	}

	query := strings.ToLower(c.Query)
	filtered := make([]results.Row, 0, len(v.allRows))
	for _, r := range v.allRows {
		if query != "" && !matchesQuery(r, c.SearchType, query) {
			continue
		}
		if startFiltering {
			start := float64(r.Start)
			if startMin != nil && start < *startMin {
				continue
			}
			if start > *startMax {
				continue
			}
		}
		if affFiltering {
			if r.Affinity == nil {
				continue
			}
			if affMin != nil && *r.Affinity < *affMin {
				continue
			}
			if *r.Affinity > *affMax {
				continue
			}
		}
		filtered = append(filtered, r)
	}

	v.visible = filtered
	v.criteria = c
	return nil
}

func matchesQuery(r results.Row, st SearchType, query string) bool {
	switch st {
	case SearchCorePeptide:
		return strings.Contains(strings.ToLower(r.CorePeptide), query)
	default:
		return strings.Contains(strings.ToLower(r.Peptide), query)
	}
}

func (v *View) maxStart() float64 {
	max := 0.0
	for _, r := range v.allRows {
		if s := float64(r.Start); s > max {
			max = s
		}
	}
	return max
}

func parseBound(s, field string) (*float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, &ValidationError{Field: field, Reason: ReasonNotANumber}
	}
	return &f, nil
}
