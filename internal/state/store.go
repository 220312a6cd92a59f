// Package state persists user data between sessions: saved search
// configurations and the history of submitted prediction runs.
package state

import "time"

// SavedSearch is a reusable prediction configuration.
type SavedSearch struct {
	ID           string
	Name         string
	ToolGroup    string
	Method       string
	Alleles      string // comma-separated
	LengthMin    int
	LengthMax    int
	SequenceText string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// RunRecord is one row of the submission history.
type RunRecord struct {
	ID          string
	ResultID    string
	Title       string
	ToolGroup   string
	Method      string
	Alleles     string
	SeqLength   int
	Status      string
	Error       string
	SubmittedAt time.Time
	CompletedAt *time.Time
}

// Store is the persistence interface the UI and CLI depend on.
type Store interface {
	// Saved searches.
	CreateSearch(s *SavedSearch) error
	GetSearch(id string) (*SavedSearch, error)
	ListSearches() ([]*SavedSearch, error)
	UpdateSearch(s *SavedSearch) error
	DeleteSearch(id string) error

	// Run history.
	RecordRun(r *RunRecord) error
	CompleteRun(id, status, errMsg string) error
	ListRuns(limit int) ([]*RunRecord, error)

	Close() error
}
