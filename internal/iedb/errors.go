package iedb

import "fmt"

// SubmissionError reports a failed pipeline POST, or a response that carried
// no results handle. The attempt is fatal; the caller must resubmit.
type SubmissionError struct {
	StatusCode int
	Err        error
}

func (e *SubmissionError) Error() string {
	return fmt.Sprintf("pipeline submission: %v", e.Err)
}

func (e *SubmissionError) Unwrap() error { return e.Err }

// PollError reports a failed poll GET. It is fatal to the current job; there
// is no automatic retry.
type PollError struct {
	StatusCode int
	Err        error
}

func (e *PollError) Error() string {
	return fmt.Sprintf("poll results: %v", e.Err)
}

func (e *PollError) Unwrap() error { return e.Err }

// UpstreamError reports a terminal envelope that carried an explicit error
// list, or one missing the expected peptide table.
type UpstreamError struct {
	Message string
}

func (e *UpstreamError) Error() string { return e.Message }
