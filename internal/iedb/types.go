package iedb

import (
	"encoding/json"
	"time"
)

// Tool groups accepted by the pipeline API.
const (
	ToolGroupMHCI  = "mhci"
	ToolGroupMHCII = "mhcii"
)

// PipelineRequest is the unit-of-work description posted to the API.
type PipelineRequest struct {
	PipelineTitle string  `json:"pipeline_title"`
	RunStageRange [2]int  `json:"run_stage_range"`
	Stages        []Stage `json:"stages"`
}

// Stage describes one pipeline stage. The front end always submits a single
// binding-prediction stage.
type Stage struct {
	StageNumber       int             `json:"stage_number"`
	ToolGroup         string          `json:"tool_group"`
	InputSequenceText string          `json:"input_sequence_text"`
	InputParameters   InputParameters `json:"input_parameters"`
}

// InputParameters holds the per-stage prediction parameters.
type InputParameters struct {
	Alleles            string      `json:"alleles"` // comma-separated
	PeptideLengthRange [2]int      `json:"peptide_length_range"`
	Predictors         []Predictor `json:"predictors"`
}

// Predictor names one prediction method within a stage.
type Predictor struct {
	Type   string `json:"type"` // always "binding" here
	Method string `json:"method"`
}

// NewBindingRequest builds the single-stage binding pipeline the UI submits.
func NewBindingRequest(toolGroup, sequenceText, alleleCSV string, lenMin, lenMax int, method string) PipelineRequest {
	return PipelineRequest{
		RunStageRange: [2]int{1, 1},
		Stages: []Stage{{
			StageNumber:       1,
			ToolGroup:         toolGroup,
			InputSequenceText: sequenceText,
			InputParameters: InputParameters{
				Alleles:            alleleCSV,
				PeptideLengthRange: [2]int{lenMin, lenMax},
				Predictors:         []Predictor{{Type: "binding", Method: method}},
			},
		}},
	}
}

// JobHandle identifies one submitted prediction run.
type JobHandle struct {
	ResultID    string
	ResultsURI  string
	SubmittedAt time.Time
}

// Job status strings as reported by the API.
const (
	StatusPending = "pending"
	StatusRunning = "running"
	StatusDone    = "done"
	StatusError   = "error"
)

// ResultEnvelope is the document returned by a poll. It is not interpreted
// beyond status, the error list and locating the peptide table.
type ResultEnvelope struct {
	ID     string      `json:"id,omitempty"`
	Status string      `json:"status,omitempty"`
	Data   *ResultData `json:"data,omitempty"`
}

// ResultData holds the result blocks plus error and warning lists.
type ResultData struct {
	Results  []ResultBlock     `json:"results,omitempty"`
	Errors   []json.RawMessage `json:"errors,omitempty"`
	Warnings []json.RawMessage `json:"warnings,omitempty"`
}

// BlockTypePeptideTable marks the result block the front end consumes.
const BlockTypePeptideTable = "peptide_table"

// ResultBlock is one entry in the envelope's results list. Only blocks of
// type peptide_table carry columns and data the pipeline cares about.
type ResultBlock struct {
	Type         string   `json:"type"`
	TableColumns []Column `json:"table_columns,omitempty"`
	TableData    [][]any  `json:"table_data,omitempty"`
}

// Column describes one column of a peptide table. The remote schema is not
// contractually stable; identity is resolved by alias matching downstream.
type Column struct {
	Name        string `json:"name"`
	DisplayName string `json:"display_name,omitempty"`
}

// EffectiveStatus resolves the envelope's status. Absence of both an explicit
// status and a results list is treated as pending.
func (e *ResultEnvelope) EffectiveStatus() string {
	if e.Status != "" {
		return e.Status
	}
	if e.Data != nil && e.Data.Results != nil {
		return StatusDone
	}
	return StatusPending
}

// PeptideTable returns the first peptide_table block, or nil.
func (e *ResultEnvelope) PeptideTable() *ResultBlock {
	if e.Data == nil {
		return nil
	}
	for i := range e.Data.Results {
		if e.Data.Results[i].Type == BlockTypePeptideTable {
			return &e.Data.Results[i]
		}
	}
	return nil
}

// FirstError returns the first entry of the envelope's error list as text.
// Entries are usually plain JSON strings but objects do occur; those are
// passed through verbatim.
func (e *ResultEnvelope) FirstError() string {
	if e.Data == nil || len(e.Data.Errors) == 0 {
		return ""
	}
	raw := e.Data.Errors[0]
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}
