// Package api defines the JSON shapes exchanged between the workbench client
// and the evaluation server.
package api

import "encoding/json"

// Case statuses reported by the evaluation server.
const (
	StatusPassed = "passed"
	StatusFailed = "failed"
	StatusError  = "error"
)

// RunRequest is the body of POST /run.
type RunRequest struct {
	Code      string `json:"code"`
	ProblemID string `json:"problem_id" binding:"required"`
}

// RunResponse is the body returned by POST /run.
type RunResponse struct {
	Passed  bool         `json:"passed"`
	Details []CaseDetail `json:"details"`
}

// CaseDetail reports one evaluated test case. Optional fields are omitted
// when they do not apply to the status.
type CaseDetail struct {
	Index    int             `json:"index"`
	Status   string          `json:"status"`
	Input    json.RawMessage `json:"input,omitempty"`
	Expected *string         `json:"expected,omitempty"`
	Got      *string         `json:"got,omitempty"`
	Error    *string         `json:"error,omitempty"`
}

// PassedCase builds a passed record.
func PassedCase(index int) CaseDetail {
	return CaseDetail{Index: index, Status: StatusPassed}
}

// FailedCase builds a failed record.
func FailedCase(index int, input json.RawMessage, expected, got string) CaseDetail {
	return CaseDetail{Index: index, Status: StatusFailed, Input: input, Expected: &expected, Got: &got}
}

// ErrorCase builds an error record. input may be nil.
func ErrorCase(index int, input json.RawMessage, message string) CaseDetail {
	return CaseDetail{Index: index, Status: StatusError, Input: input, Error: &message}
}

// ProblemSummary is one entry of the catalogue index.
type ProblemSummary struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// IndexDay groups the problems of one day folder.
type IndexDay struct {
	Day      string           `json:"day"`
	Problems []ProblemSummary `json:"problems"`
}

// ProblemView is the client-facing view of a problem; test cases stay on the server.
type ProblemView struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	StarterCode string `json:"starter_code"`
	Solved      bool   `json:"solved"`
}

// Progress lists the solved problem ids.
type Progress struct {
	Solved []string `json:"solved"`
}
