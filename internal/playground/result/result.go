// Package result classifies evaluation server responses into per-case outcomes.
package result

import "encoding/json"

// Kind identifies the outcome class of one test case.
type Kind string

const (
	KindPassed  Kind = "Passed"
	KindFailed  Kind = "Failed"
	KindErrored Kind = "Errored"
)

// Outcome is the classified result of one test case.
// It is one of Passed, Failed or Errored.
type Outcome interface {
	Kind() Kind
	CaseIndex() int
}

// Passed is a test case whose output matched.
type Passed struct {
	Index int
}

// Failed is a test case that ran but produced the wrong output.
type Failed struct {
	Index    int
	Input    json.RawMessage
	Expected string
	Got      string
}

// Errored is a test case that raised, or a record that could not be classified.
// Input is nil when the server did not report one.
type Errored struct {
	Index int
	Input json.RawMessage
	Error string
}

func (Passed) Kind() Kind { return KindPassed }
func (Failed) Kind() Kind { return KindFailed }
func (Errored) Kind() Kind { return KindErrored }

func (o Passed) CaseIndex() int { return o.Index }
func (o Failed) CaseIndex() int { return o.Index }
func (o Errored) CaseIndex() int { return o.Index }

// HasInput reports whether the server supplied an input for the errored case.
func (o Errored) HasInput() bool {
	return len(o.Input) > 0
}

// SubmissionResult is the classified form of one completed submission.
// AllPassed is the server's aggregate and is not recomputed from Outcomes.
type SubmissionResult struct {
	Outcomes  []Outcome
	AllPassed bool
}

// RawResponse is the undecoded shape of a POST /run response body.
// Records are kept raw so one malformed record cannot fail the whole response.
type RawResponse struct {
	Passed  *bool             `json:"passed"`
	Details []json.RawMessage `json:"details"`
}
