// Package render projects submission results onto a terminal.
package render

import (
	"bytes"
	"encoding/json"
	"fmt"

	"solvebox/internal/playground/result"
)

// Row is the display model of one classified test case.
type Row struct {
	Kind  result.Kind
	Title string
	Lines []string
}

// Rows builds one row per outcome, in the order the server reported them.
func Rows(res result.SubmissionResult) []Row {
	rows := make([]Row, 0, len(res.Outcomes))
	for _, outcome := range res.Outcomes {
		rows = append(rows, rowFor(outcome))
	}
	return rows
}

func rowFor(outcome result.Outcome) Row {
	switch o := outcome.(type) {
	case result.Passed:
		return Row{Kind: result.KindPassed, Title: fmt.Sprintf("Test Case %d ✓ Passed", o.Index)}
	case result.Failed:
		return Row{
			Kind:  result.KindFailed,
			Title: fmt.Sprintf("Test Case %d ✗ Failed", o.Index),
			Lines: []string{
				"Input: " + compactJSON(o.Input),
				"Expected: " + o.Expected,
				"Got: " + o.Got,
			},
		}
	case result.Errored:
		row := Row{Kind: result.KindErrored, Title: fmt.Sprintf("Test Case %d ⚠ Error", o.Index)}
		if o.HasInput() {
			row.Lines = append(row.Lines, "Input: "+compactJSON(o.Input))
		}
		row.Lines = append(row.Lines, o.Error)
		return row
	default:
		return Row{
			Kind:  result.KindErrored,
			Title: fmt.Sprintf("Test Case %d ⚠ Error", outcome.CaseIndex()),
			Lines: []string{fmt.Sprintf("unsupported outcome %T", outcome)},
		}
	}
}

func compactJSON(raw json.RawMessage) string {
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return string(raw)
	}
	return buf.String()
}
