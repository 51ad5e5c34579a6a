package result

import (
	"bytes"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"reflect"
	"strings"

	"solvebox/pkg/api"
	appErr "solvebox/pkg/errors"

	"github.com/go-playground/validator/v10"
)

// record is a per-case entry as sent by the server, before shape checks.
type record struct {
	Index    *int            `json:"index"`
	Status   *string         `json:"status"`
	Input    json.RawMessage `json:"input"`
	Expected *string         `json:"expected"`
	Got      *string         `json:"got"`
	Error    *string         `json:"error"`
}

type passedShape struct {
	Index *int `json:"index" validate:"required"`
}

type failedShape struct {
	Index    *int            `json:"index" validate:"required"`
	Input    json.RawMessage `json:"input" validate:"required"`
	Expected *string         `json:"expected" validate:"required"`
	Got      *string         `json:"got" validate:"required"`
}

type errorShape struct {
	Index *int    `json:"index" validate:"required"`
	Error *string `json:"error" validate:"required"`
}

// Classifier maps raw responses to SubmissionResults.
type Classifier struct {
	validate *validator.Validate
}

// NewClassifier creates a classifier whose error messages use JSON field names.
func NewClassifier() *Classifier {
	v := validator.New()
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return field.Name
		}
		return name
	})
	return &Classifier{validate: v}
}

var defaultClassifier = NewClassifier()

// Classify uses the package default classifier.
func Classify(raw RawResponse) (SubmissionResult, error) {
	return defaultClassifier.Classify(raw)
}

// Classify converts raw into a SubmissionResult. Records that violate their
// shape degrade to Errored outcomes; only a response missing its aggregate or
// its details list is reported as an error.
func (c *Classifier) Classify(raw RawResponse) (SubmissionResult, error) {
	if raw.Passed == nil {
		return SubmissionResult{}, appErr.ClassificationError("response has no passed field")
	}
	if raw.Details == nil {
		return SubmissionResult{}, appErr.ClassificationError("response has no details list")
	}

	outcomes := make([]Outcome, 0, len(raw.Details))
	seen := make(map[int]bool, len(raw.Details))
	for i, item := range raw.Details {
		outcomes = append(outcomes, c.classifyRecord(i+1, item, seen))
	}
	return SubmissionResult{Outcomes: outcomes, AllPassed: *raw.Passed}, nil
}

// classifyRecord turns one raw record into an Outcome. position is the
// 1-based place of the record and stands in for a missing index. seen holds
// the indexes reported so far; a repeated one degrades to Errored.
func (c *Classifier) classifyRecord(position int, item json.RawMessage, seen map[int]bool) Outcome {
	var rec record
	if err := json.Unmarshal(item, &rec); err != nil {
		return Errored{Index: position, Error: fmt.Sprintf("invalid record: %v", err)}
	}
	if isNull(rec.Input) {
		rec.Input = nil
	}

	index := position
	if rec.Index != nil {
		index = *rec.Index
		if seen[index] {
			return Errored{Index: index, Input: rec.Input, Error: fmt.Sprintf("duplicate index %d", index)}
		}
		seen[index] = true
	}

	status := ""
	if rec.Status != nil {
		status = *rec.Status
	}

	switch status {
	case api.StatusPassed:
		if missing := c.missingFields(passedShape{Index: rec.Index}); len(missing) > 0 {
			return shapeError(index, rec.Input, status, missing)
		}
		return Passed{Index: index}
	case api.StatusFailed:
		shape := failedShape{Index: rec.Index, Input: rec.Input, Expected: rec.Expected, Got: rec.Got}
		if missing := c.missingFields(shape); len(missing) > 0 {
			return shapeError(index, rec.Input, status, missing)
		}
		return Failed{Index: index, Input: rec.Input, Expected: *rec.Expected, Got: *rec.Got}
	case api.StatusError:
		if missing := c.missingFields(errorShape{Index: rec.Index, Error: rec.Error}); len(missing) > 0 {
			return shapeError(index, rec.Input, status, missing)
		}
		return Errored{Index: index, Input: rec.Input, Error: *rec.Error}
	case "":
		return Errored{Index: index, Input: rec.Input, Error: "record has no status"}
	default:
		return Errored{Index: index, Input: rec.Input, Error: fmt.Sprintf("unrecognized status %q", status)}
	}
}

func (c *Classifier) missingFields(shape interface{}) []string {
	err := c.validate.Struct(shape)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !stderrors.As(err, &verrs) {
		return []string{err.Error()}
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fe.Field())
	}
	return fields
}

func shapeError(index int, input json.RawMessage, status string, missing []string) Errored {
	return Errored{
		Index: index,
		Input: input,
		Error: fmt.Sprintf("invalid %s record: missing %s", status, strings.Join(missing, ", ")),
	}
}

func isNull(raw json.RawMessage) bool {
	return len(raw) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}
