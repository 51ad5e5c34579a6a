// Package evaluator runs submitted solve functions against a problem's test
// cases and reports one record per executed case.
package evaluator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"solvebox/internal/problem/repository"
	"solvebox/pkg/api"
	appErr "solvebox/pkg/errors"
	"solvebox/pkg/utils/logger"

	"go.uber.org/zap"
)

const (
	DefaultCaseTimeout  = 2 * time.Second
	DefaultMaxCodeBytes = 64 << 10
)

// Observer receives per-case measurements. It may be nil.
type Observer interface {
	ObserveCase(status string, elapsed time.Duration)
}

// Config holds evaluator settings.
type Config struct {
	Executor     Executor
	CaseTimeout  time.Duration
	MaxCodeBytes int
	Observer     Observer
}

// Evaluator judges code against test cases, stopping at the first case that
// does not pass.
type Evaluator struct {
	executor     Executor
	caseTimeout  time.Duration
	maxCodeBytes int
	observer     Observer
}

func New(cfg Config) (*Evaluator, error) {
	if cfg.Executor == nil {
		return nil, fmt.Errorf("executor is required")
	}
	if cfg.CaseTimeout <= 0 {
		cfg.CaseTimeout = DefaultCaseTimeout
	}
	if cfg.MaxCodeBytes <= 0 {
		cfg.MaxCodeBytes = DefaultMaxCodeBytes
	}
	return &Evaluator{
		executor:     cfg.Executor,
		caseTimeout:  cfg.CaseTimeout,
		maxCodeBytes: cfg.MaxCodeBytes,
		observer:     cfg.Observer,
	}, nil
}

// Evaluate runs code against every test case of p in order.
func (e *Evaluator) Evaluate(ctx context.Context, code string, p *repository.Problem) (api.RunResponse, error) {
	if len(code) > e.maxCodeBytes {
		return api.RunResponse{}, appErr.Newf(appErr.CodeTooLarge, "code is %d bytes, limit is %d", len(code), e.maxCodeBytes)
	}

	details := make([]api.CaseDetail, 0, len(p.TestCases))
	for i, tc := range p.TestCases {
		index := i + 1
		detail, err := e.runCase(ctx, code, index, tc)
		if err != nil {
			return api.RunResponse{}, err
		}
		details = append(details, detail)
		if detail.Status != api.StatusPassed {
			break
		}
	}

	passed := true
	for _, d := range details {
		if d.Status != api.StatusPassed {
			passed = false
			break
		}
	}
	return api.RunResponse{Passed: passed, Details: details}, nil
}

func (e *Evaluator) runCase(ctx context.Context, code string, index int, tc repository.TestCase) (api.CaseDetail, error) {
	args, err := ArgumentText(tc.Input)
	if err != nil {
		return api.CaseDetail{}, appErr.Wrapf(err, appErr.TestCaseInputError, "test case %d input: %v", index, err)
	}
	expected, err := ExpectedText(tc.Output)
	if err != nil {
		return api.CaseDetail{}, appErr.Wrapf(err, appErr.TestCaseInvalid, "test case %d output: %v", index, err)
	}

	run, err := e.executor.Execute(ctx, BuildHarness(code, args), e.caseTimeout)
	if err != nil {
		return api.CaseDetail{}, appErr.Wrapf(err, appErr.EvaluationFailed, "test case %d: %v", index, err)
	}

	var detail api.CaseDetail
	switch {
	case run.TimedOut:
		detail = api.ErrorCase(index, nil, fmt.Sprintf("Time limit exceeded (%s)", e.caseTimeout))
	case run.Stderr != "":
		detail = api.ErrorCase(index, nil, strings.TrimSpace(run.Stderr))
	default:
		got := strings.TrimSpace(run.Stdout)
		if got == expected {
			detail = api.PassedCase(index)
		} else {
			detail = api.FailedCase(index, tc.Input, expected, got)
		}
	}

	logger.Debug(ctx, "test case evaluated",
		zap.Int("index", index),
		zap.String("status", detail.Status),
		zap.Int("exit_code", run.ExitCode),
		zap.Duration("elapsed", run.Duration),
	)
	if e.observer != nil {
		e.observer.ObserveCase(detail.Status, run.Duration)
	}
	return detail, nil
}

// BuildHarness appends the entry point that calls solve with args and prints
// any non-None result.
func BuildHarness(code, args string) string {
	var b strings.Builder
	b.WriteString(strings.TrimSpace(code))
	b.WriteString("\n\n")
	b.WriteString("if __name__ == '__main__':\n")
	b.WriteString("    result = solve(")
	b.WriteString(args)
	b.WriteString(")\n")
	b.WriteString("    if result is not None:\n")
	b.WriteString("        print(result)\n")
	return b.String()
}
