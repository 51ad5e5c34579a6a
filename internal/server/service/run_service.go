// Package service holds the evaluation server's use cases.
package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	problemrepo "solvebox/internal/problem/repository"
	progressrepo "solvebox/internal/progress/repository"
	"solvebox/pkg/api"
	appErr "solvebox/pkg/errors"
	"solvebox/pkg/utils/logger"

	"go.uber.org/zap"
)

// ProblemEvaluator judges code against one problem.
type ProblemEvaluator interface {
	Evaluate(ctx context.Context, code string, p *problemrepo.Problem) (api.RunResponse, error)
}

// RunObserver receives one measurement per completed evaluation. It may be nil.
type RunObserver interface {
	ObserveRun(passed bool, elapsed time.Duration)
}

// RunConfig holds RunService dependencies.
type RunConfig struct {
	Problems        problemrepo.ProblemRepository
	Evaluator       ProblemEvaluator
	Progress        progressrepo.ProgressRepository
	Observer        RunObserver
	ProgressTimeout time.Duration
}

// RunService evaluates submissions and records solved problems.
type RunService struct {
	problems        problemrepo.ProblemRepository
	evaluator       ProblemEvaluator
	progress        progressrepo.ProgressRepository
	observer        RunObserver
	progressTimeout time.Duration
}

func NewRunService(cfg RunConfig) (*RunService, error) {
	if cfg.Problems == nil {
		return nil, fmt.Errorf("problem repository is required")
	}
	if cfg.Evaluator == nil {
		return nil, fmt.Errorf("evaluator is required")
	}
	if cfg.Progress == nil {
		return nil, fmt.Errorf("progress repository is required")
	}
	if cfg.ProgressTimeout <= 0 {
		cfg.ProgressTimeout = 3 * time.Second
	}
	return &RunService{
		problems:        cfg.Problems,
		evaluator:       cfg.Evaluator,
		progress:        cfg.Progress,
		observer:        cfg.Observer,
		progressTimeout: cfg.ProgressTimeout,
	}, nil
}

// Run evaluates req.Code against the problem's test cases. A fully passing
// run marks the problem solved; a failure to record that is logged and does
// not change the verdict.
func (s *RunService) Run(ctx context.Context, req api.RunRequest) (api.RunResponse, error) {
	problemID := strings.TrimSpace(req.ProblemID)
	if problemID == "" {
		return api.RunResponse{}, appErr.ValidationError("problem_id", "required")
	}
	problem, err := s.problems.Get(ctx, problemID)
	if err != nil {
		return api.RunResponse{}, err
	}

	start := time.Now()
	resp, err := s.evaluator.Evaluate(ctx, req.Code, problem)
	if err != nil {
		logger.Error(ctx, "evaluation failed", zap.String("problem_id", problemID), zap.Error(err))
		return api.RunResponse{}, err
	}
	elapsed := time.Since(start)
	if s.observer != nil {
		s.observer.ObserveRun(resp.Passed, elapsed)
	}

	logger.Info(ctx, "run completed",
		zap.String("problem_id", problemID),
		zap.Bool("passed", resp.Passed),
		zap.Int("cases", len(resp.Details)),
		zap.Duration("elapsed", elapsed),
	)

	if resp.Passed {
		s.markSolved(ctx, problemID)
	}
	return resp, nil
}

func (s *RunService) markSolved(ctx context.Context, problemID string) {
	ctxProgress, cancel := context.WithTimeout(ctx, s.progressTimeout)
	defer cancel()

	added, err := s.progress.MarkSolved(ctxProgress, problemID)
	if err != nil {
		logger.Warn(ctx, "record solved problem failed", zap.String("problem_id", problemID), zap.Error(err))
		return
	}
	if added {
		logger.Info(ctx, "problem solved", zap.String("problem_id", problemID))
	}
}
