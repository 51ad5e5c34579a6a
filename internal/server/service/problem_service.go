package service

import (
	"context"
	"fmt"

	problemrepo "solvebox/internal/problem/repository"
	progressrepo "solvebox/internal/progress/repository"
	"solvebox/pkg/api"
)

// ProblemService serves the catalogue and the solved list.
type ProblemService struct {
	problems problemrepo.ProblemRepository
	progress progressrepo.ProgressRepository
}

func NewProblemService(problems problemrepo.ProblemRepository, progress progressrepo.ProgressRepository) (*ProblemService, error) {
	if problems == nil {
		return nil, fmt.Errorf("problem repository is required")
	}
	if progress == nil {
		return nil, fmt.Errorf("progress repository is required")
	}
	return &ProblemService{problems: problems, progress: progress}, nil
}

// Index returns the day-grouped catalogue.
func (s *ProblemService) Index(ctx context.Context) ([]api.IndexDay, error) {
	return s.problems.Index(ctx)
}

// Get returns the client view of one problem, test cases excluded.
func (s *ProblemService) Get(ctx context.Context, problemID string) (api.ProblemView, error) {
	p, err := s.problems.Get(ctx, problemID)
	if err != nil {
		return api.ProblemView{}, err
	}
	solved, err := s.progress.IsSolved(ctx, p.ID)
	if err != nil {
		return api.ProblemView{}, err
	}
	return api.ProblemView{
		ID:          p.ID,
		Title:       p.Title,
		Description: p.Description,
		StarterCode: p.StarterCode,
		Solved:      solved,
	}, nil
}

// Progress returns the solved problem ids.
func (s *ProblemService) Progress(ctx context.Context) (api.Progress, error) {
	solved, err := s.progress.Solved(ctx)
	if err != nil {
		return api.Progress{}, err
	}
	if solved == nil {
		solved = []string{}
	}
	return api.Progress{Solved: solved}, nil
}
