package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"unicode"

	"solvebox/pkg/api"
	appErr "solvebox/pkg/errors"
	"solvebox/pkg/utils/logger"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

const problemFileExt = ".json"

// TestCase is one input/output pair. Input is kept raw: a JSON string is the
// literal argument text, any other value is converted by the evaluator.
type TestCase struct {
	Input  json.RawMessage `json:"input" validate:"required"`
	Output json.RawMessage `json:"output" validate:"required"`
}

// Problem is a problem definition as stored on disk.
type Problem struct {
	ID          string     `json:"id" validate:"required"`
	Title       string     `json:"title" validate:"required"`
	Description string     `json:"description"`
	StarterCode string     `json:"starter_code"`
	TestCases   []TestCase `json:"test_cases" validate:"required,min=1,dive"`

	Day  string `json:"-"`
	Path string `json:"-"`
}

type ProblemRepository interface {
	Get(ctx context.Context, problemID string) (*Problem, error)
	Index(ctx context.Context) ([]api.IndexDay, error)
}

// FSProblemRepository serves problems from <dir>/<day>/*.json.
type FSProblemRepository struct {
	dir          string
	reloadOnRead bool
	validate     *validator.Validate

	mu        sync.RWMutex
	catalogue *catalogue
}

type catalogue struct {
	byID  map[string]*Problem
	index []api.IndexDay
}

// NewFSProblemRepository loads the catalogue once. With reloadOnRead every
// read rescans the directory so edited problem files are picked up live.
func NewFSProblemRepository(ctx context.Context, dir string, reloadOnRead bool) (*FSProblemRepository, error) {
	r := &FSProblemRepository{
		dir:          dir,
		reloadOnRead: reloadOnRead,
		validate:     validator.New(),
	}
	if err := r.Reload(ctx); err != nil {
		return nil, err
	}
	return r, nil
}

// Reload rescans the problem directory and swaps in the new catalogue.
func (r *FSProblemRepository) Reload(ctx context.Context) error {
	cat, err := r.load(ctx)
	if err != nil {
		return err
	}
	r.mu.Lock()
	r.catalogue = cat
	r.mu.Unlock()
	return nil
}

func (r *FSProblemRepository) Get(ctx context.Context, problemID string) (*Problem, error) {
	cat, err := r.current(ctx)
	if err != nil {
		return nil, err
	}
	p, ok := cat.byID[problemID]
	if !ok {
		return nil, appErr.ProblemNotFoundError(problemID)
	}
	return p, nil
}

func (r *FSProblemRepository) Index(ctx context.Context) ([]api.IndexDay, error) {
	cat, err := r.current(ctx)
	if err != nil {
		return nil, err
	}
	if len(cat.index) == 0 {
		return nil, appErr.New(appErr.CatalogueEmpty).WithMessagef("no problems found in %s", r.dir)
	}
	return cat.index, nil
}

func (r *FSProblemRepository) current(ctx context.Context) (*catalogue, error) {
	if r.reloadOnRead {
		if err := r.Reload(ctx); err != nil {
			return nil, err
		}
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.catalogue, nil
}

func (r *FSProblemRepository) load(ctx context.Context) (*catalogue, error) {
	days, err := os.ReadDir(r.dir)
	if err != nil {
		return nil, appErr.Wrapf(err, appErr.ProblemLoadFailed, "read problem dir failed: %v", err)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Name() < days[j].Name() })

	cat := &catalogue{byID: make(map[string]*Problem)}
	for _, day := range days {
		if !day.IsDir() {
			continue
		}
		dayPath := filepath.Join(r.dir, day.Name())
		files, err := os.ReadDir(dayPath)
		if err != nil {
			return nil, appErr.Wrapf(err, appErr.ProblemLoadFailed, "read day dir %s failed: %v", day.Name(), err)
		}
		sort.Slice(files, func(i, j int) bool { return files[i].Name() < files[j].Name() })

		entry := api.IndexDay{Day: DayTitle(day.Name())}
		for _, file := range files {
			if file.IsDir() || !strings.HasSuffix(file.Name(), problemFileExt) {
				continue
			}
			path := filepath.Join(dayPath, file.Name())
			p, err := r.loadFile(path)
			if err != nil {
				logger.Warn(ctx, "skip invalid problem file", zap.String("path", path), zap.Error(err))
				continue
			}
			if prev, ok := cat.byID[p.ID]; ok {
				logger.Warn(ctx, "skip duplicate problem id",
					zap.String("problem_id", p.ID),
					zap.String("path", path),
					zap.String("kept", prev.Path),
				)
				continue
			}
			p.Day = day.Name()
			cat.byID[p.ID] = p
			entry.Problems = append(entry.Problems, api.ProblemSummary{ID: p.ID, Title: p.Title})
		}
		if len(entry.Problems) > 0 {
			cat.index = append(cat.index, entry)
		}
	}
	return cat, nil
}

func (r *FSProblemRepository) loadFile(path string) (*Problem, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read problem file failed: %w", err)
	}
	var p Problem
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, appErr.Wrapf(err, appErr.ProblemInvalid, "parse problem file failed: %v", err)
	}
	if err := r.validate.Struct(&p); err != nil {
		return nil, appErr.Wrapf(err, appErr.ProblemInvalid, "invalid problem: %v", err)
	}
	p.Path = path
	return &p, nil
}

// DayTitle turns a day folder name into its display name: underscores become
// spaces and each word is capitalised, so day_1 reads "Day 1".
func DayTitle(folder string) string {
	text := strings.ReplaceAll(folder, "_", " ")
	out := make([]rune, 0, len(text))
	prevLetter := false
	for _, r := range text {
		if prevLetter {
			out = append(out, unicode.ToLower(r))
		} else {
			out = append(out, unicode.ToUpper(r))
		}
		prevLetter = unicode.IsLetter(r)
	}
	return string(out)
}
