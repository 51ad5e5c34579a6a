package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"solvebox/internal/common/cache"
	appErr "solvebox/pkg/errors"
)

const defaultSolvedKey = "solvebox:progress:solved"

// ProgressRepository records which problems have been solved.
type ProgressRepository interface {
	Solved(ctx context.Context) ([]string, error)
	IsSolved(ctx context.Context, problemID string) (bool, error)
	// MarkSolved records problemID and reports whether it was newly added.
	MarkSolved(ctx context.Context, problemID string) (bool, error)
}

type progressFile struct {
	Solved []string `json:"solved"`
}

// FileProgressRepository keeps progress in a JSON file of the form
// {"solved": [...]}, in the order problems were first solved.
type FileProgressRepository struct {
	path string
	mu   sync.Mutex
}

func NewFileProgressRepository(path string) *FileProgressRepository {
	return &FileProgressRepository{path: path}
}

func (r *FileProgressRepository) Solved(ctx context.Context) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, err := r.read()
	if err != nil {
		return nil, err
	}
	return p.Solved, nil
}

func (r *FileProgressRepository) IsSolved(ctx context.Context, problemID string) (bool, error) {
	solved, err := r.Solved(ctx)
	if err != nil {
		return false, err
	}
	for _, id := range solved {
		if id == problemID {
			return true, nil
		}
	}
	return false, nil
}

func (r *FileProgressRepository) MarkSolved(ctx context.Context, problemID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, err := r.read()
	if err != nil {
		return false, err
	}
	for _, id := range p.Solved {
		if id == problemID {
			return false, nil
		}
	}
	p.Solved = append(p.Solved, problemID)
	if err := r.write(p); err != nil {
		return false, err
	}
	return true, nil
}

func (r *FileProgressRepository) read() (progressFile, error) {
	p := progressFile{Solved: []string{}}
	data, err := os.ReadFile(r.path)
	if err != nil {
		if os.IsNotExist(err) {
			return p, nil
		}
		return p, appErr.Wrapf(err, appErr.ProgressLoadFailed, "read progress file failed: %v", err)
	}
	if len(data) == 0 {
		return p, nil
	}
	if err := json.Unmarshal(data, &p); err != nil {
		return p, appErr.Wrapf(err, appErr.ProgressLoadFailed, "parse progress file failed: %v", err)
	}
	if p.Solved == nil {
		p.Solved = []string{}
	}
	return p, nil
}

// write replaces the file atomically through a sibling temp file.
func (r *FileProgressRepository) write(p progressFile) error {
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return appErr.Wrapf(err, appErr.ProgressSaveFailed, "marshal progress failed: %v", err)
	}
	dir := filepath.Dir(r.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return appErr.Wrapf(err, appErr.ProgressSaveFailed, "create progress dir failed: %v", err)
	}
	tmp, err := os.CreateTemp(dir, ".progress-*.json")
	if err != nil {
		return appErr.Wrapf(err, appErr.ProgressSaveFailed, "create temp progress file failed: %v", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return appErr.Wrapf(err, appErr.ProgressSaveFailed, "write progress failed: %v", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return appErr.Wrapf(err, appErr.ProgressSaveFailed, "close progress file failed: %v", err)
	}
	if err := os.Rename(tmpPath, r.path); err != nil {
		_ = os.Remove(tmpPath)
		return appErr.Wrapf(err, appErr.ProgressSaveFailed, "replace progress file failed: %v", err)
	}
	return nil
}

// RedisProgressRepository keeps progress in a Redis set.
type RedisProgressRepository struct {
	cache cache.SetOps
	key   string
}

func NewRedisProgressRepository(cacheClient cache.SetOps, key string) (*RedisProgressRepository, error) {
	if cacheClient == nil {
		return nil, fmt.Errorf("cache client is required")
	}
	if key == "" {
		key = defaultSolvedKey
	}
	return &RedisProgressRepository{cache: cacheClient, key: key}, nil
}

// Solved returns the ids sorted, as sets carry no order.
func (r *RedisProgressRepository) Solved(ctx context.Context) ([]string, error) {
	members, err := r.cache.SMembers(ctx, r.key)
	if err != nil {
		return nil, appErr.Wrapf(err, appErr.CacheError, "load progress failed: %v", err)
	}
	sort.Strings(members)
	return members, nil
}

func (r *RedisProgressRepository) IsSolved(ctx context.Context, problemID string) (bool, error) {
	ok, err := r.cache.SIsMember(ctx, r.key, problemID)
	if err != nil {
		return false, appErr.Wrapf(err, appErr.CacheError, "check progress failed: %v", err)
	}
	return ok, nil
}

func (r *RedisProgressRepository) MarkSolved(ctx context.Context, problemID string) (bool, error) {
	already, err := r.IsSolved(ctx, problemID)
	if err != nil {
		return false, err
	}
	if already {
		return false, nil
	}
	if err := r.cache.SAdd(ctx, r.key, problemID); err != nil {
		return false, appErr.Wrapf(err, appErr.CacheError, "save progress failed: %v", err)
	}
	return true, nil
}
