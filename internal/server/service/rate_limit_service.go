package service

import (
	"context"
	"time"

	"solvebox/internal/common/cache"
	pkgerrors "solvebox/pkg/errors"
)

const defaultRateLimitWindow = time.Minute

// RateLimitService caps how many runs a caller may submit per fixed window.
// Hit counters live in Redis under the keys the middleware builds.
type RateLimitService struct {
	cache        cache.BasicOps
	window       time.Duration
	redisTimeout time.Duration
}

func NewRateLimitService(cacheClient cache.BasicOps, window time.Duration, redisTimeout time.Duration) *RateLimitService {
	if window <= 0 {
		window = defaultRateLimitWindow
	}
	if redisTimeout <= 0 {
		redisTimeout = time.Second
	}
	return &RateLimitService{cache: cacheClient, window: window, redisTimeout: redisTimeout}
}

// Allow counts one run against key and rejects it once the window holds more
// than max. A max of zero disables the budget.
func (s *RateLimitService) Allow(ctx context.Context, key string, max int, window time.Duration) error {
	if s.cache == nil {
		return pkgerrors.New(pkgerrors.ServiceUnavailable).WithMessage("rate limit cache is unavailable")
	}
	if max <= 0 {
		return nil
	}
	if window <= 0 {
		window = s.window
	}

	ctxCache, cancel := context.WithTimeout(ctx, s.redisTimeout)
	defer cancel()

	acquired, err := s.cache.SetNX(ctxCache, key, 1, window)
	if err != nil {
		return pkgerrors.Wrapf(err, pkgerrors.CacheError, "run budget check failed")
	}
	if acquired {
		return nil
	}
	count, err := s.cache.Incr(ctxCache, key)
	if err != nil {
		return pkgerrors.Wrapf(err, pkgerrors.CacheError, "run budget check failed")
	}
	ttl, ttlErr := s.cache.TTL(ctxCache, key)
	if ttlErr == nil && ttl <= 0 {
		_ = s.cache.Expire(ctxCache, key, window)
		ttl = window
	}
	if count <= int64(max) {
		return nil
	}
	retryAfter := retryAfterSeconds(ttl, window)
	return pkgerrors.Newf(pkgerrors.TooManyRequests, "run budget of %d per %s used up, retry in %ds", max, window, retryAfter).
		WithDetail("limit", max).
		WithDetail("retry_after_seconds", retryAfter)
}

// retryAfterSeconds rounds the remaining window up to whole seconds.
func retryAfterSeconds(ttl, window time.Duration) int {
	if ttl <= 0 {
		ttl = window
	}
	secs := int((ttl + time.Second - 1) / time.Second)
	if secs < 1 {
		secs = 1
	}
	return secs
}
