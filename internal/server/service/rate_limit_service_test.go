package service

import (
	"context"
	"testing"
	"time"

	"solvebox/internal/common/cache"
	pkgerrors "solvebox/pkg/errors"
	"solvebox/pkg/testutil"

	"github.com/alicebob/miniredis/v2"
)

func newRateLimiter(t *testing.T) (*RateLimitService, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	c, err := cache.NewRedisCache(mr.Addr())
	if err != nil {
		t.Fatalf("connect failed: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return NewRateLimitService(c, time.Minute, time.Second), mr
}

func TestRateLimitAllowsUpToMax(t *testing.T) {
	limiter, _ := newRateLimiter(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := limiter.Allow(ctx, "k", 3, 0); err != nil {
			t.Fatalf("hit %d rejected: %v", i+1, err)
		}
	}
	err := limiter.Allow(ctx, "k", 3, 0)
	testutil.AssertTrue(t, pkgerrors.Is(err, pkgerrors.TooManyRequests), "fourth hit should be rejected")
}

func TestRateLimitWindowExpires(t *testing.T) {
	limiter, mr := newRateLimiter(t)
	ctx := context.Background()

	if err := limiter.Allow(ctx, "k", 1, time.Second); err != nil {
		t.Fatalf("first hit rejected: %v", err)
	}
	if err := limiter.Allow(ctx, "k", 1, time.Second); err == nil {
		t.Fatal("second hit should be rejected")
	}
	mr.FastForward(2 * time.Second)
	if err := limiter.Allow(ctx, "k", 1, time.Second); err != nil {
		t.Fatalf("hit after window rejected: %v", err)
	}
}

func TestRateLimitZeroMaxDisables(t *testing.T) {
	limiter, _ := newRateLimiter(t)
	for i := 0; i < 10; i++ {
		if err := limiter.Allow(context.Background(), "k", 0, 0); err != nil {
			t.Fatalf("unexpected rejection: %v", err)
		}
	}
}

func TestRateLimitWithoutCache(t *testing.T) {
	limiter := NewRateLimitService(nil, 0, 0)
	err := limiter.Allow(context.Background(), "k", 1, 0)
	testutil.AssertTrue(t, pkgerrors.Is(err, pkgerrors.ServiceUnavailable), "missing cache should be unavailable")
}

func TestRateLimitCacheFailure(t *testing.T) {
	limiter, mr := newRateLimiter(t)
	mr.Close()
	err := limiter.Allow(context.Background(), "k", 1, 0)
	testutil.AssertTrue(t, pkgerrors.Is(err, pkgerrors.CacheError), "closed redis should surface a cache error")
}

func TestRateLimitRejectionCarriesRetryAfter(t *testing.T) {
	limiter, _ := newRateLimiter(t)
	ctx := context.Background()

	if err := limiter.Allow(ctx, "solvebox:rate:ip:1.2.3.4", 1, 30*time.Second); err != nil {
		t.Fatalf("first run rejected: %v", err)
	}
	err := limiter.Allow(ctx, "solvebox:rate:ip:1.2.3.4", 1, 30*time.Second)
	appErr := pkgerrors.GetError(err)
	if appErr == nil {
		t.Fatalf("expected typed error, got %v", err)
	}
	testutil.AssertEqual(t, appErr.Code, pkgerrors.TooManyRequests)
	testutil.AssertEqual(t, appErr.Details["limit"], 1)
	testutil.AssertEqual(t, appErr.Details["retry_after_seconds"], 30)
	testutil.AssertContains(t, appErr.Message, "retry in 30s")
}
