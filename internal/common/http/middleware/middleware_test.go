package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	pkgerrors "solvebox/pkg/errors"
	"solvebox/pkg/testutil"
	"solvebox/pkg/utils/contextkey"

	"github.com/gin-gonic/gin"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func serve(r *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestTraceContextGeneratesIDs(t *testing.T) {
	r := gin.New()
	r.Use(TraceContextMiddleware())
	var seen string
	r.GET("/", func(c *gin.Context) {
		seen, _ = c.Request.Context().Value(contextkey.TraceID).(string)
		c.Status(http.StatusOK)
	})

	w := serve(r, httptest.NewRequest(http.MethodGet, "/", nil))
	testutil.AssertTrue(t, seen != "", "trace id should be generated")
	testutil.AssertEqual(t, w.Header().Get(TraceIDHeader), seen)
	testutil.AssertTrue(t, w.Header().Get(RequestIDHeader) != "", "request id should be generated")
}

func TestTraceContextKeepsIncomingIDs(t *testing.T) {
	r := gin.New()
	r.Use(TraceContextMiddleware())
	r.GET("/", func(c *gin.Context) {
		testutil.AssertEqual(t, c.GetString(RequestIDContextKey), "req-1")
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(TraceIDHeader, "trace-1")
	req.Header.Set(RequestIDHeader, "req-1")
	w := serve(r, req)
	testutil.AssertEqual(t, w.Header().Get(TraceIDHeader), "trace-1")
	testutil.AssertEqual(t, w.Header().Get(RequestIDHeader), "req-1")
}

func newCORSRouter(cfg CORSConfig) *gin.Engine {
	r := gin.New()
	r.Use(CORSMiddleware(cfg))
	r.GET("/api/problems", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.OPTIONS("/api/problems", func(c *gin.Context) { c.Status(http.StatusOK) })
	return r
}

func TestCORSAllowedOrigin(t *testing.T) {
	r := newCORSRouter(CORSConfig{Enabled: true, AllowedOrigins: []string{"http://localhost:3000"}})
	req := httptest.NewRequest(http.MethodGet, "/api/problems", nil)
	req.Header.Set("Origin", "http://localhost:3000")

	w := serve(r, req)
	testutil.AssertEqual(t, w.Code, http.StatusOK)
	testutil.AssertEqual(t, w.Header().Get("Access-Control-Allow-Origin"), "http://localhost:3000")
	testutil.AssertEqual(t, w.Header().Get("Vary"), "Origin")
	testutil.AssertContains(t, w.Header().Get("Access-Control-Expose-Headers"), TraceIDHeader)
}

func TestCORSWildcard(t *testing.T) {
	r := newCORSRouter(CORSConfig{Enabled: true, AllowedOrigins: []string{"*"}})
	req := httptest.NewRequest(http.MethodGet, "/api/problems", nil)
	req.Header.Set("Origin", "http://example.com")

	w := serve(r, req)
	testutil.AssertEqual(t, w.Header().Get("Access-Control-Allow-Origin"), "*")
}

func TestCORSPreflight(t *testing.T) {
	r := newCORSRouter(CORSConfig{Enabled: true, AllowedOrigins: []string{"http://a.test"}, MaxAge: "600"})

	req := httptest.NewRequest(http.MethodOptions, "/api/problems", nil)
	req.Header.Set("Origin", "http://a.test")
	w := serve(r, req)
	testutil.AssertEqual(t, w.Code, http.StatusNoContent)
	testutil.AssertEqual(t, w.Header().Get("Access-Control-Max-Age"), "600")

	req = httptest.NewRequest(http.MethodOptions, "/api/problems", nil)
	req.Header.Set("Origin", "http://b.test")
	w = serve(r, req)
	testutil.AssertEqual(t, w.Code, http.StatusForbidden)
}

func TestCORSDisabled(t *testing.T) {
	r := newCORSRouter(CORSConfig{AllowedOrigins: []string{"*"}})
	req := httptest.NewRequest(http.MethodGet, "/api/problems", nil)
	req.Header.Set("Origin", "http://example.com")

	w := serve(r, req)
	testutil.AssertEqual(t, w.Header().Get("Access-Control-Allow-Origin"), "")
}

type countingLimiter struct {
	counts map[string]int
}

func (l *countingLimiter) Allow(_ context.Context, key string, max int, _ time.Duration) error {
	l.counts[key]++
	if l.counts[key] > max {
		return pkgerrors.New(pkgerrors.TooManyRequests)
	}
	return nil
}

func TestRateLimitMiddleware(t *testing.T) {
	limiter := &countingLimiter{counts: map[string]int{}}
	r := gin.New()
	r.POST("/run", RateLimitMiddleware(limiter, "run", RateLimitPolicy{Window: time.Minute, IPMax: 2}), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	for i := 0; i < 2; i++ {
		w := serve(r, httptest.NewRequest(http.MethodPost, "/run", nil))
		testutil.AssertEqual(t, w.Code, http.StatusOK)
	}
	w := serve(r, httptest.NewRequest(http.MethodPost, "/run", nil))
	testutil.AssertEqual(t, w.Code, http.StatusTooManyRequests)
	testutil.AssertEqual(t, len(limiter.counts), 1)
}

func TestRateLimitMiddlewareRouteBudget(t *testing.T) {
	limiter := &countingLimiter{counts: map[string]int{}}
	r := gin.New()
	r.POST("/run", RateLimitMiddleware(limiter, "run", RateLimitPolicy{RouteMax: 1}), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	testutil.AssertEqual(t, serve(r, httptest.NewRequest(http.MethodPost, "/run", nil)).Code, http.StatusOK)
	testutil.AssertEqual(t, serve(r, httptest.NewRequest(http.MethodPost, "/run", nil)).Code, http.StatusTooManyRequests)
	testutil.AssertEqual(t, limiter.counts["solvebox:rate:route:run"], 2)
}

func TestRateLimitMiddlewareNilLimiter(t *testing.T) {
	r := gin.New()
	r.POST("/run", RateLimitMiddleware(nil, "run", RateLimitPolicy{IPMax: 1}), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	for i := 0; i < 3; i++ {
		testutil.AssertEqual(t, serve(r, httptest.NewRequest(http.MethodPost, "/run", nil)).Code, http.StatusOK)
	}
}
