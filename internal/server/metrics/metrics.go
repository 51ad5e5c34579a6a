// Package metrics records Prometheus measurements for the evaluation server.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "solvebox"

// Metrics holds the server's recorders.
type Metrics struct {
	// APIResponseDurationsMilliseconds is the time it takes to answer API requests.
	//
	// Labels: path (route pattern), method, status_code
	APIResponseDurationsMilliseconds *prometheus.HistogramVec

	// RunsTotal counts completed evaluations.
	//
	// Labels: passed (0 = fail, 1 = success)
	RunsTotal *prometheus.CounterVec

	// RunDurationsMilliseconds is the wall time of one evaluation.
	RunDurationsMilliseconds prometheus.Histogram

	// CasesTotal counts executed test cases.
	//
	// Labels: status (passed, failed, error)
	CasesTotal *prometheus.CounterVec

	// CaseDurationsMilliseconds is the wall time of one test case.
	CaseDurationsMilliseconds prometheus.Histogram

	gatherer prometheus.Gatherer
}

// NewMetrics creates the recorders and registers them with reg.
func NewMetrics(reg *prometheus.Registry) *Metrics {
	m := &Metrics{
		APIResponseDurationsMilliseconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "response_durations_milliseconds",
			Help:      "Time, in milliseconds, it took to respond to API requests",
		}, []string{"path", "method", "status_code"}),
		RunsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "runs",
			Name:      "total",
			Help:      "Total number of completed evaluations",
		}, []string{"passed"}),
		RunDurationsMilliseconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "runs",
			Name:      "durations_milliseconds",
			Help:      "Duration, in milliseconds, of evaluations",
			Buckets:   prometheus.ExponentialBuckets(10, 2, 12),
		}),
		CasesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cases",
			Name:      "total",
			Help:      "Total number of executed test cases",
		}, []string{"status"}),
		CaseDurationsMilliseconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "cases",
			Name:      "durations_milliseconds",
			Help:      "Duration, in milliseconds, of single test cases",
			Buckets:   prometheus.ExponentialBuckets(5, 2, 12),
		}),
		gatherer: reg,
	}

	reg.MustRegister(
		m.APIResponseDurationsMilliseconds,
		m.RunsTotal,
		m.RunDurationsMilliseconds,
		m.CasesTotal,
		m.CaseDurationsMilliseconds,
	)
	return m
}

// ObserveCase records one executed test case.
func (m *Metrics) ObserveCase(status string, elapsed time.Duration) {
	m.CasesTotal.WithLabelValues(status).Inc()
	m.CaseDurationsMilliseconds.Observe(milliseconds(elapsed))
}

// ObserveRun records one completed evaluation.
func (m *Metrics) ObserveRun(passed bool, elapsed time.Duration) {
	label := "0"
	if passed {
		label = "1"
	}
	m.RunsTotal.WithLabelValues(label).Inc()
	m.RunDurationsMilliseconds.Observe(milliseconds(elapsed))
}

// Middleware measures API response durations.
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		timer := StartTimer()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		timer.Finish(m.APIResponseDurationsMilliseconds.With(prometheus.Labels{
			"path":        path,
			"method":      c.Request.Method,
			"status_code": strconv.Itoa(c.Writer.Status()),
		}))
	}
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

func milliseconds(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
