package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Timer measures the duration of an operation in milliseconds.
type Timer struct {
	startTime time.Time
}

// StartTimer starts a Timer.
func StartTimer() Timer {
	return Timer{startTime: time.Now()}
}

// Elapsed returns the time since the timer started.
func (t Timer) Elapsed() time.Duration {
	return time.Since(t.startTime)
}

// Finish writes the elapsed milliseconds to observer.
func (t Timer) Finish(observer prometheus.Observer) {
	observer.Observe(milliseconds(t.Elapsed()))
}
