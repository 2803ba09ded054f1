package check

import (
	"time"
)

// Result captures the outcome of a single check execution.
type Result struct {
	// Timestamp is when the check was executed.
	Timestamp time.Time

	// Success indicates whether the check passed.
	Success bool

	// Metrics holds named measurements from the check execution.
	// For example, a ping check might set {"latency_us": 1234.0}.
	// An empty or nil map is valid for checks that only report success/failure.
	Metrics map[string]float64

	// Err holds any error encountered during check execution.
	// It is diagnostic only and never changes Success.
	Err error
}

// LatencyKey is the metric key every probe uses for its round-trip time in
// microseconds.
const LatencyKey = "latency_us"

// Metric returns the named metric and whether it was recorded.
func (r Result) Metric(key string) (float64, bool) {
	if r.Metrics == nil {
		return 0, false
	}
	v, ok := r.Metrics[key]
	return v, ok
}

// Failed builds an unsuccessful Result stamped with now.
func Failed(now time.Time, err error) Result {
	return Result{
		Timestamp: now,
		Success:   false,
		Err:       err,
	}
}
