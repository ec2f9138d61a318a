// Package profiler - Per-stage timing and metric tracking for the detection pipeline.
package profiler

import (
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// DefaultMaxSamples bounds the rolling window of every tracker.
const DefaultMaxSamples = 600

// RuntimeProfiler tracks named operation timings and custom metric values.
//
// Each tracker keeps a rolling window of the last maxSamples values; count is
// the lifetime total. The profiler is safe for concurrent use.
type RuntimeProfiler struct {
	maxSamples int
	startTime  time.Time

	mu             sync.RWMutex
	customMetrics  map[string]*MetricTracker
	operationTimes map[string]*TimeTracker
}

// MetricTracker tracks statistics for a custom metric.
type MetricTracker struct {
	values []float64
	sum    float64
	min    float64
	max    float64
	count  int64
}

// TimeTracker tracks operation timing statistics.
type TimeTracker struct {
	durations []time.Duration
	totalTime time.Duration
	minTime   time.Duration
	maxTime   time.Duration
	count     int64
}

// OperationStats is a snapshot of one operation's timings over the window.
type OperationStats struct {
	Name  string        `json:"name"`
	Count int64         `json:"count"`
	Avg   time.Duration `json:"avg"`
	Min   time.Duration `json:"min"`
	Max   time.Duration `json:"max"`
}

// MetricStats is a snapshot of one metric over the window.
type MetricStats struct {
	Name  string  `json:"name"`
	Count int64   `json:"count"`
	Avg   float64 `json:"avg"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
}

// NewRuntimeProfiler creates a profiler keeping at most maxSamples values per
// tracker. Zero selects DefaultMaxSamples.
func NewRuntimeProfiler(maxSamples int) *RuntimeProfiler {
	if maxSamples <= 0 {
		maxSamples = DefaultMaxSamples
	}
	return &RuntimeProfiler{
		maxSamples:     maxSamples,
		startTime:      time.Now(),
		customMetrics:  make(map[string]*MetricTracker),
		operationTimes: make(map[string]*TimeTracker),
	}
}

// RecordMetric records a custom metric value.
//
// Arguments:
// - name: The name of the metric
// - value: The metric value to record
func (rp *RuntimeProfiler) RecordMetric(name string, value float64) {
	rp.mu.Lock()
	defer rp.mu.Unlock()

	tracker, exists := rp.customMetrics[name]
	if !exists {
		tracker = &MetricTracker{
			values: make([]float64, 0, rp.maxSamples),
			min:    value,
			max:    value,
		}
		rp.customMetrics[name] = tracker
	}

	tracker.values = append(tracker.values, value)
	tracker.sum += value
	if len(tracker.values) > rp.maxSamples {
		// Remove oldest sample
		tracker.sum -= tracker.values[0]
		tracker.values = tracker.values[1:]
	}
	tracker.count++

	tracker.min = min(tracker.min, value)
	tracker.max = max(tracker.max, value)
}

// StartOperation begins timing an operation.
//
// Arguments:
// - name: The name of the operation to track
//
// Returns:
// - A function to call when the operation completes
func (rp *RuntimeProfiler) StartOperation(name string) func() {
	start := time.Now()
	return func() {
		rp.RecordOperation(name, time.Since(start))
	}
}

// RecordOperation records the completion time of an operation.
func (rp *RuntimeProfiler) RecordOperation(name string, duration time.Duration) {
	rp.mu.Lock()
	defer rp.mu.Unlock()

	tracker, exists := rp.operationTimes[name]
	if !exists {
		tracker = &TimeTracker{
			minTime: duration,
			maxTime: duration,
		}
		rp.operationTimes[name] = tracker
	}

	tracker.durations = append(tracker.durations, duration)
	tracker.totalTime += duration
	if len(tracker.durations) > rp.maxSamples {
		// Remove oldest sample
		tracker.totalTime -= tracker.durations[0]
		tracker.durations = tracker.durations[1:]
	}
	tracker.count++

	tracker.minTime = min(tracker.minTime, duration)
	tracker.maxTime = max(tracker.maxTime, duration)
}

// Operations returns a snapshot of every operation, sorted by name.
func (rp *RuntimeProfiler) Operations() []OperationStats {
	rp.mu.RLock()
	defer rp.mu.RUnlock()

	stats := make([]OperationStats, 0, len(rp.operationTimes))
	for name, tracker := range rp.operationTimes {
		s := OperationStats{
			Name:  name,
			Count: tracker.count,
			Min:   tracker.minTime,
			Max:   tracker.maxTime,
		}
		if n := len(tracker.durations); n > 0 {
			s.Avg = tracker.totalTime / time.Duration(n)
		}
		stats = append(stats, s)
	}

	sort.Slice(stats, func(i, j int) bool { return stats[i].Name < stats[j].Name })
	return stats
}

// Metrics returns a snapshot of every custom metric, sorted by name.
func (rp *RuntimeProfiler) Metrics() []MetricStats {
	rp.mu.RLock()
	defer rp.mu.RUnlock()

	stats := make([]MetricStats, 0, len(rp.customMetrics))
	for name, tracker := range rp.customMetrics {
		s := MetricStats{
			Name:  name,
			Count: tracker.count,
			Min:   tracker.min,
			Max:   tracker.max,
		}
		if n := len(tracker.values); n > 0 {
			s.Avg = tracker.sum / float64(n)
		}
		stats = append(stats, s)
	}

	sort.Slice(stats, func(i, j int) bool { return stats[i].Name < stats[j].Name })
	return stats
}

// Report logs one line per operation and metric.
func (rp *RuntimeProfiler) Report(logger logrus.FieldLogger) {
	logger = logger.WithField("uptime", time.Since(rp.startTime).Truncate(time.Millisecond))

	for _, s := range rp.Operations() {
		logger.WithFields(logrus.Fields{
			"operation": s.Name,
			"count":     s.Count,
			"avg":       s.Avg.Truncate(time.Microsecond),
			"min":       s.Min.Truncate(time.Microsecond),
			"max":       s.Max.Truncate(time.Microsecond),
		}).Info("⏱️ operation timing")
	}

	for _, s := range rp.Metrics() {
		logger.WithFields(logrus.Fields{
			"metric": s.Name,
			"count":  s.Count,
			"avg":    s.Avg,
			"min":    s.Min,
			"max":    s.Max,
		}).Info("📊 metric")
	}
}
