package benchmark

import (
	"runtime"
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"
)

// PerformanceMetrics is the outcome of one scenario.
type PerformanceMetrics struct {
	Scenario        Scenario      `json:"scenario"`
	Timestamp       time.Time     `json:"timestamp"`
	TotalDuration   time.Duration `json:"total_duration"`
	DecodeDuration  time.Duration `json:"decode_duration"`
	DetectDuration  time.Duration `json:"detect_duration"`
	LatencyP50      time.Duration `json:"latency_p50"`
	LatencyP95      time.Duration `json:"latency_p95"`
	LatencyStdDev   time.Duration `json:"latency_std_dev"`
	FramesPerSecond float64       `json:"frames_per_second"`
	MemoryStats     MemoryMetrics `json:"memory_stats"`
	DetectionCount  int           `json:"detection_count"`
	ErrorRate       float64       `json:"error_rate"`
}

// MemoryMetrics captures memory usage across a scenario.
type MemoryMetrics struct {
	AllocBytes      uint64 `json:"alloc_bytes"`
	TotalAllocBytes uint64 `json:"total_alloc_bytes"`
	SysBytes        uint64 `json:"sys_bytes"`
	NumGC           uint32 `json:"num_gc"`
	HeapAllocBytes  uint64 `json:"heap_alloc_bytes"`
}

func memoryDelta(start, end *runtime.MemStats) MemoryMetrics {
	return MemoryMetrics{
		AllocBytes:      end.Alloc,
		TotalAllocBytes: end.TotalAlloc - start.TotalAlloc,
		SysBytes:        end.Sys,
		NumGC:           end.NumGC - start.NumGC,
		HeapAllocBytes:  end.HeapAlloc,
	}
}

// latencyStats returns the median, 95th percentile and standard deviation of
// the per-frame latencies.
func latencyStats(latencies []time.Duration) (p50, p95, stdDev time.Duration) {
	if len(latencies) == 0 {
		return 0, 0, 0
	}

	xs := make([]float64, len(latencies))
	for i, l := range latencies {
		xs[i] = float64(l)
	}
	sort.Float64s(xs)

	p50 = time.Duration(stat.Quantile(0.5, stat.Empirical, xs, nil))
	p95 = time.Duration(stat.Quantile(0.95, stat.Empirical, xs, nil))
	if len(xs) > 1 {
		stdDev = time.Duration(stat.StdDev(xs, nil))
	}
	return p50, p95, stdDev
}
