package benchmark

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"sync"
	"time"

	"github.com/nvr-ai/go-yolo/images"
	"github.com/nvr-ai/go-yolo/models/postprocess"
	"github.com/nvr-ai/go-yolo/util"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Detector is the part of detector.Detector the suite drives.
type Detector interface {
	DetectImage(ctx context.Context, img image.Image) ([]postprocess.Detection, error)
}

// Suite runs scenarios against one detector and keeps their results.
type Suite struct {
	detector  Detector
	outputDir string
	corpus    []util.ImageFile
	logger    logrus.FieldLogger
	mu        sync.RWMutex
	scenarios []Scenario
	results   []PerformanceMetrics
}

// NewSuiteArgs are the inputs of NewSuite.
type NewSuiteArgs struct {
	// Detector is benchmarked; the suite does not close it.
	Detector Detector
	// OutputDir receives the JSON and CSV reports.
	OutputDir string
	// Corpus replaces the synthetic frames when non-empty. The images are
	// resized to each scenario's resolution and re-encoded in its format.
	Corpus []util.ImageFile
	Logger logrus.FieldLogger
}

// NewSuite creates a benchmark suite.
func NewSuite(args NewSuiteArgs) *Suite {
	logger := args.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Suite{
		detector:  args.Detector,
		outputDir: args.OutputDir,
		corpus:    args.Corpus,
		logger:    logger,
	}
}

// AddScenario queues a scenario for RunAllScenarios.
func (bs *Suite) AddScenario(scenario Scenario) {
	bs.mu.Lock()
	defer bs.mu.Unlock()
	bs.scenarios = append(bs.scenarios, scenario)
}

// frames returns the encoded frames for a scenario.
func (bs *Suite) frames(scenario Scenario) ([][]byte, error) {
	if len(bs.corpus) == 0 {
		frame, err := SyntheticFrame(scenario.Resolution.Width, scenario.Resolution.Height, scenario.ImageFormat)
		if err != nil {
			return nil, err
		}
		return [][]byte{frame}, nil
	}

	frames := make([][]byte, 0, len(bs.corpus))
	for _, file := range bs.corpus {
		_, img, err := images.Decode(file.Data)
		if err != nil {
			bs.logger.WithError(err).WithField("path", file.Path).Warn("⚠️ skipping undecodable corpus image")
			continue
		}
		resized := images.Resize(img, scenario.Resolution.Width, scenario.Resolution.Height)
		frame, err := Encode(resized, scenario.ImageFormat)
		if err != nil {
			return nil, err
		}
		frames = append(frames, frame)
	}
	if len(frames) == 0 {
		return nil, errors.New("no decodable images in corpus")
	}
	return frames, nil
}

// RunScenario decodes and detects Iterations frames and measures the run.
// Per-frame failures count toward ErrorRate; only setup failures and context
// cancellation are returned as errors.
func (bs *Suite) RunScenario(ctx context.Context, scenario Scenario) (*PerformanceMetrics, error) {
	if err := scenario.Validate(); err != nil {
		return nil, err
	}

	frames, err := bs.frames(scenario)
	if err != nil {
		return nil, errors.Wrapf(err, "scenario %s", scenario.Name)
	}

	for i := 0; i < scenario.WarmupRuns; i++ {
		_, _, _, _ = bs.processFrame(ctx, frames[i%len(frames)])
	}

	var startMem, endMem runtime.MemStats
	runtime.GC()
	runtime.ReadMemStats(&startMem)

	var (
		decodeTotal, detectTotal time.Duration
		detections, failures     int
		latencies                = make([]time.Duration, 0, scenario.Iterations)
	)

	start := time.Now()
	for i := 0; i < scenario.Iterations; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		n, decode, detect, err := bs.processFrame(ctx, frames[i%len(frames)])
		if err != nil {
			failures++
			continue
		}
		decodeTotal += decode
		detectTotal += detect
		detections += n
		latencies = append(latencies, decode+detect)
	}
	total := time.Since(start)

	runtime.GC()
	runtime.ReadMemStats(&endMem)

	metrics := &PerformanceMetrics{
		Scenario:       scenario,
		Timestamp:      start,
		TotalDuration:  total,
		MemoryStats:    memoryDelta(&startMem, &endMem),
		DetectionCount: detections,
		ErrorRate:      float64(failures) / float64(scenario.Iterations),
	}
	if ok := len(latencies); ok > 0 {
		metrics.DecodeDuration = decodeTotal / time.Duration(ok)
		metrics.DetectDuration = detectTotal / time.Duration(ok)
	}
	if total > 0 {
		metrics.FramesPerSecond = float64(len(latencies)) / total.Seconds()
	}
	metrics.LatencyP50, metrics.LatencyP95, metrics.LatencyStdDev = latencyStats(latencies)

	return metrics, nil
}

func (bs *Suite) processFrame(ctx context.Context, frame []byte) (int, time.Duration, time.Duration, error) {
	decodeStart := time.Now()
	_, img, err := images.Decode(frame)
	if err != nil {
		return 0, 0, 0, err
	}
	decode := time.Since(decodeStart)

	detectStart := time.Now()
	detections, err := bs.detector.DetectImage(ctx, img)
	if err != nil {
		return 0, 0, 0, err
	}
	return len(detections), decode, time.Since(detectStart), nil
}

// RunAllScenarios runs every queued scenario in order. A failing scenario is
// logged and skipped.
func (bs *Suite) RunAllScenarios(ctx context.Context) error {
	bs.mu.RLock()
	scenarios := append([]Scenario(nil), bs.scenarios...)
	bs.mu.RUnlock()

	for _, scenario := range scenarios {
		metrics, err := bs.RunScenario(ctx, scenario)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			bs.logger.WithError(err).WithField("scenario", scenario.Name).Error("❌ scenario failed")
			continue
		}

		bs.mu.Lock()
		bs.results = append(bs.results, *metrics)
		bs.mu.Unlock()

		bs.logger.WithFields(logrus.Fields{
			"scenario": scenario.Name,
			"fps":      fmt.Sprintf("%.2f", metrics.FramesPerSecond),
			"p95":      metrics.LatencyP95,
		}).Info("✅ scenario completed")
	}
	return nil
}

// Results returns a copy of the collected results.
func (bs *Suite) Results() []PerformanceMetrics {
	bs.mu.RLock()
	defer bs.mu.RUnlock()
	return append([]PerformanceMetrics(nil), bs.results...)
}

// SaveResults writes benchmark_results_<ts>.json and benchmark_summary_<ts>.csv
// to the output directory and returns their paths.
func (bs *Suite) SaveResults() (string, string, error) {
	results := bs.Results()

	if err := os.MkdirAll(bs.outputDir, 0o755); err != nil {
		return "", "", errors.Wrap(err, "create output directory")
	}

	timestamp := time.Now().Format("2006-01-02_15-04-05")
	resultsFile := filepath.Join(bs.outputDir, fmt.Sprintf("benchmark_results_%s.json", timestamp))
	summaryFile := filepath.Join(bs.outputDir, fmt.Sprintf("benchmark_summary_%s.csv", timestamp))

	data, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return "", "", errors.Wrap(err, "marshal results")
	}
	if err := os.WriteFile(resultsFile, data, 0o644); err != nil {
		return "", "", errors.Wrap(err, "write results")
	}
	if err := saveSummaryCSV(summaryFile, results); err != nil {
		return "", "", errors.Wrap(err, "write summary")
	}

	return resultsFile, summaryFile, nil
}

func saveSummaryCSV(filename string, results []PerformanceMetrics) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	w := csv.NewWriter(file)
	_ = w.Write([]string{
		"scenario", "resolution", "format", "fps",
		"decode_ms", "detect_ms", "p50_ms", "p95_ms", "detections", "error_rate",
	})
	for _, r := range results {
		_ = w.Write([]string{
			r.Scenario.Name,
			fmt.Sprintf("%dx%d", r.Scenario.Resolution.Width, r.Scenario.Resolution.Height),
			string(r.Scenario.ImageFormat),
			strconv.FormatFloat(r.FramesPerSecond, 'f', 2, 64),
			millis(r.DecodeDuration),
			millis(r.DetectDuration),
			millis(r.LatencyP50),
			millis(r.LatencyP95),
			strconv.Itoa(r.DetectionCount),
			strconv.FormatFloat(r.ErrorRate, 'f', 4, 64),
		})
	}
	w.Flush()
	return w.Error()
}

func millis(d time.Duration) string {
	return strconv.FormatFloat(float64(d)/float64(time.Millisecond), 'f', 3, 64)
}
