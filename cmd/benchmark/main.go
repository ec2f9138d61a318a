package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/nvr-ai/go-yolo/benchmark"
	"github.com/nvr-ai/go-yolo/config"
	"github.com/nvr-ai/go-yolo/detector"
	"github.com/nvr-ai/go-yolo/logging"
	"github.com/nvr-ai/go-yolo/profiler"
	"github.com/nvr-ai/go-yolo/util"
)

func main() {
	var (
		configFile    = flag.String("config", "", "Path to the YAML config file")
		scenarioFile  = flag.String("scenarios", "", "Path to a YAML scenario list")
		outputDir     = flag.String("output", "./benchmark_results", "Output directory for results")
		testImages    = flag.String("images", "", "Directory of corpus images (default: synthetic frames)")
		modelPath     = flag.String("model", "", "Path to the model file")
		backend       = flag.String("backend", "", "Interpreter backend (onnx, tflite, opencv)")
		iterations    = flag.Int("iterations", 50, "Measured runs per scenario")
		comprehensive = flag.Bool("comprehensive", false, "Run every resolution and format")
		timeout       = flag.Duration("timeout", 30*time.Minute, "Benchmark timeout duration")
	)
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ config: %v\n", err)
		os.Exit(1)
	}
	if *modelPath != "" {
		cfg.Model.Path = *modelPath
	}
	if *backend != "" {
		cfg.Backend = *backend
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "❌ config: %v\n", err)
		os.Exit(1)
	}

	log, err := logging.New(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ logging: %v\n", err)
		os.Exit(1)
	}

	var scenarios []benchmark.Scenario
	switch {
	case *scenarioFile != "":
		if scenarios, err = benchmark.LoadScenarios(*scenarioFile); err != nil {
			log.WithError(err).Fatal("failed to load scenarios")
		}
	case *comprehensive:
		scenarios = benchmark.ComprehensiveScenarios(*iterations)
	default:
		scenarios = benchmark.QuickScenarios(*iterations)
	}

	var corpus []util.ImageFile
	if *testImages != "" {
		if corpus, err = util.LoadDirectoryImageFiles(*testImages); err != nil {
			log.WithError(err).Fatal("failed to load test images")
		}
	}

	prof := profiler.NewRuntimeProfiler(profiler.DefaultMaxSamples)
	d, err := detector.NewFromConfig(cfg, log, detector.WithProfiler(prof))
	if err != nil {
		log.WithError(err).Fatal("failed to create detector")
	}
	defer d.Close()

	suite := benchmark.NewSuite(benchmark.NewSuiteArgs{
		Detector:  d,
		OutputDir: *outputDir,
		Corpus:    corpus,
		Logger:    log,
	})
	for _, s := range scenarios {
		suite.AddScenario(s)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	log.WithField("scenarios", len(scenarios)).Info("🚀 starting benchmark")
	if err := suite.RunAllScenarios(ctx); err != nil {
		log.WithError(err).Error("benchmark interrupted")
	}

	resultsFile, summaryFile, err := suite.SaveResults()
	if err != nil {
		log.WithError(err).Error("failed to save results")
		return
	}
	prof.Report(log)

	log.WithField("path", resultsFile).Info("💾 results saved")
	log.WithField("path", summaryFile).Info("💾 summary saved")
}
