package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/nvr-ai/go-yolo/config"
	"github.com/nvr-ai/go-yolo/detector"
	"github.com/nvr-ai/go-yolo/images"
	"github.com/nvr-ai/go-yolo/logging"
	"github.com/nvr-ai/go-yolo/models/model"
	"github.com/nvr-ai/go-yolo/models/postprocess"
	"github.com/nvr-ai/go-yolo/profiler"
	"github.com/nvr-ai/go-yolo/util"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// flags holds the command line. Empty strings and nil thresholds keep the configured value.
type flags struct {
	configPath string
	imagePath  string
	dirPath    string
	modelPath  string
	modelName  string
	labels     string
	manifest   string
	backend    string
	objectness *float32
	nms        *float32
	logLevel   string
	profile    bool
}

// Result is the JSON line printed for every processed image.
type Result struct {
	Path       string                  `json:"path"`
	Frame      int                     `json:"frame"`
	Detections []postprocess.Detection `json:"detections"`
	Error      string                  `json:"error,omitempty"`
}

func main() {
	var f flags
	flag.StringVar(&f.configPath, "config", "", "Path to a YAML config file")
	flag.StringVar(&f.imagePath, "image", "", "Path to image file (.jpg, .jpeg, .png, .bmp, .webp)")
	flag.StringVar(&f.dirPath, "dir", "", "Directory of frames to process in frame order")
	flag.StringVar(&f.modelPath, "model", "", "Path to the .onnx or .tflite model file")
	flag.StringVar(&f.modelName, "model-name", "", "Model preset (yolov3, yolov3-tiny, custom)")
	flag.StringVar(&f.labels, "labels", "", "Path to a newline separated label file")
	flag.StringVar(&f.manifest, "manifest", "", "Path to a YAML model manifest")
	flag.StringVar(&f.backend, "backend", "", "Interpreter backend (onnx, tflite, opencv)")
	flag.Func("objectness", "Objectness threshold override", float32Flag(&f.objectness))
	flag.Func("nms", "NMS IoU threshold override", float32Flag(&f.nms))
	flag.StringVar(&f.logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	flag.BoolVar(&f.profile, "profile", false, "Log per-stage timings when done")
	flag.Parse()

	if (f.imagePath == "") == (f.dirPath == "") {
		fmt.Fprintln(os.Stderr, "exactly one of -image or -dir is required")
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load(f.configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ config: %v\n", err)
		os.Exit(1)
	}
	f.apply(cfg)
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "❌ config: %v\n", err)
		os.Exit(1)
	}

	log, err := logging.New(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ logging: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, f, log, os.Stdout); err != nil {
		log.WithError(err).Fatal("❌ detection failed")
	}
}

// apply copies the flags that were set over cfg.
func (f flags) apply(cfg *config.Config) {
	if f.modelPath != "" {
		cfg.Model.Path = f.modelPath
	}
	if f.modelName != "" {
		cfg.Model.Name = model.Name(f.modelName)
	}
	if f.labels != "" {
		cfg.Model.Labels = f.labels
	}
	if f.manifest != "" {
		cfg.Model.Manifest = f.manifest
	}
	if f.backend != "" {
		cfg.Backend = f.backend
	}
	if f.objectness != nil {
		cfg.Thresholds.Objectness = f.objectness
	}
	if f.nms != nil {
		cfg.Thresholds.NMS = f.nms
	}
	if f.logLevel != "" {
		cfg.Log.Level = f.logLevel
	}
}

// float32Flag parses a flag value into *dst, leaving it nil when the flag is absent.
func float32Flag(dst **float32) func(string) error {
	return func(s string) error {
		v, err := strconv.ParseFloat(s, 32)
		if err != nil {
			return err
		}
		f := float32(v)
		*dst = &f
		return nil
	}
}

func run(ctx context.Context, cfg *config.Config, f flags, log *logrus.Logger, out io.Writer) error {
	prof := profiler.NewRuntimeProfiler(profiler.DefaultMaxSamples)
	d, err := detector.NewFromConfig(cfg, log, detector.WithProfiler(prof))
	if err != nil {
		return err
	}
	defer d.Close()

	files, err := inputFiles(f)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(out)
	for _, file := range files {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := enc.Encode(detectFile(ctx, d, file)); err != nil {
			return errors.Wrap(err, "write result")
		}
	}

	log.WithField("images", len(files)).Info("✅ detection finished")
	if f.profile {
		prof.Report(log)
	}
	return nil
}

func inputFiles(f flags) ([]util.ImageFile, error) {
	if f.dirPath != "" {
		return util.LoadDirectoryImageFiles(f.dirPath)
	}

	data, err := os.ReadFile(f.imagePath)
	if err != nil {
		return nil, errors.Wrapf(err, "read image %s", f.imagePath)
	}
	return []util.ImageFile{{Path: f.imagePath, Data: data, Frame: util.FrameNumber(f.imagePath)}}, nil
}

// detectFile decodes one image and runs the detector. Failures are reported in
// the result so a bad frame does not stop a batch.
func detectFile(ctx context.Context, d *detector.Detector, file util.ImageFile) Result {
	result := Result{Path: file.Path, Frame: file.Frame}

	_, img, err := images.Decode(file.Data)
	if err != nil {
		result.Error = err.Error()
		return result
	}

	detections, err := d.DetectImage(ctx, img)
	if err != nil {
		result.Error = err.Error()
		return result
	}
	result.Detections = detections
	return result
}
