// Package detector - Multi-scale YOLO detection over one interpreter handle.
package detector

import (
	"context"
	"image"
	"sync"

	"github.com/google/uuid"
	"github.com/nvr-ai/go-yolo/images"
	"github.com/nvr-ai/go-yolo/inference"
	"github.com/nvr-ai/go-yolo/models/model"
	"github.com/nvr-ai/go-yolo/models/postprocess"
	"github.com/nvr-ai/go-yolo/models/yolov3"
	"github.com/nvr-ai/go-yolo/profiler"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gorgonia.org/tensor"
)

// Profiled stage names.
const (
	StageInterpreter = "interpreter"
	StageDecode      = "decode"
	StageNMS         = "nms"
)

// Detector runs the interpreter once per call, decodes every grid scale and
// suppresses duplicate boxes per class.
//
// The configuration is fixed at construction. Detect calls are serialized so
// at most one inference is in flight on the interpreter handle.
type Detector struct {
	cfg      yolov3.Config
	interp   inference.Interpreter
	outputs  map[int]*tensor.Dense
	profiler *profiler.RuntimeProfiler
	logger   logrus.FieldLogger
	closed   bool
	mu       sync.Mutex
}

// Option configures a Detector.
type Option func(*Detector)

// WithLogger sets the logger. The default is the logrus standard logger.
func WithLogger(logger logrus.FieldLogger) Option {
	return func(d *Detector) {
		d.logger = logger
	}
}

// WithProfiler records stage timings into p instead of a private profiler.
func WithProfiler(p *profiler.RuntimeProfiler) Option {
	return func(d *Detector) {
		d.profiler = p
	}
}

// New creates a detector that owns interp. The configuration is copied and
// validated; interp is closed by Detector.Close.
//
// Arguments:
//   - cfg: The model configuration.
//   - interp: The interpreter evaluating the model.
//   - opts: Optional logger and profiler.
//
// Returns:
//   - *Detector: The detector.
//   - error: An error wrapping model.ErrConfig.
//
// Example Usage:
//
//	d, err := detector.New(cfg, interp, detector.WithLogger(logger))
//	if err != nil {
//		return err
//	}
//	defer d.Close()
//
//	detections, err := d.Detect(ctx, pixels)
func New(cfg yolov3.Config, interp inference.Interpreter, opts ...Option) (*Detector, error) {
	if interp == nil {
		return nil, errors.Wrap(model.ErrConfig, "detector needs an interpreter")
	}

	cfg = cfg.Clone()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	d := &Detector{
		cfg:     cfg,
		interp:  interp,
		outputs: inference.NewOutputs(&cfg),
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.logger == nil {
		d.logger = logrus.StandardLogger()
	}
	if d.profiler == nil {
		d.profiler = profiler.NewRuntimeProfiler(0)
	}
	d.logger = d.logger.WithField("model", cfg.Name)

	d.logger.WithFields(logrus.Fields{
		"input_size": cfg.InputSize,
		"grids":      cfg.Grids,
		"classes":    cfg.NumClasses(),
	}).Info("✅ detector initialized")

	return d, nil
}

// Config returns a copy of the detector's model configuration.
func (d *Detector) Config() yolov3.Config {
	return d.cfg.Clone()
}

// Profiler returns the profiler receiving stage timings.
func (d *Detector) Profiler() *profiler.RuntimeProfiler {
	return d.profiler
}

// Detect runs one inference on a normalized [size, size, 3] pixel tensor.
//
// Either the full detection list is returned or an error; never both. The
// context is only checked before the interpreter is invoked.
//
// Arguments:
//   - ctx: Cancels the call before inference starts.
//   - pixels: InputSize*InputSize*3 interleaved RGB values.
//
// Returns:
//   - []postprocess.Detection: The detections, grouped by class index.
//   - error: model.ErrClosed after Close, or an error wrapping model.ErrInterpreter.
func (d *Detector) Detect(ctx context.Context, pixels []float32) ([]postprocess.Detection, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.Wrap(err, "detect")
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return nil, model.ErrClosed
	}
	if want := inference.InputLen(&d.cfg); len(pixels) != want {
		return nil, errors.Wrapf(model.ErrInterpreter, "input has %d values, want %d", len(pixels), want)
	}

	log := d.logger.WithField("run_id", uuid.New().String())

	done := d.profiler.StartOperation(StageInterpreter)
	err := d.interp.Run(pixels, d.outputs)
	done()
	if err != nil {
		if !errors.Is(err, model.ErrInterpreter) {
			err = errors.Wrapf(model.ErrInterpreter, "%v", err)
		}
		log.WithError(err).Error("interpreter run failed")
		return nil, err
	}

	done = d.profiler.StartOperation(StageDecode)
	candidates, err := yolov3.DecodeAll(&d.cfg, d.outputs)
	done()
	if err != nil {
		log.WithError(err).Error("decode failed")
		return nil, err
	}

	done = d.profiler.StartOperation(StageNMS)
	detections := postprocess.ApplyClassNMS(candidates, &postprocess.NMSConfig{
		IoUThreshold: d.cfg.NMSThreshold,
		NumClasses:   d.cfg.NumClasses(),
	})
	done()

	d.profiler.RecordMetric("candidates", float64(len(candidates)))
	d.profiler.RecordMetric("kept", float64(len(detections)))

	log.WithFields(logrus.Fields{
		"candidates": len(candidates),
		"kept":       len(detections),
	}).Debug("detect done")

	return detections, nil
}

// DetectImage resizes img to the model input, normalizes it and runs Detect.
// Boxes are in model input coordinates.
func (d *Detector) DetectImage(ctx context.Context, img image.Image) ([]postprocess.Detection, error) {
	pixels, err := images.ToTensor(img, d.cfg.InputSize)
	if err != nil {
		return nil, err
	}
	return d.Detect(ctx, pixels)
}

// Close releases the interpreter exactly once. Later calls return nil.
func (d *Detector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return nil
	}
	d.closed = true

	err := d.interp.Close()
	d.interp = nil
	d.logger.Info("🔒 detector closed")

	if err != nil {
		return errors.Wrap(err, "close interpreter")
	}
	return nil
}
