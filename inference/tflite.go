package inference

import (
	"sync"

	"github.com/mattn/go-tflite"
	"github.com/nvr-ai/go-yolo/models/model"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gorgonia.org/tensor"
)

// TFLiteInterpreter runs a TensorFlow Lite flatbuffer model.
type TFLiteInterpreter struct {
	model   *tflite.Model
	options *tflite.InterpreterOptions
	interp  *tflite.Interpreter
	logger  logrus.FieldLogger
	closed  bool
	mu      sync.Mutex
}

// NewTFLiteInterpreter loads the model, allocates its tensors and checks that
// the input and every output match the configured scales.
func NewTFLiteInterpreter(args Args) (*TFLiteInterpreter, error) {
	logger := orDefaultLogger(args.Logger).WithField("engine", EngineTFLite)
	cfg := args.Config

	t := &TFLiteInterpreter{logger: logger}

	ok := false
	defer func() {
		if !ok {
			t.destroy()
		}
	}()

	t.model = tflite.NewModel(args.Model)
	if t.model == nil {
		return nil, errors.Wrap(model.ErrModelLoad, "cannot load tflite model")
	}

	t.options = tflite.NewInterpreterOptions()
	if args.Threads > 0 {
		t.options.SetNumThread(args.Threads)
	}
	t.options.SetErrorReporter(func(msg string, _ interface{}) {
		logger.Warn(msg)
	}, nil)

	t.interp = tflite.NewInterpreter(t.model, t.options)
	if t.interp == nil {
		return nil, errors.Wrap(model.ErrModelLoad, "cannot create tflite interpreter")
	}
	if status := t.interp.AllocateTensors(); status != tflite.OK {
		return nil, errors.Wrapf(model.ErrModelLoad, "allocate tensors: status %v", status)
	}

	input := t.interp.GetInputTensor(0)
	if input == nil || input.Type() != tflite.Float32 {
		return nil, errors.Wrap(model.ErrModelLoad, "model input is not a float32 tensor")
	}
	if got, want := len(input.Float32s()), InputLen(cfg); got != want {
		return nil, errors.Wrapf(model.ErrModelLoad, "model input holds %d values, want %d", got, want)
	}

	if got, want := t.interp.GetOutputTensorCount(), cfg.NumScales(); got < want {
		return nil, errors.Wrapf(model.ErrModelLoad, "model has %d outputs, want %d", got, want)
	}
	for scale := 0; scale < cfg.NumScales(); scale++ {
		out := t.interp.GetOutputTensor(scale)
		if out.Type() != tflite.Float32 {
			return nil, errors.Wrapf(model.ErrModelLoad, "output %d is %v, want float32", scale, out.Type())
		}
		if got, want := len(out.Float32s()), outputLen(cfg, scale); got != want {
			return nil, errors.Wrapf(model.ErrModelLoad, "output %d holds %d values, want %d", scale, got, want)
		}
	}

	ok = true
	logger.WithField("threads", args.Threads).Info("✅ tflite interpreter initialized")

	return t, nil
}

// Run copies the input, invokes the interpreter and copies every output.
func (t *TFLiteInterpreter) Run(input []float32, outputs map[int]*tensor.Dense) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return model.ErrClosed
	}

	dst := t.interp.GetInputTensor(0).Float32s()
	if err := checkInput(input, len(dst)); err != nil {
		return err
	}
	copy(dst, input)

	if status := t.interp.Invoke(); status != tflite.OK {
		return errors.Wrapf(model.ErrInterpreter, "tflite invoke: status %v", status)
	}

	for idx := range outputs {
		if idx < 0 || idx >= t.interp.GetOutputTensorCount() {
			return errors.Wrapf(model.ErrInterpreter, "no model output %d", idx)
		}
		if err := fillOutput(outputs, idx, t.interp.GetOutputTensor(idx).Float32s()); err != nil {
			return err
		}
	}
	return nil
}

// Close deletes the interpreter, its options and the model. Closing twice is a
// no-op.
func (t *TFLiteInterpreter) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return nil
	}
	t.closed = true
	t.destroy()

	t.logger.Info("🔒 tflite interpreter closed")
	return nil
}

func (t *TFLiteInterpreter) destroy() {
	if t.interp != nil {
		t.interp.Delete()
		t.interp = nil
	}
	if t.options != nil {
		t.options.Delete()
		t.options = nil
	}
	if t.model != nil {
		t.model.Delete()
		t.model = nil
	}
}
