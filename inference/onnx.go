package inference

import (
	"sync"

	"github.com/nvr-ai/go-yolo/inference/providers"
	"github.com/nvr-ai/go-yolo/models/model"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	ort "github.com/yalue/onnxruntime_go"
	"gorgonia.org/tensor"
)

// ONNXInterpreter runs a model with ONNX Runtime.
//
// The input is bound as [1, size, size, 3] and every output as
// [1, grid, grid, 3*(5+classes)]; both are preallocated at construction and
// reused by every Run.
type ONNXInterpreter struct {
	session *ort.AdvancedSession
	input   *ort.Tensor[float32]
	outputs []*ort.Tensor[float32]
	logger  logrus.FieldLogger
	closed  bool
	mu      sync.Mutex
}

// NewONNXInterpreter creates an ONNX Runtime session from in-memory model data.
//
// Order of operations:
//  1. Library path resolution and environment setup (shared per process).
//  2. Tensor allocation: fixed-shape buffers for input and output data.
//  3. Session options: threading, optimization level and execution providers.
//  4. Session creation: loads the model and binds the tensors.
//
// Arguments:
//   - args: The model data, config, tensor names and session options.
//
// Returns:
//   - *ONNXInterpreter: The interpreter. The caller must Close it.
//   - error: An error wrapping model.ErrConfig or model.ErrModelLoad.
func NewONNXInterpreter(args Args) (*ONNXInterpreter, error) {
	inputName, outputNames, err := tensorNames(args)
	if err != nil {
		return nil, err
	}

	logger := orDefaultLogger(args.Logger).WithField("engine", EngineONNX)
	cfg := args.Config

	libPath, err := providers.GetSharedLibPath(args.LibraryPath)
	if err != nil {
		return nil, errors.Wrap(model.ErrModelLoad, err.Error())
	}
	if err := providers.AcquireEnvironment(libPath); err != nil {
		return nil, errors.Wrap(model.ErrModelLoad, err.Error())
	}

	o := &ONNXInterpreter{logger: logger}

	// Release whatever was allocated if any later step fails.
	ok := false
	defer func() {
		if !ok {
			o.destroy()
		}
	}()

	size := int64(cfg.InputSize)
	o.input, err = ort.NewEmptyTensor[float32](ort.NewShape(1, size, size, 3))
	if err != nil {
		return nil, errors.Wrapf(model.ErrModelLoad, "error creating input tensor: %v", err)
	}

	for scale := 0; scale < cfg.NumScales(); scale++ {
		g := int64(cfg.Grids[scale])
		out, err := ort.NewEmptyTensor[float32](ort.NewShape(1, g, g, int64(outputLen(cfg, scale))/(g*g)))
		if err != nil {
			return nil, errors.Wrapf(model.ErrModelLoad, "error creating output tensor %d: %v", scale, err)
		}
		o.outputs = append(o.outputs, out)
	}

	opts := args.Optimization
	if opts.ExecutionProviders == nil {
		opts = providers.DefaultOptimizationConfig()
	}
	options, err := providers.OptimizedSessionOptions(opts, logger)
	if err != nil {
		return nil, errors.Wrap(model.ErrModelLoad, err.Error())
	}
	defer options.Destroy()

	outputs := make([]ort.Value, len(o.outputs))
	for i, out := range o.outputs {
		outputs[i] = out
	}

	o.session, err = ort.NewAdvancedSessionWithONNXData(
		args.Model,
		[]string{inputName},
		outputNames,
		[]ort.Value{o.input},
		outputs,
		options,
	)
	if err != nil {
		return nil, errors.Wrapf(model.ErrModelLoad, "error creating ORT session: %v", err)
	}

	ok = true
	logger.WithFields(logrus.Fields{
		"input":   inputName,
		"outputs": outputNames,
	}).Info("✅ onnx interpreter initialized")

	return o, nil
}

// Run copies the input into the bound input tensor, runs the session and copies
// every bound output into its registered slot.
func (o *ONNXInterpreter) Run(input []float32, outputs map[int]*tensor.Dense) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.closed {
		return model.ErrClosed
	}
	if err := checkInput(input, len(o.input.GetData())); err != nil {
		return err
	}

	copy(o.input.GetData(), input)

	if err := o.session.Run(); err != nil {
		return errors.Wrapf(model.ErrInterpreter, "onnx run: %v", err)
	}

	for i, out := range o.outputs {
		if err := fillOutput(outputs, i, out.GetData()); err != nil {
			return err
		}
	}
	return nil
}

// Close releases the session, its tensors and the environment reference.
// Closing twice is a no-op.
func (o *ONNXInterpreter) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.closed {
		return nil
	}
	o.closed = true

	err := o.destroy()
	o.logger.Info("🔒 onnx interpreter closed")
	return err
}

func (o *ONNXInterpreter) destroy() error {
	var firstErr error
	keep := func(err error) {
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}

	if o.session != nil {
		keep(o.session.Destroy())
		o.session = nil
	}
	if o.input != nil {
		keep(o.input.Destroy())
		o.input = nil
	}
	for _, out := range o.outputs {
		keep(out.Destroy())
	}
	o.outputs = nil

	keep(providers.ReleaseEnvironment())

	if firstErr != nil {
		return errors.Wrap(firstErr, "error destroying onnx interpreter")
	}
	return nil
}
