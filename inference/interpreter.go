// Package inference - Interpreter backends that evaluate a model on one input tensor.
package inference

import (
	"strings"

	"github.com/nvr-ai/go-yolo/images"
	"github.com/nvr-ai/go-yolo/models/model"
	"github.com/nvr-ai/go-yolo/models/yolov3"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gorgonia.org/tensor"
)

// Interpreter evaluates a model on one normalized input tensor.
//
// Run fills every registered output slot synchronously: outputs[i] receives the
// raw tensor of grid scale i. Implementations are not safe for concurrent use;
// callers serialize access to one handle.
type Interpreter interface {
	Run(input []float32, outputs map[int]*tensor.Dense) error
	Close() error
}

// EngineType is the type of the engine
type EngineType string

const (
	// EngineONNX is the ONNX engine that uses the onnxruntime library
	EngineONNX EngineType = "onnx"
	// EngineTFLite is the TensorFlow Lite engine
	EngineTFLite EngineType = "tflite"
	// EngineOpenCV is the OpenCV DNN engine
	EngineOpenCV EngineType = "opencv"
)

// Engines is a list of all supported engines
var Engines = []EngineType{EngineONNX, EngineTFLite, EngineOpenCV}

// ParseEngine converts a case-insensitive engine name into an EngineType.
func ParseEngine(name string) (EngineType, error) {
	e := EngineType(strings.ToLower(strings.TrimSpace(name)))
	for _, known := range Engines {
		if e == known {
			return e, nil
		}
	}
	return "", errors.Wrapf(model.ErrConfig, "unsupported engine %q", name)
}

// NewOutputs allocates one [1, grid, grid, 3, 5+classes] float32 slot per scale.
func NewOutputs(cfg *yolov3.Config) map[int]*tensor.Dense {
	outputs := make(map[int]*tensor.Dense, cfg.NumScales())
	for scale := 0; scale < cfg.NumScales(); scale++ {
		outputs[scale] = tensor.New(
			tensor.WithShape(cfg.OutputShape(scale)...),
			tensor.Of(tensor.Float32),
		)
	}
	return outputs
}

// InputLen returns the number of floats in the model input: size*size*3.
func InputLen(cfg *yolov3.Config) int {
	return cfg.InputSize * cfg.InputSize * images.Channels
}

// outputLen returns the number of floats in the raw output of one scale.
func outputLen(cfg *yolov3.Config, scale int) int {
	g := cfg.Grids[scale]
	return g * g * yolov3.BoxesPerCell * cfg.BoxSize()
}

func checkInput(input []float32, want int) error {
	if len(input) != want {
		return errors.Wrapf(model.ErrInterpreter, "input has %d values, want %d", len(input), want)
	}
	return nil
}

// fillOutput copies one raw output into its registered slot. Unregistered
// indices are ignored.
func fillOutput(outputs map[int]*tensor.Dense, idx int, src []float32) error {
	dst, ok := outputs[idx]
	if !ok || dst == nil {
		return nil
	}

	data, ok := dst.Data().([]float32)
	if !ok {
		return errors.Wrapf(model.ErrInterpreter, "output %d is not a float32 tensor", idx)
	}
	if len(data) != len(src) {
		return errors.Wrapf(model.ErrInterpreter, "output %d has %d values, slot holds %d", idx, len(src), len(data))
	}

	copy(data, src)
	return nil
}

func orDefaultLogger(logger logrus.FieldLogger) logrus.FieldLogger {
	if logger == nil {
		return logrus.StandardLogger()
	}
	return logger
}
