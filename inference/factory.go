package inference

import (
	"strconv"

	"github.com/nvr-ai/go-yolo/inference/providers"
	"github.com/nvr-ai/go-yolo/models/model"
	"github.com/nvr-ai/go-yolo/models/yolov3"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Args are the inputs shared by every interpreter backend.
type Args struct {
	// Engine selects the backend.
	Engine EngineType
	// Model is the serialized model (ONNX or TFLite flatbuffer).
	Model []byte
	// Config describes the input resolution and the output scales.
	Config *yolov3.Config
	// InputName is the model input tensor name (ONNX, OpenCV).
	InputName string
	// OutputNames are the model output tensor names in scale order (ONNX, OpenCV).
	OutputNames []string
	// LibraryPath is the onnxruntime shared library (ONNX).
	LibraryPath string
	// Optimization holds the onnxruntime session options (ONNX).
	Optimization providers.OptimizationConfig
	// Threads is the interpreter thread count (TFLite). Zero keeps the default.
	Threads int
	// Logger receives lifecycle and runtime messages.
	Logger logrus.FieldLogger
}

// New creates the interpreter selected by args.Engine.
//
// Arguments:
//   - args: Backend selection and model data.
//
// Returns:
//   - Interpreter: A ready interpreter; the caller must Close it.
//   - error: An error wrapping model.ErrConfig or model.ErrModelLoad.
//
// Example:
//
//	interp, err := inference.New(inference.Args{
//	    Engine: inference.EngineONNX,
//	    Model:  data,
//	    Config: &cfg,
//	})
//	if err != nil {
//	    log.Fatalf("Failed to create interpreter: %v", err)
//	}
//	defer interp.Close()
func New(args Args) (Interpreter, error) {
	if args.Config == nil {
		return nil, errors.Wrap(model.ErrConfig, "interpreter needs a model config")
	}
	if len(args.Model) == 0 {
		return nil, errors.Wrap(model.ErrModelLoad, "empty model data")
	}

	switch args.Engine {
	case EngineONNX:
		i, err := NewONNXInterpreter(args)
		if err != nil {
			return nil, err
		}
		return i, nil
	case EngineTFLite:
		i, err := NewTFLiteInterpreter(args)
		if err != nil {
			return nil, err
		}
		return i, nil
	case EngineOpenCV:
		i, err := NewOpenCVInterpreter(args)
		if err != nil {
			return nil, err
		}
		return i, nil
	default:
		return nil, errors.Wrapf(model.ErrConfig, "unsupported engine %q", args.Engine)
	}
}

// tensorNames returns the configured input/output names or the defaults
// "input" and "output_<scale>".
func tensorNames(args Args) (string, []string, error) {
	input := args.InputName
	if input == "" {
		input = "input"
	}

	outputs := args.OutputNames
	if len(outputs) == 0 {
		outputs = make([]string, args.Config.NumScales())
		for i := range outputs {
			outputs[i] = "output_" + strconv.Itoa(i)
		}
	}
	if len(outputs) != args.Config.NumScales() {
		return "", nil, errors.Wrapf(model.ErrConfig, "%d output names for %d scales", len(outputs), args.Config.NumScales())
	}

	return input, outputs, nil
}
