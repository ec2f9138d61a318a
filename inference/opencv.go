package inference

import (
	"sync"
	"unsafe"

	"github.com/nvr-ai/go-yolo/models/model"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gocv.io/x/gocv"
	"gorgonia.org/tensor"
)

// OpenCVInterpreter runs an ONNX model with the OpenCV DNN module.
type OpenCVInterpreter struct {
	net         gocv.Net
	inputName   string
	outputNames []string
	inputSize   int
	logger      logrus.FieldLogger
	closed      bool
	mu          sync.Mutex
}

// NewOpenCVInterpreter reads an ONNX model into an OpenCV network running on
// the default backend and the CPU target.
//
// When no output names are configured, the unconnected output layers of the
// network are used in the order OpenCV reports them.
func NewOpenCVInterpreter(args Args) (*OpenCVInterpreter, error) {
	logger := orDefaultLogger(args.Logger).WithField("engine", EngineOpenCV)
	cfg := args.Config

	net, err := gocv.ReadNetFromONNXBytes(args.Model)
	if err != nil {
		return nil, errors.Wrapf(model.ErrModelLoad, "read onnx network: %v", err)
	}
	if net.Empty() {
		net.Close()
		return nil, errors.Wrap(model.ErrModelLoad, "empty onnx network")
	}

	net.SetPreferableBackend(gocv.NetBackendDefault)
	net.SetPreferableTarget(gocv.NetTargetCPU)

	outputNames := args.OutputNames
	if len(outputNames) == 0 {
		outputNames = unconnectedOutputNames(&net)
	}
	if len(outputNames) != cfg.NumScales() {
		net.Close()
		return nil, errors.Wrapf(model.ErrConfig, "%d output layers for %d scales", len(outputNames), cfg.NumScales())
	}

	o := &OpenCVInterpreter{
		net:         net,
		inputName:   args.InputName,
		outputNames: outputNames,
		inputSize:   cfg.InputSize,
		logger:      logger,
	}

	logger.WithField("outputs", outputNames).Info("✅ opencv interpreter initialized")
	return o, nil
}

func unconnectedOutputNames(net *gocv.Net) []string {
	layers := net.GetLayerNames()
	var names []string
	for _, id := range net.GetUnconnectedOutLayers() {
		if id > 0 && id <= len(layers) {
			names = append(names, layers[id-1])
		}
	}
	return names
}

// Run wraps the input as a [1, size, size, 3] float32 blob, forwards the
// network and copies every requested output layer.
func (o *OpenCVInterpreter) Run(input []float32, outputs map[int]*tensor.Dense) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.closed {
		return model.ErrClosed
	}
	if err := checkInput(input, o.inputSize*o.inputSize*3); err != nil {
		return err
	}

	// Native-endian view of the float buffer; the blob does not outlive Run.
	raw := unsafe.Slice((*byte)(unsafe.Pointer(&input[0])), len(input)*4)
	blob, err := gocv.NewMatWithSizesFromBytes([]int{1, o.inputSize, o.inputSize, 3}, gocv.MatTypeCV32F, raw)
	if err != nil {
		return errors.Wrapf(model.ErrInterpreter, "input blob: %v", err)
	}
	defer blob.Close()

	o.net.SetInput(blob, o.inputName)

	results := o.net.ForwardLayers(o.outputNames)
	defer func() {
		for _, m := range results {
			m.Close()
		}
	}()

	if len(results) != len(o.outputNames) {
		return errors.Wrapf(model.ErrInterpreter, "forward returned %d outputs, want %d", len(results), len(o.outputNames))
	}

	for i, m := range results {
		data, err := m.DataPtrFloat32()
		if err != nil {
			return errors.Wrapf(model.ErrInterpreter, "output %d: %v", i, err)
		}
		if err := fillOutput(outputs, i, data); err != nil {
			return err
		}
	}
	return nil
}

// Close releases the network. Closing twice is a no-op.
func (o *OpenCVInterpreter) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.closed {
		return nil
	}
	o.closed = true

	err := o.net.Close()
	o.logger.Info("🔒 opencv interpreter closed")
	if err != nil {
		return errors.Wrap(err, "close opencv network")
	}
	return nil
}
