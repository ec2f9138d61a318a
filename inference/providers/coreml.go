package providers

import "strconv"

// CoreML provider flags, matching COREML_FLAG_* in the ONNX Runtime C API.
const (
	coreMLFlagUseCPUOnly                 uint32 = 0x001
	coreMLFlagEnableOnSubgraph           uint32 = 0x002
	coreMLFlagOnlyEnableDeviceWithANE    uint32 = 0x004
	coreMLFlagOnlyAllowStaticInputShapes uint32 = 0x008
	coreMLFlagCreateMLProgram            uint32 = 0x010
)

// CoreMLOptions contains arguments for the CoreML provider.
// See: https://onnxruntime.ai/docs/execution-providers/CoreML-ExecutionProvider.html
type CoreMLOptions struct {
	// Limit CoreML to running on CPU only.
	UseCPUOnly bool `json:"use_cpu_only" yaml:"use_cpu_only"`
	// Enable CoreML on subgraphs in the body of control flow operators.
	EnableOnSubgraph bool `json:"enable_on_subgraph" yaml:"enable_on_subgraph"`
	// Only enable CoreML on devices with an Apple Neural Engine.
	OnlyEnableDeviceWithANE bool `json:"only_enable_device_with_ane" yaml:"only_enable_device_with_ane"`
	// Only allow nodes with static input shapes.
	RequireStaticInputShapes bool `json:"require_static_input_shapes" yaml:"require_static_input_shapes"`
	// Create an MLProgram format model. Requires Core ML 5 or later.
	CreateMLProgram bool `json:"create_ml_program" yaml:"create_ml_program"`
}

// Flags returns the CoreML bit flags for the options.
func (o CoreMLOptions) Flags() uint32 {
	var flags uint32
	if o.UseCPUOnly {
		flags |= coreMLFlagUseCPUOnly
	}
	if o.EnableOnSubgraph {
		flags |= coreMLFlagEnableOnSubgraph
	}
	if o.OnlyEnableDeviceWithANE {
		flags |= coreMLFlagOnlyEnableDeviceWithANE
	}
	if o.RequireStaticInputShapes {
		flags |= coreMLFlagOnlyAllowStaticInputShapes
	}
	if o.CreateMLProgram {
		flags |= coreMLFlagCreateMLProgram
	}
	return flags
}

// Map renders the options for an ExecutionProviderConfig.
func (o CoreMLOptions) Map() map[string]string {
	return map[string]string{"flags": strconv.FormatUint(uint64(o.Flags()), 10)}
}

// coreMLFlags reads the "flags" option written by CoreMLOptions.Map. Invalid
// or missing values yield 0.
func coreMLFlags(options map[string]string) uint32 {
	v, err := strconv.ParseUint(options["flags"], 10, 32)
	if err != nil {
		return 0
	}
	return uint32(v)
}
