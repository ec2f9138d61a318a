package providers

import (
	"runtime"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	ort "github.com/yalue/onnxruntime_go"
)

// OptimizationConfig contains the ONNX Runtime session settings.
type OptimizationConfig struct {
	// GraphOptimizationLevel controls the level of graph optimization.
	GraphOptimizationLevel ort.GraphOptimizationLevel `json:"graph_optimization_level" yaml:"graph_optimization_level"`

	// ExecutionMode controls sequential vs parallel execution.
	ExecutionMode ort.ExecutionMode `json:"execution_mode" yaml:"execution_mode"`

	// IntraOpNumThreads sets threads for parallelizing ops. Zero lets the runtime decide.
	IntraOpNumThreads int `json:"intra_op_num_threads" yaml:"intra_op_num_threads"`

	// InterOpNumThreads sets threads for parallelizing independent ops. Zero lets the runtime decide.
	InterOpNumThreads int `json:"inter_op_num_threads" yaml:"inter_op_num_threads"`

	// EnableCPUMemArena enables the CPU memory arena.
	EnableCPUMemArena bool `json:"enable_cpu_mem_arena" yaml:"enable_cpu_mem_arena"`

	// EnableMemoryPattern enables memory pattern optimization.
	EnableMemoryPattern bool `json:"enable_memory_pattern" yaml:"enable_memory_pattern"`

	// ExecutionProviders configures the execution providers to append.
	ExecutionProviders []ExecutionProviderConfig `json:"execution_providers" yaml:"execution_providers"`
}

// DefaultOptimizationConfig returns a CPU-only configuration with extended
// graph optimizations and half the cores for intra-op parallelism.
func DefaultOptimizationConfig() OptimizationConfig {
	numCPU := runtime.NumCPU()

	return OptimizationConfig{
		GraphOptimizationLevel: ort.GraphOptimizationLevelEnableExtended,
		ExecutionMode:          ort.ExecutionModeSequential,
		IntraOpNumThreads:      max(1, numCPU/2),
		InterOpNumThreads:      1,
		EnableCPUMemArena:      true,
		EnableMemoryPattern:    true,
		ExecutionProviders: []ExecutionProviderConfig{
			{
				Provider: CPUBackend,
				Options:  map[string]string{},
				Priority: 1,
				Enabled:  true,
			},
		},
	}
}

// OptimizedSessionOptions creates ONNX Runtime session options from the config.
//
// Execution providers that fail to attach (typically because the runtime was
// built without them) are logged and skipped; inference then falls back to CPU.
//
// Arguments:
//   - config: Optimization configuration to apply.
//   - logger: Receives warnings about skipped providers.
//
// Returns:
//   - *ort.SessionOptions: Configured session options. The caller must Destroy them.
//   - error: Configuration error if any.
//
// @example
// options, err := OptimizedSessionOptions(DefaultOptimizationConfig(), logger)
//
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// defer options.Destroy()
func OptimizedSessionOptions(config OptimizationConfig, logger logrus.FieldLogger) (*ort.SessionOptions, error) {
	options, err := ort.NewSessionOptions()
	if err != nil {
		return nil, errors.Wrap(err, "failed to create session options")
	}

	if err := applySessionSettings(options, config); err != nil {
		options.Destroy()
		return nil, err
	}

	if err := applyExecutionProviders(options, config.ExecutionProviders, logger); err != nil {
		options.Destroy()
		return nil, errors.Wrap(err, "failed to configure execution providers")
	}

	return options, nil
}

func applySessionSettings(options *ort.SessionOptions, config OptimizationConfig) error {
	if err := options.SetGraphOptimizationLevel(config.GraphOptimizationLevel); err != nil {
		return errors.Wrap(err, "set graph optimization level")
	}
	if err := options.SetExecutionMode(config.ExecutionMode); err != nil {
		return errors.Wrap(err, "set execution mode")
	}
	if config.IntraOpNumThreads > 0 {
		if err := options.SetIntraOpNumThreads(config.IntraOpNumThreads); err != nil {
			return errors.Wrap(err, "set intra-op threads")
		}
	}
	if config.InterOpNumThreads > 0 {
		if err := options.SetInterOpNumThreads(config.InterOpNumThreads); err != nil {
			return errors.Wrap(err, "set inter-op threads")
		}
	}
	if err := options.SetCpuMemArena(config.EnableCPUMemArena); err != nil {
		return errors.Wrap(err, "set cpu memory arena")
	}
	if err := options.SetMemPattern(config.EnableMemoryPattern); err != nil {
		return errors.Wrap(err, "set memory pattern")
	}
	return nil
}

// applyExecutionProviders appends the enabled providers, highest priority first.
func applyExecutionProviders(options *ort.SessionOptions, providers []ExecutionProviderConfig, logger logrus.FieldLogger) error {
	for _, provider := range enabledByPriority(providers) {
		log := logger.WithField("provider", provider.Provider)

		switch provider.Provider {
		case CPUBackend:
			// CPU provider is always available, no explicit configuration needed

		case CUDABackend:
			cuda, err := newCUDAProviderOptions(provider.Options)
			if err != nil {
				log.WithError(err).Warn("⚠️ CUDA provider unavailable")
				continue
			}
			err = options.AppendExecutionProviderCUDA(cuda)
			cuda.Destroy()
			if err != nil {
				log.WithError(err).Warn("⚠️ failed to enable CUDA provider")
			}

		case TensorRTBackend:
			trt, err := newTensorRTProviderOptions(provider.Options)
			if err != nil {
				log.WithError(err).Warn("⚠️ TensorRT provider unavailable")
				continue
			}
			err = options.AppendExecutionProviderTensorRT(trt)
			trt.Destroy()
			if err != nil {
				log.WithError(err).Warn("⚠️ failed to enable TensorRT provider")
			}

		case CoreMLBackend:
			if err := options.AppendExecutionProviderCoreML(coreMLFlags(provider.Options)); err != nil {
				log.WithError(err).Warn("⚠️ failed to enable CoreML provider")
			}

		case OpenVINOBackend:
			if err := options.AppendExecutionProviderOpenVINO(provider.Options); err != nil {
				log.WithError(err).Warn("⚠️ failed to enable OpenVINO provider")
			}

		default:
			return errors.Wrapf(ErrUnsupportedBackend, "%q", provider.Provider)
		}
	}

	return nil
}
