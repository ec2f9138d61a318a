// Package providers - ONNX Runtime session options and execution providers.
package providers

import (
	"sort"
	"strings"

	"github.com/pkg/errors"
)

// Backend names an ONNX Runtime execution provider.
type Backend string

const (
	// CPUBackend is the default CPU execution provider, always available.
	CPUBackend Backend = "cpu"

	// CUDABackend uses NVIDIA CUDA for GPU acceleration.
	CUDABackend Backend = "cuda"

	// TensorRTBackend uses NVIDIA TensorRT for optimized inference.
	TensorRTBackend Backend = "tensorrt"

	// CoreMLBackend uses Apple CoreML for macOS/iOS acceleration.
	CoreMLBackend Backend = "coreml"

	// OpenVINOBackend uses Intel OpenVINO for inference optimization.
	OpenVINOBackend Backend = "openvino"
)

// ErrUnsupportedBackend reports an execution provider name that is not known.
var ErrUnsupportedBackend = errors.New("unsupported execution provider")

// ParseBackend converts a case-insensitive provider name into a Backend.
func ParseBackend(name string) (Backend, error) {
	switch b := Backend(strings.ToLower(strings.TrimSpace(name))); b {
	case CPUBackend, CUDABackend, TensorRTBackend, CoreMLBackend, OpenVINOBackend:
		return b, nil
	default:
		return "", errors.Wrapf(ErrUnsupportedBackend, "%q", name)
	}
}

// ExecutionProviderConfig contains configuration for one execution provider.
type ExecutionProviderConfig struct {
	// Provider specifies which execution provider to use.
	Provider Backend `json:"provider" yaml:"provider"`

	// Options contains provider-specific configuration options.
	Options map[string]string `json:"options" yaml:"options"`

	// Priority determines the order in which providers are appended (higher = first).
	Priority int `json:"priority" yaml:"priority"`

	// Enabled toggles whether this provider should be used.
	Enabled bool `json:"enabled" yaml:"enabled"`
}

// ProvidersFromNames builds provider configurations from an ordered list of
// names, the first name getting the highest priority.
//
// Arguments:
//   - names: Provider names such as "cuda" or "cpu".
//
// Returns:
//   - []ExecutionProviderConfig: The enabled providers.
//   - error: ErrUnsupportedBackend for an unknown name.
func ProvidersFromNames(names []string) ([]ExecutionProviderConfig, error) {
	configs := make([]ExecutionProviderConfig, 0, len(names))
	for i, name := range names {
		backend, err := ParseBackend(name)
		if err != nil {
			return nil, err
		}
		configs = append(configs, ExecutionProviderConfig{
			Provider: backend,
			Options:  map[string]string{},
			Priority: len(names) - i,
			Enabled:  true,
		})
	}
	return configs, nil
}

// enabledByPriority returns the enabled providers, highest priority first.
// Providers of equal priority keep their configured order.
func enabledByPriority(providers []ExecutionProviderConfig) []ExecutionProviderConfig {
	enabled := make([]ExecutionProviderConfig, 0, len(providers))
	for _, p := range providers {
		if p.Enabled {
			enabled = append(enabled, p)
		}
	}
	sort.SliceStable(enabled, func(i, j int) bool {
		return enabled[i].Priority > enabled[j].Priority
	})
	return enabled
}
