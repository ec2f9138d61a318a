// Package benchmark - Detector throughput and latency across frame resolutions and encodings.
package benchmark

import (
	"fmt"
	"os"
	"strings"

	"github.com/nvr-ai/go-yolo/images"
	"github.com/nvr-ai/go-yolo/models/model"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Formats are the encodings synthetic frames are produced in.
var Formats = []images.ImageFormat{images.FormatJPEG, images.FormatPNG, images.FormatWebP}

// Scenario is one benchmark run: frames of one resolution and encoding pushed
// through the detector Iterations times.
type Scenario struct {
	Name        string             `json:"name"         yaml:"name"`
	Resolution  images.Resolution  `json:"resolution"   yaml:"resolution"`
	ImageFormat images.ImageFormat `json:"image_format" yaml:"image_format"`
	Iterations  int                `json:"iterations"   yaml:"iterations"`
	WarmupRuns  int                `json:"warmup_runs"  yaml:"warmup_runs"`
}

// Validate checks that the scenario can run.
func (s Scenario) Validate() error {
	if s.Iterations <= 0 {
		return errors.Wrapf(model.ErrConfig, "scenario %s: iterations must be positive", s.Name)
	}
	if s.WarmupRuns < 0 {
		return errors.Wrapf(model.ErrConfig, "scenario %s: warmup runs must not be negative", s.Name)
	}
	if s.Resolution.Width <= 0 || s.Resolution.Height <= 0 {
		return errors.Wrapf(model.ErrConfig, "scenario %s: invalid resolution %dx%d",
			s.Name, s.Resolution.Width, s.Resolution.Height)
	}
	for _, f := range Formats {
		if s.ImageFormat == f {
			return nil
		}
	}
	return errors.Wrapf(model.ErrConfig, "scenario %s: unsupported image format %q", s.Name, s.ImageFormat)
}

// ScenarioBuilder helps build scenarios with a fluent API.
type ScenarioBuilder struct {
	scenario Scenario
}

// NewScenarioBuilder starts a JPEG scenario with 100 iterations and 10 warmup runs.
func NewScenarioBuilder(name string) *ScenarioBuilder {
	return &ScenarioBuilder{
		scenario: Scenario{
			Name:        name,
			ImageFormat: images.FormatJPEG,
			Iterations:  100,
			WarmupRuns:  10,
		},
	}
}

// WithResolution sets the frame size.
func (sb *ScenarioBuilder) WithResolution(res images.Resolution) *ScenarioBuilder {
	sb.scenario.Resolution = res
	return sb
}

// WithImageFormat sets the frame encoding.
func (sb *ScenarioBuilder) WithImageFormat(format images.ImageFormat) *ScenarioBuilder {
	sb.scenario.ImageFormat = format
	return sb
}

// WithIterations sets the number of measured runs.
func (sb *ScenarioBuilder) WithIterations(iterations int) *ScenarioBuilder {
	sb.scenario.Iterations = iterations
	return sb
}

// WithWarmupRuns sets the number of unmeasured runs.
func (sb *ScenarioBuilder) WithWarmupRuns(warmups int) *ScenarioBuilder {
	sb.scenario.WarmupRuns = warmups
	return sb
}

// Build returns the scenario.
func (sb *ScenarioBuilder) Build() Scenario {
	return sb.scenario
}

// QuickScenarios covers the two most common camera resolutions in JPEG.
func QuickScenarios(iterations int) []Scenario {
	var scenarios []Scenario
	for _, t := range []images.ResolutionType{images.ResolutionTypeHD720p, images.ResolutionTypeFHD1080p} {
		res, _ := images.ResolutionByType(t)
		scenarios = append(scenarios, NewScenarioBuilder(scenarioName(res, images.FormatJPEG)).
			WithResolution(res).
			WithIterations(iterations).
			WithWarmupRuns(max(1, iterations/10)).
			Build())
	}
	return scenarios
}

// ComprehensiveScenarios crosses every known resolution with every format.
func ComprehensiveScenarios(iterations int) []Scenario {
	var scenarios []Scenario
	for _, res := range images.Resolutions() {
		for _, format := range Formats {
			scenarios = append(scenarios, NewScenarioBuilder(scenarioName(res, format)).
				WithResolution(res).
				WithImageFormat(format).
				WithIterations(iterations).
				WithWarmupRuns(max(1, iterations/10)).
				Build())
		}
	}
	return scenarios
}

func scenarioName(res images.Resolution, format images.ImageFormat) string {
	name := strings.ToLower(strings.NewReplacer(" ", "_", "(", "", ")", "", ":", "x").Replace(string(res.Name)))
	return fmt.Sprintf("%s_%s", name, format)
}

// LoadScenarios reads a YAML list of scenarios and validates each one.
func LoadScenarios(path string) ([]Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(model.ErrConfig, "read scenarios %s: %v", path, err)
	}

	var scenarios []Scenario
	if err := yaml.Unmarshal(data, &scenarios); err != nil {
		return nil, errors.Wrapf(model.ErrConfig, "parse scenarios %s: %v", path, err)
	}
	if len(scenarios) == 0 {
		return nil, errors.Wrapf(model.ErrConfig, "no scenarios in %s", path)
	}

	for _, s := range scenarios {
		if err := s.Validate(); err != nil {
			return nil, err
		}
	}
	return scenarios, nil
}
