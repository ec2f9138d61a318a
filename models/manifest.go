package models

import (
	"bytes"
	"os"
	"path/filepath"

	"github.com/nvr-ai/go-yolo/models/model"
	"github.com/nvr-ai/go-yolo/models/yolov3"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Manifest describes a model that is not one of the built-in presets, or
// overrides parts of one.
//
// Example:
//
//	name: custom
//	base: yolov3-tiny
//	input_size: 320
//	labels_file: labels.txt
//	anchors: [[10, 14], [23, 27], [37, 58], [81, 82], [135, 169], [344, 319]]
//	masks: [[3, 4, 5], [0, 1, 2]]
//	grids: [10, 20]
//	objectness_threshold: 0.3
type Manifest struct {
	Name model.Name `yaml:"name"`
	// Base optionally names the preset the manifest starts from.
	Base       model.Name      `yaml:"base"`
	InputSize  int             `yaml:"input_size"`
	Labels     []string        `yaml:"labels"`
	LabelsFile string          `yaml:"labels_file"`
	Anchors    []yolov3.Anchor `yaml:"anchors"`
	Masks      [][]int         `yaml:"masks"`
	Grids      []int           `yaml:"grids"`
	// Thresholds are pointers so an explicit zero can be told from an absent key.
	ObjectnessThreshold *float32 `yaml:"objectness_threshold"`
	NMSThreshold        *float32 `yaml:"nms_threshold"`
}

// LoadManifest reads a YAML model manifest. A relative labels_file is resolved
// against the manifest's directory and loaded eagerly.
//
// Arguments:
//   - path: The path to the manifest file.
//
// Returns:
//   - *Manifest: The parsed manifest.
//   - error: An error wrapping model.ErrModelLoad if the file cannot be read or parsed.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(model.ErrModelLoad, "read manifest %q: %v", path, err)
	}

	m, err := ParseManifest(data)
	if err != nil {
		return nil, errors.Wrapf(err, "manifest %q", path)
	}

	if m.LabelsFile != "" && len(m.Labels) == 0 {
		labelsPath := m.LabelsFile
		if !filepath.IsAbs(labelsPath) {
			labelsPath = filepath.Join(filepath.Dir(path), labelsPath)
		}
		if m.Labels, err = LoadLabels(labelsPath); err != nil {
			return nil, err
		}
	}

	return m, nil
}

// ParseManifest decodes a manifest document. Unknown keys are rejected.
func ParseManifest(data []byte) (*Manifest, error) {
	var m Manifest

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&m); err != nil {
		return nil, errors.Wrapf(model.ErrModelLoad, "parse manifest: %v", err)
	}

	if m.Name == "" {
		m.Name = model.ModelNameCustom
	}
	return &m, nil
}

// Config builds the validated model configuration described by the manifest.
//
// Fields left empty are taken from the Base preset, if one is named. Labels
// from the manifest take precedence over the labels argument.
func (m *Manifest) Config(labels []string) (yolov3.Config, error) {
	if len(m.Labels) > 0 {
		labels = m.Labels
	}

	var cfg yolov3.Config
	if m.Base != "" {
		base, ok := preset(m.Base, labels)
		if !ok {
			return yolov3.Config{}, errors.Wrapf(model.ErrConfig, "unknown base preset %q", m.Base)
		}
		cfg = base
	}

	cfg.Name = m.Name
	cfg.Labels = labels
	if m.InputSize != 0 {
		cfg.InputSize = m.InputSize
	}
	if len(m.Anchors) > 0 {
		cfg.Anchors = m.Anchors
	}
	if len(m.Masks) > 0 {
		cfg.Masks = m.Masks
	}
	if len(m.Grids) > 0 {
		cfg.Grids = m.Grids
	}
	if m.ObjectnessThreshold != nil {
		cfg.ObjectnessThreshold = *m.ObjectnessThreshold
	}
	if m.NMSThreshold != nil {
		cfg.NMSThreshold = *m.NMSThreshold
	}

	cfg = cfg.Clone()
	if err := cfg.Validate(); err != nil {
		return yolov3.Config{}, errors.Wrapf(err, "manifest %q", m.Name)
	}
	return cfg, nil
}
