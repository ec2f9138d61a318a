// Package models - Registry of model presets, label sets and model manifests.
package models

import (
	"github.com/nvr-ai/go-yolo/models/model"
	"github.com/nvr-ai/go-yolo/models/yolov3"
	"github.com/pkg/errors"
)

// NewConfigArgs are the inputs needed to resolve a model configuration.
type NewConfigArgs struct {
	// Name of the preset. Ignored when Manifest is set.
	Name model.Name
	// Labels in class-index order. Defaults to COCOLabels when empty.
	Labels []string
	// Manifest is an optional path to a YAML model manifest.
	Manifest string
	// ObjectnessThreshold overrides the preset threshold when non-nil.
	ObjectnessThreshold *float32
	// NMSThreshold overrides the preset threshold when non-nil.
	NMSThreshold *float32
}

// NewConfig returns the validated configuration of a built-in preset.
//
// Arguments:
//   - name: The preset name (yolov3 or yolov3-tiny).
//   - labels: The class labels in class-index order.
//
// Returns:
//   - yolov3.Config: The preset configuration.
//   - error: An error wrapping model.ErrConfig for an unknown name or invalid labels.
//
// Example:
//
//	cfg, err := models.NewConfig(model.ModelNameYOLOv3Tiny, models.COCOLabels)
//	if err != nil {
//		log.Fatalf("Failed to create model config: %v", err)
//	}
func NewConfig(name model.Name, labels []string) (yolov3.Config, error) {
	cfg, ok := preset(name, labels)
	if !ok {
		if name == model.ModelNameCustom {
			return yolov3.Config{}, errors.Wrap(model.ErrConfig, "custom models need a manifest")
		}
		return yolov3.Config{}, errors.Wrapf(model.ErrConfig, "unsupported model name: %s", name)
	}

	cfg = cfg.Clone()
	if err := cfg.Validate(); err != nil {
		return yolov3.Config{}, err
	}
	return cfg, nil
}

// ResolveConfig builds the configuration for a detector: from the manifest when
// one is given, otherwise from the named preset, then applies the threshold
// overrides and validates the result.
func ResolveConfig(args NewConfigArgs) (yolov3.Config, error) {
	labels := args.Labels
	if len(labels) == 0 {
		labels = COCOLabels
	}

	var (
		cfg yolov3.Config
		err error
	)

	if args.Manifest != "" {
		m, err := LoadManifest(args.Manifest)
		if err != nil {
			return yolov3.Config{}, err
		}
		if cfg, err = m.Config(labels); err != nil {
			return yolov3.Config{}, err
		}
	} else if cfg, err = NewConfig(args.Name, labels); err != nil {
		return yolov3.Config{}, err
	}

	if args.ObjectnessThreshold != nil {
		cfg.ObjectnessThreshold = *args.ObjectnessThreshold
	}
	if args.NMSThreshold != nil {
		cfg.NMSThreshold = *args.NMSThreshold
	}

	if err := cfg.Validate(); err != nil {
		return yolov3.Config{}, err
	}
	return cfg, nil
}

func preset(name model.Name, labels []string) (yolov3.Config, bool) {
	switch name {
	case model.ModelNameYOLOv3:
		return yolov3.COCOConfig(labels), true
	case model.ModelNameYOLOv3Tiny:
		return yolov3.TinyConfig(labels), true
	default:
		return yolov3.Config{}, false
	}
}
