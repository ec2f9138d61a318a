// Package model - Model identifiers and the failure taxonomy shared by all models.
package model

import "github.com/pkg/errors"

// Name is the unique identifier of a model preset.
type Name string

const (
	// ModelNameYOLOv3 is the full YOLOv3 model with three grid scales.
	ModelNameYOLOv3 Name = "yolov3"
	// ModelNameYOLOv3Tiny is the YOLOv3-tiny model with two grid scales.
	ModelNameYOLOv3Tiny Name = "yolov3-tiny"
	// ModelNameCustom is a model described entirely by a manifest file.
	ModelNameCustom Name = "custom"
)

var (
	// ErrModelLoad reports a missing or malformed model asset, label file or manifest.
	ErrModelLoad = errors.New("model load failed")

	// ErrInterpreter reports a failure of the interpreter collaborator.
	ErrInterpreter = errors.New("interpreter failed")

	// ErrConfig reports a malformed model configuration.
	ErrConfig = errors.New("invalid model config")

	// ErrClosed reports use of a detector or interpreter after release.
	ErrClosed = errors.Wrap(ErrInterpreter, "used after close")
)
