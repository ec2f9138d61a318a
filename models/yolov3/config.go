// Package yolov3 - Anchor-based multi-scale YOLOv3 decoding.
package yolov3

import (
	"github.com/nvr-ai/go-yolo/models/model"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// BoxesPerCell is the number of anchor boxes predicted by every grid cell.
const BoxesPerCell = 3

// boxAttributes is the number of channels preceding the class logits:
// tx, ty, tw, th and objectness.
const boxAttributes = 5

// Anchor is a (width, height) prior in input-image pixels.
type Anchor struct {
	Width  int `json:"width" yaml:"width"`
	Height int `json:"height" yaml:"height"`
}

// UnmarshalYAML accepts both the mapping form {width: 10, height: 13} and the
// compact pair form [10, 13].
func (a *Anchor) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.SequenceNode {
		var pair []int
		if err := value.Decode(&pair); err != nil {
			return err
		}
		if len(pair) != 2 {
			return errors.Errorf("line %d: anchor needs 2 values, got %d", value.Line, len(pair))
		}
		a.Width, a.Height = pair[0], pair[1]
		return nil
	}

	type plain Anchor
	return value.Decode((*plain)(a))
}

// Config is the immutable description of one loaded model.
type Config struct {
	// Name identifies the preset the configuration was built from.
	Name model.Name `json:"name" yaml:"name"`
	// InputSize is the square input resolution in pixels.
	InputSize int `json:"input_size" yaml:"input_size"`
	// Labels are the class names in class-index order.
	Labels []string `json:"labels" yaml:"labels"`
	// Anchors is shared by all scales and indexed by Masks.
	Anchors []Anchor `json:"anchors" yaml:"anchors"`
	// Masks holds, per scale, the BoxesPerCell anchor indices used by that scale.
	Masks [][]int `json:"masks" yaml:"masks"`
	// Grids holds the grid width of every scale, in output-tensor order.
	Grids []int `json:"grids" yaml:"grids"`
	// ObjectnessThreshold discards candidates whose confidence is not strictly above it.
	ObjectnessThreshold float32 `json:"objectness_threshold" yaml:"objectness_threshold"`
	// NMSThreshold is the IoU at or above which same-class boxes are suppressed.
	NMSThreshold float32 `json:"nms_threshold" yaml:"nms_threshold"`
}

// COCOConfig returns the YOLOv3 preset: 608x608 input, three scales
// (19, 38, 76) with masks {6,7,8}, {3,4,5}, {0,1,2}, objectness threshold 0.6
// and NMS threshold 0.5.
func COCOConfig(labels []string) Config {
	return Config{
		Name:      model.ModelNameYOLOv3,
		InputSize: 608,
		Labels:    labels,
		Anchors: []Anchor{
			{10, 13}, {16, 30}, {33, 23},
			{30, 61}, {62, 45}, {59, 119},
			{116, 90}, {156, 198}, {373, 326},
		},
		Masks:               [][]int{{6, 7, 8}, {3, 4, 5}, {0, 1, 2}},
		Grids:               []int{19, 38, 76},
		ObjectnessThreshold: 0.6,
		NMSThreshold:        0.5,
	}
}

// TinyConfig returns the YOLOv3-tiny preset: 416x416 input, two scales
// (13, 26) with masks {3,4,5}, {0,1,2}, objectness threshold 0.1 and NMS
// threshold 0.5.
func TinyConfig(labels []string) Config {
	return Config{
		Name:      model.ModelNameYOLOv3Tiny,
		InputSize: 416,
		Labels:    labels,
		Anchors: []Anchor{
			{10, 14}, {23, 27}, {37, 58},
			{81, 82}, {135, 169}, {344, 319},
		},
		Masks:               [][]int{{3, 4, 5}, {0, 1, 2}},
		Grids:               []int{13, 26},
		ObjectnessThreshold: 0.1,
		NMSThreshold:        0.5,
	}
}

// NumClasses returns the number of classes the model predicts.
func (c *Config) NumClasses() int {
	return len(c.Labels)
}

// NumScales returns the number of grid scales (output tensors).
func (c *Config) NumScales() int {
	return len(c.Grids)
}

// BoxSize returns the number of channels describing one box: 5 + NumClasses.
func (c *Config) BoxSize() int {
	return boxAttributes + c.NumClasses()
}

// CellSize returns the pixel size of one grid cell at the given scale.
//
// The division is integral: for grids that do not divide InputSize the
// fractional part of the cell is dropped.
func (c *Config) CellSize(scale int) int {
	return c.InputSize / c.Grids[scale]
}

// OutputShape returns the shape of the raw output tensor of the given scale:
// [1, grid, grid, BoxesPerCell, 5+NumClasses].
func (c *Config) OutputShape(scale int) []int {
	g := c.Grids[scale]
	return []int{1, g, g, BoxesPerCell, c.BoxSize()}
}

// Label returns the name of a class index, or "" when it is out of range.
func (c *Config) Label(class int) string {
	if class < 0 || class >= len(c.Labels) {
		return ""
	}
	return c.Labels[class]
}

// Clone returns a deep copy of the configuration.
func (c Config) Clone() Config {
	out := c
	out.Labels = append([]string(nil), c.Labels...)
	out.Anchors = append([]Anchor(nil), c.Anchors...)
	out.Grids = append([]int(nil), c.Grids...)
	out.Masks = make([][]int, len(c.Masks))
	for i, m := range c.Masks {
		out.Masks[i] = append([]int(nil), m...)
	}
	return out
}

// Validate checks the structural consistency of the configuration.
//
// Returns:
//   - error: nil, or an error wrapping model.ErrConfig that names the first problem.
func (c *Config) Validate() error {
	if c.InputSize <= 0 {
		return errors.Wrapf(model.ErrConfig, "input size must be positive, got %d", c.InputSize)
	}
	if len(c.Labels) == 0 {
		return errors.Wrap(model.ErrConfig, "no class labels")
	}
	if len(c.Anchors) == 0 {
		return errors.Wrap(model.ErrConfig, "no anchors")
	}
	for i, a := range c.Anchors {
		if a.Width <= 0 || a.Height <= 0 {
			return errors.Wrapf(model.ErrConfig, "anchor %d has non-positive size %dx%d", i, a.Width, a.Height)
		}
	}
	if len(c.Grids) == 0 {
		return errors.Wrap(model.ErrConfig, "no grid scales")
	}
	if len(c.Masks) != len(c.Grids) {
		return errors.Wrapf(model.ErrConfig, "%d mask groups for %d grid scales", len(c.Masks), len(c.Grids))
	}
	for i, g := range c.Grids {
		if g <= 0 || g > c.InputSize {
			return errors.Wrapf(model.ErrConfig, "grid %d has invalid width %d for input size %d", i, g, c.InputSize)
		}
	}
	for i, mask := range c.Masks {
		if len(mask) != BoxesPerCell {
			return errors.Wrapf(model.ErrConfig, "mask group %d has %d anchors, want %d", i, len(mask), BoxesPerCell)
		}
		for _, idx := range mask {
			if idx < 0 || idx >= len(c.Anchors) {
				return errors.Wrapf(model.ErrConfig, "mask group %d references anchor %d of %d", i, idx, len(c.Anchors))
			}
		}
	}
	if c.ObjectnessThreshold < 0 || c.ObjectnessThreshold >= 1 {
		return errors.Wrapf(model.ErrConfig, "objectness threshold %v outside [0, 1)", c.ObjectnessThreshold)
	}
	if c.NMSThreshold <= 0 || c.NMSThreshold > 1 {
		return errors.Wrapf(model.ErrConfig, "nms threshold %v outside (0, 1]", c.NMSThreshold)
	}
	return nil
}
