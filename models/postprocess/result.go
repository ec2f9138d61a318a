// Package postprocess - Postprocessing utilities for models.
package postprocess

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/nvr-ai/go-yolo/images"
)

// Detection represents a single labeled bounding box produced by a model.
//
// A Detection is a value: copying it copies the box.
type Detection struct {
	// Class is the index of the winning class, in [0, numClasses).
	Class int
	// Label is the human-readable name of Class.
	Label string
	// Confidence is objectness multiplied by the winning class probability.
	Confidence float32
	// Box is the location of the object in input-image pixel coordinates.
	Box images.Rect
	// Offset is the flat position of the candidate inside its scale tensor. It is
	// kept for traceability only.
	Offset int
}

// ID returns the opaque identifier of the detection.
func (d Detection) ID() string {
	return strconv.Itoa(d.Offset)
}

// String formats the detection as "[id] label (xx.x%) box".
func (d Detection) String() string {
	return fmt.Sprintf("[%s] %s (%.1f%%) %s", d.ID(), d.Label, d.Confidence*100, d.Box)
}

type detectionJSON struct {
	ID         string      `json:"id"`
	Label      string      `json:"label"`
	Class      int         `json:"class"`
	Confidence float32     `json:"confidence"`
	Box        images.Rect `json:"box"`
}

// MarshalJSON encodes the detection as {id, label, class, confidence, box}.
func (d Detection) MarshalJSON() ([]byte, error) {
	return json.Marshal(detectionJSON{
		ID:         d.ID(),
		Label:      d.Label,
		Class:      d.Class,
		Confidence: d.Confidence,
		Box:        d.Box,
	})
}

// UnmarshalJSON decodes the form written by MarshalJSON.
func (d *Detection) UnmarshalJSON(b []byte) error {
	var raw detectionJSON
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}

	offset, err := strconv.Atoi(raw.ID)
	if err != nil {
		return fmt.Errorf("invalid detection id %q: %w", raw.ID, err)
	}

	*d = Detection{
		Class:      raw.Class,
		Label:      raw.Label,
		Confidence: raw.Confidence,
		Box:        raw.Box,
		Offset:     offset,
	}
	return nil
}
