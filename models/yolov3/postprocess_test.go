package yolov3

import (
	"math"
	"testing"

	"github.com/nvr-ai/go-yolo/models/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorgonia.org/tensor"
)

func TestPostProcessSuppressesDuplicateAnchors(t *testing.T) {
	cfg := TinyConfig(testLabels)

	raw0 := emptyOutput(&cfg, 0)
	raw1 := emptyOutput(&cfg, 1)

	// Slot 0 (anchor 81x82) is stretched to the 135x169 extent of slot 1, so
	// both slots describe the same box with different confidences.
	tw := float32(math.Log(135.0 / 81.0))
	th := float32(math.Log(169.0 / 82.0))
	setBox(&cfg, raw0, 0, 5, 5, 0, 0, 0, tw, th, 1, 4, 0, 0)
	kept := setBox(&cfg, raw0, 0, 5, 5, 1, 0, 0, 0, 0, 3, 4, 0, 0)

	// A different class at the same place survives.
	setBox(&cfg, raw1, 1, 11, 11, 0, 0, 0, 0, 0, 3, 0, 0, 4)

	detections, err := PostProcess(&cfg, map[int]*tensor.Dense{
		0: denseOf(&cfg, 0, raw0),
		1: denseOf(&cfg, 1, raw1),
	})
	require.NoError(t, err)
	require.Len(t, detections, 2)

	assert.Equal(t, 0, detections[0].Class)
	assert.Equal(t, kept, detections[0].Offset)
	assert.Equal(t, 2, detections[1].Class)
}

func TestPostProcessNoCandidates(t *testing.T) {
	cfg := COCOConfig(testLabels)

	outputs := map[int]*tensor.Dense{}
	for scale := range cfg.Grids {
		outputs[scale] = denseOf(&cfg, scale, emptyOutput(&cfg, scale))
	}

	detections, err := PostProcess(&cfg, outputs)
	require.NoError(t, err)
	assert.NotNil(t, detections)
	assert.Empty(t, detections)
}

func TestPostProcessNoPartialResults(t *testing.T) {
	cfg := TinyConfig(testLabels)
	raw0 := emptyOutput(&cfg, 0)
	setBox(&cfg, raw0, 0, 0, 0, 0, 0, 0, 0, 0, 10, 5, 0, 0)

	detections, err := PostProcess(&cfg, map[int]*tensor.Dense{0: denseOf(&cfg, 0, raw0)})
	assert.ErrorIs(t, err, model.ErrInterpreter)
	assert.Nil(t, detections)
}
