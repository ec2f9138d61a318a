package postprocess

import (
	"encoding/json"
	"testing"

	"github.com/nvr-ai/go-yolo/images"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectionJSON(t *testing.T) {
	d := Detection{
		Class:      2,
		Label:      "car",
		Confidence: 0.5,
		Box:        images.Rect{Left: 1, Top: 2, Right: 3.5, Bottom: 4},
		Offset:     1234,
	}

	b, err := json.Marshal(d)
	require.NoError(t, err)
	assert.JSONEq(t,
		`{"id":"1234","label":"car","class":2,"confidence":0.5,"box":{"left":1,"top":2,"right":3.5,"bottom":4}}`,
		string(b))

	var decoded Detection
	require.NoError(t, json.Unmarshal(b, &decoded))
	assert.Equal(t, d, decoded)
}

func TestDetectionUnmarshalRejectsBadID(t *testing.T) {
	var d Detection
	err := json.Unmarshal([]byte(`{"id":"abc","label":"car"}`), &d)
	assert.Error(t, err)
}

func TestDetectionString(t *testing.T) {
	d := Detection{
		Label:      "dog",
		Confidence: 0.855,
		Box:        images.Rect{Left: 10, Top: 20, Right: 30, Bottom: 40},
		Offset:     85,
	}
	assert.Equal(t, "[85] dog (85.5%) Rect(10, 20, 30, 40)", d.String())
}
