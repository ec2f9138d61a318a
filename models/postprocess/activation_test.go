package postprocess

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"
)

func toFloat64(vals []float32) []float64 {
	out := make([]float64, len(vals))
	for i, v := range vals {
		out[i] = float64(v)
	}
	return out
}

func TestSigmoid(t *testing.T) {
	assert.InDelta(t, 0.5, Sigmoid(0), 1e-7)
	assert.InDelta(t, 0.9, Sigmoid(float32(math.Log(9))), 1e-6)
	assert.InDelta(t, 1.0, Sigmoid(50), 1e-6)
	assert.InDelta(t, 0.0, Sigmoid(-50), 1e-6)
}

func TestSoftmaxSumsToOne(t *testing.T) {
	rng := rand.New(rand.NewSource(7))

	for trial := 0; trial < 100; trial++ {
		vals := make([]float32, 1+rng.Intn(90))
		for i := range vals {
			vals[i] = float32(rng.NormFloat64() * 10)
		}

		Softmax(vals)

		sum := floats.Sum(toFloat64(vals))
		require.InDelta(t, 1.0, sum, 1e-5, "trial %d", trial)
		for _, v := range vals {
			require.GreaterOrEqual(t, v, float32(0))
			require.LessOrEqual(t, v, float32(1))
		}
	}
}

func TestSoftmaxShiftInvariant(t *testing.T) {
	base := []float32{1.5, -2, 0.25, 3, 3}
	shifted := make([]float32, len(base))
	for i, v := range base {
		shifted[i] = v + 1000
	}

	Softmax(base)
	Softmax(shifted)

	assert.True(t, floats.EqualApprox(toFloat64(base), toFloat64(shifted), 1e-6),
		"softmax(x) = %v, softmax(x+c) = %v", base, shifted)
}

func TestSoftmaxOrderPreserving(t *testing.T) {
	vals := []float32{0.1, 2.0, -1.0, 0.5}
	Softmax(vals)

	assert.Greater(t, vals[1], vals[3])
	assert.Greater(t, vals[3], vals[0])
	assert.Greater(t, vals[0], vals[2])
}

func TestSoftmaxLargeLogitsStayFinite(t *testing.T) {
	vals := []float32{1e30, 1e30, -1e30}
	Softmax(vals)

	for _, v := range vals {
		assert.False(t, math.IsNaN(float64(v)))
		assert.False(t, math.IsInf(float64(v), 0))
	}
	assert.InDelta(t, 0.5, vals[0], 1e-6)
	assert.InDelta(t, 0.5, vals[1], 1e-6)
	assert.InDelta(t, 0.0, vals[2], 1e-6)
}

func TestSoftmaxEmpty(t *testing.T) {
	var vals []float32
	assert.NotPanics(t, func() { Softmax(vals) })
}

func TestArgmax(t *testing.T) {
	tests := []struct {
		name      string
		vals      []float32
		wantIndex int
		wantValue float32
	}{
		{"single max", []float32{0.1, 0.7, 0.2}, 1, 0.7},
		{"tie resolves to lowest index", []float32{0.4, 0.4, 0.2}, 0, 0.4},
		{"later tie does not replace", []float32{0.2, 0.4, 0.4}, 1, 0.4},
		{"uniform distribution", []float32{0.25, 0.25, 0.25, 0.25}, 0, 0.25},
		{"no positive element", []float32{0, 0}, -1, 0},
		{"empty", nil, -1, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			idx, val := Argmax(tt.vals)
			assert.Equal(t, tt.wantIndex, idx)
			assert.Equal(t, tt.wantValue, val)
		})
	}
}
