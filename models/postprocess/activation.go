package postprocess

import "github.com/chewxy/math32"

// Sigmoid is the logistic function 1 / (1 + e^-x).
func Sigmoid(x float32) float32 {
	return 1 / (1 + math32.Exp(-x))
}

// Softmax normalizes vals in place into a probability distribution.
//
// The maximum value is subtracted before exponentiating so large logits do not
// overflow. The result sums to 1 and is invariant to adding a constant to every
// element. An empty slice is left untouched.
//
// Arguments:
//   - vals: The logits to normalize.
func Softmax(vals []float32) {
	if len(vals) == 0 {
		return
	}

	maxVal := math32.Inf(-1)
	for _, v := range vals {
		maxVal = math32.Max(maxVal, v)
	}

	var sum float32
	for i, v := range vals {
		vals[i] = math32.Exp(v - maxVal)
		sum += vals[i]
	}
	for i := range vals {
		vals[i] /= sum
	}
}

// Argmax returns the index and value of the largest element.
//
// Only a strictly greater value replaces the current best, so ties resolve to the
// lowest index. The scan starts from 0 with index -1, which means a slice with no
// positive element yields (-1, 0).
func Argmax(vals []float32) (int, float32) {
	best := -1
	var bestVal float32
	for i, v := range vals {
		if v > bestVal {
			best = i
			bestVal = v
		}
	}
	return best, bestVal
}
