// Package postprocess - provides Non-Maximum Suppression for detection results.
package postprocess

import (
	"sort"

	"github.com/nvr-ai/go-yolo/images"
)

// NMSConfig defines parameters for Non-Maximum Suppression.
type NMSConfig struct {
	// IoUThreshold is the overlap at or above which the lower-confidence box of a
	// same-class pair is suppressed.
	IoUThreshold float32 `json:"iou_threshold" yaml:"iou_threshold"`
	// NumClasses bounds the class indices considered. Detections outside
	// [0, NumClasses) are dropped. Zero derives the bound from the input.
	NumClasses int `json:"num_classes" yaml:"num_classes"`
}

// ApplyClassNMS runs greedy Non-Maximum Suppression independently for every class.
//
// The per-class results are concatenated in ascending class order; the output is
// not re-sorted globally by confidence.
//
// Arguments:
//   - detections: The pooled candidates of all grid scales, in insertion order.
//   - config: NMS configuration.
//
// Returns:
//   - The surviving detections. An empty input yields an empty, non-nil slice.
func ApplyClassNMS(detections []Detection, config *NMSConfig) []Detection {
	kept := make([]Detection, 0, len(detections))
	if len(detections) == 0 {
		return kept
	}

	numClasses := config.NumClasses
	if numClasses <= 0 {
		for _, d := range detections {
			numClasses = max(numClasses, d.Class+1)
		}
	}

	byClass := make([][]Detection, numClasses)
	for _, d := range detections {
		if d.Class < 0 || d.Class >= numClasses {
			continue
		}
		byClass[d.Class] = append(byClass[d.Class], d)
	}

	for _, class := range byClass {
		kept = append(kept, ApplyGreedyNMS(class, config.IoUThreshold)...)
	}
	return kept
}

// ApplyGreedyNMS performs standard greedy Non-Maximum Suppression on one class.
//
// Candidates are ordered by descending confidence with a stable sort, so equal
// confidences keep their insertion order and the earliest one wins. The highest
// remaining candidate is kept and every other candidate whose IoU with it is at
// least iouThreshold is discarded.
//
// Arguments:
//   - detections: Candidates of a single class. The slice is not modified.
//   - iouThreshold: IoU at or above which overlapping boxes are suppressed.
//
// Returns:
//   - Filtered slice of detections, highest confidence first.
func ApplyGreedyNMS(detections []Detection, iouThreshold float32) []Detection {
	n := len(detections)
	if n == 0 {
		return nil
	}

	sorted := make([]Detection, n)
	copy(sorted, detections)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Confidence > sorted[j].Confidence
	})

	filtered := make([]Detection, 0, n)
	used := make([]bool, n)

	for i := 0; i < n; i++ {
		if used[i] {
			continue
		}

		anchor := sorted[i]
		filtered = append(filtered, anchor)
		used[i] = true

		for j := i + 1; j < n; j++ {
			if used[j] {
				continue
			}
			if images.IoU(anchor.Box, sorted[j].Box) >= iouThreshold {
				used[j] = true
			}
		}
	}

	return filtered
}
