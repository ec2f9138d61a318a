package yolov3

import (
	"github.com/nvr-ai/go-yolo/models/postprocess"
	"gorgonia.org/tensor"
)

// PostProcess decodes every scale and applies per-class NMS to the pooled
// candidates.
//
// Arguments:
//   - cfg: The model configuration.
//   - outputs: The raw output tensors keyed by scale index.
//
// Returns:
//   - []postprocess.Detection: The final detections, grouped by class index.
//   - error: Any decode error; no partial result is returned alongside it.
//
// Example Usage:
//
//	cfg := yolov3.COCOConfig(labels)
//	detections, err := yolov3.PostProcess(&cfg, outputs)
//	if err != nil {
//		return err
//	}
func PostProcess(cfg *Config, outputs map[int]*tensor.Dense) ([]postprocess.Detection, error) {
	candidates, err := DecodeAll(cfg, outputs)
	if err != nil {
		return nil, err
	}

	return postprocess.ApplyClassNMS(candidates, &postprocess.NMSConfig{
		IoUThreshold: cfg.NMSThreshold,
		NumClasses:   cfg.NumClasses(),
	}), nil
}
