package yolov3

import (
	"sync"

	"github.com/chewxy/math32"
	"github.com/nvr-ai/go-yolo/images"
	"github.com/nvr-ai/go-yolo/models/model"
	"github.com/nvr-ai/go-yolo/models/postprocess"
	"github.com/pkg/errors"
	"gorgonia.org/tensor"
)

// DecodeScale converts the raw output tensor of one grid scale into candidate
// detections.
//
// Arguments:
//   - cfg: The model configuration.
//   - scale: The index of the scale in cfg.Grids.
//   - out: The raw output tensor shaped [1, grid, grid, 3, 5+classes] or
//     [grid, grid, 3, 5+classes].
//
// Returns:
//   - []postprocess.Detection: The candidates above the objectness threshold in
//     cell-major order (row, column, box slot).
//   - error: An error wrapping model.ErrInterpreter if the tensor does not match
//     the configured scale.
func DecodeScale(cfg *Config, scale int, out *tensor.Dense) ([]postprocess.Detection, error) {
	if scale < 0 || scale >= cfg.NumScales() {
		return nil, errors.Wrapf(model.ErrConfig, "scale %d out of range [0, %d)", scale, cfg.NumScales())
	}
	if out == nil {
		return nil, errors.Wrapf(model.ErrInterpreter, "scale %d: missing output tensor", scale)
	}
	if out.Dtype() != tensor.Float32 {
		return nil, errors.Wrapf(model.ErrInterpreter, "scale %d: output dtype %v, want float32", scale, out.Dtype())
	}

	want := tensor.Shape(cfg.OutputShape(scale))
	got := out.Shape()
	if !got.Eq(want) && !got.Eq(want[1:]) {
		return nil, errors.Wrapf(model.ErrInterpreter, "scale %d: output shape %v, want %v", scale, got, want)
	}

	raw, ok := out.Data().([]float32)
	if !ok {
		return nil, errors.Wrapf(model.ErrInterpreter, "scale %d: output is not backed by []float32", scale)
	}

	return DecodeGrid(cfg, scale, raw)
}

// DecodeGrid decodes a flat [grid, grid, 3, 5+classes] buffer for one scale.
//
// Each box slot holds [tx, ty, tw, th, objectness, logit_0 ... logit_{C-1}].
// A candidate is kept only when softmax(class) * sigmoid(objectness) is
// strictly greater than cfg.ObjectnessThreshold.
func DecodeGrid(cfg *Config, scale int, raw []float32) ([]postprocess.Detection, error) {
	if scale < 0 || scale >= cfg.NumScales() {
		return nil, errors.Wrapf(model.ErrConfig, "scale %d out of range [0, %d)", scale, cfg.NumScales())
	}

	grid := cfg.Grids[scale]
	mask := cfg.Masks[scale]
	boxSize := cfg.BoxSize()
	numClasses := cfg.NumClasses()

	if want := grid * grid * BoxesPerCell * boxSize; len(raw) != want {
		return nil, errors.Wrapf(model.ErrInterpreter, "scale %d: %d values, want %d", scale, len(raw), want)
	}

	// Integer division: non-divisible grids lose the fractional cell size.
	cell := float32(cfg.CellSize(scale))

	var (
		detections []postprocess.Detection
		classes    = make([]float32, numClasses)
	)

	for y := 0; y < grid; y++ {
		for x := 0; x < grid; x++ {
			for b := 0; b < BoxesPerCell; b++ {
				offset := ((y*grid+x)*BoxesPerCell + b) * boxSize
				box := raw[offset : offset+boxSize]

				objectness := postprocess.Sigmoid(box[4])

				copy(classes, box[boxAttributes:])
				postprocess.Softmax(classes)

				class, prob := postprocess.Argmax(classes)
				if class < 0 {
					continue
				}

				confidence := prob * objectness
				if confidence <= cfg.ObjectnessThreshold {
					continue
				}

				anchor := cfg.Anchors[mask[b]]

				cx := (float32(x) + postprocess.Sigmoid(box[0])) * cell
				cy := (float32(y) + postprocess.Sigmoid(box[1])) * cell
				w := math32.Exp(box[2]) * float32(anchor.Width)
				h := math32.Exp(box[3]) * float32(anchor.Height)

				detections = append(detections, postprocess.Detection{
					Class:      class,
					Label:      cfg.Label(class),
					Confidence: confidence,
					Box:        images.RectFromCenter(cx, cy, w, h).Clip(cfg.InputSize, cfg.InputSize),
					Offset:     offset,
				})
			}
		}
	}

	return detections, nil
}

// DecodeAll decodes every configured scale concurrently, one goroutine per
// scale, and joins the candidates in scale order.
//
// Arguments:
//   - cfg: The model configuration.
//   - outputs: The raw output tensors keyed by scale index.
//
// Returns:
//   - []postprocess.Detection: The pooled candidates of all scales.
//   - error: The error of the lowest failing scale, if any.
func DecodeAll(cfg *Config, outputs map[int]*tensor.Dense) ([]postprocess.Detection, error) {
	scales := cfg.NumScales()

	results := make([][]postprocess.Detection, scales)
	errs := make([]error, scales)

	var wg sync.WaitGroup
	wg.Add(scales)

	for scale := 0; scale < scales; scale++ {
		go func(scale int) {
			defer wg.Done()
			results[scale], errs[scale] = DecodeScale(cfg, scale, outputs[scale])
		}(scale)
	}

	wg.Wait()

	total := 0
	for scale := 0; scale < scales; scale++ {
		if errs[scale] != nil {
			return nil, errs[scale]
		}
		total += len(results[scale])
	}

	pooled := make([]postprocess.Detection, 0, total)
	for _, r := range results {
		pooled = append(pooled, r...)
	}

	return pooled, nil
}
