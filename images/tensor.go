package images

import (
	"image"

	"github.com/nfnt/resize"
	"github.com/pkg/errors"
)

// Channels is the number of interleaved colour channels in a pixel tensor.
const Channels = 3

// ToTensor converts an image into the normalized pixel tensor a YOLO model
// expects: size x size pixels, RGB interleaved (HWC), each channel scaled to [0, 1].
//
// The image is resized with Lanczos3 when its bounds differ from size x size.
//
// Arguments:
//   - img: The image to convert.
//   - size: The square input resolution of the model.
//
// Returns:
//   - []float32: A slice of size*size*3 values.
//   - error: An error if the image is nil or size is not positive.
func ToTensor(img image.Image, size int) ([]float32, error) {
	if img == nil {
		return nil, errors.New("image is nil")
	}
	if size <= 0 {
		return nil, errors.Errorf("invalid tensor size %d", size)
	}

	data := make([]float32, size*size*Channels)
	if err := FillTensor(img, size, data); err != nil {
		return nil, err
	}
	return data, nil
}

// FillTensor writes the normalized pixel tensor for img into dst.
//
// Arguments:
//   - img: The image to convert.
//   - size: The square input resolution of the model.
//   - dst: The destination slice, at least size*size*3 long.
//
// Returns:
//   - error: An error if the destination is too small.
func FillTensor(img image.Image, size int, dst []float32) error {
	need := size * size * Channels
	if len(dst) < need {
		return errors.Errorf("destination tensor only holds %d floats, needs %d", len(dst), need)
	}

	bounds := img.Bounds()
	if bounds.Dx() != size || bounds.Dy() != size {
		img = Resize(img, size, size)
		bounds = img.Bounds()
	}

	i := 0
	for y := bounds.Min.Y; y < bounds.Min.Y+size; y++ {
		for x := bounds.Min.X; x < bounds.Min.X+size; x++ {
			r, g, b, _ := img.At(x, y).RGBA()
			dst[i] = float32(r>>8) / 255.0
			dst[i+1] = float32(g>>8) / 255.0
			dst[i+2] = float32(b>>8) / 255.0
			i += Channels
		}
	}
	return nil
}

// Resize scales img to width x height with Lanczos3 resampling.
func Resize(img image.Image, width, height int) image.Image {
	return resize.Resize(uint(width), uint(height), img, resize.Lanczos3)
}
