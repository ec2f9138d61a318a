// Package images - Image definition for processing utilities.
package images

import (
	"bytes"
	"image"
	_ "image/jpeg" // register decoder
	_ "image/png"  // register decoder

	"github.com/pkg/errors"
	_ "golang.org/x/image/bmp"  // register decoder
	_ "golang.org/x/image/webp" // register decoder
)

// Image represents an encoded image with a format, data, width, and height.
type Image struct {
	// The format of the image.
	Format ImageFormat `json:"format" yaml:"format"`
	// The data of the image.
	Data []byte `json:"data" yaml:"data"`
	// The width of the image.
	Width int `json:"width" yaml:"width"`
	// The height of the image.
	Height int `json:"height" yaml:"height"`
}

// ImageFormat represents supported image formats
type ImageFormat string

// ImageFormat constants
const (
	// FormatJPEG is the JPEG image format.
	FormatJPEG ImageFormat = "jpeg"
	// FormatWebP is the WebP image format.
	FormatWebP ImageFormat = "webp"
	// FormatPNG is the PNG image format.
	FormatPNG ImageFormat = "png"
	// FormatBMP is the BMP image format.
	FormatBMP ImageFormat = "bmp"
)

// Decode decodes raw image bytes in any registered format.
//
// Arguments:
//   - data: The encoded image bytes.
//
// Returns:
//   - *Image: The encoded image with its detected format and dimensions.
//   - image.Image: The decoded pixels.
//   - error: An error if the bytes are empty or cannot be decoded.
func Decode(data []byte) (*Image, image.Image, error) {
	if len(data) == 0 {
		return nil, nil, errors.New("image data is empty")
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, nil, errors.Wrap(err, "image decoding failed")
	}

	bounds := img.Bounds()
	return &Image{
		Format: ImageFormat(format),
		Data:   data,
		Width:  bounds.Dx(),
		Height: bounds.Dy(),
	}, img, nil
}
