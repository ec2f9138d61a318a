// Package util - Model asset and batch input loading.
package util

import (
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/nvr-ai/go-yolo/models/model"
	"github.com/pkg/errors"
)

// ImageFile represents an image file.
type ImageFile struct {
	// Path is the path to the image file.
	Path string
	// Data is the raw bytes of the image file.
	Data []byte
	// Frame is the frame number parsed from the file name, or -1 when the name
	// carries none.
	Frame int
}

// imageExtensions are the file types LoadDirectoryImageFiles picks up.
var imageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".bmp":  true,
	".webp": true,
}

// LoadModelFile reads the serialized model weights.
//
// Arguments:
// - path: Path to an .onnx or .tflite file.
//
// Returns:
// - []byte: The file contents.
// - error: An error wrapping model.ErrModelLoad if the file is missing or empty.
func LoadModelFile(path string) ([]byte, error) {
	if path == "" {
		return nil, errors.Wrap(model.ErrModelLoad, "no model path configured")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(model.ErrModelLoad, "read model %q: %v", path, err)
	}
	if len(data) == 0 {
		return nil, errors.Wrapf(model.ErrModelLoad, "model %q is empty", path)
	}
	return data, nil
}

// LoadDirectoryImageFiles reads all image files from a directory.
//
// Files are ordered by frame number ("frame-12.jpg", "img_0003.png"); files
// without a number follow in name order.
//
// Arguments:
// - dir: Directory path containing image files.
//
// Returns:
// - []ImageFile: Slice of ImageFile, each containing the raw bytes of an image file.
// - error: Error if loading fails.
func LoadDirectoryImageFiles(dir string) ([]ImageFile, error) {
	files, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrapf(err, "read directory %q", dir)
	}

	var images []ImageFile
	for _, file := range files {
		if file.IsDir() {
			continue
		}

		ext := strings.ToLower(filepath.Ext(file.Name()))
		if !imageExtensions[ext] {
			continue
		}

		imgPath := filepath.Join(dir, file.Name())
		data, err := os.ReadFile(imgPath)
		if err != nil {
			return nil, errors.Wrapf(err, "read image %q", imgPath)
		}

		images = append(images, ImageFile{
			Path:  imgPath,
			Data:  data,
			Frame: FrameNumber(file.Name()),
		})
	}

	sort.SliceStable(images, func(i, j int) bool {
		a, b := images[i], images[j]
		switch {
		case a.Frame >= 0 && b.Frame >= 0 && a.Frame != b.Frame:
			return a.Frame < b.Frame
		case (a.Frame < 0) != (b.Frame < 0):
			return a.Frame >= 0
		default:
			return a.Path < b.Path
		}
	})

	return images, nil
}

// FrameNumber returns the trailing decimal number of a file name without its
// extension, or -1 if there is none.
func FrameNumber(name string) int {
	base := strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))

	end := len(base)
	start := end
	for start > 0 && base[start-1] >= '0' && base[start-1] <= '9' {
		start--
	}
	if start == end {
		return -1
	}

	n, err := strconv.Atoi(base[start:end])
	if err != nil {
		return -1
	}
	return n
}
