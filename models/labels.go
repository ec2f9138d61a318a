package models

import (
	"bufio"
	"io"
	"os"
	"strings"

	"github.com/nvr-ai/go-yolo/models/model"
	"github.com/pkg/errors"
)

// LoadLabels reads a label file with one class name per line.
//
// Arguments:
//   - path: The path to the label file.
//
// Returns:
//   - []string: The labels in class-index order.
//   - error: An error wrapping model.ErrModelLoad if the file cannot be read or
//     holds no labels.
func LoadLabels(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(model.ErrModelLoad, "open labels %q: %v", path, err)
	}
	defer f.Close()

	labels, err := ParseLabels(f)
	if err != nil {
		return nil, errors.Wrapf(err, "labels %q", path)
	}
	return labels, nil
}

// ParseLabels reads one label per line. Surrounding whitespace is trimmed and
// trailing blank lines are ignored; blank lines in between keep their index.
func ParseLabels(r io.Reader) ([]string, error) {
	var labels []string

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		labels = append(labels, strings.TrimSpace(scanner.Text()))
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrapf(model.ErrModelLoad, "read labels: %v", err)
	}

	for len(labels) > 0 && labels[len(labels)-1] == "" {
		labels = labels[:len(labels)-1]
	}
	if len(labels) == 0 {
		return nil, errors.Wrap(model.ErrModelLoad, "no labels")
	}

	return labels, nil
}

// COCOLabels is the 80 COCO classes in the zero-based order YOLO models are
// trained with (no background class).
var COCOLabels = []string{
	"person", "bicycle", "car", "motorcycle", "airplane", "bus", "train", "truck",
	"boat", "traffic light", "fire hydrant", "stop sign", "parking meter", "bench",
	"bird", "cat", "dog", "horse", "sheep", "cow", "elephant", "bear", "zebra",
	"giraffe", "backpack", "umbrella", "handbag", "tie", "suitcase", "frisbee",
	"skis", "snowboard", "sports ball", "kite", "baseball bat", "baseball glove",
	"skateboard", "surfboard", "tennis racket", "bottle", "wine glass", "cup",
	"fork", "knife", "spoon", "bowl", "banana", "apple", "sandwich", "orange",
	"broccoli", "carrot", "hot dog", "pizza", "donut", "cake", "chair", "couch",
	"potted plant", "bed", "dining table", "toilet", "tv", "laptop", "mouse",
	"remote", "keyboard", "cell phone", "microwave", "oven", "toaster", "sink",
	"refrigerator", "book", "clock", "vase", "scissors", "teddy bear",
	"hair drier", "toothbrush",
}
