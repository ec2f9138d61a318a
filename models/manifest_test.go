package models

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/nvr-ai/go-yolo/models/model"
	"github.com/nvr-ai/go-yolo/models/yolov3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const customManifest = `
name: custom
input_size: 320
labels_file: labels.txt
anchors: [[10, 14], [23, 27], [37, 58], {width: 81, height: 82}, [135, 169], [344, 319]]
masks: [[3, 4, 5], [0, 1, 2]]
grids: [10, 20]
objectness_threshold: 0.3
nms_threshold: 0.45
`

func TestLoadManifest(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "labels.txt"), []byte("a\nb\n"), 0o600))
	path := filepath.Join(dir, "model.yaml")
	require.NoError(t, os.WriteFile(path, []byte(customManifest), 0o600))

	m, err := LoadManifest(path)
	require.NoError(t, err)
	assert.Equal(t, model.ModelNameCustom, m.Name)
	assert.Equal(t, []string{"a", "b"}, m.Labels)
	assert.Equal(t, yolov3.Anchor{Width: 81, Height: 82}, m.Anchors[3])

	cfg, err := m.Config(nil)
	require.NoError(t, err)
	assert.Equal(t, 320, cfg.InputSize)
	assert.Equal(t, 2, cfg.NumClasses())
	assert.Equal(t, []int{10, 20}, cfg.Grids)
	assert.Equal(t, 32, cfg.CellSize(0))
	assert.Equal(t, float32(0.3), cfg.ObjectnessThreshold)
	assert.Equal(t, float32(0.45), cfg.NMSThreshold)
}

func TestManifestFromBase(t *testing.T) {
	m, err := ParseManifest([]byte("base: yolov3-tiny\nobjectness_threshold: 0\n"))
	require.NoError(t, err)

	cfg, err := m.Config([]string{"x"})
	require.NoError(t, err)
	assert.Equal(t, model.ModelNameCustom, cfg.Name)
	assert.Equal(t, 416, cfg.InputSize)
	assert.Equal(t, []int{13, 26}, cfg.Grids)
	assert.Equal(t, float32(0), cfg.ObjectnessThreshold)
	assert.Equal(t, float32(0.5), cfg.NMSThreshold)
}

func TestManifestErrors(t *testing.T) {
	_, err := ParseManifest([]byte("unknown_key: 1\n"))
	assert.ErrorIs(t, err, model.ErrModelLoad)

	_, err = ParseManifest([]byte("anchors: [[1, 2, 3]]\n"))
	assert.ErrorIs(t, err, model.ErrModelLoad)

	_, err = LoadManifest(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, model.ErrModelLoad)

	m, err := ParseManifest([]byte("base: yolov9\n"))
	require.NoError(t, err)
	_, err = m.Config([]string{"x"})
	assert.ErrorIs(t, err, model.ErrConfig)

	m, err = ParseManifest([]byte("input_size: 320\ngrids: [10]\nmasks: [[0, 1]]\nanchors: [[1, 1], [2, 2]]\nnms_threshold: 0.5\n"))
	require.NoError(t, err)
	_, err = m.Config([]string{"x"})
	assert.ErrorIs(t, err, model.ErrConfig)
}
