package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/nvr-ai/go-yolo/models/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
model:
  name: yolov3
  path: models/yolov3.onnx
  labels: models/coco.names
  outputs: [out_19, out_38, out_76]
backend: tflite
onnx:
  intra_threads: 4
  providers: [cuda, cpu]
tflite:
  threads: 2
thresholds:
  objectness: 0.4
  nms: 0.45
log:
  level: debug
  format: json
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, model.ModelNameYOLOv3, cfg.Model.Name)
	assert.Equal(t, "models/yolov3.onnx", cfg.Model.Path)
	assert.Equal(t, "models/coco.names", cfg.Model.Labels)
	assert.Equal(t, []string{"out_19", "out_38", "out_76"}, cfg.Model.Outputs)
	assert.Equal(t, "tflite", cfg.Backend)
	assert.Equal(t, 4, cfg.ONNX.IntraThreads)
	assert.Equal(t, []string{"cuda", "cpu"}, cfg.ONNX.Providers)
	assert.Equal(t, 2, cfg.TFLite.Threads)
	require.NotNil(t, cfg.Thresholds.Objectness)
	require.NotNil(t, cfg.Thresholds.NMS)
	assert.InDelta(t, 0.4, *cfg.Thresholds.Objectness, 1e-6)
	assert.InDelta(t, 0.45, *cfg.Thresholds.NMS, 1e-6)
	assert.Equal(t, LogConfig{Level: "debug", Format: "json"}, cfg.Log)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "backend: tflite\nlog:\n  level: debug\n")

	t.Setenv("YOLO_BACKEND", "opencv")
	t.Setenv("YOLO_MODEL_NAME", "yolov3")
	t.Setenv("YOLO_ONNX_PROVIDERS", "coreml, ,cpu")
	t.Setenv("YOLO_ONNX_INTER_THREADS", "3")
	t.Setenv("YOLO_NMS_THRESHOLD", "0.3")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "opencv", cfg.Backend)
	assert.Equal(t, model.ModelNameYOLOv3, cfg.Model.Name)
	assert.Equal(t, []string{"coreml", "cpu"}, cfg.ONNX.Providers)
	assert.Equal(t, 3, cfg.ONNX.InterThreads)
	require.NotNil(t, cfg.Thresholds.NMS)
	assert.InDelta(t, 0.3, *cfg.Thresholds.NMS, 1e-6)
	assert.Nil(t, cfg.Thresholds.Objectness)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoadZeroThresholdIsAnOverride(t *testing.T) {
	path := writeConfig(t, "thresholds:\n  objectness: 0\n")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NotNil(t, cfg.Thresholds.Objectness)
	assert.Equal(t, float32(0), *cfg.Thresholds.Objectness)
	assert.Nil(t, cfg.Thresholds.NMS)

	t.Setenv("YOLO_NMS_THRESHOLD", "0")
	cfg, err = Load(path)
	require.NoError(t, err)
	require.NotNil(t, cfg.Thresholds.NMS)
	assert.Equal(t, float32(0), *cfg.Thresholds.NMS)
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
		env  map[string]string
	}{
		{name: "unknown key", body: "modle:\n  name: yolov3\n"},
		{name: "malformed yaml", body: "model: [\n"},
		{name: "bad backend", body: "backend: tensorflow\n"},
		{name: "bad log level", body: "log:\n  level: loud\n"},
		{name: "bad log format", body: "log:\n  format: xml\n"},
		{name: "negative threads", body: "tflite:\n  threads: -1\n"},
		{name: "empty model path", body: "model:\n  path: \"\"\n"},
		{name: "bad env int", env: map[string]string{"YOLO_TFLITE_THREADS": "two"}},
		{name: "bad env float", env: map[string]string{"YOLO_OBJECTNESS_THRESHOLD": "high"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			path := ""
			if tt.body != "" {
				path = writeConfig(t, tt.body)
			}

			cfg, err := Load(path)
			assert.ErrorIs(t, err, model.ErrConfig)
			assert.Nil(t, cfg)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, model.ErrConfig)
}

func TestLoadEmptyFile(t *testing.T) {
	cfg, err := Load(writeConfig(t, "\n"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}
