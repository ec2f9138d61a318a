package main

import (
	"context"
	"flag"
	"os"
	"path/filepath"
	"testing"

	"github.com/nvr-ai/go-yolo/config"
	"github.com/nvr-ai/go-yolo/models/model"
	"github.com/nvr-ai/go-yolo/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlagsApply(t *testing.T) {
	objectness := float32(0.25)
	cfg := config.Default()
	flags{
		modelPath:  "m.tflite",
		modelName:  "yolov3",
		backend:    "tflite",
		objectness: &objectness,
		logLevel:   "debug",
	}.apply(cfg)

	assert.Equal(t, "m.tflite", cfg.Model.Path)
	assert.Equal(t, model.ModelNameYOLOv3, cfg.Model.Name)
	assert.Equal(t, "tflite", cfg.Backend)
	require.NotNil(t, cfg.Thresholds.Objectness)
	assert.Equal(t, float32(0.25), *cfg.Thresholds.Objectness)
	assert.Nil(t, cfg.Thresholds.NMS)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
}

func TestThresholdFlagsAcceptZero(t *testing.T) {
	var f flags
	fs := flag.NewFlagSet("detect", flag.ContinueOnError)
	fs.Func("objectness", "", float32Flag(&f.objectness))
	fs.Func("nms", "", float32Flag(&f.nms))

	require.NoError(t, fs.Parse([]string{"-objectness", "0"}))
	require.NotNil(t, f.objectness)
	assert.Equal(t, float32(0), *f.objectness)
	assert.Nil(t, f.nms)

	cfg := config.Default()
	f.apply(cfg)
	require.NotNil(t, cfg.Thresholds.Objectness)
	assert.Equal(t, float32(0), *cfg.Thresholds.Objectness)

	assert.Error(t, fs.Parse([]string{"-nms", "half"}))
}

func TestInputFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "frame_0007.png")
	require.NoError(t, os.WriteFile(path, []byte{1, 2, 3}, 0o600))

	files, err := inputFiles(flags{imagePath: path})
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, 7, files[0].Frame)

	_, err = inputFiles(flags{imagePath: filepath.Join(dir, "missing.png")})
	assert.Error(t, err)
}

func TestDetectFileReportsDecodeError(t *testing.T) {
	result := detectFile(context.Background(), nil, util.ImageFile{Path: "broken.jpg", Data: []byte("not an image"), Frame: -1})
	assert.Equal(t, "broken.jpg", result.Path)
	assert.NotEmpty(t, result.Error)
	assert.Nil(t, result.Detections)
}
