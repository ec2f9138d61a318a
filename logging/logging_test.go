package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/nvr-ai/go-yolo/config"
	"github.com/nvr-ai/go-yolo/models/model"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewJSON(t *testing.T) {
	var buf bytes.Buffer
	log, err := NewWithWriter(config.LogConfig{Level: "debug", Format: "json"}, &buf)
	require.NoError(t, err)
	assert.Equal(t, logrus.DebugLevel, log.GetLevel())

	log.WithField("model", "yolov3-tiny").Debug("detect done")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "detect done", entry["msg"])
	assert.Equal(t, "yolov3-tiny", entry["model"])
	assert.Equal(t, "debug", entry["level"])
}

func TestNewText(t *testing.T) {
	var buf bytes.Buffer
	log, err := NewWithWriter(config.LogConfig{}, &buf)
	require.NoError(t, err)
	assert.Equal(t, logrus.InfoLevel, log.GetLevel())

	log.Debug("hidden")
	assert.Empty(t, buf.String())

	log.Info("shown")
	assert.Contains(t, buf.String(), "msg=shown")
}

func TestNewErrors(t *testing.T) {
	_, err := New(config.LogConfig{Level: "loud"})
	assert.ErrorIs(t, err, model.ErrConfig)

	_, err = New(config.LogConfig{Format: "xml"})
	assert.ErrorIs(t, err, model.ErrConfig)
}
