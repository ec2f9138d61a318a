package models

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/nvr-ai/go-yolo/models/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfig(t *testing.T) {
	tests := []struct {
		name      model.Name
		inputSize int
		scales    int
		wantErr   bool
	}{
		{model.ModelNameYOLOv3, 608, 3, false},
		{model.ModelNameYOLOv3Tiny, 416, 2, false},
		{model.ModelNameCustom, 0, 0, true},
		{"yolov9", 0, 0, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.name), func(t *testing.T) {
			cfg, err := NewConfig(tt.name, COCOLabels)
			if tt.wantErr {
				assert.ErrorIs(t, err, model.ErrConfig)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.name, cfg.Name)
			assert.Equal(t, tt.inputSize, cfg.InputSize)
			assert.Equal(t, tt.scales, cfg.NumScales())
			assert.Equal(t, 85, cfg.BoxSize())
		})
	}
}

func TestNewConfigRequiresLabels(t *testing.T) {
	_, err := NewConfig(model.ModelNameYOLOv3, nil)
	assert.ErrorIs(t, err, model.ErrConfig)
}

func TestResolveConfig(t *testing.T) {
	objectness := float32(0.25)
	cfg, err := ResolveConfig(NewConfigArgs{
		Name:                model.ModelNameYOLOv3,
		ObjectnessThreshold: &objectness,
	})
	require.NoError(t, err)
	assert.Equal(t, 80, cfg.NumClasses())
	assert.Equal(t, float32(0.25), cfg.ObjectnessThreshold)
	assert.Equal(t, float32(0.5), cfg.NMSThreshold)

	nms := float32(2)
	_, err = ResolveConfig(NewConfigArgs{Name: model.ModelNameYOLOv3Tiny, NMSThreshold: &nms})
	assert.ErrorIs(t, err, model.ErrConfig)
}

func TestResolveConfigZeroObjectnessOverride(t *testing.T) {
	zero := float32(0)
	cfg, err := ResolveConfig(NewConfigArgs{Name: model.ModelNameYOLOv3, ObjectnessThreshold: &zero})
	require.NoError(t, err)
	assert.Equal(t, float32(0), cfg.ObjectnessThreshold)

	// A zero NMS threshold is out of range, not silently ignored.
	_, err = ResolveConfig(NewConfigArgs{Name: model.ModelNameYOLOv3, NMSThreshold: &zero})
	assert.ErrorIs(t, err, model.ErrConfig)

	cfg, err = ResolveConfig(NewConfigArgs{Name: model.ModelNameYOLOv3})
	require.NoError(t, err)
	assert.Equal(t, float32(0.6), cfg.ObjectnessThreshold)
}

func TestResolveConfigFromManifest(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.yaml")
	require.NoError(t, os.WriteFile(path, []byte("base: yolov3\nlabels: [a, b]\n"), 0o600))

	cfg, err := ResolveConfig(NewConfigArgs{Name: model.ModelNameYOLOv3Tiny, Manifest: path})
	require.NoError(t, err)
	assert.Equal(t, 608, cfg.InputSize)
	assert.Equal(t, []string{"a", "b"}, cfg.Labels)
}
