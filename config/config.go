// Package config - Application configuration from a YAML file, .env and YOLO_ environment variables.
package config

import (
	"bytes"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/nvr-ai/go-yolo/models/model"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "YOLO_"

// Config is the application configuration.
type Config struct {
	Model      ModelConfig     `yaml:"model"`
	Backend    string          `yaml:"backend"`
	ONNX       ONNXConfig      `yaml:"onnx"`
	TFLite     TFLiteConfig    `yaml:"tflite"`
	Thresholds ThresholdConfig `yaml:"thresholds"`
	Log        LogConfig       `yaml:"log"`
}

// ModelConfig locates the model assets.
type ModelConfig struct {
	Name     model.Name `yaml:"name"`
	Path     string     `yaml:"path"`
	Labels   string     `yaml:"labels"`
	Manifest string     `yaml:"manifest"`
	// Inputs is the input tensor name. Empty means "input".
	Inputs string `yaml:"inputs"`
	// Outputs are the output tensor names in scale order.
	Outputs []string `yaml:"outputs"`
}

// ONNXConfig configures the ONNX Runtime backend.
type ONNXConfig struct {
	Library      string   `yaml:"library"`
	IntraThreads int      `yaml:"intra_threads"`
	InterThreads int      `yaml:"inter_threads"`
	Providers    []string `yaml:"providers"`
}

// TFLiteConfig configures the TensorFlow Lite backend.
type TFLiteConfig struct {
	Threads int `yaml:"threads"`
}

// ThresholdConfig overrides the preset thresholds. Nil keeps the preset value,
// so an explicit 0 is still an override.
type ThresholdConfig struct {
	Objectness *float32 `yaml:"objectness"`
	NMS        *float32 `yaml:"nms"`
}

// LogConfig configures the logger.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		Model: ModelConfig{
			Name: model.ModelNameYOLOv3Tiny,
			Path: "yolov3-tiny.onnx",
		},
		Backend: "onnx",
		ONNX: ONNXConfig{
			Providers: []string{"cpu"},
		},
		TFLite: TFLiteConfig{
			Threads: 1,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load builds the configuration from defaults, the optional YAML file at path
// and the environment. A .env file in the working directory is loaded first;
// variables already set in the environment win over it.
//
// Arguments:
//   - path: The YAML file path, or "" to skip the file.
//
// Returns:
//   - *Config: The validated configuration.
//   - error: An error wrapping model.ErrConfig.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrapf(model.ErrConfig, "read config %s: %v", path, err)
		}
		if err := cfg.decode(data); err != nil {
			return nil, errors.Wrapf(err, "config %s", path)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) decode(data []byte) error {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil {
		return errors.Wrapf(model.ErrConfig, "parse yaml: %v", err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	c.Model.Name = model.Name(getEnv("MODEL_NAME", string(c.Model.Name)))
	c.Model.Path = getEnv("MODEL_PATH", c.Model.Path)
	c.Model.Labels = getEnv("MODEL_LABELS", c.Model.Labels)
	c.Model.Manifest = getEnv("MODEL_MANIFEST", c.Model.Manifest)
	c.Model.Inputs = getEnv("MODEL_INPUTS", c.Model.Inputs)
	c.Model.Outputs = getEnvAsList("MODEL_OUTPUTS", c.Model.Outputs)
	c.Backend = getEnv("BACKEND", c.Backend)
	c.ONNX.Library = getEnv("ONNX_LIBRARY", c.ONNX.Library)
	c.ONNX.Providers = getEnvAsList("ONNX_PROVIDERS", c.ONNX.Providers)
	c.Log.Level = getEnv("LOG_LEVEL", c.Log.Level)
	c.Log.Format = getEnv("LOG_FORMAT", c.Log.Format)

	var err error
	if c.ONNX.IntraThreads, err = getEnvAsInt("ONNX_INTRA_THREADS", c.ONNX.IntraThreads); err != nil {
		return err
	}
	if c.ONNX.InterThreads, err = getEnvAsInt("ONNX_INTER_THREADS", c.ONNX.InterThreads); err != nil {
		return err
	}
	if c.TFLite.Threads, err = getEnvAsInt("TFLITE_THREADS", c.TFLite.Threads); err != nil {
		return err
	}
	if c.Thresholds.Objectness, err = getEnvAsFloat32("OBJECTNESS_THRESHOLD", c.Thresholds.Objectness); err != nil {
		return err
	}
	if c.Thresholds.NMS, err = getEnvAsFloat32("NMS_THRESHOLD", c.Thresholds.NMS); err != nil {
		return err
	}
	return nil
}

// Validate checks the fields that are not validated by the packages consuming them.
func (c *Config) Validate() error {
	switch c.Backend {
	case "onnx", "tflite", "opencv":
	default:
		return errors.Wrapf(model.ErrConfig, "unsupported backend: %q", c.Backend)
	}

	if c.Model.Path == "" {
		return errors.Wrap(model.ErrConfig, "model.path is required")
	}
	if c.Model.Name == "" && c.Model.Manifest == "" {
		return errors.Wrap(model.ErrConfig, "model.name or model.manifest is required")
	}

	if c.ONNX.IntraThreads < 0 || c.ONNX.InterThreads < 0 || c.TFLite.Threads < 0 {
		return errors.Wrap(model.ErrConfig, "thread counts must not be negative")
	}

	if _, err := logrus.ParseLevel(c.Log.Level); err != nil {
		return errors.Wrapf(model.ErrConfig, "log.level: %v", err)
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return errors.Wrapf(model.ErrConfig, "unsupported log.format: %q", c.Log.Format)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(EnvPrefix + key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(EnvPrefix + key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, errors.Wrapf(model.ErrConfig, "%s%s: %v", EnvPrefix, key, err)
	}
	return n, nil
}

// getEnvAsFloat32 returns nil only when neither the variable nor defaultValue is set.
func getEnvAsFloat32(key string, defaultValue *float32) (*float32, error) {
	value := os.Getenv(EnvPrefix + key)
	if value == "" {
		return defaultValue, nil
	}
	f, err := strconv.ParseFloat(value, 32)
	if err != nil {
		return nil, errors.Wrapf(model.ErrConfig, "%s%s: %v", EnvPrefix, key, err)
	}
	v := float32(f)
	return &v, nil
}

// getEnvAsList splits a comma-separated value, dropping empty items.
func getEnvAsList(key string, defaultValue []string) []string {
	value := os.Getenv(EnvPrefix + key)
	if value == "" {
		return defaultValue
	}

	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
