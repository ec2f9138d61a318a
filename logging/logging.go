// Package logging - logrus logger construction.
package logging

import (
	"io"
	"os"

	"github.com/nvr-ai/go-yolo/config"
	"github.com/nvr-ai/go-yolo/models/model"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// New builds a logger writing to stderr.
//
// Arguments:
//   - cfg: The level ("debug", "info", ...) and format ("text" or "json").
//
// Returns:
//   - *logrus.Logger: The logger.
//   - error: An error wrapping model.ErrConfig.
func New(cfg config.LogConfig) (*logrus.Logger, error) {
	return NewWithWriter(cfg, os.Stderr)
}

// NewWithWriter is New with a custom output.
func NewWithWriter(cfg config.LogConfig, w io.Writer) (*logrus.Logger, error) {
	level := logrus.InfoLevel
	if cfg.Level != "" {
		var err error
		if level, err = logrus.ParseLevel(cfg.Level); err != nil {
			return nil, errors.Wrapf(model.ErrConfig, "log level: %v", err)
		}
	}

	log := logrus.New()
	log.SetOutput(w)
	log.SetLevel(level)

	switch cfg.Format {
	case "", "text":
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	case "json":
		log.SetFormatter(&logrus.JSONFormatter{})
	default:
		return nil, errors.Wrapf(model.ErrConfig, "unsupported log format: %q", cfg.Format)
	}

	return log, nil
}
