package detector

import (
	"github.com/nvr-ai/go-yolo/config"
	"github.com/nvr-ai/go-yolo/inference"
	"github.com/nvr-ai/go-yolo/inference/providers"
	"github.com/nvr-ai/go-yolo/models"
	"github.com/nvr-ai/go-yolo/models/model"
	"github.com/nvr-ai/go-yolo/models/yolov3"
	"github.com/nvr-ai/go-yolo/util"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// NewFromConfig loads the labels, manifest and model file named by cfg, opens
// the configured interpreter backend and wraps it in a Detector.
//
// Arguments:
//   - cfg: The application configuration.
//   - logger: Used by the interpreter and the detector.
//   - opts: Extra detector options.
//
// Returns:
//   - *Detector: The detector; the caller must Close it.
//   - error: An error wrapping model.ErrConfig, model.ErrModelLoad or model.ErrInterpreter.
func NewFromConfig(cfg *config.Config, logger logrus.FieldLogger, opts ...Option) (*Detector, error) {
	modelCfg, err := ResolveModelConfig(cfg)
	if err != nil {
		return nil, err
	}

	data, err := util.LoadModelFile(cfg.Model.Path)
	if err != nil {
		return nil, err
	}

	args, err := InterpreterArgs(cfg, &modelCfg, data, logger)
	if err != nil {
		return nil, err
	}
	interp, err := inference.New(args)
	if err != nil {
		return nil, err
	}

	d, err := New(modelCfg, interp, append([]Option{WithLogger(logger)}, opts...)...)
	if err != nil {
		_ = interp.Close()
		return nil, err
	}
	return d, nil
}

// ResolveModelConfig builds the model configuration from the label file,
// manifest, preset name and threshold overrides in cfg.
func ResolveModelConfig(cfg *config.Config) (yolov3.Config, error) {
	var labels []string
	if cfg.Model.Labels != "" {
		var err error
		if labels, err = models.LoadLabels(cfg.Model.Labels); err != nil {
			return yolov3.Config{}, err
		}
	}

	return models.ResolveConfig(models.NewConfigArgs{
		Name:                cfg.Model.Name,
		Labels:              labels,
		Manifest:            cfg.Model.Manifest,
		ObjectnessThreshold: cfg.Thresholds.Objectness,
		NMSThreshold:        cfg.Thresholds.NMS,
	})
}

// InterpreterArgs maps the backend sections of cfg onto inference.Args.
func InterpreterArgs(cfg *config.Config, modelCfg *yolov3.Config, data []byte, logger logrus.FieldLogger) (inference.Args, error) {
	engine, err := inference.ParseEngine(cfg.Backend)
	if err != nil {
		return inference.Args{}, err
	}

	optimization := providers.DefaultOptimizationConfig()
	if cfg.ONNX.IntraThreads > 0 {
		optimization.IntraOpNumThreads = cfg.ONNX.IntraThreads
	}
	if cfg.ONNX.InterThreads > 0 {
		optimization.InterOpNumThreads = cfg.ONNX.InterThreads
	}
	if len(cfg.ONNX.Providers) > 0 {
		eps, err := providers.ProvidersFromNames(cfg.ONNX.Providers)
		if err != nil {
			return inference.Args{}, errors.Wrapf(model.ErrConfig, "onnx.providers: %v", err)
		}
		optimization.ExecutionProviders = eps
	}

	return inference.Args{
		Engine:       engine,
		Model:        data,
		Config:       modelCfg,
		InputName:    cfg.Model.Inputs,
		OutputNames:  cfg.Model.Outputs,
		LibraryPath:  cfg.ONNX.Library,
		Optimization: optimization,
		Threads:      cfg.TFLite.Threads,
		Logger:       logger,
	}, nil
}
