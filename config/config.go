// Package config - YAML configuration of the detection pipeline.
package config

import (
	"image"
	"os"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"

	"github.com/nvr-ai/go-detect/inference/detectors"
	"github.com/nvr-ai/go-detect/models"
	"github.com/nvr-ai/go-detect/models/postprocess"
	"github.com/nvr-ai/go-detect/overlay"
)

// ErrInvalid is wrapped by every validation error.
var ErrInvalid = errors.New("invalid configuration")

// Config is the complete configuration of a run.
type Config struct {
	// Source is a camera device index or a video file path or URL.
	Source string `yaml:"source"`
	// FramesDir replays numbered images instead of Source when set.
	FramesDir string `yaml:"frames_dir"`

	ModelPath         string             `yaml:"model_path"`
	Backend           detectors.Backend  `yaml:"backend"`
	SharedLibraryPath string             `yaml:"shared_library_path"`
	InputSize         int                `yaml:"input_size"`
	DecodeFloor       float32            `yaml:"decode_floor"`
	IntraOpThreads    int                `yaml:"intra_op_threads"`
	InterOpThreads    int                `yaml:"inter_op_threads"`
	ModelFamily       models.ModelFamily `yaml:"model_family"`

	FrameWidth  int `yaml:"frame_width"`
	FrameHeight int `yaml:"frame_height"`

	// ConfidenceThreshold gates detections before suppression.
	ConfidenceThreshold float32 `yaml:"confidence_threshold"`
	// ScoreThreshold is the suppression engine's own confidence gate.
	ScoreThreshold float32  `yaml:"score_threshold"`
	IoUThreshold   float32  `yaml:"iou_threshold"`
	ClassAware     bool     `yaml:"class_aware"`
	Classes        []string `yaml:"classes"`

	WindowTitle   string        `yaml:"window_title"`
	Headless      bool          `yaml:"headless"`
	OutputDir     string        `yaml:"output_dir"`
	SnapshotEvery int           `yaml:"snapshot_every"`
	Style         overlay.Style `yaml:"style"`

	LogLevel        string        `yaml:"log_level"`
	Development     bool          `yaml:"development"`
	ProfileInterval time.Duration `yaml:"profile_interval"`
}

// Default returns the configuration of a webcam run with a 640x640 COCO YOLO11 model.
func Default() Config {
	det := detectors.DefaultConfig()
	return Config{
		Source:              "0",
		ModelPath:           "yolo11n.onnx",
		Backend:             detectors.BackendONNXRuntime,
		InputSize:           det.InputSize,
		DecodeFloor:         det.DecodeFloor,
		IntraOpThreads:      det.IntraOpThreads,
		InterOpThreads:      det.InterOpThreads,
		ModelFamily:         models.ModelFamilyYOLO,
		FrameWidth:          1020,
		FrameHeight:         600,
		ConfidenceThreshold: postprocess.DefaultMinConfidence,
		ScoreThreshold:      postprocess.DefaultNMSConfig().ScoreThreshold,
		IoUThreshold:        postprocess.DefaultNMSConfig().IoUThreshold,
		WindowTitle:         "YOLO Object Detection",
		OutputDir:           "output",
		SnapshotEvery:       1,
		Style:               overlay.DefaultStyle(),
		LogLevel:            "info",
		ProfileInterval:     5 * time.Second,
	}
}

// Load reads a YAML file over the defaults. Keys missing from the file keep their
// default value.
//
// Arguments:
//   - path: The YAML file.
//
// Returns:
//   - Config: The merged configuration, not yet validated.
//   - error: An error if the file cannot be read or parsed.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.Wrapf(err, "read config %s", path)
	}
	return Parse(data)
}

// Parse decodes YAML over the defaults.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, errors.Wrap(err, "parse config")
	}
	return cfg, nil
}

// Validate reports every problem of the configuration at once. Each error wraps
// ErrInvalid.
func (c Config) Validate() error {
	var err error
	invalid := func(format string, args ...interface{}) {
		err = multierr.Append(err, errors.Wrapf(ErrInvalid, format, args...))
	}

	for name, v := range map[string]float32{
		"confidence_threshold": c.ConfidenceThreshold,
		"score_threshold":      c.ScoreThreshold,
		"iou_threshold":        c.IoUThreshold,
		"decode_floor":         c.DecodeFloor,
	} {
		if v < 0 || v > 1 {
			invalid("%s %v is outside [0, 1]", name, v)
		}
	}

	if c.InputSize <= 0 || c.InputSize%32 != 0 {
		invalid("input_size %d must be a positive multiple of 32", c.InputSize)
	}
	if c.FrameWidth <= 0 || c.FrameHeight <= 0 {
		invalid("frame size %dx%d must be positive", c.FrameWidth, c.FrameHeight)
	}
	if c.IntraOpThreads < 0 || c.InterOpThreads < 0 {
		invalid("thread counts must not be negative")
	}
	if c.ModelPath == "" {
		invalid("model_path is required")
	}
	if c.Source == "" && c.FramesDir == "" {
		invalid("one of source or frames_dir is required")
	}

	switch c.Backend {
	case detectors.BackendONNXRuntime, detectors.BackendOpenCV:
	default:
		invalid("unknown backend %q", c.Backend)
	}

	if names, cerr := models.ClassSetFor(c.ModelFamily); cerr != nil {
		invalid("%v", cerr)
	} else if _, cerr := names.Indices(c.Classes); cerr != nil {
		invalid("%v", cerr)
	}

	if c.Headless && c.OutputDir == "" {
		invalid("output_dir is required when headless")
	}
	if c.Style.Thickness <= 0 || c.Style.FontScale <= 0 {
		invalid("style thickness and font_scale must be positive")
	}
	return err
}

// Names returns the class table of the configured model family.
func (c Config) Names() (*models.OutputClassSet, error) {
	names, err := models.ClassSetFor(c.ModelFamily)
	if err != nil {
		return nil, errors.Wrap(ErrInvalid, err.Error())
	}
	return names, nil
}

// FrameSize returns the resolution frames are normalized to before detection.
func (c Config) FrameSize() image.Point {
	return image.Pt(c.FrameWidth, c.FrameHeight)
}

// Detector returns the detector configuration.
func (c Config) Detector() (detectors.Config, error) {
	names, err := c.Names()
	if err != nil {
		return detectors.Config{}, err
	}
	return detectors.Config{
		ModelPath:         c.ModelPath,
		SharedLibraryPath: c.SharedLibraryPath,
		InputSize:         c.InputSize,
		DecodeFloor:       c.DecodeFloor,
		IntraOpThreads:    c.IntraOpThreads,
		InterOpThreads:    c.InterOpThreads,
		Names:             names,
	}, nil
}

// Filter returns the confidence filter configuration, resolving the class allow-list.
func (c Config) Filter() (postprocess.FilterConfig, error) {
	names, err := c.Names()
	if err != nil {
		return postprocess.FilterConfig{}, err
	}
	ids, err := names.Indices(c.Classes)
	if err != nil {
		return postprocess.FilterConfig{}, errors.Wrap(ErrInvalid, err.Error())
	}
	return postprocess.FilterConfig{MinConfidence: c.ConfidenceThreshold, Classes: ids}, nil
}

// NMS returns the suppression configuration.
func (c Config) NMS() postprocess.NMSConfig {
	return postprocess.NMSConfig{
		ScoreThreshold: c.ScoreThreshold,
		IoUThreshold:   c.IoUThreshold,
		ClassAware:     c.ClassAware,
	}
}
