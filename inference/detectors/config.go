// Package detectors - YOLO object detectors over ONNX Runtime and OpenCV DNN.
package detectors

import (
	"image"

	"github.com/nvr-ai/go-detect/models"
)

// Backend selects the inference runtime of a detector.
type Backend string

const (
	// BackendONNXRuntime runs the model with onnxruntime_go.
	BackendONNXRuntime Backend = "onnxruntime"
	// BackendOpenCV runs the model with the OpenCV DNN module.
	BackendOpenCV Backend = "opencv"
)

// Backends is a list of all supported backends.
var Backends = []Backend{BackendONNXRuntime, BackendOpenCV}

// Config represents the configuration shared by the detectors.
type Config struct {
	// ModelPath is the YOLO ONNX export to load.
	ModelPath string `json:"model_path"`
	// SharedLibraryPath is the onnxruntime library; only used by BackendONNXRuntime.
	SharedLibraryPath string `json:"shared_library_path"`
	// InputSize is the square model input resolution.
	InputSize int `json:"input_size"`
	// DecodeFloor drops candidates scoring at or below it while decoding the raw output.
	DecodeFloor float32 `json:"decode_floor"`
	// IntraOpThreads and InterOpThreads size the onnxruntime thread pools.
	IntraOpThreads int `json:"intra_op_threads"`
	InterOpThreads int `json:"inter_op_threads"`
	// Names is the class table of the model output.
	Names *models.OutputClassSet `json:"-"`
}

// DefaultConfig returns the configuration of a 640x640 COCO YOLO11 export.
//
// Returns:
//   - Config: The default configuration.
//
// @example
// cfg := DefaultConfig()
// cfg.ModelPath = "yolo11n.onnx"
// d, err := NewORTDetector(cfg, logger)
func DefaultConfig() Config {
	return Config{
		InputSize:      640,
		DecodeFloor:    0.25,
		IntraOpThreads: 4,
		InterOpThreads: 2,
		Names:          models.YOLOClasses,
	}
}

// InputShape returns the model input resolution as a point.
func (c Config) InputShape() image.Point {
	return image.Pt(c.InputSize, c.InputSize)
}

// Attributes returns the number of values per anchor: four box values plus one score per
// class.
func (c Config) Attributes() int {
	return 4 + c.Names.Len()
}

// AnchorCount returns the number of YOLO anchors for a square input, summed over the
// stride 8, 16 and 32 detection heads. A 640 input has 80*80 + 40*40 + 20*20 = 8400.
func AnchorCount(inputSize int) int {
	n := 0
	for _, stride := range []int{8, 16, 32} {
		side := inputSize / stride
		n += side * side
	}
	return n
}
