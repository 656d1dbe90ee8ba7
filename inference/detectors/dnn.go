package detectors

import (
	"context"
	"image"
	"os"
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gocv.io/x/gocv"

	"github.com/nvr-ai/go-detect/models/postprocess"
)

// DNNDetector runs a YOLO ONNX export with the OpenCV DNN module on the CPU.
type DNNDetector struct {
	mu     sync.Mutex
	cfg    Config
	net    gocv.Net
	open   bool
	logger *zap.Logger
}

// NewDNNDetector loads the model with gocv.ReadNetFromONNX.
//
// Arguments:
//   - cfg: The detector configuration; SharedLibraryPath and thread counts are unused.
//   - logger: The logger; nil disables logging.
//
// Returns:
//   - *DNNDetector: The detector.
//   - error: An error if the model cannot be loaded.
func NewDNNDetector(cfg Config, logger *zap.Logger) (*DNNDetector, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.InputSize <= 0 {
		return nil, errors.Errorf("invalid input size %d", cfg.InputSize)
	}
	if cfg.Names.Len() == 0 {
		return nil, errors.New("detector needs a class table")
	}
	if _, err := os.Stat(cfg.ModelPath); err != nil {
		return nil, errors.Wrapf(err, "model file not found: %s", cfg.ModelPath)
	}

	net := gocv.ReadNetFromONNX(cfg.ModelPath)
	if net.Empty() {
		return nil, errors.Errorf("failed to load ONNX model: %s", cfg.ModelPath)
	}
	net.SetPreferableBackend(gocv.NetBackendOpenCV)
	net.SetPreferableTarget(gocv.NetTargetCPU)

	logger.Info("opencv dnn detector initialized",
		zap.String("model", cfg.ModelPath),
		zap.Int("input_size", cfg.InputSize),
		zap.Int("classes", cfg.Names.Len()),
	)
	return &DNNDetector{cfg: cfg, net: net, open: true, logger: logger}, nil
}

// Detect runs inference on a frame and reports candidates in frame coordinates.
//
// Arguments:
//   - ctx: Checked once before inference starts.
//   - frame: A BGR frame.
//
// Returns:
//   - []postprocess.Result: A single result carrying the model's class table.
//   - error: An error if the frame is empty or inference fails.
func (d *DNNDetector) Detect(ctx context.Context, frame gocv.Mat) ([]postprocess.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if frame.Empty() {
		return nil, errors.New("empty frame")
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.open {
		return nil, errors.New("detector is closed")
	}

	// Scale to [0, 1] and swap BGR to RGB.
	blob := gocv.BlobFromImage(frame, 1.0/255.0, d.cfg.InputShape(), gocv.NewScalar(0, 0, 0, 0), true, false)
	defer blob.Close()

	d.net.SetInput(blob, "")
	out := d.net.Forward("")
	defer out.Close()

	data, err := out.DataPtrFloat32()
	if err != nil {
		return nil, errors.Wrap(err, "read network output")
	}

	raw, err := Decode(
		data,
		d.cfg.Attributes(), AnchorCount(d.cfg.InputSize),
		d.cfg.InputShape(),
		image.Pt(frame.Cols(), frame.Rows()),
		d.cfg.DecodeFloor,
	)
	if err != nil {
		return nil, err
	}
	return []postprocess.Result{{Detections: raw, Names: d.cfg.Names}}, nil
}

// Close releases the network.
func (d *DNNDetector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.open {
		return nil
	}
	d.open = false
	d.logger.Debug("opencv dnn detector closed")
	return errors.Wrap(d.net.Close(), "close network")
}
