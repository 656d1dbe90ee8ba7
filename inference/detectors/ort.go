package detectors

import (
	"context"
	"image"
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gocv.io/x/gocv"

	"github.com/nvr-ai/go-detect/inference"
	"github.com/nvr-ai/go-detect/models/postprocess"
)

// ORTDetector runs a YOLO ONNX export with ONNX Runtime on the CPU.
type ORTDetector struct {
	mu      sync.Mutex
	cfg     Config
	session *inference.Session
	attrs   int
	anchors int
	logger  *zap.Logger
}

// NewORTDetector loads the model and allocates the input and output tensors.
//
// The graph must take "images" shaped [1, 3, size, size] and produce "output0" shaped
// [1, 4+classes, anchors].
//
// Arguments:
//   - cfg: The detector configuration.
//   - logger: The logger; nil disables logging.
//
// Returns:
//   - *ORTDetector: The detector.
//   - error: An error if the runtime or the model cannot be loaded.
func NewORTDetector(cfg Config, logger *zap.Logger) (*ORTDetector, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.InputSize <= 0 {
		return nil, errors.Errorf("invalid input size %d", cfg.InputSize)
	}
	if cfg.Names.Len() == 0 {
		return nil, errors.New("detector needs a class table")
	}

	d := &ORTDetector{
		cfg:     cfg,
		attrs:   cfg.Attributes(),
		anchors: AnchorCount(cfg.InputSize),
		logger:  logger,
	}

	size := int64(cfg.InputSize)
	session, err := inference.NewSession(inference.SessionConfig{
		ModelPath:         cfg.ModelPath,
		SharedLibraryPath: cfg.SharedLibraryPath,
		InputName:         "images",
		OutputName:        "output0",
		InputShape:        []int64{1, 3, size, size},
		OutputShape:       []int64{1, int64(d.attrs), int64(d.anchors)},
		IntraOpThreads:    cfg.IntraOpThreads,
		InterOpThreads:    cfg.InterOpThreads,
	})
	if err != nil {
		return nil, errors.Wrap(err, "load onnxruntime detector")
	}
	d.session = session

	logger.Info("onnxruntime detector initialized",
		zap.String("model", cfg.ModelPath),
		zap.Int("input_size", cfg.InputSize),
		zap.Int("classes", cfg.Names.Len()),
		zap.Int("anchors", d.anchors),
	)
	return d, nil
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
func (d *ORTDetector) Detect(ctx context.Context, frame gocv.Mat) ([]postprocess.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if frame.Empty() {
		return nil, errors.New("empty frame")
	}

	img, err := frame.ToImage()
	if err != nil {
		return nil, errors.Wrap(err, "convert frame")
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.session == nil {
		return nil, errors.New("detector is closed")
	}
	if err := inference.PrepareInput(img, d.session.Input.GetData(), d.cfg.InputSize); err != nil {
		return nil, errors.Wrap(err, "prepare input")
	}
	if err := d.session.Run(); err != nil {
		return nil, err
	}

	raw, err := Decode(
		d.session.Output.GetData(),
		d.attrs, d.anchors,
		d.cfg.InputShape(),
		image.Pt(frame.Cols(), frame.Rows()),
		d.cfg.DecodeFloor,
	)
	if err != nil {
		return nil, err
	}
	return []postprocess.Result{{Detections: raw, Names: d.cfg.Names}}, nil
}

// Close releases the session.
func (d *ORTDetector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.session == nil {
		return nil
	}
	err := d.session.Close()
	d.session = nil
	d.logger.Debug("onnxruntime detector closed")
	return err
}
