package video

import (
	"context"
	"strconv"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gocv.io/x/gocv"
)

// Capture reads frames from a camera device or a video file.
type Capture struct {
	source string
	cap    *gocv.VideoCapture
	logger *zap.Logger
}

// OpenCapture opens a capture source.
//
// A source that parses as an integer is a camera device ID; anything else is a file path
// or stream URL.
//
// Arguments:
//   - source: The device ID or path.
//   - logger: The logger; nil disables logging.
//
// Returns:
//   - *Capture: The opened source.
//   - error: An error if the source cannot be opened.
//
// @example
// webcam, err := OpenCapture("0", logger)
func OpenCapture(source string, logger *zap.Logger) (*Capture, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	var device interface{} = source
	if id, err := strconv.Atoi(source); err == nil {
		device = id
	}

	vc, err := gocv.OpenVideoCapture(device)
	if err != nil {
		return nil, errors.Wrapf(err, "open video source %q", source)
	}
	if !vc.IsOpened() {
		_ = vc.Close()
		return nil, errors.Errorf("video source %q is not open", source)
	}

	logger.Info("video source opened",
		zap.String("source", source),
		zap.Float64("fps", vc.Get(gocv.VideoCaptureFPS)),
		zap.Float64("width", vc.Get(gocv.VideoCaptureFrameWidth)),
		zap.Float64("height", vc.Get(gocv.VideoCaptureFrameHeight)),
	)
	return &Capture{source: source, cap: vc, logger: logger}, nil
}

// Read grabs the next frame into dst. A failed or empty read ends the stream.
func (c *Capture) Read(ctx context.Context, dst *gocv.Mat) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if ok := c.cap.Read(dst); !ok || dst.Empty() {
		return ErrEndOfStream
	}
	return nil
}

// Close releases the device or file.
func (c *Capture) Close() error {
	return errors.Wrapf(c.cap.Close(), "close video source %q", c.source)
}
