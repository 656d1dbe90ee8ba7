package video

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gocv.io/x/gocv"

	"github.com/nvr-ai/go-detect/overlay"
)

// Snapshots is a headless display that writes every Nth annotated frame as a PNG file.
type Snapshots struct {
	dir    string
	every  int
	canvas *overlay.Canvas
	frames int
	saved  int
	logger *zap.Logger
}

// NewSnapshots creates the output directory and the renderer.
//
// Arguments:
//   - dir: The output directory; created when missing.
//   - every: Save one frame out of every; values below 1 save every frame.
//   - style: Outline and label style.
//   - logger: The logger; nil disables logging.
//
// Returns:
//   - *Snapshots: The display.
//   - error: An error if the directory or the font cannot be set up.
func NewSnapshots(dir string, every int, style overlay.Style, logger *zap.Logger) (*Snapshots, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if every < 1 {
		every = 1
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrapf(err, "create output directory %s", dir)
	}
	canvas, err := overlay.NewCanvas(style)
	if err != nil {
		return nil, err
	}
	return &Snapshots{dir: dir, every: every, canvas: canvas, logger: logger}, nil
}

// SnapshotPath returns the file name of frame n inside dir.
func SnapshotPath(dir string, n int) string {
	return filepath.Join(dir, fmt.Sprintf("frame-%06d.png", n))
}

// Present renders and saves the frame when its index is a multiple of every.
func (s *Snapshots) Present(frame *gocv.Mat, instructions []overlay.RenderInstruction) error {
	n := s.frames
	s.frames++
	if n%s.every != 0 {
		return nil
	}

	img, err := frame.ToImage()
	if err != nil {
		return errors.Wrapf(err, "convert frame %d", n)
	}
	path := SnapshotPath(s.dir, n)
	if err := s.canvas.SavePNG(path, img, instructions); err != nil {
		return err
	}
	s.saved++
	s.logger.Debug("snapshot saved", zap.String("path", path), zap.Int("boxes", len(instructions)))
	return nil
}

// StopRequested always reports false; a headless display never stops the loop.
func (s *Snapshots) StopRequested() bool {
	return false
}

// Saved returns the number of files written so far.
func (s *Snapshots) Saved() int {
	return s.saved
}

// Close logs a summary; nothing is held open between frames.
func (s *Snapshots) Close() error {
	s.logger.Info("snapshots written", zap.String("dir", s.dir), zap.Int("files", s.saved))
	return nil
}
