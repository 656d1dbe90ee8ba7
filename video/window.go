package video

import (
	"github.com/pkg/errors"
	"gocv.io/x/gocv"

	"github.com/nvr-ai/go-detect/overlay"
)

// DefaultWindowTitle is the title of the display window.
const DefaultWindowTitle = "YOLO Object Detection"

// IsStopKey reports whether a WaitKey code asks the loop to stop: q, Q or ESC.
func IsStopKey(key int) bool {
	if key < 0 {
		return false
	}
	switch key & 0xFF {
	case 'q', 'Q', 27:
		return true
	}
	return false
}

// Window shows annotated frames in an OpenCV window.
type Window struct {
	win   *gocv.Window
	style overlay.Style
	stop  bool
}

// NewWindow opens a display window.
func NewWindow(title string, style overlay.Style) *Window {
	if title == "" {
		title = DefaultWindowTitle
	}
	return &Window{win: gocv.NewWindow(title), style: style}
}

// Present draws the instructions onto frame, shows it, and polls the keyboard for 1ms.
func (w *Window) Present(frame *gocv.Mat, instructions []overlay.RenderInstruction) error {
	overlay.DrawInstructions(frame, instructions, w.style)
	w.win.IMShow(*frame)
	if IsStopKey(w.win.WaitKey(1)) {
		w.stop = true
	}
	return nil
}

// StopRequested reports whether a stop key was pressed during a previous Present.
func (w *Window) StopRequested() bool {
	return w.stop
}

// Close destroys the window.
func (w *Window) Close() error {
	return errors.Wrap(w.win.Close(), "close window")
}
