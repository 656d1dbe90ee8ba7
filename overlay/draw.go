package overlay

import (
	"image"

	"gocv.io/x/gocv"
)

// Style controls how render instructions are rasterized.
type Style struct {
	// Thickness of the box outline and the label strokes, in pixels.
	Thickness int `json:"thickness" yaml:"thickness"`
	// FontScale is the OpenCV Hershey font scale; the pure Go canvas derives its point
	// size from it.
	FontScale float64 `json:"font_scale" yaml:"font_scale"`
	// TextOffset is how far above the box the label baseline sits.
	TextOffset int `json:"text_offset" yaml:"text_offset"`
}

// DefaultStyle returns a 2px outline with a small label 10px above the box.
func DefaultStyle() Style {
	return Style{
		Thickness:  2,
		FontScale:  0.5,
		TextOffset: 10,
	}
}

// LabelOrigin returns the label baseline position for a region.
//
// The label sits TextOffset pixels above the box; boxes touching the top edge get their
// label just inside the box instead, so it stays visible.
func (s Style) LabelOrigin(r image.Rectangle) image.Point {
	y := r.Min.Y - s.TextOffset
	if y < s.TextOffset {
		y = r.Min.Y + 2*s.TextOffset
	}
	return image.Pt(r.Min.X, y)
}

// DrawInstructions draws every instruction onto img with OpenCV primitives.
//
// Arguments:
//   - img: The frame to draw on, modified in place.
//   - instructions: The boxes and labels of the frame.
//   - style: Outline and label style.
func DrawInstructions(img *gocv.Mat, instructions []RenderInstruction, style Style) {
	for _, ins := range instructions {
		rect := ins.Region.Rectangle()
		c := ins.Color.RGBA()

		gocv.Rectangle(img, rect, c, style.Thickness)
		gocv.PutText(img, ins.Label, style.LabelOrigin(rect), gocv.FontHersheySimplex,
			style.FontScale, c, style.Thickness)
	}
}
