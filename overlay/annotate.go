package overlay

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/nvr-ai/go-detect/images"
	"github.com/nvr-ai/go-detect/models"
	"github.com/nvr-ai/go-detect/models/postprocess"
)

// RenderInstruction describes one labeled box to draw on a frame.
type RenderInstruction struct {
	Region images.Region
	Label  string
	Color  ClassColor
}

// Annotate builds the render instructions for the surviving detections of a frame.
//
// Class names are resolved from each detection's own class table, falling back to names
// when the detection carries none. A class that neither table knows is rendered as
// "unknown_<id>" so an unexpected index never stops the frame. Indices outside
// detections are ignored.
//
// Arguments:
//   - detections: The filtered detections of the frame.
//   - keep: Surviving indices into detections, as returned by postprocess.Suppress.
//   - names: Fallback class table; may be nil.
//
// Returns:
//   - []RenderInstruction: One instruction per surviving index, in keep order.
func Annotate(
	detections []postprocess.Detection,
	keep []int,
	names models.ClassNamer,
) []RenderInstruction {
	out := make([]RenderInstruction, 0, len(keep))
	for _, idx := range keep {
		if idx < 0 || idx >= len(detections) {
			continue
		}
		d := detections[idx]

		out = append(out, RenderInstruction{
			Region: d.Region,
			Label:  Label(className(d, names), d.Confidence),
			Color:  ColorFor(d.ClassID),
		})
	}
	return out
}

func className(d postprocess.Detection, fallback models.ClassNamer) string {
	for _, table := range []models.ClassNamer{d.Names, fallback} {
		if table == nil {
			continue
		}
		if name, ok := table.ClassName(d.ClassID); ok {
			return name
		}
	}
	return fmt.Sprintf("unknown_%d", d.ClassID)
}

// Label formats "<name> <percent>%" with the confidence percentage rounded to two
// decimals, e.g. "person 91.23%" or "car 90.0%".
func Label(name string, confidence float32) string {
	return name + " " + Percent(confidence) + "%"
}

// Percent renders confidence*100 rounded to two decimals in its shortest form, keeping
// at least one decimal digit.
func Percent(confidence float32) string {
	pct := math.Round(float64(confidence)*100*100) / 100

	s := strconv.FormatFloat(pct, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}
