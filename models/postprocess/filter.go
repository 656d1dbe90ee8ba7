package postprocess

import (
	"math"

	"github.com/chewxy/math32"

	"github.com/nvr-ai/go-detect/images"
)

// maxCoordinate bounds the corners Filter accepts, so the int conversion never overflows.
const maxCoordinate = math.MaxInt32

// DefaultMinConfidence is the detection-level admission threshold.
const DefaultMinConfidence float32 = 0.4

// FilterConfig defines the admission rules applied to raw detector output.
type FilterConfig struct {
	// MinConfidence is exclusive: a detection must score strictly above it.
	MinConfidence float32 `json:"min_confidence" yaml:"min_confidence"`
	// Classes restricts admission to these class indices (empty = all classes).
	Classes []int `json:"classes" yaml:"classes"`
}

// DefaultFilterConfig returns the standard admission rules.
func DefaultFilterConfig() FilterConfig {
	return FilterConfig{MinConfidence: DefaultMinConfidence}
}

// Filter admits raw detections above the confidence threshold and converts them to
// origin+extent form.
//
// Malformed detections are dropped rather than propagated: NaN, infinite, negative or
// greater-than-one confidences, negative class indices, and corners that are not finite or
// lie outside [-math.MaxInt32, math.MaxInt32]. Corner coordinates are put
// in canonical order and truncated toward zero, so every admitted region has
// non-negative width and height.
//
// Arguments:
//   - raw: The flattened detector output for one frame.
//   - cfg: The admission rules.
//
// Returns:
//   - []Detection: The admitted detections, in input order.
//
// @example
// dets := Filter([]RawDetection{{X1: 0, Y1: 0, X2: 10.7, Y2: 10.2, Confidence: 0.9}}, DefaultFilterConfig())
// // dets[0].Region == images.Region{X: 0, Y: 0, W: 10, H: 10}
func Filter(raw []RawDetection, cfg FilterConfig) []Detection {
	var allowed map[int]bool
	if len(cfg.Classes) > 0 {
		allowed = make(map[int]bool, len(cfg.Classes))
		for _, c := range cfg.Classes {
			allowed[c] = true
		}
	}

	out := make([]Detection, 0, len(raw))
	for _, d := range raw {
		if !validConfidence(d.Confidence) || d.Confidence <= cfg.MinConfidence {
			continue
		}
		if d.ClassID < 0 {
			continue
		}
		if allowed != nil && !allowed[d.ClassID] {
			continue
		}
		if !validCoordinate(d.X1) || !validCoordinate(d.Y1) || !validCoordinate(d.X2) || !validCoordinate(d.Y2) {
			continue
		}

		out = append(out, Detection{
			Region: images.Rect{
				X1: int(math32.Min(d.X1, d.X2)),
				Y1: int(math32.Min(d.Y1, d.Y2)),
				X2: int(math32.Max(d.X1, d.X2)),
				Y2: int(math32.Max(d.Y1, d.Y2)),
			}.Region(),
			Confidence: d.Confidence,
			ClassID:    d.ClassID,
			Names:      d.Names,
		})
	}
	return out
}

func validConfidence(c float32) bool {
	return finite(c) && c >= 0 && c <= 1
}

func validCoordinate(v float32) bool {
	return finite(v) && math32.Abs(v) <= maxCoordinate
}

func finite(v float32) bool {
	return !math32.IsNaN(v) && !math32.IsInf(v, 0)
}
