// Package postprocess - Post-processing of raw detector output: confidence filtering,
// non-maximum suppression and result flattening.
package postprocess

import (
	"github.com/nvr-ai/go-detect/images"
	"github.com/nvr-ai/go-detect/models"
)

// RawDetection is one candidate box exactly as a detector reported it.
type RawDetection struct {
	// Corner coordinates in frame pixels. The order of the corners is not guaranteed.
	X1, Y1, X2, Y2 float32
	// The confidence score reported by the detector.
	Confidence float32
	// The predicted class index.
	ClassID int
	// Names is the class table of the result this detection belongs to.
	Names models.ClassNamer
}

// Result is one result object of a detector invocation.
//
// A detector may return several results for one frame; each carries its own class table.
type Result struct {
	Detections []RawDetection
	Names      models.ClassNamer
}

// Detection is an admitted detection in origin+extent form.
type Detection struct {
	// The bounding region of the detection.
	Region images.Region
	// The confidence score of the detection.
	Confidence float32
	// The predicted class index of the detection.
	ClassID int
	// Names resolves ClassID; nil when the detector supplied no table.
	Names models.ClassNamer
}

// Flatten materializes every result of a frame into one slice.
//
// Each raw detection is stamped with the class table of the result it came from, unless
// the detector already set one on the detection itself. Suppression needs random access
// over the whole candidate set, so the full list is built before anything else runs.
//
// Arguments:
//   - results: The detector output for one frame.
//
// Returns:
//   - []RawDetection: All detections, in result order then detection order.
func Flatten(results []Result) []RawDetection {
	n := 0
	for _, r := range results {
		n += len(r.Detections)
	}

	out := make([]RawDetection, 0, n)
	for _, r := range results {
		for _, d := range r.Detections {
			if d.Names == nil {
				d.Names = r.Names
			}
			out = append(out, d)
		}
	}
	return out
}
