package detectors

import (
	"image"

	"github.com/pkg/errors"
	"gorgonia.org/tensor"

	"github.com/nvr-ai/go-detect/models/postprocess"
)

// Decode turns a raw YOLO output into candidate detections in frame coordinates.
//
// The output is laid out as [attrs, anchors]: rows 0-3 hold the box center and size in
// input pixels, and the remaining rows hold one score per class. It is transposed into one
// row per anchor, the best class of each anchor is picked, and anchors whose best score is
// above floor are scaled from the input resolution to the frame.
//
// No suppression happens here; the candidates still go through the confidence filter and
// non-maximum suppression.
//
// Arguments:
//   - output: The raw model output; it is not modified.
//   - attrs: Values per anchor (4 + number of classes).
//   - anchors: Number of anchors.
//   - inputSize: The model input resolution.
//   - frameSize: The resolution of the frame the detections are reported in.
//   - floor: Candidates scoring at or below it are dropped.
//
// Returns:
//   - []postprocess.RawDetection: The candidates, in anchor order.
//   - error: An error if the output does not match the declared shape.
//
// @example
// raw, err := Decode(session.Output.GetData(), 84, 8400, image.Pt(640, 640), image.Pt(1020, 600), 0.25)
func Decode(
	output []float32,
	attrs, anchors int,
	inputSize, frameSize image.Point,
	floor float32,
) ([]postprocess.RawDetection, error) {
	if attrs < 5 || anchors <= 0 {
		return nil, errors.Errorf("invalid output shape [%d, %d]", attrs, anchors)
	}
	if len(output) != attrs*anchors {
		return nil, errors.Errorf("output holds %d values, shape [%d, %d] needs %d",
			len(output), attrs, anchors, attrs*anchors)
	}
	if inputSize.X <= 0 || inputSize.Y <= 0 {
		return nil, errors.Errorf("invalid input size %v", inputSize)
	}

	rows, err := transpose(output, attrs, anchors)
	if err != nil {
		return nil, err
	}

	sx := float32(frameSize.X) / float32(inputSize.X)
	sy := float32(frameSize.Y) / float32(inputSize.Y)

	out := make([]postprocess.RawDetection, 0)
	for i := 0; i < anchors; i++ {
		row := rows[i*attrs : (i+1)*attrs]

		classID, score := -1, float32(0)
		for c, v := range row[4:] {
			if classID < 0 || v > score {
				classID, score = c, v
			}
		}
		if score <= floor {
			continue
		}

		cx, cy, w, h := row[0], row[1], row[2], row[3]
		out = append(out, postprocess.RawDetection{
			X1:         (cx - w/2) * sx,
			Y1:         (cy - h/2) * sy,
			X2:         (cx + w/2) * sx,
			Y2:         (cy + h/2) * sy,
			Confidence: score,
			ClassID:    classID,
		})
	}
	return out, nil
}

// transpose returns a copy of the [attrs, anchors] output laid out as [anchors, attrs].
func transpose(output []float32, attrs, anchors int) ([]float32, error) {
	backing := make([]float32, len(output))
	copy(backing, output)

	t := tensor.New(tensor.WithShape(attrs, anchors), tensor.WithBacking(backing))
	if err := t.T(); err != nil {
		return nil, errors.Wrap(err, "transpose output")
	}
	if err := t.Transpose(); err != nil {
		return nil, errors.Wrap(err, "materialize transposed output")
	}

	rows, ok := t.Data().([]float32)
	if !ok {
		return nil, errors.New("transposed output is not float32")
	}
	return rows, nil
}
