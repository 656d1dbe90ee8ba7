package postprocess

import (
	"sort"

	"github.com/nvr-ai/go-detect/images"
)

// NMSConfig defines parameters for Non-Maximum Suppression.
type NMSConfig struct {
	// ScoreThreshold is the engine's own admission gate (exclusive).
	ScoreThreshold float32 `json:"score_threshold" yaml:"score_threshold"`
	// IoUThreshold is the overlap above which the lower scored box is suppressed.
	IoUThreshold float32 `json:"iou_threshold" yaml:"iou_threshold"`
	// ClassAware restricts suppression to boxes of the same class.
	ClassAware bool `json:"class_aware" yaml:"class_aware"`
}

// DefaultNMSConfig returns the standard suppression parameters.
func DefaultNMSConfig() NMSConfig {
	return NMSConfig{
		ScoreThreshold: 0.4,
		IoUThreshold:   0.5,
	}
}

// Suppress performs greedy Non-Maximum Suppression and returns surviving indices.
//
// Candidates are the detections scoring strictly above cfg.ScoreThreshold. This gate is
// independent of the one applied by Filter, so the engine can be used on unfiltered
// input. Candidates are visited in descending confidence order, ties broken by
// ascending input index; each visited candidate is kept and every later candidate whose
// IoU with it exceeds cfg.IoUThreshold is discarded.
//
// Arguments:
//   - detections: The detections of one frame, in any order.
//   - cfg: NMS configuration.
//
// Returns:
//   - []int: Indices into detections, in selection order. Never nil.
//
// @example
//
//	keep := Suppress([]Detection{
//		{Region: images.Region{X: 0, Y: 0, W: 10, H: 10}, Confidence: 0.9},
//		{Region: images.Region{X: 1, Y: 1, W: 10, H: 10}, Confidence: 0.6},
//	}, DefaultNMSConfig())
//
// // keep == []int{0}
func Suppress(detections []Detection, cfg NMSConfig) []int {
	order := make([]int, 0, len(detections))
	for i, d := range detections {
		if d.Confidence > cfg.ScoreThreshold {
			order = append(order, i)
		}
	}
	if len(order) == 0 {
		return []int{}
	}

	// order starts ascending, so a stable sort keeps ties by index.
	sort.SliceStable(order, func(a, b int) bool {
		return detections[order[a]].Confidence > detections[order[b]].Confidence
	})

	keep := make([]int, 0, len(order))
	used := make([]bool, len(order))

	for i := range order {
		if used[i] {
			continue
		}

		anchor := detections[order[i]]
		keep = append(keep, order[i])
		used[i] = true

		for j := i + 1; j < len(order); j++ {
			if used[j] {
				continue
			}

			candidate := detections[order[j]]
			if cfg.ClassAware && candidate.ClassID != anchor.ClassID {
				continue
			}

			if images.RegionIoU(anchor.Region, candidate.Region) > cfg.IoUThreshold {
				used[j] = true
			}
		}
	}

	return keep
}

// ApplyGreedyNMS runs Suppress and returns the surviving detections themselves.
//
// Arguments:
//   - detections: The detections of one frame.
//   - cfg: NMS configuration.
//
// Returns:
//   - []Detection: The survivors, in selection order.
func ApplyGreedyNMS(detections []Detection, cfg NMSConfig) []Detection {
	keep := Suppress(detections, cfg)

	filtered := make([]Detection, len(keep))
	for i, idx := range keep {
		filtered[i] = detections[idx]
	}
	return filtered
}
