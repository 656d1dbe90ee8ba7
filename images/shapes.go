// Package images - Pixel-space geometry and frame helpers.
package images

import "image"

// Rect is a corner-form box.
type Rect struct {
	// X2,Y2 are exclusive (like image.Rectangle).
	X1, Y1, X2, Y2 int
}

// Region is an origin+extent box in pixel coordinates.
//
// W and H are never negative for a Region built by NewRegion or Rect.Region.
type Region struct {
	X, Y int
	W, H int
}

// NewRegion builds a Region from two arbitrary corners.
//
// The corners are put in canonical order before the extent is derived, so the result
// always has W >= 0 and H >= 0.
//
// Arguments:
//   - x1, y1: The first corner.
//   - x2, y2: The opposite corner.
//
// Returns:
//   - Region: The canonical region.
//
// @example
// r := NewRegion(10, 10, 0, 0) // Region{X: 0, Y: 0, W: 10, H: 10}
func NewRegion(x1, y1, x2, y2 int) Region {
	return Rect{X1: x1, Y1: y1, X2: x2, Y2: y2}.Region()
}

// Region converts the corner form into origin+extent form.
func (r Rect) Region() Region {
	return Region{
		X: min(r.X1, r.X2),
		Y: min(r.Y1, r.Y2),
		W: max(r.X1, r.X2) - min(r.X1, r.X2),
		H: max(r.Y1, r.Y2) - min(r.Y1, r.Y2),
	}
}

// Rect converts the region back into corner form.
func (r Region) Rect() Rect {
	return Rect{X1: r.X, Y1: r.Y, X2: r.X + r.W, Y2: r.Y + r.H}
}

// Rectangle returns the region as an image.Rectangle for drawing APIs.
func (r Region) Rectangle() image.Rectangle {
	return image.Rect(r.X, r.Y, r.X+r.W, r.Y+r.H)
}

// Area returns W*H.
func (r Region) Area() int {
	return r.W * r.H
}

// Empty reports whether the region covers no pixels.
func (r Region) Empty() bool {
	return r.W <= 0 || r.H <= 0
}

// CalculateIoU returns the Intersection over Union of two corner-form boxes.
//
// The intersection is bounded by the larger of the two start corners and the smaller of
// the two end corners. Boxes that only touch, or do not meet at all, have an IoU of 0.
// A zero union (two empty boxes) also yields 0 instead of NaN.
//
//	IoU = Area(A ∩ B) / (Area(A) + Area(B) - Area(A ∩ B))
//
// Arguments:
//   - r: The first box.
//   - o: The other box.
//
// Returns:
//   - float32: A value in [0, 1].
//
// @example
// iou := CalculateIoU(Rect{0, 0, 10, 10}, Rect{5, 5, 15, 15}) // 25 / 175 = 0.142857
func CalculateIoU(r, o Rect) float32 {
	ix1 := max(r.X1, o.X1)
	iy1 := max(r.Y1, o.Y1)
	ix2 := min(r.X2, o.X2)
	iy2 := min(r.Y2, o.Y2)

	interW := ix2 - ix1
	interH := iy2 - iy1
	if interW <= 0 || interH <= 0 {
		return 0.0
	}
	interArea := interW * interH

	areaR := (r.X2 - r.X1) * (r.Y2 - r.Y1)
	areaO := (o.X2 - o.X1) * (o.Y2 - o.Y1)
	unionArea := areaR + areaO - interArea
	if unionArea <= 0 {
		return 0.0
	}

	// Cast before dividing; integer division would truncate to 0.
	return float32(interArea) / float32(unionArea)
}

// RegionIoU is CalculateIoU for origin+extent regions.
func RegionIoU(a, b Region) float32 {
	return CalculateIoU(a.Rect(), b.Rect())
}
