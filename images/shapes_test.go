package images

import (
	"image"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestIoU_Correctness validates the IoU implementation against known cases.
func TestIoU_Correctness(t *testing.T) {
	tests := []struct {
		name     string
		r1       Rect
		r2       Rect
		expected float32
	}{
		{"Identical rectangles", Rect{0, 0, 100, 100}, Rect{0, 0, 100, 100}, 1.0},
		{"No overlap", Rect{0, 0, 100, 100}, Rect{200, 200, 300, 300}, 0.0},
		{"Touching edges", Rect{0, 0, 100, 100}, Rect{100, 0, 200, 100}, 0.0},
		// intersection=2500, union=17500
		{"Quarter overlap", Rect{0, 0, 100, 100}, Rect{50, 50, 150, 150}, 0.142857},
		// intersection=81, union=100+81-81
		{"Shifted by one", Rect{0, 0, 10, 10}, Rect{1, 1, 10, 10}, 0.81},
		{"One inside other", Rect{0, 0, 100, 100}, Rect{25, 25, 75, 75}, 0.25},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := CalculateIoU(tt.r1, tt.r2)
			assert.InDelta(t, tt.expected, result, 0.001)

			// IoU(A, B) == IoU(B, A)
			assert.InDelta(t, result, CalculateIoU(tt.r2, tt.r1), 0.0001)
		})
	}
}

// TestIoU_vs_ImageRectangle compares against an image.Rectangle based computation.
func TestIoU_vs_ImageRectangle(t *testing.T) {
	testCases := []struct {
		name string
		r1   Rect
		r2   Rect
	}{
		{"No overlap", Rect{0, 0, 100, 100}, Rect{200, 200, 300, 300}},
		{"Partial overlap", Rect{0, 0, 100, 100}, Rect{50, 50, 150, 150}},
		{"Full overlap", Rect{50, 50, 150, 150}, Rect{50, 50, 150, 150}},
		{"Frame sized", Rect{0, 0, 1020, 600}, Rect{510, 300, 1020, 600}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			ir1 := image.Rect(tc.r1.X1, tc.r1.Y1, tc.r1.X2, tc.r1.Y2)
			ir2 := image.Rect(tc.r2.X1, tc.r2.Y1, tc.r2.X2, tc.r2.Y2)
			assert.InDelta(t, imageRectangleIoU(ir1, ir2), CalculateIoU(tc.r1, tc.r2), 0.0001)
		})
	}
}

func imageRectangleIoU(r1, r2 image.Rectangle) float32 {
	intersect := r1.Intersect(r2)
	if intersect.Empty() {
		return 0.0
	}

	intersectArea := intersect.Dx() * intersect.Dy()
	union := r1.Dx()*r1.Dy() + r2.Dx()*r2.Dy() - intersectArea

	return float32(intersectArea) / float32(union)
}

// TestIoU_EdgeCases checks degenerate boxes never leave [0, 1].
func TestIoU_EdgeCases(t *testing.T) {
	tests := []struct {
		name string
		r1   Rect
		r2   Rect
	}{
		{"Zero area rectangle", Rect{0, 0, 0, 0}, Rect{0, 0, 100, 100}},
		{"Both zero area", Rect{0, 0, 0, 0}, Rect{0, 0, 0, 0}},
		{"Negative coordinates", Rect{-100, -100, 0, 0}, Rect{-50, -50, 50, 50}},
		{"Single pixel", Rect{0, 0, 1, 1}, Rect{0, 0, 1, 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, result := range []float32{CalculateIoU(tt.r1, tt.r2), CalculateIoU(tt.r2, tt.r1)} {
				assert.False(t, math.IsNaN(float64(result)))
				assert.GreaterOrEqual(t, result, float32(0))
				assert.LessOrEqual(t, result, float32(1))
			}
		})
	}
}

func TestNewRegion_Canonical(t *testing.T) {
	tests := []struct {
		name           string
		x1, y1, x2, y2 int
		expected       Region
	}{
		{"Ordered", 10, 20, 30, 60, Region{X: 10, Y: 20, W: 20, H: 40}},
		{"Swapped", 30, 60, 10, 20, Region{X: 10, Y: 20, W: 20, H: 40}},
		{"Mixed", 30, 20, 10, 60, Region{X: 10, Y: 20, W: 20, H: 40}},
		{"Degenerate", 5, 5, 5, 5, Region{X: 5, Y: 5}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRegion(tt.x1, tt.y1, tt.x2, tt.y2)
			assert.Equal(t, tt.expected, r)
			assert.GreaterOrEqual(t, r.W, 0)
			assert.GreaterOrEqual(t, r.H, 0)
			assert.Equal(t, r, r.Rect().Region())
		})
	}
}

func TestRegion_Conversions(t *testing.T) {
	r := Region{X: 1, Y: 2, W: 3, H: 4}

	assert.Equal(t, Rect{X1: 1, Y1: 2, X2: 4, Y2: 6}, r.Rect())
	assert.Equal(t, image.Rect(1, 2, 4, 6), r.Rectangle())
	assert.Equal(t, 12, r.Area())
	assert.False(t, r.Empty())
	assert.True(t, Region{X: 1, Y: 1}.Empty())
	assert.InDelta(t, 0.81, RegionIoU(Region{0, 0, 10, 10}, Region{1, 1, 9, 9}), 0.001)
}
