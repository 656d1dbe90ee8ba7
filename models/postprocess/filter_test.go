package postprocess

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nvr-ai/go-detect/images"
	"github.com/nvr-ai/go-detect/models"
)

func TestFilter_Threshold(t *testing.T) {
	tests := []struct {
		name       string
		confidence float32
		admitted   bool
	}{
		{"Below threshold", 0.39, false},
		{"At threshold", 0.4, false},
		{"Just above threshold", 0.4001, true},
		{"High confidence", 0.9, true},
		{"Certain", 1.0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := []RawDetection{{X1: 0, Y1: 0, X2: 10, Y2: 10, Confidence: tt.confidence}}
			dets := Filter(raw, DefaultFilterConfig())
			if tt.admitted {
				require.Len(t, dets, 1)
				assert.Equal(t, tt.confidence, dets[0].Confidence)
			} else {
				assert.Empty(t, dets)
			}
		})
	}
}

func TestFilter_Malformed(t *testing.T) {
	raw := []RawDetection{
		{X1: 0, Y1: 0, X2: 10, Y2: 10, Confidence: float32(math.NaN())},
		{X1: 0, Y1: 0, X2: 10, Y2: 10, Confidence: -0.5},
		{X1: 0, Y1: 0, X2: 10, Y2: 10, Confidence: float32(math.Inf(1))},
		{X1: 0, Y1: 0, X2: 10, Y2: 10, Confidence: 1.5},
		{X1: 0, Y1: 0, X2: 10, Y2: 10, Confidence: 0.9, ClassID: -3},
		{X1: float32(math.NaN()), Y1: 0, X2: 10, Y2: 10, Confidence: 0.9},
		{X1: 0, Y1: 0, X2: 10, Y2: 10, Confidence: 0.8, ClassID: 2},
	}

	dets := Filter(raw, DefaultFilterConfig())
	require.Len(t, dets, 1)
	assert.Equal(t, 2, dets[0].ClassID)
}

func TestFilter_CoordinateRange(t *testing.T) {
	raw := []RawDetection{
		{X1: 0, Y1: 0, X2: 1e20, Y2: 10, Confidence: 0.9},
		{X1: -1e20, Y1: 0, X2: 10, Y2: 10, Confidence: 0.9},
		{X1: 0, Y1: -1e10, X2: 10, Y2: 10, Confidence: 0.9},
		{X1: 0, Y1: 0, X2: 10, Y2: float32(math.Inf(1)), Confidence: 0.9},
		{X1: -100, Y1: -50, X2: 1e9, Y2: 2e9, Confidence: 0.9, ClassID: 4},
	}

	dets := Filter(raw, DefaultFilterConfig())
	require.Len(t, dets, 1)
	assert.Equal(t, 4, dets[0].ClassID)
	for _, d := range dets {
		assert.GreaterOrEqual(t, d.Region.W, 0)
		assert.GreaterOrEqual(t, d.Region.H, 0)
		assert.Equal(t, -100, d.Region.X)
	}
}

func TestFilter_Geometry(t *testing.T) {
	tests := []struct {
		name     string
		raw      RawDetection
		expected images.Region
	}{
		{
			name:     "Ordered corners",
			raw:      RawDetection{X1: 10, Y1: 20, X2: 110, Y2: 70},
			expected: images.Region{X: 10, Y: 20, W: 100, H: 50},
		},
		{
			name:     "Truncation not rounding",
			raw:      RawDetection{X1: 10.9, Y1: 20.9, X2: 110.9, Y2: 70.9},
			expected: images.Region{X: 10, Y: 20, W: 100, H: 50},
		},
		{
			name:     "Swapped corners",
			raw:      RawDetection{X1: 110, Y1: 70, X2: 10, Y2: 20},
			expected: images.Region{X: 10, Y: 20, W: 100, H: 50},
		},
		{
			name:     "Degenerate box",
			raw:      RawDetection{X1: 5, Y1: 5, X2: 5, Y2: 5},
			expected: images.Region{X: 5, Y: 5},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.raw.Confidence = 0.9
			dets := Filter([]RawDetection{tt.raw}, DefaultFilterConfig())
			require.Len(t, dets, 1)
			assert.Equal(t, tt.expected, dets[0].Region)
			assert.GreaterOrEqual(t, dets[0].Region.W, 0)
			assert.GreaterOrEqual(t, dets[0].Region.H, 0)
		})
	}
}

func TestFilter_PreservesOrderAndNames(t *testing.T) {
	raw := []RawDetection{
		{X2: 1, Y2: 1, Confidence: 0.5, ClassID: 3, Names: models.YOLOClasses},
		{X2: 1, Y2: 1, Confidence: 0.1, ClassID: 4},
		{X2: 1, Y2: 1, Confidence: 0.7, ClassID: 5, Names: models.COCOClasses},
	}

	dets := Filter(raw, DefaultFilterConfig())
	require.Len(t, dets, 2)
	assert.Equal(t, 3, dets[0].ClassID)
	assert.Same(t, models.YOLOClasses, dets[0].Names)
	assert.Equal(t, 5, dets[1].ClassID)
	assert.Same(t, models.COCOClasses, dets[1].Names)
}

func TestFilter_ClassAllowList(t *testing.T) {
	raw := []RawDetection{
		{X2: 1, Y2: 1, Confidence: 0.9, ClassID: 0},
		{X2: 1, Y2: 1, Confidence: 0.9, ClassID: 2},
		{X2: 1, Y2: 1, Confidence: 0.9, ClassID: 7},
	}

	cfg := DefaultFilterConfig()
	cfg.Classes = []int{2, 7}

	dets := Filter(raw, cfg)
	require.Len(t, dets, 2)
	assert.Equal(t, 2, dets[0].ClassID)
	assert.Equal(t, 7, dets[1].ClassID)
}

func TestFilter_Empty(t *testing.T) {
	assert.Empty(t, Filter(nil, DefaultFilterConfig()))
}

func TestFlatten(t *testing.T) {
	own := models.NewOutputClassSet(models.ModelFamilyYOLO, []string{"boat"})
	results := []Result{
		{
			Names: models.YOLOClasses,
			Detections: []RawDetection{
				{Confidence: 0.9, ClassID: 1},
				{Confidence: 0.8, ClassID: 2, Names: own},
			},
		},
		{},
		{
			Names:      models.COCOClasses,
			Detections: []RawDetection{{Confidence: 0.7, ClassID: 3}},
		},
	}

	raw := Flatten(results)
	require.Len(t, raw, 3)
	assert.Same(t, models.YOLOClasses, raw[0].Names)
	assert.Same(t, own, raw[1].Names)
	assert.Same(t, models.COCOClasses, raw[2].Names)
	assert.Equal(t, float32(0.7), raw[2].Confidence)

	assert.Empty(t, Flatten(nil))
}
