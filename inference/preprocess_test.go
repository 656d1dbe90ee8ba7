package inference

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrepareInput_Layout(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	img.Set(0, 0, color.RGBA{255, 0, 0, 255})
	img.Set(1, 0, color.RGBA{0, 255, 0, 255})
	img.Set(0, 1, color.RGBA{0, 0, 255, 255})
	img.Set(1, 1, color.RGBA{51, 102, 204, 255})

	dst := make([]float32, 3*2*2)
	require.NoError(t, PrepareInput(img, dst, 2))

	red, green, blue := dst[0:4], dst[4:8], dst[8:12]
	assert.Equal(t, []float32{1, 0, 0, 0.2}, red)
	assert.Equal(t, []float32{0, 1, 0, 0.4}, green)
	assert.Equal(t, []float32{0, 0, 1, 0.8}, blue)
}

func TestPrepareInput_NonZeroOrigin(t *testing.T) {
	img := image.NewRGBA(image.Rect(5, 5, 6, 6))
	img.Set(5, 5, color.RGBA{255, 255, 255, 255})

	dst := make([]float32, 3)
	require.NoError(t, PrepareInput(img, dst, 1))
	assert.Equal(t, []float32{1, 1, 1}, dst)
}

func TestPrepareInput_Resizes(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 32, 16))
	for i := range img.Pix {
		img.Pix[i] = 255
	}

	dst := make([]float32, 3*8*8)
	require.NoError(t, PrepareInput(img, dst, 8))
	for _, v := range dst {
		assert.InDelta(t, 1.0, v, 0.01)
	}
}

func TestPrepareInput_Errors(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))

	assert.Error(t, PrepareInput(img, make([]float32, 10), 4))
	assert.Error(t, PrepareInput(img, make([]float32, 48), 0))
}
