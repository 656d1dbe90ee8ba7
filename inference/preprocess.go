package inference

import (
	"image"

	"github.com/pkg/errors"

	"github.com/nvr-ai/go-detect/images"
)

// PrepareInput fills dst with img as a [1, 3, size, size] NCHW float tensor.
//
// The image is resized with Lanczos3 to size x size, and each RGB channel is scaled to
// [0, 1] into its own plane of dst.
//
// Arguments:
//   - img: The image to prepare.
//   - dst: The destination tensor data to populate.
//   - size: The square model input size.
//
// Returns:
//   - error: An error if dst is too small for the input.
//
// @example
// err := PrepareInput(img, session.Input.GetData(), 640)
func PrepareInput(img image.Image, dst []float32, size int) error {
	if size <= 0 {
		return errors.Errorf("invalid input size %d", size)
	}
	channelSize := size * size
	if len(dst) < channelSize*3 {
		return errors.Errorf("destination tensor only holds %d floats, needs %d", len(dst), channelSize*3)
	}
	red := dst[0:channelSize]
	green := dst[channelSize : channelSize*2]
	blue := dst[channelSize*2 : channelSize*3]

	img = images.ResizeImage(img, size, size)
	origin := img.Bounds().Min

	i := 0
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			r, g, b, _ := img.At(origin.X+x, origin.Y+y).RGBA()
			red[i] = float32(r>>8) / 255.0
			green[i] = float32(g>>8) / 255.0
			blue[i] = float32(b>>8) / 255.0
			i++
		}
	}
	return nil
}
