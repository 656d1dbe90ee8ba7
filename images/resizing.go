package images

import (
	"image"

	"github.com/nfnt/resize"
	"github.com/pkg/errors"
	"gocv.io/x/gocv"
)

// ResizeMat scales src to exactly size and writes the result into dst.
//
// Aspect ratio is not preserved; the detector input and the rendered frame share the
// same fixed resolution, so boxes decoded against dst line up with what is displayed.
//
// Arguments:
//   - src: The frame to resize.
//   - dst: The destination Mat, reallocated by OpenCV if needed.
//   - size: Target width (X) and height (Y).
//
// Returns:
//   - error: An error if src is empty or size is not positive.
func ResizeMat(src gocv.Mat, dst *gocv.Mat, size image.Point) error {
	if src.Empty() {
		return errors.New("cannot resize an empty frame")
	}
	if size.X <= 0 || size.Y <= 0 {
		return errors.Errorf("invalid target size %dx%d", size.X, size.Y)
	}
	if src.Cols() == size.X && src.Rows() == size.Y {
		src.CopyTo(dst)
		return nil
	}

	gocv.Resize(src, dst, size, 0, 0, gocv.InterpolationLinear)
	return nil
}

// ResizeImage scales a Go image to width x height using Lanczos3.
//
// Arguments:
//   - img: The source image.
//   - width: Target width in pixels.
//   - height: Target height in pixels.
//
// Returns:
//   - image.Image: The resized image (img itself when already at the target size).
func ResizeImage(img image.Image, width, height int) image.Image {
	b := img.Bounds()
	if b.Dx() == width && b.Dy() == height {
		return img
	}
	return resize.Resize(uint(width), uint(height), img, resize.Lanczos3)
}
