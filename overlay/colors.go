// Package overlay - Turns post-processed detections into render instructions and
// rasterizes them onto frames.
package overlay

import (
	"image/color"

	colorful "github.com/lucasb-eyer/go-colorful"
)

// ClassColor is the display color of a class.
type ClassColor struct {
	ClassID int
	R, G, B uint8
}

// RGBA returns the color as an opaque color.RGBA.
func (c ClassColor) RGBA() color.RGBA {
	return color.RGBA{R: c.R, G: c.G, B: c.B, A: 255}
}

// Hex returns the color as "#rrggbb".
func (c ClassColor) Hex() string {
	return colorful.Color{
		R: float64(c.R) / 255.0,
		G: float64(c.G) / 255.0,
		B: float64(c.B) / 255.0,
	}.Hex()
}

var (
	baseColors = [3][3]int{{255, 0, 0}, {0, 255, 0}, {0, 0, 255}}
	increments = [3][3]int{{1, -2, 1}, {-2, 1, -1}, {1, -1, 2}}
)

// ColorFor returns the display color of a class.
//
// The class picks one of three base colors by classID mod 3, and each further group of
// three classes shifts the channels by a fixed per-base increment, wrapping modulo 256:
//
//	channel[i] = (base[i] + increment[i] * (classID / 3)) mod 256
//
// The function is pure: the same class always gets the same color, in every frame and
// every run. Negative IDs are folded onto their absolute value.
//
// Arguments:
//   - classID: The detector class index.
//
// Returns:
//   - ClassColor: The color of the class.
//
// @example
// ColorFor(0) // {255, 0, 0}
// ColorFor(3) // {0, 254, 1}
func ColorFor(classID int) ClassColor {
	id := uint64(classID)
	if classID < 0 {
		id = uint64(-(classID + 1)) + 1
	}

	slot := id % uint64(len(baseColors))
	// Only step mod 256 matters for the result, and it keeps the product small.
	step := int(id / uint64(len(baseColors)) % 256)

	var ch [3]uint8
	for i := range ch {
		v := (baseColors[slot][i] + increments[slot][i]*step) % 256
		if v < 0 {
			v += 256
		}
		ch[i] = uint8(v)
	}

	return ClassColor{ClassID: classID, R: ch[0], G: ch[1], B: ch[2]}
}
