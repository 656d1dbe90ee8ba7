package overlay

import (
	"image"
	"sync"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"github.com/pkg/errors"
	"golang.org/x/image/font/gofont/goregular"
)

// hersheyPointSize converts an OpenCV Hershey font scale into a TrueType point size.
// A Hershey simplex glyph at scale 1.0 is roughly 22px tall.
const hersheyPointSize = 22.0

var (
	fontOnce sync.Once
	fontErr  error
	font     *truetype.Font
)

func loadFont() (*truetype.Font, error) {
	fontOnce.Do(func() {
		font, fontErr = truetype.Parse(goregular.TTF)
		fontErr = errors.Wrap(fontErr, "parse goregular font")
	})
	return font, fontErr
}

// Canvas rasterizes render instructions onto Go images without OpenCV.
//
// It backs the headless snapshot display and the single-image command, where frames are
// written to disk instead of shown in a window.
type Canvas struct {
	style Style
	face  *truetype.Font
}

// NewCanvas creates a canvas using the embedded Go Regular font.
//
// Arguments:
//   - style: Outline and label style.
//
// Returns:
//   - *Canvas: The canvas.
//   - error: An error if the embedded font cannot be parsed.
func NewCanvas(style Style) (*Canvas, error) {
	f, err := loadFont()
	if err != nil {
		return nil, err
	}
	return &Canvas{style: style, face: f}, nil
}

// Draw returns a copy of img with every instruction drawn on it.
//
// Arguments:
//   - img: The source frame; it is not modified.
//   - instructions: The boxes and labels of the frame.
//
// Returns:
//   - image.Image: The annotated copy.
func (c *Canvas) Draw(img image.Image, instructions []RenderInstruction) image.Image {
	dc := gg.NewContextForImage(img)
	c.draw(dc, instructions)
	return dc.Image()
}

// SavePNG draws the instructions onto img and writes the result to path.
func (c *Canvas) SavePNG(path string, img image.Image, instructions []RenderInstruction) error {
	dc := gg.NewContextForImage(img)
	c.draw(dc, instructions)
	return errors.Wrapf(dc.SavePNG(path), "save annotated frame to %s", path)
}

func (c *Canvas) draw(dc *gg.Context, instructions []RenderInstruction) {
	size := c.style.FontScale * hersheyPointSize
	if size <= 0 {
		size = DefaultStyle().FontScale * hersheyPointSize
	}
	dc.SetFontFace(truetype.NewFace(c.face, &truetype.Options{Size: size}))
	dc.SetLineWidth(float64(c.style.Thickness))

	for _, ins := range instructions {
		rect := ins.Region.Rectangle()
		origin := c.style.LabelOrigin(rect)

		dc.SetColor(ins.Color.RGBA())
		dc.DrawRectangle(float64(rect.Min.X), float64(rect.Min.Y), float64(rect.Dx()), float64(rect.Dy()))
		dc.Stroke()
		dc.DrawString(ins.Label, float64(origin.X), float64(origin.Y))
	}
}
