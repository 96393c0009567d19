package display

import (
	"fmt"
	"image"
	"image/draw"

	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/math/fixed"
)

// TextRenderer draws lines of text onto a monochrome image.
type TextRenderer struct {
	face       font.Face
	lineHeight int
	ascent     int
}

// NewTextRenderer loads the Go Mono font at the given point size (72 DPI, so
// points equal pixels).
func NewTextRenderer(size float64) (*TextRenderer, error) {
	if size <= 0 {
		return nil, fmt.Errorf("display: invalid font size %g", size)
	}

	f, err := truetype.Parse(gomono.TTF)
	if err != nil {
		return nil, fmt.Errorf("failed to parse font: %w", err)
	}

	face := truetype.NewFace(f, &truetype.Options{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	metrics := face.Metrics()

	return &TextRenderer{
		face:       face,
		lineHeight: metrics.Height.Ceil(),
		ascent:     metrics.Ascent.Ceil(),
	}, nil
}

// LineHeight is the vertical distance between baselines in pixels.
func (r *TextRenderer) LineHeight() int {
	return r.lineHeight
}

// MaxLines returns how many lines fit in the given height.
func (r *TextRenderer) MaxLines(height int) int {
	if r.lineHeight <= 0 {
		return 0
	}
	return height / r.lineHeight
}

// DrawLines clears dst and draws one line of text per row. Lines that do not
// fit are dropped.
func (r *TextRenderer) DrawLines(dst draw.Image, lines []string) {
	bounds := dst.Bounds()
	draw.Draw(dst, bounds, image.NewUniform(Off), image.Point{}, draw.Src)

	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(On),
		Face: r.face,
	}
	for i, line := range lines {
		baseline := bounds.Min.Y + r.ascent + i*r.lineHeight
		if baseline > bounds.Max.Y {
			break
		}
		d.Dot = fixed.P(bounds.Min.X, baseline)
		d.DrawString(line)
	}
}

// Close releases the font face.
func (r *TextRenderer) Close() error {
	return r.face.Close()
}
