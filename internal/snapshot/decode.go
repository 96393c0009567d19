package snapshot

import (
	"encoding/hex"
	"errors"
	"fmt"
	"image"
	"image/color"
	"math"
	"strings"

	"github.com/koios/webdisplay/pkg/models"
)

// ErrMalformed is returned for payloads whose content does not match their metadata.
var ErrMalformed = errors.New("snapshot: malformed display buffer")

// Decode returns the raw framebuffer bytes carried by a payload.
func Decode(p *models.DisplayBuffer) ([]byte, error) {
	if p.BufferLength < 0 || p.BufferLength > MaxLen {
		return nil, fmt.Errorf("%w: buffer length %d", ErrMalformed, p.BufferLength)
	}
	if len(p.BufferContent) != 2*p.BufferLength {
		return nil, fmt.Errorf("%w: %d hex digits for %d bytes", ErrMalformed, len(p.BufferContent), p.BufferLength)
	}

	data, err := hex.DecodeString(p.BufferContent)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return data, nil
}

// LineBuffer is a decoded framebuffer, indexed [row][column].
type LineBuffer [][]bool

// NewLineBuffer decodes a payload into rows of pixels. The buffer covers the
// whole tile area, which can be larger than the display itself.
func NewLineBuffer(p *models.DisplayBuffer) (LineBuffer, error) {
	data, err := Decode(p)
	if err != nil {
		return nil, err
	}

	var (
		rows    = p.BufferTileHeight * 8
		columns = p.BufferTileWidth * 8
	)
	if p.BufferTileHeight < 0 || p.BufferTileWidth < 0 ||
		p.BufferTileHeight > MaxLen || p.BufferTileWidth > MaxLen ||
		rows*columns > MaxLen*8 {
		return nil, fmt.Errorf("%w: tile layout %dx%d", ErrMalformed, p.BufferTileWidth, p.BufferTileHeight)
	}

	lb := make(LineBuffer, rows)
	for y := range lb {
		lb[y] = make([]bool, columns)
	}

	offset := 0
	for y := 0; y < rows; y += 8 {
		for x := 0; x < columns; x++ {
			if offset >= len(data) {
				return lb, nil
			}
			for yy := 0; yy < 8; yy++ {
				if data[offset]&(1<<uint(yy)) != 0 {
					lb[y+yy][x] = true
				}
			}
			offset++
		}
	}
	return lb, nil
}

// Size returns the number of columns and rows.
func (lb LineBuffer) Size() (columns, rows int) {
	if len(lb) == 0 {
		return 0, 0
	}
	return len(lb[0]), len(lb)
}

// Text renders the visible part of the line buffer as text art, one line per
// pixel row.
func (lb LineBuffer) Text(width, height int, on, off rune) string {
	var b strings.Builder
	for y := 0; y < height && y < len(lb); y++ {
		row := lb[y]
		for x := 0; x < width && x < len(row); x++ {
			if row[x] {
				b.WriteRune(on)
			} else {
				b.WriteRune(off)
			}
		}
		b.WriteByte('\n')
	}
	return b.String()
}

// Image renders the visible part of the line buffer, scale pixels per dot.
func (lb LineBuffer) Image(width, height, scale int, on, off color.Color) *image.RGBA {
	return render(width, height, scale, func(x, y int) color.Color {
		if y < len(lb) && x < len(lb[y]) && lb[y][x] {
			return on
		}
		return off
	})
}

// HeatMap accumulates the most recent line buffers to show how often each
// pixel was on.
type HeatMap struct {
	size    int
	history []LineBuffer
}

// NewHeatMap keeps up to size line buffers.
func NewHeatMap(size int) *HeatMap {
	if size < 1 {
		size = 1
	}
	return &HeatMap{size: size}
}

// Add appends a line buffer, dropping the oldest ones beyond capacity.
func (h *HeatMap) Add(lb LineBuffer) {
	h.history = append(h.history, lb)
	if over := len(h.history) - h.size; over > 0 {
		h.history = h.history[over:]
	}
}

// Len returns the number of buffered line buffers.
func (h *HeatMap) Len() int {
	return len(h.history)
}

// Ratio returns the fraction of buffered frames in which (x, y) was on.
func (h *HeatMap) Ratio(x, y int) float64 {
	if len(h.history) == 0 {
		return 0
	}
	var on int
	for _, lb := range h.history {
		if y < len(lb) && x < len(lb[y]) && lb[y][x] {
			on++
		}
	}
	return float64(on) / float64(len(h.history))
}

// Text renders the heat map as text art. ramp runs from cold to hot; a pixel
// that was never on uses ramp[0].
func (h *HeatMap) Text(width, height int, ramp []rune) string {
	if len(ramp) == 0 {
		return ""
	}
	var b strings.Builder
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			b.WriteRune(ramp[heatLevel(h.Ratio(x, y), len(ramp))])
		}
		b.WriteByte('\n')
	}
	return b.String()
}

func heatLevel(v float64, levels int) int {
	if v <= 0 || levels < 2 {
		return 0
	}
	i := int(math.Ceil(v * float64(levels-1)))
	if i >= levels {
		i = levels - 1
	}
	return i
}

// Image renders the heat map, blue for cold and red for hot pixels.
func (h *HeatMap) Image(width, height, scale int) *image.RGBA {
	return render(width, height, scale, func(x, y int) color.Color {
		return HeatColor(h.Ratio(x, y))
	})
}

// HeatColor maps 0..1 onto the hue range 240° (blue) to 0° (red) at full
// saturation and 50% lightness.
func HeatColor(v float64) color.RGBA {
	v = math.Max(0, math.Min(1, v))
	hue := (1 - v) * 240

	// HSL to RGB with s=1, l=0.5
	var (
		c = 1.0
		x = c * (1 - math.Abs(math.Mod(hue/60, 2)-1))
		r, g, b float64
	)
	switch {
	case hue < 60:
		r, g, b = c, x, 0
	case hue < 120:
		r, g, b = x, c, 0
	case hue < 180:
		r, g, b = 0, c, x
	default:
		r, g, b = 0, x, c
	}
	return color.RGBA{
		R: uint8(math.Round(r * 255)),
		G: uint8(math.Round(g * 255)),
		B: uint8(math.Round(b * 255)),
		A: 0xff,
	}
}

func render(width, height, scale int, at func(x, y int) color.Color) *image.RGBA {
	if scale < 1 {
		scale = 1
	}
	img := image.NewRGBA(image.Rect(0, 0, width*scale, height*scale))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			c := at(x, y)
			for dy := 0; dy < scale; dy++ {
				for dx := 0; dx < scale; dx++ {
					img.Set(x*scale+dx, y*scale+dy, c)
				}
			}
		}
	}
	return img
}
