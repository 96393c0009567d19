package display

import "image/color"

// Mono is a monochrome pixel color.
type Mono struct {
	On bool
}

// Pixel colors.
var (
	On  = Mono{On: true}
	Off = Mono{On: false}
)

// RGBA implements color.Color.
func (c Mono) RGBA() (r, g, b, a uint32) {
	if c.On {
		return 0xffff, 0xffff, 0xffff, 0xffff
	}
	return 0, 0, 0, 0xffff
}

// MonoModel converts colors to Mono using a luminance threshold.
var MonoModel = color.ModelFunc(monoModel)

func monoModel(c color.Color) color.Color {
	if m, ok := c.(Mono); ok {
		return m
	}
	r, g, b, a := c.RGBA()
	if a < 0x8000 {
		return Off
	}
	y := (19595*r + 38470*g + 7471*b + 1<<15) >> 16
	return Mono{On: y >= 0x8000}
}
