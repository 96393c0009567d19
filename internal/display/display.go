// Package display contains the in-process display driver: a monochrome
// framebuffer in the page layout used by SSD1xxx style controllers, text
// rendering onto it and an optional I²C panel mirror.
package display

import (
	"errors"
	"fmt"
)

// MaxBufferSize is the largest framebuffer supported (128x64, 1 bit per pixel).
const MaxBufferSize = 128 * 64 / 8

// TileSize is the width and height of a tile in pixels.
const TileSize = 8

// Errors
var (
	ErrBounds      = errors.New("display: framebuffer exceeds maximum buffer size")
	ErrInvalidSize = errors.New("display: invalid display size")
)

// Type identifies the physical panel type.
type Type uint8

// Supported panel types. The values are reported to clients as DisplayType.
const (
	None Type = iota
	PCD8544
	SSD1306
	SH1106
	SSD1309
	ST7567
)

func (t Type) String() string {
	switch t {
	case None:
		return "None"
	case PCD8544:
		return "PCD8544"
	case SSD1306:
		return "SSD1306"
	case SH1106:
		return "SH1106"
	case SSD1309:
		return "SSD1309"
	case ST7567:
		return "ST7567_GM12864I_59N"
	default:
		return fmt.Sprintf("Type(%d)", uint8(t))
	}
}

// Info describes display geometry and buffer layout.
type Info struct {
	Type Type

	// Height and Width in pixels.
	Height int
	Width  int

	// TileHeight and TileWidth are the number of 8x8 tiles per column and row.
	TileHeight int
	TileWidth  int

	// BufferSize is the framebuffer size in bytes.
	BufferSize int
}

// NewInfo computes the tile layout for a display of the given size.
func NewInfo(t Type, width, height int) (Info, error) {
	if width <= 0 || height <= 0 {
		return Info{}, fmt.Errorf("%w: %dx%d", ErrInvalidSize, width, height)
	}

	var (
		tileWidth  = (width + TileSize - 1) / TileSize
		tileHeight = (height + TileSize - 1) / TileSize
		size       = tileWidth * TileSize * tileHeight
	)
	if size > MaxBufferSize {
		return Info{}, fmt.Errorf("%w: %dx%d needs %d bytes", ErrBounds, width, height, size)
	}

	return Info{
		Type:       t,
		Height:     height,
		Width:      width,
		TileHeight: tileHeight,
		TileWidth:  tileWidth,
		BufferSize: size,
	}, nil
}
