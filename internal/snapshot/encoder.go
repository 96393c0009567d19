// Package snapshot turns the current framebuffer of a display driver into the
// JSON payload served to web display clients, and back.
package snapshot

import (
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/koios/webdisplay/internal/display"
	"github.com/koios/webdisplay/pkg/models"
)

// MaxLen is the snapshot capacity in bytes (128x64 pixels, 1 bit per pixel).
const MaxLen = 128 * 64 / 8

// ErrDriverOverflow is returned when the driver claims to have copied more
// bytes than the capacity it was given.
var ErrDriverOverflow = errors.New("snapshot: driver reported more bytes than buffer capacity")

// Driver is the display driver a snapshot is taken from.
type Driver interface {
	// DisplayInfo returns the current geometry.
	DisplayInfo() display.Info

	// CopyBuffer copies the framebuffer into dst and returns the number of
	// bytes written.
	CopyBuffer(dst []byte) int
}

// Encoder builds display buffer payloads from a driver
type Encoder struct {
	driver Driver
}

// NewEncoder creates a new encoder reading from driver
func NewEncoder(driver Driver) *Encoder {
	return &Encoder{
		driver: driver,
	}
}

// Encode takes a snapshot of the framebuffer and returns it hex encoded
// together with the display geometry.
func (e *Encoder) Encode() (*models.DisplayBuffer, error) {
	info := e.driver.DisplayInfo()

	var buf [MaxLen]byte
	n := e.driver.CopyBuffer(buf[:])
	if n < 0 || n > MaxLen {
		return nil, fmt.Errorf("%w: reported %d, capacity %d", ErrDriverOverflow, n, MaxLen)
	}

	return &models.DisplayBuffer{
		DisplayType:      int(info.Type),
		DisplayHeight:    info.Height,
		DisplayWidth:     info.Width,
		BufferTileHeight: info.TileHeight,
		BufferTileWidth:  info.TileWidth,
		BufferLength:     n,
		BufferContent:    hex.EncodeToString(buf[:n]),
	}, nil
}
