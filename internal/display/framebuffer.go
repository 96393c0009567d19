package display

import (
	"image"
	"image/color"
	"image/draw"
	"sync"
)

// pageImage is a 1-bit per pixel image stored in pages of 8 rows. Each byte
// holds a vertical strip of 8 pixels, least significant bit on top.
type pageImage struct {
	rect   image.Rectangle
	stride int
	pix    []byte
}

func (p *pageImage) ColorModel() color.Model { return MonoModel }

func (p *pageImage) Bounds() image.Rectangle { return p.rect }

func (p *pageImage) At(x, y int) color.Color {
	if !(image.Point{X: x, Y: y}).In(p.rect) {
		return color.Transparent
	}
	var (
		pos = y/8*p.stride + x
		bit = byte(1) << uint(y&7)
	)
	return Mono{On: p.pix[pos]&bit != 0}
}

func (p *pageImage) Set(x, y int, c color.Color) {
	if !(image.Point{X: x, Y: y}).In(p.rect) {
		return
	}
	var (
		pos = y/8*p.stride + x
		bit = byte(1) << uint(y&7)
	)
	if monoModel(c).(Mono).On {
		p.pix[pos] |= bit
	} else {
		p.pix[pos] &^= bit
	}
}

func (p *pageImage) fill(value byte) {
	for i := range p.pix {
		p.pix[i] = value
	}
}

// Framebuffer is a monochrome display buffer shared between the code drawing
// on it and the code taking snapshots of it. It is safe for concurrent use.
type Framebuffer struct {
	mu   sync.RWMutex
	info Info
	img  pageImage
}

// NewFramebuffer allocates a cleared framebuffer.
func NewFramebuffer(t Type, width, height int) (*Framebuffer, error) {
	info, err := NewInfo(t, width, height)
	if err != nil {
		return nil, err
	}

	return &Framebuffer{
		info: info,
		img: pageImage{
			rect:   image.Rect(0, 0, width, height),
			stride: info.TileWidth * TileSize,
			pix:    make([]byte, info.BufferSize),
		},
	}, nil
}

// DisplayInfo returns the display geometry.
func (fb *Framebuffer) DisplayInfo() Info {
	return fb.info
}

// CopyBuffer copies the raw framebuffer into dst and returns the number of
// bytes copied, which is at most len(dst).
func (fb *Framebuffer) CopyBuffer(dst []byte) int {
	fb.mu.RLock()
	defer fb.mu.RUnlock()
	return copy(dst, fb.img.pix)
}

// Load replaces the framebuffer content with raw page data.
func (fb *Framebuffer) Load(src []byte) int {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	return copy(fb.img.pix, src)
}

// Update runs fn with exclusive access to the framebuffer, so snapshots never
// observe a partially drawn frame. dst must not be retained after fn returns.
func (fb *Framebuffer) Update(fn func(dst draw.Image)) {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	fn(&fb.img)
}

func (fb *Framebuffer) ColorModel() color.Model { return MonoModel }

func (fb *Framebuffer) Bounds() image.Rectangle { return fb.img.rect }

func (fb *Framebuffer) At(x, y int) color.Color {
	fb.mu.RLock()
	defer fb.mu.RUnlock()
	return fb.img.At(x, y)
}

func (fb *Framebuffer) Set(x, y int, c color.Color) {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	fb.img.Set(x, y, c)
}

// Clear turns all pixels off.
func (fb *Framebuffer) Clear() {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	fb.img.fill(0x00)
}

// Fill sets all pixels to a single color.
func (fb *Framebuffer) Fill(c color.Color) {
	var value byte
	if monoModel(c).(Mono).On {
		value = 0xff
	}
	fb.mu.Lock()
	defer fb.mu.Unlock()
	fb.img.fill(value)
}
