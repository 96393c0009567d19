package display

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/devices/v3/ssd1306"
	"periph.io/x/host/v3"
)

// ErrPanelUnsupported is returned for panel types without a hardware driver.
var ErrPanelUnsupported = errors.New("display: no panel driver for display type")

// Source provides the raw framebuffer bytes to flush.
type Source interface {
	CopyBuffer(dst []byte) int
}

// pageWriter is a controller accepting a full page-layout framebuffer.
type pageWriter interface {
	Write(pixels []byte) (int, error)
	Halt() error
}

// PanelConfig describes the I²C bus the panel is attached to.
type PanelConfig struct {
	// Bus is the I²C bus name, empty to use the first available bus.
	Bus string
}

// Panel mirrors a framebuffer to a physical OLED controller.
type Panel struct {
	dev    pageWriter
	bus    io.Closer
	buf    []byte
	name   string
	halted bool
}

// OpenPanel initializes the host drivers, opens the I²C bus and sets up the
// controller for the given display.
func OpenPanel(config PanelConfig, info Info) (*Panel, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize host drivers: %w", err)
	}

	bus, err := i2creg.Open(busName(config.Bus))
	if err != nil {
		return nil, fmt.Errorf("failed to open I²C bus %q: %w", config.Bus, err)
	}

	p, err := NewI2CPanel(bus, info)
	if err != nil {
		_ = bus.Close()
		return nil, err
	}
	p.bus = bus

	return p, nil
}

// NewI2CPanel sets up an SSD1306 compatible controller on an open bus.
func NewI2CPanel(bus i2c.Bus, info Info) (*Panel, error) {
	switch info.Type {
	case SSD1306, SH1106, SSD1309:
	default:
		return nil, fmt.Errorf("%w: %s", ErrPanelUnsupported, info.Type)
	}

	opts := ssd1306.DefaultOpts
	opts.W = info.Width
	opts.H = info.Height

	dev, err := ssd1306.NewI2C(bus, &opts)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize %s: %w", info.Type, err)
	}

	return newPanel(dev, info), nil
}

func newPanel(dev pageWriter, info Info) *Panel {
	return &Panel{
		dev:  dev,
		buf:  make([]byte, info.BufferSize),
		name: fmt.Sprintf("%s %dx%d", info.Type, info.Width, info.Height),
	}
}

func (p *Panel) String() string {
	return p.name
}

// Flush copies the source framebuffer to the panel.
func (p *Panel) Flush(src Source) error {
	n := src.CopyBuffer(p.buf)
	if _, err := p.dev.Write(p.buf[:n]); err != nil {
		return fmt.Errorf("failed to write %d bytes to panel: %w", n, err)
	}
	return nil
}

// Close turns the panel off and releases the bus.
func (p *Panel) Close() error {
	var err error
	if !p.halted {
		err = p.dev.Halt()
		p.halted = true
	}
	if p.bus != nil {
		if cerr := p.bus.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

func busName(bus string) string {
	switch strings.ToLower(strings.TrimSpace(bus)) {
	case "-", "default", "auto":
		return ""
	default:
		return bus
	}
}
