// Package screen keeps the framebuffer filled with a status screen and
// mirrors it to the physical panel.
package screen

import (
	"context"
	"fmt"
	"image/draw"
	"time"

	"github.com/koios/webdisplay/internal/display"
	"go.uber.org/zap"
)

// Canvas is the framebuffer the status screen is drawn into.
type Canvas interface {
	display.Source
	DisplayInfo() display.Info
	Update(fn func(dst draw.Image))
}

// Renderer draws lines of text.
type Renderer interface {
	DrawLines(dst draw.Image, lines []string)
	MaxLines(height int) int
}

// Flusher writes the framebuffer to a device.
type Flusher interface {
	Flush(src display.Source) error
}

// Config holds the status screen settings
type Config struct {
	Title    string
	Hostname string
	Interval time.Duration
}

// Updater redraws the status screen on every tick
type Updater struct {
	canvas   Canvas
	renderer Renderer
	panel    Flusher
	config   Config
	logger   *zap.Logger
	now      func() time.Time
	started  time.Time
	frames   uint64
}

// NewUpdater creates a new status screen updater. panel may be nil when no
// physical display is attached.
func NewUpdater(canvas Canvas, renderer Renderer, panel Flusher, config Config, logger *zap.Logger) *Updater {
	if config.Interval <= 0 {
		config.Interval = time.Second
	}

	u := &Updater{
		canvas:   canvas,
		renderer: renderer,
		panel:    panel,
		config:   config,
		logger:   logger,
		now:      time.Now,
	}
	u.started = u.now()
	return u
}

// Run redraws the screen until ctx is cancelled
func (u *Updater) Run(ctx context.Context) {
	info := u.canvas.DisplayInfo()
	u.logger.Info("Starting screen updater",
		zap.Stringer("display_type", info.Type),
		zap.Int("width", info.Width),
		zap.Int("height", info.Height),
		zap.Duration("interval", u.config.Interval),
		zap.Bool("panel", u.panel != nil))

	ticker := time.NewTicker(u.config.Interval)
	defer ticker.Stop()

	for {
		if err := u.Refresh(); err != nil {
			u.logger.Error("Failed to refresh screen", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			u.logger.Info("Screen updater stopped", zap.Uint64("frames", u.frames))
			return
		case <-ticker.C:
		}
	}
}

// Refresh draws one frame and flushes it to the panel
func (u *Updater) Refresh() error {
	lines := u.Lines()
	u.canvas.Update(func(dst draw.Image) {
		u.renderer.DrawLines(dst, lines)
	})
	u.frames++

	if u.panel == nil {
		return nil
	}
	if err := u.panel.Flush(u.canvas); err != nil {
		return fmt.Errorf("failed to flush panel: %w", err)
	}
	return nil
}

// Lines returns the status lines that fit on the display
func (u *Updater) Lines() []string {
	now := u.now()
	lines := []string{
		u.config.Title,
		u.config.Hostname,
		now.Format("15:04:05"),
		"up " + now.Sub(u.started).Truncate(time.Second).String(),
	}

	if limit := u.renderer.MaxLines(u.canvas.DisplayInfo().Height); limit < len(lines) {
		if limit < 0 {
			limit = 0
		}
		lines = lines[:limit]
	}
	return lines
}
