// Command webdisplay shows the display of a device in the terminal or as a
// PNG file. Buffers are polled from the device HTTP API, or followed through
// the Redis snapshot mirror.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/koios/webdisplay/internal/client"
	"github.com/koios/webdisplay/internal/config"
	"github.com/koios/webdisplay/internal/redis"
	"github.com/koios/webdisplay/internal/snapshot"
	"github.com/koios/webdisplay/pkg/models"
	"go.uber.org/zap"
)

const maxScale = 32

var (
	pixelOn  = color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}
	pixelOff = color.RGBA{A: 0xff}

	// never on, then increasingly often on
	heatRamp = []rune(" .:o#")
)

type options struct {
	url      string
	username string
	password string
	rate     time.Duration
	pngPath  string
	history  int
	scale    int
	redis    string
	deviceID string
}

func main() {
	var opts options
	flag.StringVar(&opts.url, "url", os.Getenv("WEBDISPLAY_URL"), "Device URL; or set WEBDISPLAY_URL")
	flag.StringVar(&opts.username, "user", "", "Basic auth username")
	flag.StringVar(&opts.password, "pass", os.Getenv("WEBDISPLAY_PASSWORD"), "Basic auth password; or set WEBDISPLAY_PASSWORD")
	flag.DurationVar(&opts.rate, "rate", 0, "Refresh interval, 0 fetches a single buffer")
	flag.StringVar(&opts.pngPath, "png", "", "Write the display to this PNG file instead of the terminal")
	flag.IntVar(&opts.history, "history", 0, "Render a heat map over the last N buffers, as PNG with -png or as text art")
	flag.IntVar(&opts.scale, "scale", 4, "PNG pixels per display pixel")
	flag.StringVar(&opts.redis, "redis", "", "Follow the Redis snapshot mirror at this address instead of polling")
	flag.StringVar(&opts.deviceID, "device", "", "Device ID of the Redis snapshot mirror")
	flag.Parse()

	logger, err := zap.NewDevelopment()
	if err != nil {
		fmt.Fprintf(os.Stderr, "webdisplay: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, opts, logger); err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintf(os.Stderr, "webdisplay: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, opts options, logger *zap.Logger) error {
	v := newViewer(opts)

	if opts.redis != "" {
		return followRedis(ctx, opts, v, logger)
	}
	return pollDevice(ctx, opts, v, logger)
}

func pollDevice(ctx context.Context, opts options, v *viewer, logger *zap.Logger) error {
	c, err := client.New(opts.url, client.WithBasicAuth(opts.username, opts.password))
	if err != nil {
		return err
	}

	if opts.rate <= 0 {
		buffer, err := c.FetchBuffer(ctx)
		if err != nil {
			return err
		}
		return v.show(buffer)
	}

	ticker := time.NewTicker(opts.rate)
	defer ticker.Stop()

	for {
		buffer, err := c.FetchBuffer(ctx)
		switch {
		case client.IsAuthError(err):
			return err
		case err != nil:
			logger.Warn("Failed to fetch display buffer", zap.String("url", c.BaseURL()), zap.Error(err))
		default:
			if err := v.show(buffer); err != nil {
				return err
			}
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func followRedis(ctx context.Context, opts options, v *viewer, logger *zap.Logger) error {
	if opts.deviceID == "" {
		return errors.New("missing device ID (use -device with -redis)")
	}

	rc, err := redis.NewClient(config.RedisConfig{Addr: opts.redis, DeviceID: opts.deviceID}, logger)
	if err != nil {
		return err
	}
	defer rc.Close()

	sub := rc.Subscribe(ctx, opts.deviceID)
	defer sub.Close()

	snap, err := rc.LatestSnapshot(ctx, opts.deviceID)
	switch {
	case errors.Is(err, redis.ErrNotFound):
		logger.Info("No snapshot mirrored yet, waiting", zap.String("device_id", opts.deviceID))
	case err != nil:
		return err
	default:
		if err := v.show(&snap.Buffer); err != nil {
			return err
		}
		if opts.rate <= 0 {
			return nil
		}
	}

	for {
		msg, err := sub.ReceiveMessage(ctx)
		if err != nil {
			return err
		}

		var snap models.BufferSnapshot
		if err := json.Unmarshal([]byte(msg.Payload), &snap); err != nil {
			logger.Warn("Ignoring malformed snapshot", zap.String("channel", msg.Channel), zap.Error(err))
			continue
		}
		if err := v.show(&snap.Buffer); err != nil {
			return err
		}
		if opts.rate <= 0 {
			return nil
		}
	}
}

// viewer renders buffers to the terminal or a PNG file
type viewer struct {
	out     io.Writer
	pngPath string
	scale   int
	clear   bool
	heat    *snapshot.HeatMap
}

func newViewer(opts options) *viewer {
	v := &viewer{
		out:     os.Stdout,
		pngPath: opts.pngPath,
		scale:   opts.scale,
		clear:   opts.rate > 0,
	}
	if v.scale < 1 {
		v.scale = 1
	} else if v.scale > maxScale {
		v.scale = maxScale
	}
	if opts.history > 0 {
		v.heat = snapshot.NewHeatMap(opts.history)
	}
	return v
}

func (v *viewer) show(buffer *models.DisplayBuffer) error {
	lb, err := snapshot.NewLineBuffer(buffer)
	if err != nil {
		return err
	}

	columns, rows := lb.Size()
	width, height := buffer.DisplayWidth, buffer.DisplayHeight
	if width <= 0 || height <= 0 || width > columns || height > rows {
		width, height = columns, rows
	}

	if v.heat != nil {
		v.heat.Add(lb)
	}

	if v.pngPath != "" {
		var img image.Image
		if v.heat != nil {
			img = v.heat.Image(width, height, v.scale)
		} else {
			img = lb.Image(width, height, v.scale, pixelOn, pixelOff)
		}
		return writePNG(v.pngPath, img)
	}

	if v.clear {
		fmt.Fprint(v.out, "\033[H\033[2J")
	}
	fmt.Fprintf(v.out, "type %d, %dx%d, %d bytes\n", buffer.DisplayType, buffer.DisplayWidth, buffer.DisplayHeight, buffer.BufferLength)
	if v.heat != nil {
		fmt.Fprint(v.out, v.heat.Text(width, height, heatRamp))
		return nil
	}
	fmt.Fprint(v.out, lb.Text(width, height, '#', '.'))
	return nil
}

func writePNG(path string, img image.Image) error {
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", tmp, err)
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("failed to encode PNG: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}
