package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/koios/webdisplay/internal/config"
	"github.com/koios/webdisplay/internal/display"
	"github.com/koios/webdisplay/internal/handlers"
	"github.com/koios/webdisplay/internal/redis"
	"github.com/koios/webdisplay/internal/screen"
	"github.com/koios/webdisplay/internal/snapshot"
	"github.com/koios/webdisplay/pkg/models"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Geometry used when neither the configuration nor a panel profile gives one
const (
	fallbackWidth  = 128
	fallbackHeight = 64
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	// Resolve the display geometry from the panel catalog
	profiles := models.NewProfileRegistry()
	if cfg.Display.ProfilesPath != "" {
		if err := profiles.LoadFile(cfg.Display.ProfilesPath); err != nil {
			logger.Fatal("Failed to load panel profiles", zap.Error(err))
		}
	}
	for _, p := range profiles.List() {
		logger.Debug("Panel profile",
			zap.Int("type", p.Type),
			zap.String("name", p.Name),
			zap.Int("width", p.Width),
			zap.Int("height", p.Height))
	}
	width, height := resolveGeometry(profiles, cfg.Display)

	fb, err := display.NewFramebuffer(display.Type(cfg.Display.Type), width, height)
	if err != nil {
		logger.Fatal("Failed to create framebuffer",
			zap.Int("display_type", cfg.Display.Type),
			zap.Int("width", width),
			zap.Int("height", height),
			zap.Error(err))
	}
	info := fb.DisplayInfo()
	logger.Info("Framebuffer ready",
		zap.Stringer("display_type", info.Type),
		zap.Int("width", info.Width),
		zap.Int("height", info.Height),
		zap.Int("buffer_size", info.BufferSize))

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var wg sync.WaitGroup

	// Physical panel is optional, the web display works without one
	var flusher screen.Flusher
	var panel *display.Panel
	if cfg.Panel.Enabled {
		panel, err = display.OpenPanel(display.PanelConfig{Bus: cfg.Panel.I2CBus}, info)
		if err != nil {
			logger.Warn("Panel unavailable, continuing without it",
				zap.String("bus", cfg.Panel.I2CBus),
				zap.Error(err))
		} else {
			logger.Info("Panel attached", zap.Stringer("panel", panel))
			flusher = panel
		}
	}

	// Status screen
	renderer, err := display.NewTextRenderer(cfg.Display.FontSize)
	if err != nil {
		logger.Fatal("Failed to create text renderer", zap.Error(err))
	}
	defer renderer.Close()

	updater := screen.NewUpdater(fb, renderer, flusher, screen.Config{
		Title:    cfg.Display.Title,
		Hostname: cfg.Redis.DeviceID,
		Interval: cfg.Display.RefreshInterval,
	}, logger)
	wg.Add(1)
	go func() {
		defer wg.Done()
		updater.Run(ctx)
	}()

	encoder := snapshot.NewEncoder(fb)

	// Redis snapshot mirror is optional
	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient, err = redis.NewClient(cfg.Redis, logger)
		if err != nil {
			logger.Warn("Redis unavailable, snapshot mirroring disabled", zap.Error(err))
		} else {
			publisher := redis.NewPublisher(redisClient, encoder, logger)
			wg.Add(1)
			go func() {
				defer wg.Done()
				publisher.Run(ctx)
			}()
		}
	}

	var authorizer handlers.Authorizer = handlers.AllowAll{}
	if cfg.Auth.Enabled {
		authorizer = handlers.BasicAuth{Username: cfg.Auth.Username, Password: cfg.Auth.Password}
		logger.Info("Display API requires basic auth", zap.String("username", cfg.Auth.Username))
	}

	// Create HTTP server for the display API
	mux := http.NewServeMux()
	displayHandler := handlers.NewDisplayHandler(encoder, authorizer, logger)
	if redisClient != nil {
		displayHandler.AddHealthCheck("redis", redisClient)
	}
	displayHandler.RegisterRoutes(mux)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      mux,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	// Start HTTP server
	go func() {
		logger.Info("Starting HTTP server", zap.Int("port", cfg.Server.Port))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("HTTP server failed", zap.Error(err))
			cancel()
		}
	}()

	// Wait for interrupt signal or a failed server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case <-ctx.Done():
	}

	logger.Info("Shutting down server...")

	// Give outstanding requests a deadline for completion
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown failed", zap.Error(err))
	}

	// Stop the updater and publisher
	cancel()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-shutdownCtx.Done():
		logger.Warn("Shutdown timeout exceeded")
	}

	if panel != nil {
		if err := panel.Close(); err != nil {
			logger.Error("Failed to close panel", zap.Error(err))
		}
	}
	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			logger.Error("Failed to close Redis client", zap.Error(err))
		}
	}

	logger.Info("Server shutdown complete")
}

// newLogger builds a production logger at the given level
func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}

	zapConfig := zap.NewProductionConfig()
	zapConfig.Level = zap.NewAtomicLevelAt(lvl)
	return zapConfig.Build()
}

// resolveGeometry fills in the display size from the panel profile of the
// configured type when width or height is unset
func resolveGeometry(profiles *models.ProfileRegistry, cfg config.DisplayConfig) (int, int) {
	width, height := cfg.Width, cfg.Height

	if profile, ok := profiles.Get(cfg.Type); ok {
		if width <= 0 {
			width = profile.Width
		}
		if height <= 0 {
			height = profile.Height
		}
	}

	if width <= 0 {
		width = fallbackWidth
	}
	if height <= 0 {
		height = fallbackHeight
	}
	return width, height
}
