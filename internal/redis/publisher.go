package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/koios/webdisplay/pkg/models"
	"go.uber.org/zap"
)

// SnapshotEncoder produces display buffer payloads
type SnapshotEncoder interface {
	Encode() (*models.DisplayBuffer, error)
}

type snapshotStore interface {
	PublishSnapshot(ctx context.Context, snap *models.BufferSnapshot) error
}

// Publisher periodically mirrors the display buffer to Redis. A snapshot is
// only published when the buffer content changed since the last publish.
type Publisher struct {
	store    snapshotStore
	encoder  SnapshotEncoder
	deviceID string
	interval time.Duration
	logger   *zap.Logger
	now      func() time.Time

	last *models.DisplayBuffer
}

// NewPublisher creates a new snapshot publisher
func NewPublisher(client *Client, encoder SnapshotEncoder, logger *zap.Logger) *Publisher {
	return newPublisher(client, encoder, client.config.DeviceID, client.config.PublishInterval, logger)
}

func newPublisher(store snapshotStore, encoder SnapshotEncoder, deviceID string, interval time.Duration, logger *zap.Logger) *Publisher {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	return &Publisher{
		store:    store,
		encoder:  encoder,
		deviceID: deviceID,
		interval: interval,
		logger:   logger,
		now:      time.Now,
	}
}

// Run publishes snapshots until ctx is cancelled
func (p *Publisher) Run(ctx context.Context) {
	p.logger.Info("Starting snapshot publisher",
		zap.String("device_id", p.deviceID),
		zap.Duration("interval", p.interval))

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		if _, err := p.PublishOnce(ctx); err != nil && ctx.Err() == nil {
			p.logger.Error("Failed to publish display snapshot", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			p.logger.Info("Snapshot publisher stopped")
			return
		case <-ticker.C:
		}
	}
}

// PublishOnce takes a snapshot and publishes it if it changed. It reports
// whether a snapshot was published.
func (p *Publisher) PublishOnce(ctx context.Context) (bool, error) {
	buffer, err := p.encoder.Encode()
	if err != nil {
		return false, fmt.Errorf("failed to encode snapshot: %w", err)
	}

	if p.last != nil && *p.last == *buffer {
		return false, nil
	}

	snap := &models.BufferSnapshot{
		DeviceID:   p.deviceID,
		Buffer:     *buffer,
		CapturedAt: p.now().UTC(),
	}
	if err := p.store.PublishSnapshot(ctx, snap); err != nil {
		return false, err
	}

	p.last = buffer
	return true, nil
}
