package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/koios/webdisplay/internal/config"
	"github.com/koios/webdisplay/pkg/models"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func TestClient(t *testing.T) {
	// This test requires a running Redis instance
	// Skip if Redis is not available
	cfg := config.RedisConfig{
		Addr: "localhost:6379",
		DB:   1, // Use a test database
		TTL:  time.Minute,
	}

	rdb := redis.NewClient(&redis.Options{Addr: cfg.Addr, DB: cfg.DB})
	ctx := context.Background()
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		t.Skipf("Redis not available: %v", err)
	}

	client := NewClientFromRedis(rdb, cfg, zap.NewNop())
	defer client.Close()

	deviceID := "test-device"
	rdb.Del(ctx, bufferKey(deviceID))

	t.Run("IsHealthy", func(t *testing.T) {
		if !client.IsHealthy(ctx) {
			t.Error("expected a reachable Redis to be healthy")
		}
	})

	t.Run("LatestSnapshot not found", func(t *testing.T) {
		if _, err := client.LatestSnapshot(ctx, deviceID); !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("Publish and read back", func(t *testing.T) {
		sub := client.Subscribe(ctx, deviceID)
		defer sub.Close()
		if _, err := sub.Receive(ctx); err != nil {
			t.Fatalf("Failed to subscribe: %v", err)
		}

		snap := &models.BufferSnapshot{
			DeviceID: deviceID,
			Buffer: models.DisplayBuffer{
				DisplayType:      2,
				DisplayHeight:    64,
				DisplayWidth:     128,
				BufferTileHeight: 8,
				BufferTileWidth:  16,
				BufferLength:     3,
				BufferContent:    "00ff0a",
			},
			CapturedAt: time.Now().UTC().Truncate(time.Second),
		}
		if err := client.PublishSnapshot(ctx, snap); err != nil {
			t.Fatalf("PublishSnapshot: %v", err)
		}

		got, err := client.LatestSnapshot(ctx, deviceID)
		if err != nil {
			t.Fatalf("LatestSnapshot: %v", err)
		}
		if got.Buffer != snap.Buffer {
			t.Errorf("got %+v, want %+v", got.Buffer, snap.Buffer)
		}

		ttl, err := rdb.TTL(ctx, bufferKey(deviceID)).Result()
		if err != nil {
			t.Fatalf("TTL: %v", err)
		}
		if ttl <= 0 || ttl > time.Minute {
			t.Errorf("TTL = %v, want within (0, 1m]", ttl)
		}

		msgCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		msg, err := sub.ReceiveMessage(msgCtx)
		if err != nil {
			t.Fatalf("ReceiveMessage: %v", err)
		}
		if msg.Channel != "display:test-device" {
			t.Errorf("Channel = %q", msg.Channel)
		}
	})

	// Clean up
	rdb.Del(ctx, bufferKey(deviceID))
}
