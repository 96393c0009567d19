package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/koios/webdisplay/internal/config"
	"github.com/koios/webdisplay/pkg/models"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// ErrNotFound is returned when no snapshot is mirrored for a device
var ErrNotFound = errors.New("redis: no snapshot for device")

// Client wraps the Redis client used to mirror display snapshots
type Client struct {
	client *redis.Client
	config config.RedisConfig
	logger *zap.Logger
}

// NewClient creates a new Redis client and checks the connection
func NewClient(cfg config.RedisConfig, logger *zap.Logger) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     4,
		PoolTimeout:  10 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// Test the connection
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.Info("Connected to Redis",
		zap.String("addr", cfg.Addr),
		zap.Int("db", cfg.DB),
		zap.String("device_id", cfg.DeviceID))

	return NewClientFromRedis(rdb, cfg, logger), nil
}

// NewClientFromRedis wraps an existing go-redis client
func NewClientFromRedis(rdb *redis.Client, cfg config.RedisConfig, logger *zap.Logger) *Client {
	return &Client{
		client: rdb,
		config: cfg,
		logger: logger,
	}
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.client.Close()
}

// PublishSnapshot stores the snapshot under the device key and announces it
// on the device channel
func (c *Client) PublishSnapshot(ctx context.Context, snap *models.BufferSnapshot) error {
	body, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	key := bufferKey(snap.DeviceID)
	channel := channelName(snap.DeviceID)

	_, err = c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, key, body, c.config.TTL)
		pipe.Publish(ctx, channel, body)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to publish snapshot to %s: %w", channel, err)
	}

	c.logger.Debug("Published display snapshot",
		zap.String("key", key),
		zap.String("channel", channel),
		zap.Int("buffer_length", snap.Buffer.BufferLength))

	return nil
}

// LatestSnapshot reads the mirrored snapshot of a device
func (c *Client) LatestSnapshot(ctx context.Context, deviceID string) (*models.BufferSnapshot, error) {
	key := bufferKey(deviceID)

	body, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get key %s from Redis: %w", key, err)
	}

	var snap models.BufferSnapshot
	if err := json.Unmarshal(body, &snap); err != nil {
		return nil, fmt.Errorf("failed to unmarshal snapshot %s: %w", key, err)
	}
	return &snap, nil
}

// Subscribe returns a subscription to the snapshot channel of a device
func (c *Client) Subscribe(ctx context.Context, deviceID string) *redis.PubSub {
	return c.client.Subscribe(ctx, channelName(deviceID))
}

// IsHealthy checks if Redis connection is healthy
func (c *Client) IsHealthy(ctx context.Context) bool {
	return c.client.Ping(ctx).Err() == nil
}

func bufferKey(deviceID string) string {
	return fmt.Sprintf("webdisplay:%s:buffer", deviceID)
}

func channelName(deviceID string) string {
	return fmt.Sprintf("display:%s", deviceID)
}
