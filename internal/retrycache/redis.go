// SPDX-License-Identifier: MIT

package retrycache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// RedisCounter is a Redis-backed Counter. It shares retry state across
// process restarts, not just reconnects.
type RedisCounter struct {
	client *redis.Client
	ttl    time.Duration
	logger zerolog.Logger
}

// RedisConfig holds Redis connection configuration.
type RedisConfig struct {
	Addr     string        // Redis server address (host:port)
	Password string        // Redis password (optional)
	DB       int           // Redis database number
	TTL      time.Duration // expiry per counter key; zero means no expiry
}

const keyPrefix = "retry:"

// NewRedisCounter connects to Redis and verifies the connection.
func NewRedisCounter(config RedisConfig, logger zerolog.Logger) (*RedisCounter, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         config.Addr,
		Password:     config.Password,
		DB:           config.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("retrycache: redis connection failed: %w", err)
	}

	logger.Info().
		Str("addr", config.Addr).
		Int("db", config.DB).
		Msg("connected to Redis retry counter")

	return &RedisCounter{client: client, ttl: config.TTL, logger: logger}, nil
}

func (c *RedisCounter) Incr(ctx context.Context, messageID string) (int, error) {
	key := keyPrefix + messageID
	count, err := c.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("retrycache: incr %s: %w", messageID, err)
	}
	if c.ttl > 0 {
		if err := c.client.Expire(ctx, key, c.ttl).Err(); err != nil {
			c.logger.Warn().Err(err).Str("key", key).Msg("redis expire failed")
		}
	}
	return int(count), nil
}

func (c *RedisCounter) Get(ctx context.Context, messageID string) (int, error) {
	count, err := c.client.Get(ctx, keyPrefix+messageID).Int()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("retrycache: get %s: %w", messageID, err)
	}
	return count, nil
}

func (c *RedisCounter) Reset(ctx context.Context, messageID string) error {
	if err := c.client.Del(ctx, keyPrefix+messageID).Err(); err != nil {
		return fmt.Errorf("retrycache: reset %s: %w", messageID, err)
	}
	return nil
}

func (c *RedisCounter) Close() error {
	return c.client.Close()
}

var _ Counter = (*RedisCounter)(nil)
