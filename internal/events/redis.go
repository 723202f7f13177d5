package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisSink fans events out over Redis Pub/Sub, one channel per auction, for
// live consumers such as other WebSocket gateways.
type RedisSink struct {
	client *redis.Client
}

// NewRedisSink connects to Redis and verifies the connection.
func NewRedisSink(ctx context.Context, addr, password string, db int) (*RedisSink, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("events.NewRedisSink: ping %s: %w", addr, err)
	}
	return &RedisSink{client: rdb}, nil
}

// Name implements Sink.
func (s *RedisSink) Name() string { return "redis" }

// Publish implements Sink.
func (s *RedisSink) Publish(ctx context.Context, e Event) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	return s.client.Publish(ctx, Channel(e), data).Err()
}

// Close closes the Redis connection.
func (s *RedisSink) Close() error {
	return s.client.Close()
}
