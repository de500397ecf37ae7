package config

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// NewRedisClient connects using the loaded config and returns nil when the
// server is unreachable so callers can fall back to the in-process session
// registry.
func NewRedisClient(cfg *Config) *redis.Client {
	addr := cfg.REDIS_ADDR
	if addr == "" {
		addr = "localhost:6379"
	}
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: cfg.REDIS_PASSWORD,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil
	}
	return client
}
