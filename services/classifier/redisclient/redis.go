package redisclient

import (
	"context"
	"fmt"
	"time"

	"github.com/indpro-interns-oct-25/chatnshop/services/classifier/config"
	"github.com/redis/go-redis/v9"
)

// Client wraps the shared go-redis connection. main.go creates one at
// startup and wraps it in a kvstore Redis store, which the cache and
// status store share; the queue does not use Redis.
type Client struct {
	c *redis.Client
}

// New creates a Redis client from the provided config. Returns an error
// if the Redis URL cannot be parsed.
func New(cfg *config.Config) (*Client, error) {
	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_URL: %w", err)
	}
	r := redis.NewClient(opt)
	return &Client{c: r}, nil
}

func (r *Client) Ping() error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return r.c.Ping(ctx).Err()
}

// Raw exposes the underlying *redis.Client for packages that need direct
// command access (kvstore's Redis store). Kept as a single accessor
// rather than re-exporting every redis.Cmdable method.
func (r *Client) Raw() *redis.Client {
	return r.c
}
