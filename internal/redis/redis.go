// Package redis opens the shared go-redis client that carries both the
// pub/sub bus and the history lists.
package redis

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// Config holds Redis connection settings.
type Config struct {
	URL      string // redis://host:port/db
	Password string
	DB       int
}

// ErrNotConfigured is returned when no URL is set.
var ErrNotConfigured = errors.New("redis url not configured")

// Options parses cfg into client options with the standard timeouts.
func Options(cfg Config) (*redis.Options, error) {
	if cfg.URL == "" {
		return nil, ErrNotConfigured
	}
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	if cfg.Password != "" {
		opts.Password = cfg.Password
	}
	if cfg.DB != 0 {
		opts.DB = cfg.DB
	}
	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 3 * time.Second
	opts.WriteTimeout = 3 * time.Second
	opts.MaxRetries = 3
	return opts, nil
}

// Connect opens a client and pings it. A process that can't reach Redis
// has nothing to do, so callers treat the error as fatal.
func Connect(ctx context.Context, cfg Config) (*redis.Client, error) {
	opts, err := Options(cfg)
	if err != nil {
		return nil, err
	}
	c := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := c.Ping(pingCtx).Err(); err != nil {
		c.Close()
		log.Printf("[Redis] ❌ Connection failed: %v", err)
		return nil, fmt.Errorf("connect %s: %w", opts.Addr, err)
	}

	log.Printf("[Redis] ✅ Connected (%s db=%d)", opts.Addr, opts.DB)
	return c, nil
}

// Close closes c and logs it.
func Close(c *redis.Client) {
	if c == nil {
		return
	}
	if err := c.Close(); err != nil {
		log.Printf("[Redis] ⚠️ Close: %v", err)
		return
	}
	log.Println("[Redis] Connection closed")
}
