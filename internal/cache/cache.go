package cache

import (
	"context"
	"fmt"
	"time"
)

const (
	DriverMemory = "memory"
	DriverRedis  = "redis"
)

type Config struct {
	Driver   string
	RedisURL string
	Prefix   string
	TTL      time.Duration
	Capacity int
}

// Store is a seen set keyed by content fingerprint.
type Store interface {
	Seen(ctx context.Context, key string) (bool, error)
	Mark(ctx context.Context, key string) error
	Clear(ctx context.Context) error
	Close() error
}

func New(ctx context.Context, cfg Config) (Store, error) {
	switch cfg.Driver {
	case "", DriverMemory:
		return NewMemory(cfg.Capacity, cfg.TTL), nil
	case DriverRedis:
		return NewRedis(ctx, cfg.RedisURL, cfg.Prefix, cfg.TTL)
	default:
		return nil, fmt.Errorf("unknown cache driver %q", cfg.Driver)
	}
}
