package rediscli

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/redis/go-redis/v9"
)

type Config struct {
	Addr     string
	Password string
	User     string
	DB       int
	// MaxRetries bounds the startup ping retries; 0 means 5.
	MaxRetries uint64
	// RetryInterval is the first delay between pings; 0 means 1s.
	RetryInterval time.Duration
}

// NewClient connects and pings Redis; the caller owns Close.
func NewClient(ctx context.Context, cfg Config) (*redis.Client, error) {
	if cfg.Addr == "" {
		return nil, fmt.Errorf("empty redis addr")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Username: cfg.User,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	err := backoff.Retry(func() error {
		pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		return client.Ping(pingCtx).Err()
	}, startupBackOff(ctx, cfg.MaxRetries, cfg.RetryInterval))
	if err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return client, nil
}

func startupBackOff(ctx context.Context, maxRetries uint64, interval time.Duration) backoff.BackOff {
	if maxRetries == 0 {
		maxRetries = 5
	}
	if interval <= 0 {
		interval = time.Second
	}

	return backoff.WithContext(
		backoff.WithMaxRetries(
			backoff.NewExponentialBackOff(
				backoff.WithInitialInterval(interval),
				backoff.WithMaxInterval(30*time.Second),
			),
			maxRetries,
		),
		ctx,
	)
}
