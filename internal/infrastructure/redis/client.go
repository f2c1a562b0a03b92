package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/cassiomorais/storefront/internal/infrastructure/config"
	"github.com/cassiomorais/storefront/pkg/retry"
	"github.com/redis/go-redis/v9"
)

// NewClient connects to Redis and waits for it to answer, retrying the initial ping with
// exponential backoff starting at ConnectRetryDelay.
func NewClient(ctx context.Context, cfg *config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.RedisAddr(),
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 5,
		MaxRetries:   3,
	})

	attempts := uint(5)
	if cfg.ConnectRetries > 0 {
		attempts = uint(cfg.ConnectRetries)
	}
	delay := cfg.ConnectRetryDelay
	if delay <= 0 {
		delay = time.Second
	}

	err := retry.Do(ctx, retry.Config{
		MaxAttempts:  attempts,
		InitialDelay: delay,
		MaxDelay:     10 * delay,
	}, func() error {
		return client.Ping(ctx).Err()
	})
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis after %d attempts: %w", attempts, err)
	}
	return client, nil
}
