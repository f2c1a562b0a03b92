package retry

import (
	"context"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/rs/zerolog"
)

// Config holds retry configuration
type Config struct {
	MaxAttempts  uint
	InitialDelay time.Duration
	MaxDelay     time.Duration
	// RetryIf limits retries to errors it accepts. Nil retries every error.
	RetryIf func(error) bool
}

// DefaultConfig returns default retry configuration
func DefaultConfig() Config {
	return Config{
		MaxAttempts:  3,
		InitialDelay: 200 * time.Millisecond,
		MaxDelay:     5 * time.Second,
	}
}

// Do executes fn with exponential backoff until it succeeds, RetryIf rejects the error,
// attempts run out or ctx is done.
func Do(ctx context.Context, cfg Config, fn func() error) error {
	opts := []retry.Option{
		retry.Context(ctx),
		retry.Attempts(cfg.MaxAttempts),
		retry.Delay(cfg.InitialDelay),
		retry.MaxDelay(cfg.MaxDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			zerolog.Ctx(ctx).Debug().Err(err).Uint("attempt", n+1).Msg("Retrying call")
		}),
	}
	if cfg.RetryIf != nil {
		opts = append(opts, retry.RetryIf(cfg.RetryIf))
	}
	return retry.Do(fn, opts...)
}

// DoWithResult executes a function with exponential backoff retry and returns a result
func DoWithResult[T any](ctx context.Context, cfg Config, fn func() (T, error)) (T, error) {
	var result T
	err := Do(ctx, cfg, func() error {
		var err error
		result, err = fn()
		return err
	})
	return result, err
}
