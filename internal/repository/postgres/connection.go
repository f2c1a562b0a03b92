package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/cassiomorais/storefront/internal/infrastructure/config"
	"github.com/cassiomorais/storefront/pkg/retry"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// NewPool creates the PostgreSQL connection pool and waits for the server to answer,
// retrying the initial ping with exponential backoff.
func NewPool(ctx context.Context, cfg *config.DatabaseConfig) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}

	poolConfig.MaxConns = int32(cfg.MaxConnections)
	poolConfig.MinConns = int32(cfg.MinConnections)
	poolConfig.MaxConnLifetime = cfg.ConnMaxLifetime
	poolConfig.MaxConnIdleTime = cfg.ConnMaxIdleTime
	if poolConfig.MaxConnIdleTime <= 0 {
		poolConfig.MaxConnIdleTime = 30 * time.Minute
	}
	poolConfig.HealthCheckPeriod = 1 * time.Minute
	if cfg.SlowQuery > 0 {
		poolConfig.ConnConfig.Tracer = &slowQueryTracer{threshold: cfg.SlowQuery}
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	attempts := cfg.ConnectRetries
	if attempts == 0 {
		attempts = 1
	}
	err = retry.Do(ctx, retry.Config{
		MaxAttempts:  attempts,
		InitialDelay: 500 * time.Millisecond,
		MaxDelay:     5 * time.Second,
	}, func() error {
		return pool.Ping(ctx)
	})
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database after %d attempts: %w", attempts, err)
	}

	return pool, nil
}

type queryStartKey struct{}

type queryStart struct {
	sql   string
	start time.Time
}

// slowQueryTracer logs statements that take longer than threshold to the logger carried by ctx.
type slowQueryTracer struct {
	threshold time.Duration
}

var _ pgx.QueryTracer = (*slowQueryTracer)(nil)

func (t *slowQueryTracer) TraceQueryStart(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryStartData) context.Context {
	return context.WithValue(ctx, queryStartKey{}, queryStart{sql: data.SQL, start: time.Now()})
}

func (t *slowQueryTracer) TraceQueryEnd(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryEndData) {
	qs, ok := ctx.Value(queryStartKey{}).(queryStart)
	if !ok {
		return
	}
	elapsed := time.Since(qs.start)
	if elapsed < t.threshold {
		return
	}
	zerolog.Ctx(ctx).Warn().
		Err(data.Err).
		Dur("duration", elapsed).
		Str("sql", qs.sql).
		Str("command_tag", data.CommandTag.String()).
		Msg("Slow query")
}
