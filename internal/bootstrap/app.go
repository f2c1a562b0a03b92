package bootstrap

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/cassiomorais/storefront/internal/application/checkout"
	"github.com/cassiomorais/storefront/internal/infrastructure/commerce"
	"github.com/cassiomorais/storefront/internal/infrastructure/config"
	"github.com/cassiomorais/storefront/internal/infrastructure/gateway"
	"github.com/cassiomorais/storefront/internal/infrastructure/observability"
	infraRedis "github.com/cassiomorais/storefront/internal/infrastructure/redis"
	"github.com/cassiomorais/storefront/internal/repository/postgres"
	"github.com/cassiomorais/storefront/pkg/retry"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

type App struct {
	Config  *config.Config
	Logger  zerolog.Logger
	Pool    *pgxpool.Pool
	Redis   *redis.Client
	Metrics *observability.Metrics

	tracer *sdktrace.TracerProvider
}

func New(ctx context.Context, serviceName string, metricsNamespace string) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logger := observability.NewLogger(observability.LoggerOptions{
		Level:      cfg.Observability.LogLevel,
		Format:     cfg.Observability.LogFormat,
		Service:    serviceName,
		InstanceID: cfg.InstanceID,
	}, os.Stdout)
	zerolog.DefaultContextLogger = &logger
	logger.Info().Msg("Starting")

	app := &App{Config: cfg, Logger: logger}

	if cfg.Observability.EnableTracing {
		tp, err := observability.InitTracer(serviceName, cfg.Observability.JaegerEndpoint)
		if err != nil {
			logger.Warn().Err(err).Msg("Failed to initialize tracer, continuing without tracing")
		} else {
			app.tracer = tp
			logger.Info().Str("endpoint", cfg.Observability.JaegerEndpoint).Msg("Tracing enabled")
		}
	}

	app.Metrics = observability.NewMetrics(metricsNamespace, nil)

	pool, err := postgres.NewPool(ctx, &cfg.Database)
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	app.Pool = pool
	logger.Info().Str("database", cfg.Database.Database).Msg("Connected to PostgreSQL")

	redisClient, err := infraRedis.NewClient(ctx, &cfg.Redis)
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	app.Redis = redisClient
	logger.Info().Msg("Connected to Redis")

	return app, nil
}

// CheckoutDeps builds the collaborators of the checkout workflows. Gateway and order
// service are the simulated providers behind their resilience decorators.
func (a *App) CheckoutDeps() checkout.Deps {
	gw := a.Config.Gateway
	cm := a.Config.Commerce

	simulatedGateway := gateway.NewSimulated("storefront-gateway",
		gateway.WithLatency(gw.SimulatedLatency),
		gateway.WithDeclineRate(gw.SimulatedDeclineRate),
	)
	paymentGateway := gateway.NewResilient(simulatedGateway, gateway.Settings{
		Name:             "payment-gateway",
		FailureThreshold: uint32(gw.CircuitBreakerThreshold),
		OpenTimeout:      gw.CircuitBreakerTimeout,
		CallTimeout:      gw.Timeout,
		Retry:            retryConfig(gw.MaxRetries, gw.RetryDelay),
	}, a.Metrics)

	orders := commerce.NewRetrying(
		commerce.NewSimulated(),
		retryConfig(cm.MaxRetries, cm.RetryDelay),
		a.Metrics,
	).WithCallTimeout(cm.Timeout)

	return checkout.Deps{
		Gateway:       paymentGateway,
		Orders:        orders,
		Subscriptions: postgres.NewSubscriptionRepository(a.Pool),
		Purchases:     postgres.NewPurchaseRepository(a.Pool),
		Locker:        infraRedis.NewCustomerLocker(a.Redis, a.Config.Checkout.LockTTL),
		Integrity:     infraRedis.NewIntegrityReporter(a.Redis, a.Config.Worker.IntegrityStream),
		Metrics:       a.Metrics,
		Currency:      a.Config.Checkout.Currency,
	}
}

func retryConfig(attempts int, delay time.Duration) retry.Config {
	cfg := retry.DefaultConfig()
	if attempts > 0 {
		cfg.MaxAttempts = uint(attempts)
	}
	if delay > 0 {
		cfg.InitialDelay = delay
	}
	return cfg
}

// Close releases connections and flushes pending spans.
func (a *App) Close() {
	if a.Redis != nil {
		_ = a.Redis.Close()
	}
	if a.Pool != nil {
		a.Pool.Close()
	}
	if err := observability.ShutdownTracer(context.Background(), a.tracer); err != nil {
		a.Logger.Warn().Err(err).Msg("Failed to flush traces")
	}
}
