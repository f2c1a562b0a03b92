package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cassiomorais/storefront/internal/bootstrap"
	infraRedis "github.com/cassiomorais/storefront/internal/infrastructure/redis"
	"github.com/cassiomorais/storefront/internal/repository/postgres"
	"golang.org/x/sync/errgroup"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, "storefront-worker", "storefront_worker")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to bootstrap: %v\n", err)
		os.Exit(1)
	}
	defer app.Close()

	workerCfg := app.Config.Worker
	consumer := infraRedis.NewStreamConsumer(
		app.Redis,
		workerCfg.IntegrityStream,
		workerCfg.ConsumerGroup,
		app.Config.InstanceID,
		workerCfg.BatchSize,
		workerCfg.BlockDuration,
	)
	if err := consumer.CreateGroup(ctx); err != nil {
		app.Logger.Error().Err(err).Msg("Failed to create consumer group")
		return
	}

	app.Logger.Info().
		Str("stream", consumer.Stream()).
		Str("group", workerCfg.ConsumerGroup).
		Str("consumer", app.Config.InstanceID).
		Msg("Worker started, listening for integrity incidents...")

	rc := &recovery{
		logger:  app.Logger,
		stream:  consumer,
		metrics: app.Metrics,
		minIdle: workerCfg.ClaimMinIdle,
		backoff: time.Second,
	}

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error { return rc.run(gCtx) })
	g.Go(func() error { return rc.claimLoop(gCtx) })
	g.Go(func() error {
		return cleanupLoop(gCtx, app.Logger, postgres.NewIdempotencyRepository(app.Pool), workerCfg.CleanupInterval)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		app.Logger.Error().Err(err).Msg("Worker error")
	}
	app.Logger.Info().Msg("Worker exited")
}
