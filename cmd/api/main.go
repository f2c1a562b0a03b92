package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/cassiomorais/storefront/internal/bootstrap"
	"github.com/cassiomorais/storefront/internal/controller"
	"github.com/cassiomorais/storefront/internal/repository/postgres"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, "storefront-api", "storefront")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to bootstrap: %v\n", err)
		os.Exit(1)
	}
	defer app.Close()

	cfg := app.Config
	router := controller.NewRouter(controller.RouterDeps{
		Logger:   app.Logger,
		Checkout: app.CheckoutDeps(),
		Health: map[string]controller.Pinger{
			"database": app.Pool,
			"redis":    controller.PingFunc(func(ctx context.Context) error { return app.Redis.Ping(ctx).Err() }),
		},
		Idempotency:    postgres.NewIdempotencyRepository(app.Pool),
		IdempotencyTTL: cfg.Worker.IdempotencyTTL,
		Metrics:        app.Metrics,
		CORSConfig:     cfg.Server.CORS,
		JWTSecret:      cfg.Auth.JWTSecret,
		RateLimit:      cfg.Checkout.RateLimit,
		RequestTimeout: cfg.Checkout.WorkflowTimeout,
	})

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		app.Logger.Info().Str("addr", addr).Msg("Starting HTTP server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			app.Logger.Error().Err(err).Msg("HTTP server failed")
			stop()
		}
	}()

	<-ctx.Done()

	app.Logger.Info().Msg("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		app.Logger.Error().Err(err).Msg("Server forced to shutdown")
	}
	app.Logger.Info().Msg("Server exited")
}
