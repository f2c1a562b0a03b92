package main

import (
	"context"
	"time"

	"github.com/cassiomorais/storefront/internal/infrastructure/observability"
	infraRedis "github.com/cassiomorais/storefront/internal/infrastructure/redis"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

type incidentStream interface {
	Stream() string
	Read(ctx context.Context) ([]redis.XMessage, error)
	ClaimStale(ctx context.Context, minIdle time.Duration) ([]redis.XMessage, error)
	Ack(ctx context.Context, messageID string) error
}

// recovery drains the integrity stream. Every incident is a compensation that failed
// after a checkout was unwound; the worker records it for operators and acknowledges it.
type recovery struct {
	logger  zerolog.Logger
	stream  incidentStream
	metrics *observability.Metrics
	minIdle time.Duration
	backoff time.Duration
}

func (rc *recovery) run(ctx context.Context) error {
	for {
		if ctx.Err() != nil {
			return nil
		}
		msgs, err := rc.stream.Read(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			rc.logger.Error().Err(err).Msg("Failed to read integrity stream")
			if !sleep(ctx, rc.backoff) {
				return nil
			}
			continue
		}
		rc.handle(ctx, msgs)
	}
}

// claimLoop takes over incidents left pending by a consumer that died before acking.
func (rc *recovery) claimLoop(ctx context.Context) error {
	ticker := time.NewTicker(rc.minIdle)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
		msgs, err := rc.stream.ClaimStale(ctx, rc.minIdle)
		if err != nil {
			rc.logger.Warn().Err(err).Msg("Failed to claim stale incidents")
			continue
		}
		if len(msgs) > 0 {
			rc.logger.Info().Int("count", len(msgs)).Msg("Claimed stale incidents")
		}
		rc.handle(ctx, msgs)
	}
}

func (rc *recovery) handle(ctx context.Context, msgs []redis.XMessage) {
	for _, msg := range msgs {
		start := time.Now()
		status := "success"

		incident, err := infraRedis.DecodeIncident(msg)
		if err != nil {
			// A malformed message can never be processed; ack it so it does not block the group.
			status = "malformed"
			rc.logger.Error().Err(err).Str("message_id", msg.ID).Interface("values", msg.Values).Msg("Malformed integrity incident")
		} else {
			rc.logger.Error().
				Str("message_id", msg.ID).
				Str("workflow", incident.Workflow).
				Str("customer_id", incident.CustomerID).
				Str("step", incident.Step).
				Str("reason", incident.Reason).
				Str("triggered_by", incident.TriggeredBy).
				Time("occurred_at", incident.OccurredAt).
				Msg("Compensation failed, manual recovery required")
		}

		if err := rc.stream.Ack(ctx, msg.ID); err != nil {
			status = "ack_failed"
			rc.logger.Warn().Err(err).Str("message_id", msg.ID).Msg("Failed to ack incident")
		}
		if rc.metrics != nil {
			rc.metrics.WorkerMessagesProcessed.WithLabelValues(rc.stream.Stream(), status).Inc()
			rc.metrics.WorkerProcessingDuration.WithLabelValues(rc.stream.Stream()).Observe(time.Since(start).Seconds())
		}
	}
}

type idempotencyCleaner interface {
	Cleanup(ctx context.Context) (int64, error)
}

// cleanupLoop deletes expired idempotency entries.
func cleanupLoop(ctx context.Context, logger zerolog.Logger, cleaner idempotencyCleaner, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
		removed, err := cleaner.Cleanup(ctx)
		if err != nil {
			logger.Warn().Err(err).Msg("Idempotency cleanup failed")
			continue
		}
		logger.Debug().Int64("removed", removed).Msg("Expired idempotency keys removed")
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
