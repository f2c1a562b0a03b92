package main

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/cassiomorais/storefront/internal/infrastructure/observability"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStream struct {
	mu      sync.Mutex
	batches [][]redis.XMessage
	stale   []redis.XMessage
	acked   []string
	ackErr  error
}

func (f *fakeStream) Stream() string { return "storefront:integrity" }

func (f *fakeStream) Read(ctx context.Context) ([]redis.XMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.batches) == 0 {
		return nil, errors.New("stream drained")
	}
	b := f.batches[0]
	f.batches = f.batches[1:]
	return b, nil
}

func (f *fakeStream) ClaimStale(ctx context.Context, minIdle time.Duration) ([]redis.XMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s := f.stale
	f.stale = nil
	return s, nil
}

func (f *fakeStream) Ack(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.acked = append(f.acked, id)
	return f.ackErr
}

func (f *fakeStream) ackedIDs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.acked...)
}

const validPayload = `{"workflow":"purchase","customer_id":"c-1","step":"place-order","reason":"suspend failed","triggered_by":"persist failed","occurred_at":"2026-01-02T03:04:05Z"}`

func TestRecovery_HandleAcksEveryMessage(t *testing.T) {
	stream := &fakeStream{}
	metrics := observability.NewMetrics("test", prometheus.NewRegistry())
	rc := &recovery{logger: zerolog.Nop(), stream: stream, metrics: metrics}

	rc.handle(context.Background(), []redis.XMessage{
		{ID: "1-0", Values: map[string]any{"payload": validPayload}},
		{ID: "2-0", Values: map[string]any{"payload": "{not json"}},
		{ID: "3-0", Values: map[string]any{}},
	})

	assert.Equal(t, []string{"1-0", "2-0", "3-0"}, stream.ackedIDs())
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.WorkerMessagesProcessed.WithLabelValues("storefront:integrity", "success")))
	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.WorkerMessagesProcessed.WithLabelValues("storefront:integrity", "malformed")))
}

func TestRecovery_AckFailureIsCounted(t *testing.T) {
	stream := &fakeStream{ackErr: errors.New("redis down")}
	metrics := observability.NewMetrics("test", prometheus.NewRegistry())
	rc := &recovery{logger: zerolog.Nop(), stream: stream, metrics: metrics}

	rc.handle(context.Background(), []redis.XMessage{{ID: "1-0", Values: map[string]any{"payload": validPayload}}})

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.WorkerMessagesProcessed.WithLabelValues("storefront:integrity", "ack_failed")))
}

func TestRecovery_RunStopsOnCancel(t *testing.T) {
	stream := &fakeStream{batches: [][]redis.XMessage{
		{{ID: "1-0", Values: map[string]any{"payload": validPayload}}},
	}}
	rc := &recovery{logger: zerolog.Nop(), stream: stream, backoff: 10 * time.Millisecond}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- rc.run(ctx) }()

	require.Eventually(t, func() bool { return len(stream.ackedIDs()) == 1 }, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("run did not stop after cancel")
	}
}

func TestRecovery_ClaimLoopHandlesStaleMessages(t *testing.T) {
	stream := &fakeStream{stale: []redis.XMessage{{ID: "9-0", Values: map[string]any{"payload": validPayload}}}}
	rc := &recovery{logger: zerolog.Nop(), stream: stream, minIdle: 5 * time.Millisecond}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = rc.claimLoop(ctx) }()

	require.Eventually(t, func() bool { return len(stream.ackedIDs()) == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"9-0"}, stream.ackedIDs())
}

type fakeCleaner struct {
	mu    sync.Mutex
	calls int
}

func (f *fakeCleaner) Cleanup(ctx context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return 3, nil
}

func (f *fakeCleaner) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func TestCleanupLoop(t *testing.T) {
	cleaner := &fakeCleaner{}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- cleanupLoop(ctx, zerolog.Nop(), cleaner, 5*time.Millisecond) }()

	require.Eventually(t, func() bool { return cleaner.count() >= 2 }, time.Second, 5*time.Millisecond)
	cancel()
	assert.NoError(t, <-done)
}
