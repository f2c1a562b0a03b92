package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cassiomorais/storefront/internal/application/checkout"
	"github.com/redis/go-redis/v9"
)

// IntegrityStream receives compensations that failed and need an operator.
const IntegrityStream = "storefront:integrity"

// IntegrityReporter publishes integrity incidents to a Redis stream.
type IntegrityReporter struct {
	client redis.Cmdable
	stream string
}

var _ checkout.IntegrityReporter = (*IntegrityReporter)(nil)

func NewIntegrityReporter(client redis.Cmdable, stream string) *IntegrityReporter {
	if stream == "" {
		stream = IntegrityStream
	}
	return &IntegrityReporter{client: client, stream: stream}
}

func (p *IntegrityReporter) ReportIntegrityIncident(ctx context.Context, incident checkout.IntegrityIncident) error {
	payload, err := jsonPayload(incident)
	if err != nil {
		return err
	}

	_, err = p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		Values: map[string]any{
			"workflow":    incident.Workflow,
			"customer_id": incident.CustomerID,
			"step":        incident.Step,
			"payload":     payload,
			"timestamp":   incident.OccurredAt.Unix(),
		},
	}).Result()
	if err != nil {
		return fmt.Errorf("failed to publish integrity incident: %w", err)
	}
	return nil
}

type integrityMessage struct {
	Workflow    string    `json:"workflow"`
	CustomerID  string    `json:"customer_id"`
	Step        string    `json:"step"`
	Reason      string    `json:"reason"`
	TriggeredBy string    `json:"triggered_by"`
	OccurredAt  time.Time `json:"occurred_at"`
}

func jsonPayload(i checkout.IntegrityIncident) (string, error) {
	b, err := json.Marshal(integrityMessage(i))
	if err != nil {
		return "", fmt.Errorf("failed to marshal incident: %w", err)
	}
	return string(b), nil
}

// DecodeIncident reads an incident back from a stream message.
func DecodeIncident(msg redis.XMessage) (checkout.IntegrityIncident, error) {
	raw, ok := msg.Values["payload"].(string)
	if !ok {
		return checkout.IntegrityIncident{}, fmt.Errorf("message %s has no payload", msg.ID)
	}
	var m integrityMessage
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		return checkout.IntegrityIncident{}, fmt.Errorf("message %s: %w", msg.ID, err)
	}
	return checkout.IntegrityIncident(m), nil
}

type StreamConsumer struct {
	client        redis.Cmdable
	stream        string
	group         string
	consumer      string
	batchSize     int64
	blockDuration time.Duration
}

func NewStreamConsumer(
	client redis.Cmdable,
	stream string,
	group string,
	consumer string,
	batchSize int64,
	blockDuration time.Duration,
) *StreamConsumer {
	return &StreamConsumer{
		client:        client,
		stream:        stream,
		group:         group,
		consumer:      consumer,
		batchSize:     batchSize,
		blockDuration: blockDuration,
	}
}

func (c *StreamConsumer) Stream() string { return c.stream }

func (c *StreamConsumer) CreateGroup(ctx context.Context) error {
	const busyGroupMsg = "BUSYGROUP"
	err := c.client.XGroupCreateMkStream(ctx, c.stream, c.group, "0").Err()
	if err != nil && !strings.Contains(err.Error(), busyGroupMsg) {
		return fmt.Errorf("failed to create consumer group: %w", err)
	}
	return nil
}

func (c *StreamConsumer) Read(ctx context.Context) ([]redis.XMessage, error) {
	streams, err := c.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    c.group,
		Consumer: c.consumer,
		Streams:  []string{c.stream, ">"},
		Count:    c.batchSize,
		Block:    c.blockDuration,
	}).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read from stream: %w", err)
	}

	var messages []redis.XMessage
	for _, s := range streams {
		messages = append(messages, s.Messages...)
	}
	return messages, nil
}

func (c *StreamConsumer) Ack(ctx context.Context, messageID string) error {
	if err := c.client.XAck(ctx, c.stream, c.group, messageID).Err(); err != nil {
		return fmt.Errorf("failed to ack message: %w", err)
	}
	return nil
}

// ClaimStale takes over messages another consumer read but never acknowledged.
func (c *StreamConsumer) ClaimStale(ctx context.Context, minIdle time.Duration) ([]redis.XMessage, error) {
	messages, _, err := c.client.XAutoClaim(ctx, &redis.XAutoClaimArgs{
		Stream:   c.stream,
		Group:    c.group,
		Consumer: c.consumer,
		MinIdle:  minIdle,
		Start:    "0-0",
		Count:    c.batchSize,
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to claim messages: %w", err)
	}
	return messages, nil
}
