package redisadapter

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"fangov/contexts/governance/proposal-engine/ports"
)

// Client is the subset of *redis.Client the adapters use.
type Client interface {
	XAdd(ctx context.Context, a *redis.XAddArgs) *redis.StringCmd
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
}

// StreamPublisher appends events to one Redis stream per topic. Each entry
// carries the event id so consumers can deduplicate redeliveries.
type StreamPublisher struct {
	client Client
	prefix string
	maxLen int64
}

func NewStreamPublisher(client Client, prefix string, maxLen int64) *StreamPublisher {
	return &StreamPublisher{
		client: client,
		prefix: strings.TrimSuffix(strings.TrimSpace(prefix), "."),
		maxLen: maxLen,
	}
}

func (p *StreamPublisher) StreamName(topic string) string {
	if p.prefix == "" {
		return topic
	}
	return p.prefix + "." + topic
}

func (p *StreamPublisher) Publish(ctx context.Context, topic string, event ports.EventEnvelope) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	args := &redis.XAddArgs{
		Stream: p.StreamName(topic),
		Values: map[string]any{
			"event_id":      event.EventID,
			"event_type":    event.EventType,
			"partition_key": event.PartitionKey,
			"payload":       string(payload),
		},
	}
	if p.maxLen > 0 {
		args.MaxLen = p.maxLen
		args.Approx = true
	}
	return p.client.XAdd(ctx, args).Err()
}

var _ ports.EventPublisher = (*StreamPublisher)(nil)
