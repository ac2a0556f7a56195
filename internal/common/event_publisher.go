package common

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"mdm-platform/feedhub/internal/ingestion"
)

const EventImportCompleted = "import.completed"

// StreamPublisher appends import events to a Redis stream
type StreamPublisher struct {
	client RedisCmdable
	stream string
	maxLen int64
}

var _ ingestion.EventPublisher = (*StreamPublisher)(nil)

func NewStreamPublisher(client RedisCmdable, stream string) *StreamPublisher {
	return &StreamPublisher{client: client, stream: stream, maxLen: 10000}
}

// PublishImportCompleted adds the event as XADD stream MAXLEN ~ n * type <t> data <json>
func (p *StreamPublisher) PublishImportCompleted(ctx context.Context, ev ingestion.ImportEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal import event: %w", err)
	}

	args := &redis.XAddArgs{
		Stream: p.stream,
		MaxLen: p.maxLen,
		Approx: true,
		Values: map[string]interface{}{
			"type": EventImportCompleted,
			"data": string(data),
		},
	}
	if _, err := p.client.XAdd(ctx, args).Result(); err != nil {
		return fmt.Errorf("failed to add to stream: %w", err)
	}
	return nil
}

// Recent returns up to n of the latest events, newest first
func (p *StreamPublisher) Recent(ctx context.Context, n int64) ([]ingestion.ImportEvent, error) {
	msgs, err := p.client.XRevRangeN(ctx, p.stream, "+", "-", n).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read stream: %w", err)
	}

	events := make([]ingestion.ImportEvent, 0, len(msgs))
	for _, msg := range msgs {
		raw, ok := msg.Values["data"].(string)
		if !ok {
			continue
		}
		var ev ingestion.ImportEvent
		if err := json.Unmarshal([]byte(raw), &ev); err != nil {
			continue
		}
		events = append(events, ev)
	}
	return events, nil
}

// Len returns the number of entries in the stream
func (p *StreamPublisher) Len(ctx context.Context) (int64, error) {
	length, err := p.client.XLen(ctx, p.stream).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to get stream length: %w", err)
	}
	return length, nil
}

// Ping checks the Redis connection with a short deadline
func Ping(ctx context.Context, client RedisCmdable) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return client.Ping(ctx).Err()
}
