package stream

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

// Producer appends match events to the stream the way the upstream matcher
// does: one entry per event, JSON in the "data" field.
type Producer interface {
	Publish(ctx context.Context, event any) (string, error)
	Close() error
}

type redisProducer struct {
	client *redis.Client
	stream string
	logger *slog.Logger
}

func NewRedisProducer(client *redis.Client, stream string, logger *slog.Logger) Producer {
	if logger == nil {
		logger = slog.Default()
	}
	return &redisProducer{
		client: client,
		stream: stream,
		logger: logger,
	}
}

func (p *redisProducer) Publish(ctx context.Context, event any) (string, error) {
	var payload []byte
	switch v := event.(type) {
	case []byte:
		payload = v
	case json.RawMessage:
		payload = v
	default:
		encoded, err := json.Marshal(event)
		if err != nil {
			return "", fmt.Errorf("encoding event: %w", err)
		}
		payload = encoded
	}

	id, err := p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		Values: map[string]any{DataField: string(payload)},
	}).Result()
	if err != nil {
		return "", fmt.Errorf("xadd (stream=%s): %w", p.stream, err)
	}

	p.logger.InfoContext(ctx, "published match event", "stream", p.stream, "message_id", id)
	return id, nil
}

func (p *redisProducer) Close() error {
	return p.client.Close()
}
