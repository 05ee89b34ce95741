package bussink

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisTransport publishes to a Redis pub/sub channel named after the
// destination (isTopic is ignored: Redis channels have no queue/topic
// distinction).
type RedisTransport struct {
	client *redis.Client
}

func NewRedisTransport(client *redis.Client) *RedisTransport {
	return &RedisTransport{client: client}
}

func (t *RedisTransport) Publish(ctx context.Context, destination string, _ bool, payload []byte) error {
	if err := t.client.Publish(ctx, destination, payload).Err(); err != nil {
		return fmt.Errorf("bussink: redis publish %s: %w", destination, err)
	}
	return nil
}

func (t *RedisTransport) Close() error { return nil }
