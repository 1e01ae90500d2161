package eventbus

import (
	"context"

	"github.com/redis/go-redis/v9"
)

// RedisTransport publishes events through Redis PUBLISH, grounded on
// ts-vms-v1.0's *redis.Client usage in internal/live/service.go.
type RedisTransport struct {
	client *redis.Client
}

// NewRedisTransport wraps an existing *redis.Client as a Transport.
func NewRedisTransport(client *redis.Client) *RedisTransport {
	return &RedisTransport{client: client}
}

func (t *RedisTransport) Publish(ctx context.Context, channel string, payload []byte) error {
	return t.client.Publish(ctx, channel, payload).Err()
}
