package changefeed

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

// DefaultChannel is the Pub/Sub channel used between instances.
const DefaultChannel = "studio:changes"

// RedisBroker fans out change signals across server instances with Redis Pub/Sub.
type RedisBroker struct {
	client  *redis.Client
	channel string
}

// NewRedisBroker connects to addr and verifies the connection.
// PRE: addr is host:port
// POST: Returns a ready broker, or an error if Redis is unreachable
func NewRedisBroker(ctx context.Context, addr string) (*RedisBroker, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if _, err := client.Ping(ctx).Result(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}
	slog.Info("redis_changefeed_connected", "addr", addr)
	return &RedisBroker{client: client, channel: DefaultChannel}, nil
}

// Publish sends topic to every instance.
func (b *RedisBroker) Publish(ctx context.Context, topic Topic) error {
	if err := b.client.Publish(ctx, b.channel, string(topic)).Err(); err != nil {
		return fmt.Errorf("redis publish: %w", err)
	}
	return nil
}

// Subscribe forwards channel messages until ctx is cancelled.
func (b *RedisBroker) Subscribe(ctx context.Context) (<-chan Topic, error) {
	pubsub := b.client.Subscribe(ctx, b.channel)
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, fmt.Errorf("redis subscribe: %w", err)
	}

	out := make(chan Topic, subscriberBuffer)
	go func() {
		defer close(out)
		defer pubsub.Close()
		msgs := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				select {
				case out <- Topic(msg.Payload):
				default:
				}
			}
		}
	}()
	return out, nil
}

// Close releases the Redis connection pool.
func (b *RedisBroker) Close() error {
	return b.client.Close()
}
