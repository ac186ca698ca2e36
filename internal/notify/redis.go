package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Channel is the Redis pub/sub channel carrying every notification.
const Channel = "grievance:notifications"

// Publisher is the part of *redis.Client used here.
type Publisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

// RedisPublisher publishes notifications for the live feed. Mail-only kinds are skipped.
type RedisPublisher struct {
	Client  Publisher
	Channel string
}

func NewRedisPublisher(client Publisher) *RedisPublisher {
	return &RedisPublisher{Client: client, Channel: Channel}
}

func (p *RedisPublisher) Notify(ctx context.Context, msg Message) error {
	if msg.Kind.MailOnly() {
		return nil
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal notification %s: %w", msg.ID, err)
	}
	if err := p.Client.Publish(ctx, p.Channel, payload).Err(); err != nil {
		return fmt.Errorf("publish notification %s: %w", msg.ID, err)
	}
	return nil
}
