package stream

import (
	"context"
	"encoding/json"
	"log/slog"

	redis "github.com/redis/go-redis/v9"
)

const DefaultRedisChannel = "landmarket:stream"

// Redis relays changes through a Redis pub/sub channel so every instance's
// subscribers see changes committed anywhere. Delivery to local subscribers
// happens when the change comes back from Redis; Run must be running.
type Redis struct {
	client  *redis.Client
	channel string
	local   *Local
	log     *slog.Logger
}

func NewRedis(client *redis.Client, channel string, local *Local, log *slog.Logger) *Redis {
	if channel == "" {
		channel = DefaultRedisChannel
	}
	if log == nil {
		log = slog.Default()
	}
	return &Redis{client: client, channel: channel, local: local, log: log}
}

func (r *Redis) Subscribe(topics ...string) *Subscription {
	return r.local.Subscribe(topics...)
}

// Publish sends c to Redis. When Redis is unavailable the change is still
// delivered to this instance's subscribers.
func (r *Redis) Publish(ctx context.Context, c Change) error {
	b, err := json.Marshal(c)
	if err != nil {
		return err
	}
	if err := r.client.Publish(ctx, r.channel, b).Err(); err != nil {
		r.log.Warn("stream: redis publish failed, delivering locally", "topic", c.Topic, "error", err)
		return r.local.Publish(ctx, c)
	}
	return nil
}

// Run forwards changes from Redis to local subscribers until ctx is done.
func (r *Redis) Run(ctx context.Context) error {
	sub := r.client.Subscribe(ctx, r.channel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return err
	}
	msgs := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case m, ok := <-msgs:
			if !ok {
				return nil
			}
			var c Change
			if err := json.Unmarshal([]byte(m.Payload), &c); err != nil {
				r.log.Warn("stream: bad payload", "error", err)
				continue
			}
			_ = r.local.Publish(ctx, c)
		}
	}
}
