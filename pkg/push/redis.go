package push

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dmitrymomot/notifykit/pkg/logger"
	"github.com/dmitrymomot/notifykit/pkg/notifications"
)

// Connect establishes a Redis connection, retrying up to cfg.RetryAttempts times.
func Connect(ctx context.Context, cfg RedisConfig) (*redis.Client, error) {
	ctx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()

	opts, err := redis.ParseURL(cfg.ConnectionURL)
	if err != nil {
		return nil, errors.Join(ErrFailedToParseRedisConnString, err)
	}

	for range max(cfg.RetryAttempts, 1) {
		client := redis.NewClient(opts)
		if err := client.Ping(ctx).Err(); err == nil {
			return client, nil
		}
		_ = client.Close()

		select {
		case <-ctx.Done():
			return nil, errors.Join(ErrRedisNotReady, ctx.Err())
		case <-time.After(cfg.RetryInterval):
		}
	}

	return nil, ErrRedisNotReady
}

// Healthcheck returns a closure that pings Redis.
func Healthcheck(client redis.UniversalClient) func(context.Context) error {
	return func(ctx context.Context) error {
		if err := client.Ping(ctx).Err(); err != nil {
			return errors.Join(ErrHealthcheckFailed, err)
		}
		return nil
	}
}

// RedisPublisher publishes realtime messages to Redis pub/sub.
// The Redis channel is prefix + message channel; the payload is the JSON message.
type RedisPublisher struct {
	client redis.UniversalClient
	prefix string
}

// NewRedisPublisher creates a Redis-backed notifications.Publisher.
func NewRedisPublisher(client redis.UniversalClient, prefix string) *RedisPublisher {
	return &RedisPublisher{client: client, prefix: prefix}
}

func (p *RedisPublisher) Publish(ctx context.Context, msg notifications.Message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return errors.Join(ErrFailedToPublish, err)
	}
	if err := p.client.Publish(ctx, p.prefix+msg.Channel, body).Err(); err != nil {
		return errors.Join(ErrFailedToPublish, err)
	}
	return nil
}

// Relay forwards realtime messages published to Redis by any instance into hub,
// so local subscribers see messages from the whole cluster. It blocks until ctx ends.
// Payloads that are not realtime messages are dropped, so prefix should not
// cover channels used for anything else.
func Relay(ctx context.Context, client redis.UniversalClient, prefix string, hub *Hub, log *slog.Logger) error {
	if log == nil {
		log = slog.Default()
	}

	pubsub := client.PSubscribe(ctx, prefix+"*")
	defer pubsub.Close()

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case m, ok := <-ch:
			if !ok {
				return nil
			}
			msg, err := decodeRelayed(prefix, m)
			if err != nil {
				log.LogAttrs(ctx, slog.LevelWarn, "Dropping malformed realtime message",
					logger.Channel(m.Channel),
					logger.Error(err),
				)
				continue
			}
			if err := hub.Publish(ctx, msg); err != nil {
				return err
			}
		}
	}
}

// decodeRelayed parses a relayed payload. A message without an event name is rejected.
func decodeRelayed(prefix string, m *redis.Message) (notifications.Message, error) {
	var msg notifications.Message
	if err := json.Unmarshal([]byte(m.Payload), &msg); err != nil {
		return notifications.Message{}, errors.Join(ErrNotRealtimeMessage, err)
	}
	if msg.Event == "" {
		return notifications.Message{}, ErrNotRealtimeMessage
	}
	if msg.Channel == "" {
		msg.Channel = strings.TrimPrefix(m.Channel, prefix)
	}
	return msg, nil
}
