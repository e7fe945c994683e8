package chat

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const channelPrefix = "chat:room:"

func roomChannel(room string) string {
	return channelPrefix + room
}

// RedisBroker publishes events on redis pub/sub so every instance's Hub sees them.
type RedisBroker struct {
	client *redis.Client
	hub    *Hub
	log    zerolog.Logger
}

func NewRedisBroker(ctx context.Context, redisURL string, hub *Hub, log zerolog.Logger) (*RedisBroker, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}
	return &RedisBroker{client: client, hub: hub, log: log}, nil
}

func (b *RedisBroker) Publish(ctx context.Context, ev Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return b.client.Publish(ctx, roomChannel(ev.Room), data).Err()
}

// Run relays every room channel into the local hub until ctx is done.
func (b *RedisBroker) Run(ctx context.Context) error {
	pubsub := b.client.PSubscribe(ctx, channelPrefix+"*")
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		return err
	}
	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return errors.New("redis subscription closed")
			}
			ev, err := decodeEvent(msg.Channel, msg.Payload)
			if err != nil {
				b.log.Warn().Err(err).Str("channel", msg.Channel).Msg("dropping malformed chat event")
				continue
			}
			b.hub.Broadcast(ev)
		}
	}
}

func (b *RedisBroker) Close() error {
	return b.client.Close()
}

func decodeEvent(channel, payload string) (Event, error) {
	var ev Event
	if err := json.Unmarshal([]byte(payload), &ev); err != nil {
		return ev, err
	}
	if ev.Room == "" {
		ev.Room = strings.TrimPrefix(channel, channelPrefix)
	}
	return ev, nil
}
