package channel

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"wedding-quiz-service/internal/domain"
)

// RedisBroker relays events through Redis pub/sub. Redis delivers published
// messages back to the publisher's own subscription, which gives us the
// required self-delivery for free.
type RedisBroker struct {
	client *redis.Client
	logger zerolog.Logger
}

func NewRedisBroker(client *redis.Client, logger zerolog.Logger) *RedisBroker {
	return &RedisBroker{client: client, logger: logger}
}

func (b *RedisBroker) Join(sessionID string) Channel {
	return &redisTopic{
		client: b.client,
		topic:  TopicName(sessionID),
		logger: b.logger.With().Str("topic", TopicName(sessionID)).Logger(),
	}
}

func (b *RedisBroker) Close() error { return nil }

type redisTopic struct {
	client *redis.Client
	topic  string
	logger zerolog.Logger
}

func (t *redisTopic) Publish(ctx context.Context, ev domain.Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return t.client.Publish(ctx, t.topic, data).Err()
}

func (t *redisTopic) Subscribe(ctx context.Context, h Handler) (func(), error) {
	ps := t.client.Subscribe(ctx, t.topic)
	// Receive blocks until the server acknowledges the SUBSCRIBE, so events
	// published after this point are guaranteed a live listener.
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, err
	}

	go func() {
		for msg := range ps.Channel() {
			var ev domain.Event
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				t.logger.Debug().Err(err).Msg("dropping undecodable event")
				continue
			}
			h(ev)
		}
	}()

	var once sync.Once
	cancel := func() {
		once.Do(func() { _ = ps.Close() })
	}
	return cancel, nil
}

func (t *redisTopic) Ready(ctx context.Context) error {
	return t.client.Ping(ctx).Err()
}
