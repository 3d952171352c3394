package channel

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"wedding-quiz-service/internal/domain"
)

// NATSBroker relays events over NATS core pub/sub. NATS echoes publishes back
// to subscriptions on the same connection by default, satisfying self-delivery.
type NATSBroker struct {
	conn   *nats.Conn
	logger zerolog.Logger
}

func NewNATSBroker(conn *nats.Conn, logger zerolog.Logger) *NATSBroker {
	return &NATSBroker{conn: conn, logger: logger}
}

func (b *NATSBroker) Join(sessionID string) Channel {
	return &natsTopic{
		conn:    b.conn,
		subject: natsSubject(TopicName(sessionID)),
		logger:  b.logger.With().Str("topic", TopicName(sessionID)).Logger(),
	}
}

func (b *NATSBroker) Close() error {
	b.conn.Close()
	return nil
}

// natsSubject rewrites the topic into NATS subject form; colons are reserved
// for the canonical topic name, dots for NATS token separators.
func natsSubject(topic string) string {
	return strings.ReplaceAll(topic, ":", ".")
}

type natsTopic struct {
	conn    *nats.Conn
	subject string
	logger  zerolog.Logger
}

func (t *natsTopic) Publish(_ context.Context, ev domain.Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return t.conn.Publish(t.subject, data)
}

func (t *natsTopic) Subscribe(_ context.Context, h Handler) (func(), error) {
	sub, err := t.conn.Subscribe(t.subject, func(msg *nats.Msg) {
		var ev domain.Event
		if err := json.Unmarshal(msg.Data, &ev); err != nil {
			t.logger.Debug().Err(err).Msg("dropping undecodable event")
			return
		}
		h(ev)
	})
	if err != nil {
		return nil, err
	}
	// Make sure the server has processed the subscription before we report success.
	if err := t.conn.Flush(); err != nil {
		_ = sub.Unsubscribe()
		return nil, err
	}

	var once sync.Once
	cancel := func() {
		once.Do(func() { _ = sub.Unsubscribe() })
	}
	return cancel, nil
}

func (t *natsTopic) Ready(ctx context.Context) error {
	deadline, ok := ctx.Deadline()
	if !ok {
		return t.conn.FlushTimeout(2 * time.Second)
	}
	return t.conn.FlushTimeout(time.Until(deadline))
}
