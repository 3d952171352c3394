// Package channel provides session-scoped broadcast topics for quiz events.
// A channel is a relay only: it offers no ordering or delivery guarantee, so
// consumers must recover durable facts from later events rather than trusting
// any single broadcast.
package channel

import (
	"context"

	"wedding-quiz-service/internal/domain"
)

// Handler receives every event delivered on a subscription, including the
// subscriber's own publishes.
type Handler func(domain.Event)

// Channel is one session's broadcast topic.
type Channel interface {
	// Publish sends an event to all subscribers, including the publisher.
	Publish(ctx context.Context, ev domain.Event) error
	// Subscribe registers a dispatch callback and returns a cancel function.
	// Cancel is safe to call multiple times.
	Subscribe(ctx context.Context, h Handler) (func(), error)
	// Ready blocks until the underlying subscription is confirmed live,
	// letting publishers retry sends that raced an unconfirmed subscribe.
	Ready(ctx context.Context) error
}

// Broker hands out channels by session id. Joining the same session twice
// returns the same topic.
type Broker interface {
	Join(sessionID string) Channel
	Close() error
}

// TopicName derives the broadcast topic for a session.
func TopicName(sessionID string) string {
	return "live-quiz:" + sessionID
}
