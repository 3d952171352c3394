// Package metrics exposes Prometheus counters for the live quiz.
package metrics

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"wedding-quiz-service/internal/channel"
	"wedding-quiz-service/internal/domain"
)

// Metrics holds the Prometheus collectors for the quiz service.
type Metrics struct {
	EventsPublished    *prometheus.CounterVec
	PublishFailures    *prometheus.CounterVec
	AnswersRecorded    prometheus.Counter
	ParticipantsJoined prometheus.Counter
	SessionsCreated    prometheus.Counter
}

// New registers the quiz collectors on the default registry.
func New() *Metrics {
	return &Metrics{
		EventsPublished: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "wedding",
				Subsystem: "quiz",
				Name:      "events_published_total",
				Help:      "Broadcast events published, by event type",
			},
			[]string{"type"},
		),
		PublishFailures: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "wedding",
				Subsystem: "quiz",
				Name:      "publish_failures_total",
				Help:      "Broadcast publish attempts that returned an error",
			},
			[]string{"type"},
		),
		AnswersRecorded: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: "wedding",
				Subsystem: "quiz",
				Name:      "answers_recorded_total",
				Help:      "Answer submissions accepted by the host",
			},
		),
		ParticipantsJoined: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: "wedding",
				Subsystem: "quiz",
				Name:      "participants_joined_total",
				Help:      "Guest join reports processed",
			},
		),
		SessionsCreated: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: "wedding",
				Subsystem: "quiz",
				Name:      "sessions_created_total",
				Help:      "Quiz sessions created by the host",
			},
		),
	}
}

// Handler serves the scrape endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// WrapBroker decorates every channel a broker hands out with publish counters.
func (m *Metrics) WrapBroker(b channel.Broker) channel.Broker {
	return &instrumentedBroker{inner: b, metrics: m}
}

type instrumentedBroker struct {
	inner   channel.Broker
	metrics *Metrics
}

func (b *instrumentedBroker) Join(sessionID string) channel.Channel {
	return &instrumentedChannel{inner: b.inner.Join(sessionID), metrics: b.metrics}
}

func (b *instrumentedBroker) Close() error { return b.inner.Close() }

type instrumentedChannel struct {
	inner   channel.Channel
	metrics *Metrics
}

func (c *instrumentedChannel) Publish(ctx context.Context, ev domain.Event) error {
	err := c.inner.Publish(ctx, ev)
	if err != nil {
		c.metrics.PublishFailures.WithLabelValues(string(ev.Type)).Inc()
		return err
	}
	c.metrics.EventsPublished.WithLabelValues(string(ev.Type)).Inc()
	switch ev.Type {
	case domain.EventStarted:
		c.metrics.SessionsCreated.Inc()
	case domain.EventParticipantJoined:
		c.metrics.ParticipantsJoined.Inc()
	case domain.EventAnswerCount:
		c.metrics.AnswersRecorded.Inc()
	}
	return nil
}

func (c *instrumentedChannel) Subscribe(ctx context.Context, h channel.Handler) (func(), error) {
	return c.inner.Subscribe(ctx, h)
}

func (c *instrumentedChannel) Ready(ctx context.Context) error {
	return c.inner.Ready(ctx)
}
