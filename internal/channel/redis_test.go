package channel_test

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"wedding-quiz-service/internal/channel"
	"wedding-quiz-service/internal/domain"
)

func TestRedisBrokerRoundTrip(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	broker := channel.NewRedisBroker(client, zerolog.Nop())
	ctx := context.Background()

	ch := broker.Join("s1")
	got := make(chan domain.Event, 1)
	cancel, err := ch.Subscribe(ctx, func(ev domain.Event) { got <- ev })
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer cancel()

	if err := ch.Ready(ctx); err != nil {
		t.Fatalf("ready: %v", err)
	}

	ev, err := domain.NewEvent("s1", domain.EventParticipantJoined, domain.ParticipantJoinedPayload{
		ParticipantCount: 1,
		PartyName:        "Smith party",
	})
	if err != nil {
		t.Fatalf("new event: %v", err)
	}
	if err := ch.Publish(ctx, ev); err != nil {
		t.Fatalf("publish: %v", err)
	}

	select {
	case received := <-got:
		if received.Type != domain.EventParticipantJoined {
			t.Fatalf("unexpected event %+v", received)
		}
		var payload domain.ParticipantJoinedPayload
		if err := domain.DecodePayload(received, &payload); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if payload.PartyName != "Smith party" {
			t.Fatalf("unexpected payload %+v", payload)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("never received published event")
	}
}

func TestRedisBrokerMalformedPayloadIsDropped(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	broker := channel.NewRedisBroker(client, zerolog.Nop())
	ctx := context.Background()

	ch := broker.Join("s1")
	got := make(chan domain.Event, 1)
	cancel, err := ch.Subscribe(ctx, func(ev domain.Event) { got <- ev })
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer cancel()

	if err := client.Publish(ctx, channel.TopicName("s1"), "not-json").Err(); err != nil {
		t.Fatalf("publish raw: %v", err)
	}
	ev, _ := domain.NewEvent("s1", domain.EventAnswerCount, domain.AnswerCountPayload{QuestionID: "q1", AnswerCount: 2})
	if err := ch.Publish(ctx, ev); err != nil {
		t.Fatalf("publish: %v", err)
	}

	select {
	case received := <-got:
		if received.Type != domain.EventAnswerCount {
			t.Fatalf("expected the valid event to survive, got %+v", received)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("valid event was not delivered")
	}
}
