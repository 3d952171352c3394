package channel_test

import (
	"context"
	"testing"
	"time"

	"wedding-quiz-service/internal/channel"
	"wedding-quiz-service/internal/domain"
)

func TestMemoryBrokerDeliversToAllSubscribersIncludingSelf(t *testing.T) {
	broker := channel.NewMemoryBroker()
	defer broker.Close()
	ctx := context.Background()

	ch := broker.Join("s1")
	got1 := make(chan domain.Event, 1)
	got2 := make(chan domain.Event, 1)

	cancel1, err := ch.Subscribe(ctx, func(ev domain.Event) { got1 <- ev })
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer cancel1()
	cancel2, err := ch.Subscribe(ctx, func(ev domain.Event) { got2 <- ev })
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer cancel2()

	ev, err := domain.NewEvent("s1", domain.EventStarted, domain.StartedPayload{SessionID: "s1", TotalQuestions: 3})
	if err != nil {
		t.Fatalf("new event: %v", err)
	}
	if err := ch.Publish(ctx, ev); err != nil {
		t.Fatalf("publish: %v", err)
	}

	for i, got := range []chan domain.Event{got1, got2} {
		select {
		case received := <-got:
			if received.Type != domain.EventStarted || received.SessionID != "s1" {
				t.Fatalf("subscriber %d got unexpected event %+v", i, received)
			}
		case <-time.After(time.Second):
			t.Fatalf("subscriber %d never received the event", i)
		}
	}
}

func TestMemoryBrokerJoinIsIdempotentPerSession(t *testing.T) {
	broker := channel.NewMemoryBroker()
	defer broker.Close()

	if broker.Join("s1") != broker.Join("s1") {
		t.Fatal("expected the same topic for the same session id")
	}
	if broker.Join("s1") == broker.Join("s2") {
		t.Fatal("expected distinct topics for distinct sessions")
	}
}

func TestMemoryBrokerCancelIsSafeTwice(t *testing.T) {
	broker := channel.NewMemoryBroker()
	defer broker.Close()
	ctx := context.Background()

	ch := broker.Join("s1")
	cancel, err := ch.Subscribe(ctx, func(domain.Event) {})
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	cancel()
	cancel()

	// Publishing after teardown must not panic or block.
	ev, _ := domain.NewEvent("s1", domain.EventAnswerCount, domain.AnswerCountPayload{QuestionID: "q1", AnswerCount: 1})
	if err := ch.Publish(ctx, ev); err != nil {
		t.Fatalf("publish after cancel: %v", err)
	}
}

func TestTopicName(t *testing.T) {
	if got := channel.TopicName("abc"); got != "live-quiz:abc" {
		t.Fatalf("unexpected topic name %q", got)
	}
}
