package channel

import (
	"context"
	"sync"

	"wedding-quiz-service/internal/domain"
)

// MemoryBroker fans events out in-process. Each subscriber gets a buffered
// queue pumped into its handler by a dedicated goroutine, so dispatch stays
// single-threaded per subscriber.
type MemoryBroker struct {
	mu     sync.RWMutex
	topics map[string]*memoryTopic
	closed bool
}

func NewMemoryBroker() *MemoryBroker {
	return &MemoryBroker{topics: make(map[string]*memoryTopic)}
}

func (b *MemoryBroker) Join(sessionID string) Channel {
	topic := TopicName(sessionID)
	b.mu.Lock()
	defer b.mu.Unlock()
	if t, ok := b.topics[topic]; ok {
		return t
	}
	t := &memoryTopic{subscribers: make(map[chan domain.Event]struct{})}
	b.topics[topic] = t
	return t
}

func (b *MemoryBroker) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for name, t := range b.topics {
		t.closeAll()
		delete(b.topics, name)
	}
	b.closed = true
	return nil
}

type memoryTopic struct {
	mu          sync.Mutex
	subscribers map[chan domain.Event]struct{}
}

func (t *memoryTopic) Publish(_ context.Context, ev domain.Event) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	for ch := range t.subscribers {
		select {
		case ch <- ev:
		default:
			// Drop the oldest queued event so a slow subscriber never
			// blocks the broadcast for everyone else.
			select {
			case <-ch:
			default:
			}
			ch <- ev
		}
	}
	return nil
}

func (t *memoryTopic) Subscribe(_ context.Context, h Handler) (func(), error) {
	ch := make(chan domain.Event, 16)
	t.mu.Lock()
	t.subscribers[ch] = struct{}{}
	t.mu.Unlock()

	go func() {
		for ev := range ch {
			h(ev)
		}
	}()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			t.mu.Lock()
			if _, ok := t.subscribers[ch]; ok {
				delete(t.subscribers, ch)
				close(ch)
			}
			t.mu.Unlock()
		})
	}
	return cancel, nil
}

func (t *memoryTopic) Ready(context.Context) error { return nil }

func (t *memoryTopic) closeAll() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for ch := range t.subscribers {
		delete(t.subscribers, ch)
		close(ch)
	}
}
