package redis

import (
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/jonboulle/clockwork"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"wedding-quiz-service/internal/app"
	"wedding-quiz-service/internal/channel"
)

func TestSessionStoreSetsAndClearsKeys(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewSessionStore(client, time.Minute)

	broker := channel.NewMemoryBroker()
	defer broker.Close()
	host, err := app.NewHostSession("s1", sampleSet().Questions, broker.Join("s1"), clockwork.NewFakeClock(), zerolog.Nop())
	if err != nil {
		t.Fatalf("new host: %v", err)
	}

	store.Put(host)
	if !mr.Exists("quiz:session:s1") {
		t.Fatalf("expected redis key to be set")
	}

	store.Delete("s1")
	if mr.Exists("quiz:session:s1") {
		t.Fatalf("expected redis key to be removed")
	}
}
