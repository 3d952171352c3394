package redis

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"wedding-quiz-service/internal/domain"
	"wedding-quiz-service/internal/infra/memory"
)

func TestQuestionRepositoryCachesInRedis(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	client := newClient(mr)

	loader := &countingLoader{
		QuestionSetLoader: memory.NewStaticQuestionSetLoader(map[string]domain.QuestionSet{
			"wedding-2026": sampleSet(),
		}),
	}
	repo := NewQuestionRepository(client, loader, time.Minute)

	set, err := repo.GetQuestionSet(context.Background(), "wedding-2026")
	if err != nil {
		t.Fatalf("get set: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected loader called once, got %d", loader.calls)
	}
	if len(set.Questions) != 1 || set.Questions[0].CorrectOption != domain.OptionB {
		t.Fatalf("unexpected set %+v", set)
	}

	// Second call should hit cache with the full document intact.
	set, err = repo.GetQuestionSet(context.Background(), "wedding-2026")
	if err != nil {
		t.Fatalf("get set 2: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected cache hit, loader calls=%d", loader.calls)
	}
	if set.Questions[0].Prompt == "" || set.Questions[0].Options.B == "" {
		t.Fatalf("cache lost question content: %+v", set.Questions[0])
	}
}

type countingLoader struct {
	QuestionSetLoader
	calls int
}

func (l *countingLoader) LoadQuestionSet(ctx context.Context, setID string) (domain.QuestionSet, error) {
	l.calls++
	return l.QuestionSetLoader.LoadQuestionSet(ctx, setID)
}

func sampleSet() domain.QuestionSet {
	return domain.QuestionSet{
		ID: "wedding-2026",
		Questions: []domain.Question{
			{
				ID:               "q1",
				Prompt:           "Where did the couple first meet?",
				Options:          domain.Options{A: "At work", B: "A concert", C: "Online", D: "A wedding"},
				CorrectOption:    domain.OptionB,
				DisplayOrder:     1,
				TimeLimitSeconds: 10,
			},
		},
	}
}

func newClient(mr *miniredis.Miniredis) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
}
