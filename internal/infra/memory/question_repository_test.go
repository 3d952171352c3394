package memory

import (
	"context"
	"testing"
	"time"

	"wedding-quiz-service/internal/domain"
)

func TestQuestionRepositoryCaches(t *testing.T) {
	loader := &countingLoader{
		QuestionSetLoader: NewStaticQuestionSetLoader(map[string]domain.QuestionSet{
			"wedding-2026": sampleSet(),
		}),
	}
	repo := NewQuestionRepository(loader, time.Minute)

	if _, err := repo.GetQuestionSet(context.Background(), "wedding-2026"); err != nil {
		t.Fatalf("get set: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected loader once, got %d", loader.calls)
	}

	if _, err := repo.GetQuestionSet(context.Background(), "wedding-2026"); err != nil {
		t.Fatalf("get set 2: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected cache hit, loader calls %d", loader.calls)
	}
}

func TestQuestionRepositoryMissingSet(t *testing.T) {
	repo := NewQuestionRepository(NewStaticQuestionSetLoader(nil), time.Minute)
	if _, err := repo.GetQuestionSet(context.Background(), "nope"); err != domain.ErrQuestionSetNotFound {
		t.Fatalf("expected ErrQuestionSetNotFound, got %v", err)
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
