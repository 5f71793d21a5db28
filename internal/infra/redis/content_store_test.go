package redis

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"quizlive/internal/domain"
	"quizlive/internal/infra/memory"
)

func TestContentStoreCachesInRedis(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	client := newClient(mr)

	loader := &countingLoader{
		QuizLoader: memory.NewStaticQuizLoader(map[string]domain.Quiz{
			"quiz-1": sampleQuiz(),
		}),
	}
	store := NewContentStore(client, loader, time.Minute)

	quiz, err := store.GetQuiz(context.Background(), "quiz-1")
	if err != nil {
		t.Fatalf("get quiz: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected loader called once, got %d", loader.calls)
	}
	if len(quiz.Questions) != 1 || quiz.Questions[0].TimeLimitSec != 30 {
		t.Fatalf("cached quiz must keep full question metadata, got %+v", quiz.Questions)
	}
	if !mr.Exists("quiz:content:quiz-1") {
		t.Fatalf("expected the quiz cached under quiz:content:quiz-1")
	}

	// Second call should hit cache, loader not incremented.
	if _, err := store.GetQuiz(context.Background(), "quiz-1"); err != nil {
		t.Fatalf("cached get: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected cache hit, loader calls=%d", loader.calls)
	}
}

func TestContentStoreFallsBackOnExpiry(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	client := newClient(mr)
	loader := &countingLoader{
		QuizLoader: memory.NewStaticQuizLoader(map[string]domain.Quiz{
			"quiz-1": sampleQuiz(),
		}),
	}
	store := NewContentStore(client, loader, time.Minute)

	if _, err := store.GetQuiz(context.Background(), "quiz-1"); err != nil {
		t.Fatalf("get quiz: %v", err)
	}
	mr.FastForward(2 * time.Minute)

	if _, err := store.GetQuiz(context.Background(), "quiz-1"); err != nil {
		t.Fatalf("get quiz after expiry: %v", err)
	}
	if loader.calls != 2 {
		t.Fatalf("expected reload after TTL, loader calls=%d", loader.calls)
	}
}

type countingLoader struct {
	memory.QuizLoader
	calls int
}

func (l *countingLoader) LoadQuiz(ctx context.Context, quizID string) (domain.Quiz, error) {
	l.calls++
	return l.QuizLoader.LoadQuiz(ctx, quizID)
}

func sampleQuiz() domain.Quiz {
	return domain.Quiz{
		ID: "quiz-1",
		Questions: []domain.Question{
			{
				ID:           "q1",
				Prompt:       "What is the chemical symbol for gold?",
				Options:      []string{"Au", "Ag", "Fe", "Cu"},
				CorrectIndex: 0,
				TimeLimitSec: 30,
				Points:       100,
			},
		},
	}
}

func newClient(mr *miniredis.Miniredis) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
}
