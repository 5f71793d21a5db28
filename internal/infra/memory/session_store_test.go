package memory

import (
	"testing"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"quizlive/internal/engine"
)

func TestSessionStoreLifecycle(t *testing.T) {
	store := NewSessionStore()
	content := NewContentStore(NewStaticQuizLoader(nil), 0)
	session := engine.NewSession("s1", "quiz-1", content, engine.DefaultConfig(), clockwork.NewRealClock(), zerolog.Nop())

	store.Add(session)
	if _, ok := store.Get("s1"); !ok {
		t.Fatalf("expected session present")
	}

	store.DeleteIfIdle("s1")
	if _, ok := store.Get("s1"); ok {
		t.Fatalf("expected empty session removed")
	}

	// Unknown ids are a no-op.
	store.DeleteIfIdle("missing")
}

func TestSessionStoreKeepsBusySessions(t *testing.T) {
	store := NewSessionStore()
	content := NewContentStore(NewStaticQuizLoader(nil), 0)
	session := engine.NewSession("s1", "quiz-1", content, engine.DefaultConfig(), clockwork.NewRealClock(), zerolog.Nop())
	store.Add(session)

	if _, err := session.Join("u1", "Alice"); err != nil {
		t.Fatalf("join: %v", err)
	}
	store.DeleteIfIdle("s1")
	if _, ok := store.Get("s1"); !ok {
		t.Fatalf("session with participants must not be deleted")
	}
}
