package memory

import (
	"context"
	"errors"
	"testing"

	"case-reasons-training/internal/domain"
	"case-reasons-training/internal/quiz"
)

func TestSessionStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	store := NewSessionStore()

	session := &quiz.Session{ID: "s1", Score: 10, State: quiz.StateSolved}
	if err := store.Save(ctx, session); err != nil {
		t.Fatalf("save: %v", err)
	}

	// Mutating the caller's copy must not leak into the store.
	session.Score = 99
	got, err := store.Get(ctx, "s1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Score != 10 {
		t.Fatalf("expected stored score 10, got %d", got.Score)
	}

	if err := store.Delete(ctx, "s1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := store.Get(ctx, "s1"); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("expected session removed, got %v", err)
	}
	if store.Len() != 0 {
		t.Fatalf("expected empty store")
	}
}

func TestSessionStoreRejectsStaleSave(t *testing.T) {
	ctx := context.Background()
	store := NewSessionStore()

	if err := store.Save(ctx, &quiz.Session{ID: "s1", State: quiz.StateSolved}); err != nil {
		t.Fatalf("save: %v", err)
	}
	a, _ := store.Get(ctx, "s1")
	b, _ := store.Get(ctx, "s1")

	a.State = quiz.StateComplete
	if err := store.Save(ctx, a); err != nil {
		t.Fatalf("first save: %v", err)
	}
	b.State = quiz.StateComplete
	if err := store.Save(ctx, b); !errors.Is(err, domain.ErrConcurrentUpdate) {
		t.Fatalf("expected ErrConcurrentUpdate, got %v", err)
	}

	// The winner can keep saving with its bumped version.
	a.Score = 5
	if err := store.Save(ctx, a); err != nil {
		t.Fatalf("follow-up save: %v", err)
	}
}

func TestSessionStoreSaveAfterDelete(t *testing.T) {
	ctx := context.Background()
	store := NewSessionStore()

	session := &quiz.Session{ID: "s1"}
	if err := store.Save(ctx, session); err != nil {
		t.Fatalf("save: %v", err)
	}
	_ = store.Delete(ctx, "s1")
	if err := store.Save(ctx, session); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("expected deleted session to stay gone, got %v", err)
	}
}
