package services

import (
	"errors"
	"testing"

	"livearena/models"
)

func TestCreateSessionRejectsDuplicates(t *testing.T) {
	store := NewSessionStore()

	_, err := store.CreateSession("event1", SessionConfig{})
	if err != nil {
		t.Fatalf("Failed to create session: %v", err)
	}

	_, err = store.CreateSession("event1", SessionConfig{})
	if !errors.Is(err, ErrAlreadyExists) {
		t.Errorf("Expected ErrAlreadyExists for duplicate create, got %v", err)
	}

	// Once ended, a fresh session may be created for the same event.
	if err := store.TransitionStatus("event1", models.StatusInProgress); err != nil {
		t.Fatalf("Failed to start session: %v", err)
	}
	if err := store.TransitionStatus("event1", models.StatusEnded); err != nil {
		t.Fatalf("Failed to end session: %v", err)
	}
	if _, err := store.CreateSession("event1", SessionConfig{}); err != nil {
		t.Errorf("Expected create to succeed after previous session ended, got %v", err)
	}
}

func TestGetUnknownSession(t *testing.T) {
	store := NewSessionStore()

	if _, err := store.Get("missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
	if _, err := store.Snapshot("missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound from Snapshot, got %v", err)
	}
}

func TestStatusStateMachine(t *testing.T) {
	store := NewSessionStore()
	store.CreateSession("event1", SessionConfig{})

	// Skipping a state is rejected.
	if err := store.TransitionStatus("event1", models.StatusEnded); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("Expected ErrInvalidTransition for not_started -> ended, got %v", err)
	}

	if err := store.TransitionStatus("event1", models.StatusInProgress); err != nil {
		t.Fatalf("Failed to start session: %v", err)
	}

	// Going backwards is rejected.
	if err := store.TransitionStatus("event1", models.StatusNotStarted); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("Expected ErrInvalidTransition for in_progress -> not_started, got %v", err)
	}

	if err := store.TransitionStatus("event1", models.StatusEnded); err != nil {
		t.Fatalf("Failed to end session: %v", err)
	}

	// ended is terminal.
	if err := store.TransitionStatus("event1", models.StatusInProgress); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("Expected ErrInvalidTransition out of ended, got %v", err)
	}
}

func TestRegisterParticipantSideImmutable(t *testing.T) {
	store := NewSessionStore()
	store.CreateSession("event1", SessionConfig{})

	if _, err := store.RegisterParticipant("event1", "p1", "Alice", models.SideFor); err != nil {
		t.Fatalf("Failed to register participant: %v", err)
	}

	// Re-registering on the same side is a no-op.
	if _, err := store.RegisterParticipant("event1", "p1", "Alice", models.SideFor); err != nil {
		t.Errorf("Expected same-side re-registration to succeed, got %v", err)
	}

	// Switching sides is rejected.
	if _, err := store.RegisterParticipant("event1", "p1", "Alice", models.SideAgainst); !errors.Is(err, ErrInvalidState) {
		t.Errorf("Expected ErrInvalidState for side change, got %v", err)
	}

	snapshot, _ := store.Snapshot("event1")
	if len(snapshot.For) != 1 || len(snapshot.Against) != 0 {
		t.Errorf("Expected 1 participant on for and 0 on against, got %d/%d", len(snapshot.For), len(snapshot.Against))
	}
}

func TestRegisterParticipantAfterEnd(t *testing.T) {
	store := NewSessionStore()
	store.CreateSession("event1", SessionConfig{})
	store.TransitionStatus("event1", models.StatusInProgress)
	store.TransitionStatus("event1", models.StatusEnded)

	if _, err := store.RegisterParticipant("event1", "p1", "Alice", models.SideFor); !errors.Is(err, ErrInvalidState) {
		t.Errorf("Expected ErrInvalidState after end, got %v", err)
	}
}

func TestRemoveReturnsFinalState(t *testing.T) {
	store := NewSessionStore()
	store.CreateSession("event1", SessionConfig{})
	store.RegisterParticipant("event1", "p1", "Alice", models.SideFor)

	session, err := store.Remove("event1")
	if err != nil {
		t.Fatalf("Failed to remove session: %v", err)
	}
	if len(session.For) != 1 {
		t.Errorf("Expected removed session to keep its roster, got %d", len(session.For))
	}
	if _, err := store.Get("event1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected session to be gone after removal, got %v", err)
	}
}
