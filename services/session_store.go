package services

import (
	"sync"
	"time"

	"livearena/models"
)

// Broadcaster fans an event out to every live connection joined to an
// event's room. The websocket hub implements it; tests use a recorder.
type Broadcaster interface {
	Broadcast(eventID, event string, payload interface{})
}

// SessionConfig carries the per-event settings a session is created with.
type SessionConfig struct {
	Kind            models.SessionKind
	SpeakingSeconds int
	Questions       []models.QuizQuestion
}

// SessionStore is the single source of truth for live session state,
// keyed by event ID. It is an explicit registry passed to its callers,
// never ambient package state.
type SessionStore struct {
	mutex    sync.Mutex
	sessions map[string]*models.Session
}

// NewSessionStore creates an empty session registry.
func NewSessionStore() *SessionStore {
	return &SessionStore{
		sessions: make(map[string]*models.Session),
	}
}

// CreateSession initializes a session in not_started with empty side
// groups. A second create for a live (non-ended) session fails with
// ErrAlreadyExists.
func (ss *SessionStore) CreateSession(eventID string, cfg SessionConfig) (*models.Session, error) {
	ss.mutex.Lock()
	defer ss.mutex.Unlock()

	if existing, ok := ss.sessions[eventID]; ok {
		existing.Mutex.Lock()
		live := existing.Status != models.StatusEnded
		existing.Mutex.Unlock()
		if live {
			return nil, ErrAlreadyExists
		}
	}

	kind := cfg.Kind
	if kind == "" {
		kind = models.KindDebate
	}
	session := models.NewSession(eventID, kind, cfg.Questions)
	session.SpeakingSeconds = cfg.SpeakingSeconds
	ss.sessions[eventID] = session
	return session, nil
}

// Get returns the live session for an event, or ErrNotFound.
func (ss *SessionStore) Get(eventID string) (*models.Session, error) {
	ss.mutex.Lock()
	defer ss.mutex.Unlock()

	session, ok := ss.sessions[eventID]
	if !ok {
		return nil, ErrNotFound
	}
	return session, nil
}

// Snapshot returns a copy of the session's observable state.
func (ss *SessionStore) Snapshot(eventID string) (models.SessionSnapshot, error) {
	session, err := ss.Get(eventID)
	if err != nil {
		return models.SessionSnapshot{}, err
	}

	session.Mutex.Lock()
	defer session.Mutex.Unlock()
	return session.Snapshot(), nil
}

// TransitionStatus enforces the not_started -> in_progress -> ended
// state machine. ended is terminal.
func (ss *SessionStore) TransitionStatus(eventID string, newStatus models.SessionStatus) error {
	session, err := ss.Get(eventID)
	if err != nil {
		return err
	}

	session.Mutex.Lock()
	defer session.Mutex.Unlock()

	switch {
	case session.Status == models.StatusNotStarted && newStatus == models.StatusInProgress:
	case session.Status == models.StatusInProgress && newStatus == models.StatusEnded:
		session.EndedAt = time.Now()
	default:
		return ErrInvalidTransition
	}

	session.Status = newStatus
	return nil
}

// RegisterParticipant adds a participant to one side group. The side is
// immutable: registering an existing participant again is a no-op when
// the side matches and ErrInvalidState when it does not.
func (ss *SessionStore) RegisterParticipant(eventID, participantID, name string, side models.Side) (*models.ParticipantRef, error) {
	if !models.ValidSide(side) {
		return nil, ErrInvalidState
	}

	session, err := ss.Get(eventID)
	if err != nil {
		return nil, err
	}

	session.Mutex.Lock()
	defer session.Mutex.Unlock()

	if session.Status == models.StatusEnded {
		return nil, ErrInvalidState
	}

	if existing := session.FindParticipant(participantID); existing != nil {
		if existing.Side != side {
			return nil, ErrInvalidState
		}
		return existing, nil
	}

	participant := &models.ParticipantRef{
		ID:   participantID,
		Name: name,
		Side: side,
	}
	if side == models.SideFor {
		session.For = append(session.For, participant)
	} else {
		session.Against = append(session.Against, participant)
	}
	return participant, nil
}

// Remove deletes the session from the registry and returns it, so the
// caller can archive the final state.
func (ss *SessionStore) Remove(eventID string) (*models.Session, error) {
	ss.mutex.Lock()
	defer ss.mutex.Unlock()

	session, ok := ss.sessions[eventID]
	if !ok {
		return nil, ErrNotFound
	}
	delete(ss.sessions, eventID)
	return session, nil
}
