package models

import (
	"sync"
	"time"
)

// SessionStatus is the lifecycle phase of a live session.
type SessionStatus string

const (
	StatusNotStarted SessionStatus = "not_started"
	StatusInProgress SessionStatus = "in_progress"
	StatusEnded      SessionStatus = "ended"
)

// SessionKind distinguishes debate sessions from quiz sessions.
type SessionKind string

const (
	KindDebate SessionKind = "debate"
	KindQuiz   SessionKind = "quiz"
)

// Side is a participant's debate side, assigned once at registration.
type Side string

const (
	SideFor     Side = "for"
	SideAgainst Side = "against"
)

// Role identifies what a connected user may do inside a session room.
type Role string

const (
	RoleCoordinator Role = "coordinator"
	RoleParticipant Role = "participant"
	RoleAudience    Role = "audience"
)

// ValidSide reports whether s is one of the two debate sides.
func ValidSide(s Side) bool {
	return s == SideFor || s == SideAgainst
}

// ValidRole reports whether r is a known room role.
func ValidRole(r Role) bool {
	return r == RoleCoordinator || r == RoleParticipant || r == RoleAudience
}

// RubricSize is the number of criteria in the scoring rubric.
const RubricSize = 5

// RubricMax is the maximum value of a single rubric criterion.
const RubricMax = 2

// ParticipantRef is one registered debater or quiz player.
type ParticipantRef struct {
	ID        string `bson:"id" json:"id"`
	Name      string `bson:"name" json:"name"`
	Side      Side   `bson:"side" json:"side"`
	HasSpoken bool   `bson:"hasSpoken" json:"hasSpoken"`
}

// ScoreRecord holds a participant's running totals for one session.
type ScoreRecord struct {
	Criteria [RubricSize]int `bson:"criteria" json:"criteria"`
	Total    int             `bson:"total" json:"total"`
	Likes    int             `bson:"likes" json:"likes"`
	Dislikes int             `bson:"dislikes" json:"dislikes"`
	Skipped  bool            `bson:"skipped" json:"skipped"`
}

// Session is the live runtime state of one debate or quiz, keyed by event ID.
// Callers mutate it under Mutex; the zero-value maps are never nil after
// NewSession.
type Session struct {
	Mutex sync.Mutex `bson:"-" json:"-"`

	EventID          string                  `bson:"eventId" json:"eventId"`
	Kind             SessionKind             `bson:"kind" json:"kind"`
	Status           SessionStatus           `bson:"status" json:"status"`
	SpeakingSeconds  int                     `bson:"speakingSeconds" json:"speakingSeconds"`
	CurrentSpeakerID string                  `bson:"currentSpeakerId" json:"currentSpeakerId"`
	TimeLeft         int                     `bson:"timeLeft" json:"timeLeft"`
	For              []*ParticipantRef       `bson:"for" json:"for"`
	Against          []*ParticipantRef       `bson:"against" json:"against"`
	Scores           map[string]*ScoreRecord `bson:"scores" json:"scores"`

	// Quiz state. CurrentQuestion is -1 until the first question is shown.
	Questions       []QuizQuestion `bson:"questions,omitempty" json:"questions,omitempty"`
	CurrentQuestion int            `bson:"currentQuestion" json:"currentQuestion"`

	// Reactors that already reacted during the current turn, and answers
	// already submitted per question. Reset per turn / never reset.
	ReactedThisTurn map[string]bool         `bson:"-" json:"-"`
	Answered        map[string]map[int]bool `bson:"-" json:"-"`

	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	EndedAt   time.Time `bson:"endedAt,omitempty" json:"endedAt,omitempty"`
}

// NewSession creates a session in not_started with empty rosters.
func NewSession(eventID string, kind SessionKind, questions []QuizQuestion) *Session {
	return &Session{
		EventID:         eventID,
		Kind:            kind,
		Status:          StatusNotStarted,
		Scores:          make(map[string]*ScoreRecord),
		Questions:       questions,
		CurrentQuestion: -1,
		ReactedThisTurn: make(map[string]bool),
		Answered:        make(map[string]map[int]bool),
		CreatedAt:       time.Now(),
	}
}

// FindParticipant returns the registered participant with the given ID,
// searching both side groups.
func (s *Session) FindParticipant(id string) *ParticipantRef {
	for _, p := range s.For {
		if p.ID == id {
			return p
		}
	}
	for _, p := range s.Against {
		if p.ID == id {
			return p
		}
	}
	return nil
}

// ScoreFor returns the participant's score record, creating it if absent.
func (s *Session) ScoreFor(id string) *ScoreRecord {
	rec, ok := s.Scores[id]
	if !ok {
		rec = &ScoreRecord{}
		s.Scores[id] = rec
	}
	return rec
}

// SessionSnapshot is the wire copy of a session sent to late joiners.
type SessionSnapshot struct {
	EventID          string                 `json:"eventId"`
	Kind             SessionKind            `json:"kind"`
	Status           SessionStatus          `json:"status"`
	CurrentSpeakerID string                 `json:"currentSpeakerId"`
	TimeLeft         int                    `json:"timeLeft"`
	For              []ParticipantRef       `json:"for"`
	Against          []ParticipantRef       `json:"against"`
	Scores           map[string]ScoreRecord `json:"scores"`
	CurrentQuestion  int                    `json:"currentQuestion"`
	QuestionCount    int                    `json:"questionCount"`
}

// Snapshot copies the session's observable state. Callers must hold Mutex.
func (s *Session) Snapshot() SessionSnapshot {
	snap := SessionSnapshot{
		EventID:          s.EventID,
		Kind:             s.Kind,
		Status:           s.Status,
		CurrentSpeakerID: s.CurrentSpeakerID,
		TimeLeft:         s.TimeLeft,
		For:              make([]ParticipantRef, 0, len(s.For)),
		Against:          make([]ParticipantRef, 0, len(s.Against)),
		Scores:           make(map[string]ScoreRecord, len(s.Scores)),
		CurrentQuestion:  s.CurrentQuestion,
		QuestionCount:    len(s.Questions),
	}
	for _, p := range s.For {
		snap.For = append(snap.For, *p)
	}
	for _, p := range s.Against {
		snap.Against = append(snap.Against, *p)
	}
	for id, rec := range s.Scores {
		snap.Scores[id] = *rec
	}
	return snap
}

// LeaderboardEntry is one row of the ordered leaderboard.
type LeaderboardEntry struct {
	ParticipantID string `json:"participantId"`
	Name          string `json:"name"`
	Side          Side   `json:"side"`
	Total         int    `json:"total"`
	Likes         int    `json:"likes"`
}

// SessionArchive is the document written to Mongo when a session ends.
type SessionArchive struct {
	EventID     string                  `bson:"eventId"`
	Kind        SessionKind             `bson:"kind"`
	For         []*ParticipantRef       `bson:"for"`
	Against     []*ParticipantRef       `bson:"against"`
	Scores      map[string]*ScoreRecord `bson:"scores"`
	Leaderboard []LeaderboardEntry      `bson:"leaderboard"`
	CreatedAt   time.Time               `bson:"createdAt"`
	EndedAt     time.Time               `bson:"endedAt"`
}
