package services

import (
	"sort"

	"livearena/models"
)

// ScoreService accepts scoring and reaction inputs, keeps running
// totals and computes the ordered leaderboard.
type ScoreService struct {
	store       *SessionStore
	broadcaster Broadcaster
}

// NewScoreService creates a score service on top of the session registry.
func NewScoreService(store *SessionStore, broadcaster Broadcaster) *ScoreService {
	return &ScoreService{store: store, broadcaster: broadcaster}
}

// SubmitScore records the coordinator's rubric for a participant.
// Each criterion must be an integer in [0,2]; the total is their sum.
// Re-submission replaces the previous rubric, it never accumulates.
func (sc *ScoreService) SubmitScore(eventID, participantID string, criteria [models.RubricSize]int) error {
	total := 0
	for _, c := range criteria {
		if c < 0 || c > models.RubricMax {
			return ErrInvalidScore
		}
		total += c
	}

	session, err := sc.store.Get(eventID)
	if err != nil {
		return err
	}

	session.Mutex.Lock()
	if session.Status != models.StatusInProgress {
		session.Mutex.Unlock()
		return ErrInvalidState
	}
	if session.FindParticipant(participantID) == nil {
		session.Mutex.Unlock()
		return ErrUnknownParticipant
	}

	record := session.ScoreFor(participantID)
	record.Criteria = criteria
	record.Total = total
	record.Skipped = false
	leaderboard := leaderboardOf(session, "")
	session.Mutex.Unlock()

	sc.broadcaster.Broadcast(eventID, "leaderboard-updated", map[string]interface{}{
		"leaderboard": leaderboard,
	})
	return nil
}

// SubmitReaction folds an audience reaction into the current speaker's
// record. Reactions are only counted while that participant is the
// current speaker and the clock is still running, and each audience
// member is counted once per turn. Dislikes are tallied but do not
// affect the score total.
func (sc *ScoreService) SubmitReaction(eventID, reactorID, speakerID, kind string) error {
	session, err := sc.store.Get(eventID)
	if err != nil {
		return err
	}

	session.Mutex.Lock()
	defer session.Mutex.Unlock()

	if session.Status != models.StatusInProgress {
		return ErrInvalidState
	}
	if session.CurrentSpeakerID == "" || session.CurrentSpeakerID != speakerID || session.TimeLeft <= 0 {
		return ErrInvalidState
	}
	if kind != "like" && kind != "dislike" {
		return ErrInvalidState
	}
	// A rejected reaction must not consume the reactor's one slot, so
	// the turn is only marked once the reaction is known to count.
	if session.ReactedThisTurn[reactorID] {
		// Already counted for this turn.
		return nil
	}
	session.ReactedThisTurn[reactorID] = true

	record := session.ScoreFor(speakerID)
	if kind == "like" {
		record.Likes++
	} else {
		record.Dislikes++
	}
	return nil
}

// SubmitAnswer records a quiz participant's answer to the current
// question while its countdown is running. A correct answer adds the
// question's points to the participant total; each participant answers
// each question at most once.
func (sc *ScoreService) SubmitAnswer(eventID, participantID string, option int) error {
	session, err := sc.store.Get(eventID)
	if err != nil {
		return err
	}

	session.Mutex.Lock()
	if session.Status != models.StatusInProgress || session.Kind != models.KindQuiz {
		session.Mutex.Unlock()
		return ErrInvalidState
	}
	if session.CurrentQuestion < 0 || session.CurrentQuestion >= len(session.Questions) || session.TimeLeft <= 0 {
		session.Mutex.Unlock()
		return ErrInvalidState
	}
	if session.FindParticipant(participantID) == nil {
		session.Mutex.Unlock()
		return ErrUnknownParticipant
	}

	answered := session.Answered[participantID]
	if answered == nil {
		answered = make(map[int]bool)
		session.Answered[participantID] = answered
	}
	if answered[session.CurrentQuestion] {
		session.Mutex.Unlock()
		return ErrInvalidState
	}
	answered[session.CurrentQuestion] = true

	question := session.Questions[session.CurrentQuestion]
	correct := option == question.Correct
	if correct {
		points := question.Points
		if points <= 0 {
			points = 1
		}
		session.ScoreFor(participantID).Total += points
	}
	leaderboard := leaderboardOf(session, "")
	session.Mutex.Unlock()

	sc.broadcaster.Broadcast(eventID, "leaderboard-updated", map[string]interface{}{
		"leaderboard": leaderboard,
	})
	return nil
}

// Leaderboard returns participants sorted descending by total, ties
// broken by descending likes, remaining ties in registration order.
// An empty side returns both groups.
func (sc *ScoreService) Leaderboard(eventID string, side models.Side) ([]models.LeaderboardEntry, error) {
	session, err := sc.store.Get(eventID)
	if err != nil {
		return nil, err
	}

	session.Mutex.Lock()
	defer session.Mutex.Unlock()
	return leaderboardOf(session, side), nil
}

// LeaderboardOf ranks a session the caller already owns, e.g. the final
// state returned by EndSession. The session must not be shared anymore.
func LeaderboardOf(session *models.Session) []models.LeaderboardEntry {
	return leaderboardOf(session, "")
}

func leaderboardOf(session *models.Session, side models.Side) []models.LeaderboardEntry {
	participants := make([]*models.ParticipantRef, 0, len(session.For)+len(session.Against))
	if side == "" || side == models.SideFor {
		participants = append(participants, session.For...)
	}
	if side == "" || side == models.SideAgainst {
		participants = append(participants, session.Against...)
	}

	entries := make([]models.LeaderboardEntry, 0, len(participants))
	for _, p := range participants {
		entry := models.LeaderboardEntry{
			ParticipantID: p.ID,
			Name:          p.Name,
			Side:          p.Side,
		}
		if record, ok := session.Scores[p.ID]; ok {
			entry.Total = record.Total
			entry.Likes = record.Likes
		}
		entries = append(entries, entry)
	}

	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Total != entries[j].Total {
			return entries[i].Total > entries[j].Total
		}
		return entries[i].Likes > entries[j].Likes
	})
	return entries
}
