package services

import (
	"errors"
	"testing"

	"livearena/models"
)

func newScoredSession(rb *recordingBroadcaster) (*SessionStore, *ScoreService) {
	store := NewSessionStore()
	store.CreateSession("event1", SessionConfig{})
	store.RegisterParticipant("event1", "a", "A", models.SideFor)
	store.RegisterParticipant("event1", "b", "B", models.SideFor)
	store.RegisterParticipant("event1", "c", "C", models.SideAgainst)
	store.TransitionStatus("event1", models.StatusInProgress)
	return store, NewScoreService(store, rb)
}

func TestSubmitScoreValidation(t *testing.T) {
	rb := &recordingBroadcaster{}
	_, scores := newScoredSession(rb)

	if err := scores.SubmitScore("event1", "a", [5]int{0, 1, 2, 3, 0}); !errors.Is(err, ErrInvalidScore) {
		t.Errorf("Expected ErrInvalidScore for criterion above 2, got %v", err)
	}
	if err := scores.SubmitScore("event1", "a", [5]int{-1, 0, 0, 0, 0}); !errors.Is(err, ErrInvalidScore) {
		t.Errorf("Expected ErrInvalidScore for negative criterion, got %v", err)
	}
	if err := scores.SubmitScore("event1", "ghost", [5]int{1, 1, 1, 1, 1}); !errors.Is(err, ErrUnknownParticipant) {
		t.Errorf("Expected ErrUnknownParticipant, got %v", err)
	}
	if len(rb.events) != 0 {
		t.Errorf("Expected no broadcasts after rejected scores, got %d", len(rb.events))
	}
}

func TestSubmitScoreTotalAndReplace(t *testing.T) {
	rb := &recordingBroadcaster{}
	store, scores := newScoredSession(rb)

	if err := scores.SubmitScore("event1", "a", [5]int{2, 2, 2, 2, 2}); err != nil {
		t.Fatalf("Failed to submit score: %v", err)
	}
	snapshot, _ := store.Snapshot("event1")
	if snapshot.Scores["a"].Total != 10 {
		t.Errorf("Expected total 10, got %d", snapshot.Scores["a"].Total)
	}

	// Re-submission replaces, it does not accumulate.
	if err := scores.SubmitScore("event1", "a", [5]int{0, 0, 0, 0, 0}); err != nil {
		t.Fatalf("Failed to re-submit score: %v", err)
	}
	snapshot, _ = store.Snapshot("event1")
	if snapshot.Scores["a"].Total != 0 {
		t.Errorf("Expected total 0 after replacement, got %d", snapshot.Scores["a"].Total)
	}
	if rb.count("leaderboard-updated") != 2 {
		t.Errorf("Expected leaderboard-updated per accepted score, got %d", rb.count("leaderboard-updated"))
	}
}

func TestSubmitScoreRequiresInProgress(t *testing.T) {
	rb := &recordingBroadcaster{}
	store := NewSessionStore()
	store.CreateSession("event1", SessionConfig{})
	store.RegisterParticipant("event1", "a", "A", models.SideFor)
	scores := NewScoreService(store, rb)

	if err := scores.SubmitScore("event1", "a", [5]int{1, 1, 1, 1, 1}); !errors.Is(err, ErrInvalidState) {
		t.Errorf("Expected ErrInvalidState before start, got %v", err)
	}
}

func TestSubmitReactionGating(t *testing.T) {
	rb := &recordingBroadcaster{}
	store, scores := newScoredSession(rb)

	// No current speaker.
	if err := scores.SubmitReaction("event1", "viewer1", "a", "like"); !errors.Is(err, ErrInvalidState) {
		t.Errorf("Expected ErrInvalidState without a speaker, got %v", err)
	}

	session, _ := store.Get("event1")
	session.Mutex.Lock()
	session.CurrentSpeakerID = "a"
	session.TimeLeft = 30
	session.Mutex.Unlock()

	if err := scores.SubmitReaction("event1", "viewer1", "a", "like"); err != nil {
		t.Fatalf("Failed to submit reaction: %v", err)
	}
	// Same viewer again in the same turn is not counted twice.
	if err := scores.SubmitReaction("event1", "viewer1", "a", "like"); err != nil {
		t.Fatalf("Duplicate reaction should be a silent no-op: %v", err)
	}
	// Reacting to someone who is not the current speaker is rejected.
	if err := scores.SubmitReaction("event1", "viewer2", "b", "like"); !errors.Is(err, ErrInvalidState) {
		t.Errorf("Expected ErrInvalidState for non-speaker target, got %v", err)
	}
	// Dislikes are tallied but never folded into the score total.
	if err := scores.SubmitReaction("event1", "viewer3", "a", "dislike"); err != nil {
		t.Fatalf("Failed to submit dislike: %v", err)
	}

	snapshot, _ := store.Snapshot("event1")
	record := snapshot.Scores["a"]
	if record.Likes != 1 {
		t.Errorf("Expected 1 like, got %d", record.Likes)
	}
	if record.Dislikes != 1 {
		t.Errorf("Expected 1 dislike, got %d", record.Dislikes)
	}
	if record.Total != 0 {
		t.Errorf("Expected reactions not to change total, got %d", record.Total)
	}

	// Expired clock rejects reactions.
	session.Mutex.Lock()
	session.TimeLeft = 0
	session.Mutex.Unlock()
	if err := scores.SubmitReaction("event1", "viewer4", "a", "like"); !errors.Is(err, ErrInvalidState) {
		t.Errorf("Expected ErrInvalidState with timeLeft 0, got %v", err)
	}
	snapshot, _ = store.Snapshot("event1")
	if snapshot.Scores["a"].Likes != 1 {
		t.Errorf("Expected likes unchanged after expiry, got %d", snapshot.Scores["a"].Likes)
	}
}

func TestSubmitReactionInvalidKindKeepsTurnSlot(t *testing.T) {
	rb := &recordingBroadcaster{}
	store, scores := newScoredSession(rb)

	session, _ := store.Get("event1")
	session.Mutex.Lock()
	session.CurrentSpeakerID = "a"
	session.TimeLeft = 30
	session.Mutex.Unlock()

	// A rejected kind must not burn the viewer's one reaction for the turn.
	if err := scores.SubmitReaction("event1", "viewer1", "a", "applause"); !errors.Is(err, ErrInvalidState) {
		t.Errorf("Expected ErrInvalidState for unknown kind, got %v", err)
	}
	if err := scores.SubmitReaction("event1", "viewer1", "a", "like"); err != nil {
		t.Fatalf("Failed to submit like after rejected kind: %v", err)
	}

	snapshot, _ := store.Snapshot("event1")
	record, ok := snapshot.Scores["a"]
	if !ok || record.Likes != 1 {
		t.Errorf("Expected 1 like after rejected kind, got %+v", record)
	}
	if ok && record.Dislikes != 0 {
		t.Errorf("Expected no dislikes recorded, got %d", record.Dislikes)
	}
}

func TestLeaderboardOrdering(t *testing.T) {
	rb := &recordingBroadcaster{}
	store, scores := newScoredSession(rb)

	session, _ := store.Get("event1")
	session.Mutex.Lock()
	session.Scores["a"] = &models.ScoreRecord{Total: 7, Likes: 5}
	session.Scores["b"] = &models.ScoreRecord{Total: 7, Likes: 9}
	session.Scores["c"] = &models.ScoreRecord{Total: 9, Likes: 0}
	session.Mutex.Unlock()

	leaderboard, err := scores.Leaderboard("event1", "")
	if err != nil {
		t.Fatalf("Failed to get leaderboard: %v", err)
	}

	want := []string{"c", "b", "a"}
	if len(leaderboard) != len(want) {
		t.Fatalf("Expected %d entries, got %d", len(want), len(leaderboard))
	}
	for i, id := range want {
		if leaderboard[i].ParticipantID != id {
			t.Errorf("Expected %s at rank %d, got %s", id, i+1, leaderboard[i].ParticipantID)
		}
	}

	// Side filter narrows the board without reordering.
	forBoard, _ := scores.Leaderboard("event1", models.SideFor)
	if len(forBoard) != 2 || forBoard[0].ParticipantID != "b" || forBoard[1].ParticipantID != "a" {
		t.Errorf("Expected [b a] for the for side, got %+v", forBoard)
	}
}

func TestLeaderboardStableOnTies(t *testing.T) {
	rb := &recordingBroadcaster{}
	store, scores := newScoredSession(rb)

	session, _ := store.Get("event1")
	session.Mutex.Lock()
	session.Scores["a"] = &models.ScoreRecord{Total: 5, Likes: 2}
	session.Scores["b"] = &models.ScoreRecord{Total: 5, Likes: 2}
	session.Mutex.Unlock()

	leaderboard, _ := scores.Leaderboard("event1", "")
	if leaderboard[0].ParticipantID != "a" || leaderboard[1].ParticipantID != "b" {
		t.Errorf("Expected registration order on full ties, got %+v", leaderboard)
	}
}

func TestSubmitAnswerQuiz(t *testing.T) {
	rb := &recordingBroadcaster{}
	store := NewSessionStore()
	store.CreateSession("quiz1", SessionConfig{
		Kind: models.KindQuiz,
		Questions: []models.QuizQuestion{
			{Text: "q1", Options: []string{"a", "b"}, Correct: 1, Points: 3},
		},
	})
	store.RegisterParticipant("quiz1", "p1", "Alice", models.SideFor)
	store.TransitionStatus("quiz1", models.StatusInProgress)
	scores := NewScoreService(store, rb)

	// No question shown yet.
	if err := scores.SubmitAnswer("quiz1", "p1", 1); !errors.Is(err, ErrInvalidState) {
		t.Errorf("Expected ErrInvalidState before first question, got %v", err)
	}

	session, _ := store.Get("quiz1")
	session.Mutex.Lock()
	session.CurrentQuestion = 0
	session.TimeLeft = 30
	session.Mutex.Unlock()

	if err := scores.SubmitAnswer("quiz1", "p1", 1); err != nil {
		t.Fatalf("Failed to submit answer: %v", err)
	}
	snapshot, _ := store.Snapshot("quiz1")
	if snapshot.Scores["p1"].Total != 3 {
		t.Errorf("Expected 3 points for correct answer, got %d", snapshot.Scores["p1"].Total)
	}

	// One answer per question.
	if err := scores.SubmitAnswer("quiz1", "p1", 1); !errors.Is(err, ErrInvalidState) {
		t.Errorf("Expected ErrInvalidState for second answer, got %v", err)
	}
	snapshot, _ = store.Snapshot("quiz1")
	if snapshot.Scores["p1"].Total != 3 {
		t.Errorf("Expected total unchanged after duplicate answer, got %d", snapshot.Scores["p1"].Total)
	}
}
