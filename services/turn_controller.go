package services

import (
	"log"
	"sync"
	"time"

	"livearena/models"
)

// TurnController owns the "who is speaking now and how much time is
// left" part of session state and drives the countdown. At most one
// timer goroutine runs per event; selecting a new speaker cancels the
// previous countdown before starting the next.
type TurnController struct {
	store           *SessionStore
	broadcaster     Broadcaster
	speakingSeconds int
	questionSeconds int
	tickInterval    time.Duration

	mutex  sync.Mutex
	timers map[string]chan struct{}
}

// NewTurnController creates a turn controller with one-second ticks.
func NewTurnController(store *SessionStore, broadcaster Broadcaster, speakingSeconds, questionSeconds int) *TurnController {
	return &TurnController{
		store:           store,
		broadcaster:     broadcaster,
		speakingSeconds: speakingSeconds,
		questionSeconds: questionSeconds,
		tickInterval:    time.Second,
		timers:          make(map[string]chan struct{}),
	}
}

// SetTickInterval overrides the countdown tick period. Used by tests to
// run countdowns faster than real time.
func (tc *TurnController) SetTickInterval(d time.Duration) {
	tc.tickInterval = d
}

// StartSession moves the session to in_progress and announces it.
func (tc *TurnController) StartSession(eventID string) error {
	if err := tc.store.TransitionStatus(eventID, models.StatusInProgress); err != nil {
		return err
	}
	tc.broadcaster.Broadcast(eventID, "session-status", map[string]interface{}{
		"status": models.StatusInProgress,
	})
	return nil
}

// EndSession cancels any running countdown, moves the session to its
// terminal state and removes it from the registry. The returned session
// is the final state, for archiving.
func (tc *TurnController) EndSession(eventID string) (*models.Session, error) {
	if err := tc.store.TransitionStatus(eventID, models.StatusEnded); err != nil {
		return nil, err
	}
	tc.cancelTimer(eventID)

	session, err := tc.store.Remove(eventID)
	if err != nil {
		return nil, err
	}

	tc.broadcaster.Broadcast(eventID, "show-leaderboard", nil)
	return session, nil
}

// SelectSpeaker makes the participant the current speaker, resets the
// countdown and starts ticking. Valid only while the session is
// in_progress.
func (tc *TurnController) SelectSpeaker(eventID, participantID string) error {
	session, err := tc.store.Get(eventID)
	if err != nil {
		return err
	}

	session.Mutex.Lock()
	if session.Status != models.StatusInProgress {
		session.Mutex.Unlock()
		return ErrInvalidState
	}
	participant := session.FindParticipant(participantID)
	if participant == nil {
		session.Mutex.Unlock()
		return ErrUnknownParticipant
	}

	// Arm the new countdown before touching the clock, while still
	// holding the session lock, so a tick of the previous countdown can
	// never land on the freshly reset time.
	stop := tc.armTimer(eventID)

	seconds := session.SpeakingSeconds
	if seconds <= 0 {
		seconds = tc.speakingSeconds
	}
	session.CurrentSpeakerID = participantID
	session.TimeLeft = seconds
	session.ReactedThisTurn = make(map[string]bool)
	speaker := *participant
	session.Mutex.Unlock()

	tc.broadcaster.Broadcast(eventID, "speaker-changed", map[string]interface{}{
		"currentSpeaker": speaker,
		"timeLeft":       seconds,
	})
	tc.runTimer(eventID, stop)
	return nil
}

// SkipChance cancels the running countdown and marks the current
// speaker as having spoken without advancing to anyone else.
func (tc *TurnController) SkipChance(eventID string) error {
	session, err := tc.store.Get(eventID)
	if err != nil {
		return err
	}

	session.Mutex.Lock()
	if session.Status != models.StatusInProgress || session.CurrentSpeakerID == "" {
		session.Mutex.Unlock()
		return ErrInvalidState
	}

	tc.cancelTimer(eventID)

	speakerID := session.CurrentSpeakerID
	if participant := session.FindParticipant(speakerID); participant != nil {
		participant.HasSpoken = true
	}
	if _, ok := session.Scores[speakerID]; !ok {
		session.Scores[speakerID] = &models.ScoreRecord{Skipped: true}
	}
	session.CurrentSpeakerID = ""
	session.TimeLeft = 0
	snapshot := session.Snapshot()
	session.Mutex.Unlock()

	tc.broadcaster.Broadcast(eventID, "speaker-changed", map[string]interface{}{
		"currentSpeaker": nil,
	})
	tc.broadcaster.Broadcast(eventID, "participants-updated", map[string]interface{}{
		"for":     snapshot.For,
		"against": snapshot.Against,
	})
	return nil
}

// NextQuestion advances a quiz session to the next question and
// restarts the countdown. Past the last question it stops the clock and
// sends everyone to the leaderboard view.
func (tc *TurnController) NextQuestion(eventID string) error {
	session, err := tc.store.Get(eventID)
	if err != nil {
		return err
	}

	session.Mutex.Lock()
	if session.Status != models.StatusInProgress || session.Kind != models.KindQuiz {
		session.Mutex.Unlock()
		return ErrInvalidState
	}

	next := session.CurrentQuestion + 1
	if next >= len(session.Questions) {
		session.CurrentQuestion = len(session.Questions)
		session.TimeLeft = 0
		session.Mutex.Unlock()

		tc.cancelTimer(eventID)
		tc.broadcaster.Broadcast(eventID, "show-leaderboard", nil)
		return nil
	}

	stop := tc.armTimer(eventID)

	session.CurrentQuestion = next
	session.TimeLeft = tc.questionSeconds
	question := session.Questions[next]
	seconds := session.TimeLeft
	session.Mutex.Unlock()

	// The correct answer stays server-side.
	tc.broadcaster.Broadcast(eventID, "question-changed", map[string]interface{}{
		"index":    next,
		"text":     question.Text,
		"options":  question.Options,
		"points":   question.Points,
		"timeLeft": seconds,
	})
	tc.runTimer(eventID, stop)
	return nil
}

// armTimer replaces any running countdown with a fresh stop handle and
// returns it. Callers arm while holding the session mutex so a stale
// tick fenced out by currentTimer can never touch the reset clock.
func (tc *TurnController) armTimer(eventID string) chan struct{} {
	stop := make(chan struct{})

	tc.mutex.Lock()
	if prev, ok := tc.timers[eventID]; ok {
		close(prev)
	}
	tc.timers[eventID] = stop
	tc.mutex.Unlock()
	return stop
}

// runTimer drives an armed countdown. Each tick decrements timeLeft by
// one; at zero the timer stops on its own and times-up is broadcast,
// without auto-advancing the turn.
func (tc *TurnController) runTimer(eventID string, stop chan struct{}) {
	go func() {
		ticker := time.NewTicker(tc.tickInterval)
		defer ticker.Stop()

		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				if done := tc.tick(eventID, stop); done {
					tc.clearTimer(eventID, stop)
					return
				}
			}
		}
	}()
}

func (tc *TurnController) currentTimer(eventID string) chan struct{} {
	tc.mutex.Lock()
	defer tc.mutex.Unlock()
	return tc.timers[eventID]
}

// tick applies one countdown step. It reports true when the countdown
// is finished and the goroutine should exit. A tick whose stop handle
// is no longer the event's current timer is stale and applies nothing.
func (tc *TurnController) tick(eventID string, stop chan struct{}) bool {
	session, err := tc.store.Get(eventID)
	if err != nil {
		return true
	}

	session.Mutex.Lock()
	if tc.currentTimer(eventID) != stop {
		session.Mutex.Unlock()
		return true
	}
	if session.Status != models.StatusInProgress || session.TimeLeft <= 0 {
		session.Mutex.Unlock()
		return true
	}
	session.TimeLeft--
	timeLeft := session.TimeLeft
	session.Mutex.Unlock()

	tc.broadcaster.Broadcast(eventID, "timer-updated", map[string]interface{}{
		"timeLeft": timeLeft,
	})
	if timeLeft == 0 {
		log.Printf("Timer expired for event %s", eventID)
		tc.broadcaster.Broadcast(eventID, "times-up", map[string]interface{}{
			"eventId": eventID,
		})
		return true
	}
	return false
}

// cancelTimer stops the event's countdown if one is running.
func (tc *TurnController) cancelTimer(eventID string) {
	tc.mutex.Lock()
	defer tc.mutex.Unlock()

	if stop, ok := tc.timers[eventID]; ok {
		close(stop)
		delete(tc.timers, eventID)
	}
}

// clearTimer removes the bookkeeping entry for a countdown that ended
// on its own, unless a newer countdown already replaced it.
func (tc *TurnController) clearTimer(eventID string, stop chan struct{}) {
	tc.mutex.Lock()
	defer tc.mutex.Unlock()

	if current, ok := tc.timers[eventID]; ok && current == stop {
		delete(tc.timers, eventID)
	}
}
