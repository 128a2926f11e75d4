package controllers

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"livearena/db"
	"livearena/models"
	"livearena/services"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"
)

// SessionController exposes the REST management surface over the live
// session registry. The websocket layer drives the same services.
type SessionController struct {
	Store  *services.SessionStore
	Turns  *services.TurnController
	Scores *services.ScoreService
}

// NewSessionController wires the controller to the shared services.
func NewSessionController(store *services.SessionStore, turns *services.TurnController, scores *services.ScoreService) *SessionController {
	return &SessionController{Store: store, Turns: turns, Scores: scores}
}

func statusForError(err error) int {
	switch {
	case errors.Is(err, services.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrAlreadyExists):
		return http.StatusConflict
	case errors.Is(err, services.ErrUnauthorized):
		return http.StatusForbidden
	case errors.Is(err, services.ErrInvalidTransition),
		errors.Is(err, services.ErrInvalidState),
		errors.Is(err, services.ErrUnknownParticipant),
		errors.Is(err, services.ErrInvalidScore):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// CreateSession handles POST /api/sessions/:eventId. The session is
// configured from the persisted event document.
func (sc *SessionController) CreateSession(c *gin.Context) {
	eventID := c.Param("eventId")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var event models.Event
	err := db.GetCollection("events").FindOne(ctx, bson.M{"eventId": eventID}).Decode(&event)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Event not found"})
		return
	}

	session, err := sc.Store.CreateSession(eventID, services.SessionConfig{
		Kind:            event.Kind,
		SpeakingSeconds: event.SpeakingSeconds,
		Questions:       event.Questions,
	})
	if err != nil {
		c.JSON(statusForError(err), gin.H{"error": err.Error()})
		return
	}

	session.Mutex.Lock()
	snapshot := session.Snapshot()
	session.Mutex.Unlock()
	c.JSON(http.StatusCreated, snapshot)
}

// GetSession handles GET /api/sessions/:eventId.
func (sc *SessionController) GetSession(c *gin.Context) {
	snapshot, err := sc.Store.Snapshot(c.Param("eventId"))
	if err != nil {
		c.JSON(statusForError(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, snapshot)
}

type registerParticipantRequest struct {
	ParticipantID string      `json:"participantId" binding:"required"`
	Name          string      `json:"name" binding:"required"`
	Side          models.Side `json:"side" binding:"required"`
}

// RegisterParticipant handles POST /api/sessions/:eventId/participants.
func (sc *SessionController) RegisterParticipant(c *gin.Context) {
	var req registerParticipantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}

	participant, err := sc.Store.RegisterParticipant(c.Param("eventId"), req.ParticipantID, req.Name, req.Side)
	if err != nil {
		c.JSON(statusForError(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, participant)
}

// GetLeaderboard handles GET /api/sessions/:eventId/leaderboard with an
// optional ?side=for|against filter.
func (sc *SessionController) GetLeaderboard(c *gin.Context) {
	side := models.Side(c.Query("side"))
	if side != "" && !models.ValidSide(side) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown side"})
		return
	}

	leaderboard, err := sc.Scores.Leaderboard(c.Param("eventId"), side)
	if err != nil {
		c.JSON(statusForError(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"leaderboard": leaderboard})
}

// EndSession handles POST /api/sessions/:eventId/end. The final state
// is archived before the live record is dropped.
func (sc *SessionController) EndSession(c *gin.Context) {
	eventID := c.Param("eventId")

	session, err := sc.Turns.EndSession(eventID)
	if err != nil {
		c.JSON(statusForError(err), gin.H{"error": err.Error()})
		return
	}

	if err := services.ArchiveSession(session); err != nil {
		log.Printf("Failed to archive session %s: %v", eventID, err)
	}
	c.JSON(http.StatusOK, gin.H{"leaderboard": services.LeaderboardOf(session)})
}

type createEventRequest struct {
	EventID         string                `json:"eventId" binding:"required"`
	Title           string                `json:"title" binding:"required"`
	Kind            models.SessionKind    `json:"kind"`
	Topic           string                `json:"topic"`
	SpeakingSeconds int                   `json:"speakingSeconds"`
	Questions       []models.QuizQuestion `json:"questions"`
}

// CreateEvent handles POST /api/events and stores the event document a
// session will later be spun up from.
func (sc *SessionController) CreateEvent(c *gin.Context) {
	var req createEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}

	userID, exists := c.Get("userId")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	kind := req.Kind
	if kind == "" {
		kind = models.KindDebate
	}
	event := models.Event{
		EventID:         req.EventID,
		Title:           req.Title,
		Kind:            kind,
		Topic:           req.Topic,
		CoordinatorID:   userID.(string),
		SpeakingSeconds: req.SpeakingSeconds,
		Questions:       req.Questions,
		CreatedAt:       time.Now(),
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	collection := db.GetCollection("events")
	if count, err := collection.CountDocuments(ctx, bson.M{"eventId": req.EventID}); err == nil && count > 0 {
		c.JSON(http.StatusConflict, gin.H{"error": "Event already exists"})
		return
	}
	if _, err := collection.InsertOne(ctx, event); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create event"})
		return
	}
	c.JSON(http.StatusCreated, event)
}
