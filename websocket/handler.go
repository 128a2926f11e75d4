package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"livearena/db"
	"livearena/models"
	"livearena/services"
	"livearena/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.mongodb.org/mongo-driver/bson"
)

var upgrader = websocket.Upgrader{
	// In production, adjust the CheckOrigin function to allow only trusted origins.
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Handler serves the live session socket endpoint. Collaborators are
// injected so the protocol can be exercised in tests without Mongo or
// a shared global registry.
type Handler struct {
	Hub    *Hub
	Store  *services.SessionStore
	Turns  *services.TurnController
	Scores *services.ScoreService

	// Authenticate resolves a bearer token to a user. LookupEvent loads
	// the event configuration backing a room; Archive persists an ended
	// session. Defaults hit the JWT util and Mongo.
	Authenticate func(token string) (userID, name string, err error)
	LookupEvent  func(ctx context.Context, eventID string) (*models.Event, error)
	Archive      func(session *models.Session) error
}

// NewHandler wires a handler with its production collaborators.
func NewHandler(hub *Hub, store *services.SessionStore, turns *services.TurnController, scores *services.ScoreService) *Handler {
	return &Handler{
		Hub:          hub,
		Store:        store,
		Turns:        turns,
		Scores:       scores,
		Authenticate: authenticateToken,
		LookupEvent:  lookupEvent,
		Archive:      services.ArchiveSession,
	}
}

func authenticateToken(token string) (string, string, error) {
	claims, err := utils.ParseJWTToken(token)
	if err != nil {
		return "", "", err
	}
	return claims.UserID, utils.ExtractNameFromEmail(claims.Email), nil
}

func lookupEvent(ctx context.Context, eventID string) (*models.Event, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	var event models.Event
	err := db.GetCollection("events").FindOne(ctx, bson.M{"eventId": eventID}).Decode(&event)
	if err != nil {
		return nil, err
	}
	return &event, nil
}

// Serve upgrades the connection and runs the session message loop.
func (h *Handler) Serve(c *gin.Context) {
	token := strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
	if token == "" {
		token = c.Query("token")
	}
	if token == "" {
		log.Println("WebSocket connection failed: missing token")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Missing token"})
		return
	}

	userID, name, err := h.Authenticate(token)
	if err != nil {
		log.Printf("WebSocket connection failed: invalid token - %v", err)
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Println("WebSocket upgrade error:", err)
		return
	}

	client := &Client{
		conn:   conn,
		ConnID: uuid.New().String(),
		UserID: userID,
		Name:   name,
	}

	defer func() {
		if client.EventID != "" {
			h.Hub.Leave(client)
		}
		conn.Close()
	}()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("WebSocket read error for %s: %v", userID, err)
			}
			return
		}

		var msg ClientMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			client.SendError("malformed message")
			continue
		}
		h.dispatch(client, msg)
	}
}

func (h *Handler) dispatch(client *Client, msg ClientMessage) {
	// Every action except joining requires room membership first.
	switch msg.Type {
	case "join-debate", "join-quiz":
		h.handleJoin(client, msg.Payload)
		return
	}
	if client.EventID == "" {
		client.SendError("join a session before sending commands")
		return
	}

	switch msg.Type {
	case "start-session":
		h.coordinatorOnly(client, func() error {
			return h.Turns.StartSession(client.EventID)
		})
	case "end-session":
		h.coordinatorOnly(client, func() error {
			return h.handleEnd(client.EventID)
		})
	case "select-speaker":
		var payload SelectSpeakerPayload
		if err := json.Unmarshal(msg.Payload, &payload); err != nil {
			client.SendError("malformed select-speaker payload")
			return
		}
		h.coordinatorOnly(client, func() error {
			return h.Turns.SelectSpeaker(client.EventID, payload.ParticipantID)
		})
	case "skip-chance":
		h.coordinatorOnly(client, func() error {
			return h.Turns.SkipChance(client.EventID)
		})
	case "next-question":
		h.coordinatorOnly(client, func() error {
			return h.Turns.NextQuestion(client.EventID)
		})
	case "register-participant":
		var payload RegisterPayload
		if err := json.Unmarshal(msg.Payload, &payload); err != nil {
			client.SendError("malformed register-participant payload")
			return
		}
		h.coordinatorOnly(client, func() error {
			return h.handleRegister(client, payload)
		})
	case "debate-score":
		var payload ScorePayload
		if err := json.Unmarshal(msg.Payload, &payload); err != nil {
			client.SendError("malformed debate-score payload")
			return
		}
		h.coordinatorOnly(client, func() error {
			return h.Scores.SubmitScore(client.EventID, payload.ParticipantID, payload.Criteria)
		})
	case "audience-reaction":
		var payload ReactionPayload
		if err := json.Unmarshal(msg.Payload, &payload); err != nil {
			client.SendError("malformed audience-reaction payload")
			return
		}
		if client.Role != models.RoleAudience {
			client.SendError(services.ErrUnauthorized.Error())
			return
		}
		if err := h.Scores.SubmitReaction(client.EventID, client.UserID, payload.SpeakerID, payload.Reaction); err != nil {
			client.SendError(err.Error())
		}
	case "submit-answer":
		var payload AnswerPayload
		if err := json.Unmarshal(msg.Payload, &payload); err != nil {
			client.SendError("malformed submit-answer payload")
			return
		}
		if client.Role != models.RoleParticipant {
			client.SendError(services.ErrUnauthorized.Error())
			return
		}
		if err := h.Scores.SubmitAnswer(client.EventID, client.UserID, payload.Option); err != nil {
			client.SendError(err.Error())
		}
	case "show-leaderboard":
		h.coordinatorOnly(client, func() error {
			h.Hub.Broadcast(client.EventID, "show-leaderboard", nil)
			return nil
		})
	default:
		client.SendError("unknown message type: " + msg.Type)
	}
}

// coordinatorOnly runs the action if the caller holds the coordinator
// role, otherwise reports Unauthorized to the caller alone.
func (h *Handler) coordinatorOnly(client *Client, action func() error) {
	if client.Role != models.RoleCoordinator {
		client.SendError(services.ErrUnauthorized.Error())
		return
	}
	if err := action(); err != nil {
		client.SendError(err.Error())
	}
}

func (h *Handler) handleJoin(client *Client, raw json.RawMessage) {
	var payload JoinPayload
	if err := json.Unmarshal(raw, &payload); err != nil || payload.EventID == "" {
		client.SendError("malformed join payload")
		return
	}
	if !models.ValidRole(payload.Role) {
		client.SendError("unknown role: " + string(payload.Role))
		return
	}
	if client.EventID != "" {
		client.SendError("already joined an event")
		return
	}

	// Coordinators must own the event they are steering.
	if payload.Role == models.RoleCoordinator {
		event, err := h.LookupEvent(context.Background(), payload.EventID)
		if err != nil {
			client.SendError("event not found")
			return
		}
		if event.CoordinatorID != client.UserID {
			client.SendError(services.ErrUnauthorized.Error())
			return
		}
	}

	snapshot, err := h.Store.Snapshot(payload.EventID)
	if err != nil {
		client.SendError(err.Error())
		return
	}

	client.EventID = payload.EventID
	client.Role = payload.Role
	h.Hub.Join(client)

	// Late joiners reconstruct state from the snapshot; everyone else
	// just learns about the roster change.
	client.SendEvent("session-snapshot", snapshot)
	h.Hub.BroadcastExcept(payload.EventID, "participants-updated", map[string]interface{}{
		"for":           snapshot.For,
		"against":       snapshot.Against,
		"audienceCount": len(h.Hub.Roster(payload.EventID, models.RoleAudience)),
	}, client)
}

func (h *Handler) handleRegister(client *Client, payload RegisterPayload) error {
	if payload.ParticipantID == "" || payload.Name == "" {
		return errors.New("participantId and name are required")
	}
	_, err := h.Store.RegisterParticipant(client.EventID, payload.ParticipantID, payload.Name, payload.Side)
	if err != nil {
		return err
	}

	snapshot, err := h.Store.Snapshot(client.EventID)
	if err != nil {
		return err
	}
	h.Hub.Broadcast(client.EventID, "participants-updated", map[string]interface{}{
		"for":           snapshot.For,
		"against":       snapshot.Against,
		"audienceCount": len(h.Hub.Roster(client.EventID, models.RoleAudience)),
	})
	return nil
}

func (h *Handler) handleEnd(eventID string) error {
	session, err := h.Turns.EndSession(eventID)
	if err != nil {
		return err
	}
	if err := h.Archive(session); err != nil {
		log.Printf("Failed to archive session %s: %v", eventID, err)
	}
	return nil
}
