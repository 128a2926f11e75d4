package websocket

import (
	"encoding/json"

	"livearena/models"
)

// ClientMessage is the envelope every client frame must fit: a type tag
// plus a payload whose shape is fixed per type.
type ClientMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// ServerEvent is the envelope for every frame sent to a room.
type ServerEvent struct {
	Type      string      `json:"type"`
	Payload   interface{} `json:"payload,omitempty"`
	Timestamp int64       `json:"timestamp"`
}

// JoinPayload joins the connection to an event room.
type JoinPayload struct {
	EventID string      `json:"eventId"`
	Role    models.Role `json:"role"`
}

// SelectSpeakerPayload names the participant whose turn starts.
type SelectSpeakerPayload struct {
	ParticipantID string `json:"participantId"`
}

// ReactionPayload is an audience like/dislike for the current speaker.
type ReactionPayload struct {
	SpeakerID string `json:"speakerId"`
	Reaction  string `json:"reaction"`
}

// ScorePayload carries the coordinator's rubric for one participant.
type ScorePayload struct {
	ParticipantID string                 `json:"participantId"`
	Criteria      [models.RubricSize]int `json:"criteria"`
}

// AnswerPayload is a quiz participant's answer to the current question.
type AnswerPayload struct {
	Option int `json:"option"`
}

// RegisterPayload registers a participant on one side of the session.
type RegisterPayload struct {
	ParticipantID string      `json:"participantId"`
	Name          string      `json:"name"`
	Side          models.Side `json:"side"`
}
