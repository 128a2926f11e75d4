package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Event is the persisted configuration record of a debate or quiz event,
// distinct from the live Session spun up from it.
type Event struct {
	ID              primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	EventID         string             `bson:"eventId" json:"eventId"`
	Title           string             `bson:"title" json:"title"`
	Kind            SessionKind        `bson:"kind" json:"kind"`
	Topic           string             `bson:"topic,omitempty" json:"topic,omitempty"`
	CoordinatorID   string             `bson:"coordinatorId" json:"coordinatorId"`
	SpeakingSeconds int                `bson:"speakingSeconds,omitempty" json:"speakingSeconds,omitempty"`
	Questions       []QuizQuestion     `bson:"questions,omitempty" json:"questions,omitempty"`
	CreatedAt       time.Time          `bson:"createdAt" json:"createdAt"`
}

// QuizQuestion is one question of a quiz event.
type QuizQuestion struct {
	Text    string   `bson:"text" json:"text"`
	Options []string `bson:"options" json:"options"`
	Correct int      `bson:"correct" json:"correct"`
	Points  int      `bson:"points" json:"points"`
}
