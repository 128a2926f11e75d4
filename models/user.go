package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User defines an account able to log in and join session rooms.
type User struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	Email        string             `bson:"email" json:"email"`
	DisplayName  string             `bson:"displayName" json:"displayName"`
	PasswordHash string             `bson:"passwordHash" json:"-"`
	Role         string             `bson:"role,omitempty" json:"role,omitempty"`
	CreatedAt    time.Time          `bson:"createdAt" json:"createdAt"`
}
