package utils

import (
	"context"
	"log"
	"time"

	"livearena/db"
	"livearena/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// PopulateTestUsers inserts sample users into the database when the
// users collection is empty. Dev convenience only.
func PopulateTestUsers() {
	collection := db.GetCollection("users")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	count, err := collection.CountDocuments(ctx, bson.M{})
	if err != nil || count > 0 {
		return
	}

	password, err := HashPassword("password123")
	if err != nil {
		return
	}

	users := []interface{}{
		models.User{
			ID:           primitive.NewObjectID(),
			Email:        "coordinator@example.com",
			DisplayName:  "Carol Coordinator",
			PasswordHash: password,
			Role:         "coordinator",
			CreatedAt:    time.Now(),
		},
		models.User{
			ID:           primitive.NewObjectID(),
			Email:        "alice@example.com",
			DisplayName:  "Alice Johnson",
			PasswordHash: password,
			Role:         "participant",
			CreatedAt:    time.Now(),
		},
		models.User{
			ID:           primitive.NewObjectID(),
			Email:        "bob@example.com",
			DisplayName:  "Bob Smith",
			PasswordHash: password,
			Role:         "participant",
			CreatedAt:    time.Now(),
		},
	}

	if _, err := collection.InsertMany(ctx, users); err != nil {
		log.Printf("Failed to populate test users: %v", err)
		return
	}
	log.Println("Populated test users")
}

// SeedEvents inserts a sample debate and quiz event when the events
// collection is empty.
func SeedEvents() {
	collection := db.GetCollection("events")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	count, err := collection.CountDocuments(ctx, bson.M{})
	if err != nil || count > 0 {
		return
	}

	var coordinator models.User
	if err := db.GetCollection("users").FindOne(ctx, bson.M{"role": "coordinator"}).Decode(&coordinator); err != nil {
		return
	}

	events := []interface{}{
		models.Event{
			EventID:         "demo-debate",
			Title:           "Demo Debate",
			Kind:            models.KindDebate,
			Topic:           "This house believes remote work is here to stay",
			CoordinatorID:   coordinator.ID.Hex(),
			SpeakingSeconds: 120,
			CreatedAt:       time.Now(),
		},
		models.Event{
			EventID:       "demo-quiz",
			Title:         "Demo Quiz",
			Kind:          models.KindQuiz,
			CoordinatorID: coordinator.ID.Hex(),
			Questions: []models.QuizQuestion{
				{Text: "Largest planet in the solar system?", Options: []string{"Earth", "Jupiter", "Saturn"}, Correct: 1, Points: 2},
				{Text: "2 + 2 * 2 = ?", Options: []string{"6", "8", "4"}, Correct: 0, Points: 1},
			},
			CreatedAt: time.Now(),
		},
	}

	if _, err := collection.InsertMany(ctx, events); err != nil {
		log.Printf("Failed to seed events: %v", err)
		return
	}
	log.Println("Seeded demo events")
}
