package services

import (
	"context"
	"log"
	"time"

	"livearena/db"
	"livearena/models"
)

// ArchiveSession persists the final state of an ended session. Live
// state is in-memory only; the archive is the single durable record.
func ArchiveSession(session *models.Session) error {
	archive := models.SessionArchive{
		EventID:     session.EventID,
		Kind:        session.Kind,
		For:         session.For,
		Against:     session.Against,
		Scores:      session.Scores,
		Leaderboard: LeaderboardOf(session),
		CreatedAt:   session.CreatedAt,
		EndedAt:     session.EndedAt,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	collection := db.GetCollection("session_archives")
	if _, err := collection.InsertOne(ctx, archive); err != nil {
		log.Printf("Error archiving session %s: %v", session.EventID, err)
		return err
	}
	return nil
}
