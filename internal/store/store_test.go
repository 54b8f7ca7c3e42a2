package store

import (
	"context"
	"testing"

	"github.com/dukerupert/lifequest/internal/database"
	"github.com/dukerupert/lifequest/internal/model"
)

func setupTestDB(t *testing.T) *Stores {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return New(db)
}

func createTestUser(t *testing.T, s *Stores, email string) *model.User {
	t.Helper()
	u, err := s.Users.Create(context.Background(), email, "hash")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	return u
}

func createTestHabit(t *testing.T, s *Stores, userID int64, xp int) *model.Habit {
	t.Helper()
	h, err := s.Habits.Create(context.Background(), model.Habit{
		UserID:      userID,
		Name:        "Drink water",
		Periodicity: model.PeriodicityDaily,
		XPGain:      xp,
		Active:      true,
	})
	if err != nil {
		t.Fatalf("create habit: %v", err)
	}
	return h
}
