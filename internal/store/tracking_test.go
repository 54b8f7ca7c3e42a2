package store

import (
	"context"
	"testing"
	"time"

	"github.com/dukerupert/lifequest/internal/model"
)

func TestTrackingUpsertIsIdempotent(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()
	u := createTestUser(t, s, "a@example.com")
	h := createTestHabit(t, s, u.ID, 10)
	day := time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC)

	rec := model.TrackingRecord{HabitID: h.ID, UserID: u.ID, Date: day, Completed: true, XPGained: 10}
	first, err := s.Tracking.Upsert(ctx, rec)
	if err != nil {
		t.Fatalf("first upsert: %v", err)
	}
	second, err := s.Tracking.Upsert(ctx, rec)
	if err != nil {
		t.Fatalf("second upsert: %v", err)
	}
	if first.ID != second.ID {
		t.Errorf("id changed: %d -> %d", first.ID, second.ID)
	}

	records, err := s.Tracking.ListByDate(ctx, u.ID, day)
	if err != nil {
		t.Fatalf("list by date: %v", err)
	}
	if len(records) != 1 {
		t.Errorf("records = %d, want 1", len(records))
	}
}

func TestTrackingLastWriteWins(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()
	u := createTestUser(t, s, "a@example.com")
	h := createTestHabit(t, s, u.ID, 10)
	day := time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC)

	done, err := s.Tracking.Upsert(ctx, model.TrackingRecord{HabitID: h.ID, UserID: u.ID, Date: day, Completed: true, XPGained: 10})
	if err != nil {
		t.Fatalf("upsert completed: %v", err)
	}
	if done.CompletedAt == nil {
		t.Error("completed_at should be set for a completed record")
	}

	undone, err := s.Tracking.Upsert(ctx, model.TrackingRecord{HabitID: h.ID, UserID: u.ID, Date: day, XPLost: 20})
	if err != nil {
		t.Fatalf("upsert not completed: %v", err)
	}
	if undone.Completed {
		t.Error("completed = true, want false")
	}
	if undone.CompletedAt != nil {
		t.Errorf("completed_at = %v, want nil", undone.CompletedAt)
	}
	if undone.XPGained != 0 || undone.XPLost != 20 {
		t.Errorf("xp = +%d/-%d, want +0/-20", undone.XPGained, undone.XPLost)
	}
	if !undone.Date.Equal(day) {
		t.Errorf("date = %v, want %v", undone.Date, day)
	}
}

func TestTrackingDelete(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()
	u := createTestUser(t, s, "a@example.com")
	h := createTestHabit(t, s, u.ID, 10)
	day := time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC)

	if _, err := s.Tracking.Upsert(ctx, model.TrackingRecord{HabitID: h.ID, UserID: u.ID, Date: day, Completed: true}); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if err := s.Tracking.Delete(ctx, h.ID, day); err != nil {
		t.Fatalf("delete: %v", err)
	}
	rec, err := s.Tracking.Get(ctx, h.ID, day)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if rec != nil {
		t.Errorf("record = %+v, want nil", rec)
	}
}
