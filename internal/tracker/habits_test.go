package tracker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/dukerupert/lifequest/internal/database"
	"github.com/dukerupert/lifequest/internal/habit"
	"github.com/dukerupert/lifequest/internal/model"
	"github.com/dukerupert/lifequest/internal/store"
)

func TestCreateHabitValidates(t *testing.T) {
	env := setupService(t)
	ctx := context.Background()

	_, err := env.svc.CreateHabit(ctx, env.userID, model.Habit{
		Name:        "Swim",
		Periodicity: model.PeriodicityThriceWeekly,
		Weekdays:    []time.Weekday{time.Monday, time.Wednesday},
		XPGain:      10,
		Active:      true,
	})
	var verr *habit.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("err = %v, want ValidationError", err)
	}
}

func TestCreateHabitIgnoresSource(t *testing.T) {
	env := setupService(t)
	ctx := context.Background()

	h, err := env.svc.CreateHabit(ctx, env.userID, model.Habit{
		Name:        "Fake workout",
		Periodicity: model.PeriodicityDaily,
		XPGain:      10,
		Active:      true,
		SourceType:  model.SourceWorkout,
	})
	if err != nil {
		t.Fatalf("create habit: %v", err)
	}
	if h.SourceType != model.SourceNone {
		t.Errorf("source_type = %q, want %q", h.SourceType, model.SourceNone)
	}
	if !env.notes.has("habit", "created") {
		t.Error("expected habit_created notification")
	}
}

func TestHabitsForDate(t *testing.T) {
	env := setupService(t)
	ctx := context.Background()
	dom := 3

	daily, _ := env.svc.CreateHabit(ctx, env.userID, model.Habit{Name: "Water", Periodicity: model.PeriodicityDaily, XPGain: 5, Active: true})
	env.svc.CreateHabit(ctx, env.userID, model.Habit{Name: "Rent", Periodicity: model.PeriodicityMonthly, DayOfMonth: &dom, XPGain: 5, Active: true})
	env.svc.CreateHabit(ctx, env.userID, model.Habit{Name: "Paused", Periodicity: model.PeriodicityDaily, XPGain: 5, Active: false})

	// 2025-03-04 is not the 3rd, so only the daily habit is due.
	if _, err := env.svc.MarkHabit(ctx, env.userID, daily.ID, true, ptrTime(day(2025, 3, 4))); err != nil {
		t.Fatalf("mark: %v", err)
	}
	got, err := env.svc.HabitsForDate(ctx, env.userID, day(2025, 3, 4))
	if err != nil {
		t.Fatalf("habits for date: %v", err)
	}
	if len(got) != 1 || got[0].ID != daily.ID {
		t.Fatalf("habits = %+v, want only the daily habit", got)
	}
	if !got[0].Completed || got[0].TrackingID == nil || got[0].XPGained != 5 {
		t.Errorf("status = %+v, want completed with 5 xp", got[0])
	}

	onThird, err := env.svc.HabitsForDate(ctx, env.userID, day(2025, 3, 3))
	if err != nil {
		t.Fatalf("habits for date: %v", err)
	}
	if len(onThird) != 2 {
		t.Errorf("habits on the 3rd = %d, want 2", len(onThird))
	}
	for _, h := range onThird {
		if h.Completed || h.TrackingID != nil {
			t.Errorf("habit %d should have no tracking on the 3rd", h.ID)
		}
	}
}

func ptrTime(t time.Time) *time.Time { return &t }

func TestMarkHabitCreditsOnce(t *testing.T) {
	env := setupService(t)
	ctx := context.Background()
	h, _ := env.svc.CreateHabit(ctx, env.userID, model.Habit{Name: "Water", Periodicity: model.PeriodicityDaily, XPGain: 15, Active: true})

	res, err := env.svc.MarkHabit(ctx, env.userID, h.ID, true, nil)
	if err != nil {
		t.Fatalf("mark: %v", err)
	}
	if res.XPAwarded != 15 || res.XPTotal != 15 || res.Level != 1 {
		t.Errorf("result = %+v, want +15 total 15 level 1", res)
	}
	if !res.Tracking.Date.Equal(day(2025, 3, 9)) {
		t.Errorf("date = %v, want today", res.Tracking.Date)
	}

	again, err := env.svc.MarkHabit(ctx, env.userID, h.ID, true, nil)
	if err != nil {
		t.Fatalf("mark again: %v", err)
	}
	if again.XPAwarded != 0 || again.XPTotal != 15 {
		t.Errorf("second mark = %+v, want no award", again)
	}

	records, err := env.stores.Tracking.ListByDate(ctx, env.userID, day(2025, 3, 9))
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(records) != 1 {
		t.Errorf("records = %d, want 1", len(records))
	}
}

func TestMarkHabitConcurrentCompletions(t *testing.T) {
	db, err := database.Open(filepath.Join(t.TempDir(), "lifequest.db"))
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	ctx := context.Background()
	stores := store.New(db)
	u, err := stores.Users.Create(ctx, "racer@example.com", "hash")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	svc := New(stores, slog.New(slog.NewTextHandler(io.Discard, nil)),
		WithLocation(time.UTC),
		WithClock(func() time.Time { return fixedToday }),
	)

	const n, xp = 20, 5
	ids := make([]int64, n)
	for i := range ids {
		h, err := svc.CreateHabit(ctx, u.ID, model.Habit{Name: fmt.Sprintf("Habit %d", i), Periodicity: model.PeriodicityDaily, XPGain: xp, Active: true})
		if err != nil {
			t.Fatalf("create habit %d: %v", i, err)
		}
		ids[i] = h.ID
	}

	var wg sync.WaitGroup
	errs := make(chan error, n)
	for _, id := range ids {
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			if _, err := svc.MarkHabit(ctx, u.ID, id, true, nil); err != nil {
				errs <- err
			}
		}(id)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Errorf("mark: %v", err)
	}

	b, err := svc.XP(ctx, u.ID)
	if err != nil {
		t.Fatalf("get xp: %v", err)
	}
	if b.XPTotal != n*xp {
		t.Errorf("xp = %d, want %d", b.XPTotal, n*xp)
	}
}

func TestMarkHabitNotDoneRecordsLossOnly(t *testing.T) {
	env := setupService(t)
	ctx := context.Background()
	h, _ := env.svc.CreateHabit(ctx, env.userID, model.Habit{Name: "Water", Periodicity: model.PeriodicityDaily, XPGain: 10, Active: true})

	if _, err := env.svc.MarkHabit(ctx, env.userID, h.ID, true, nil); err != nil {
		t.Fatalf("mark done: %v", err)
	}
	res, err := env.svc.MarkHabit(ctx, env.userID, h.ID, false, nil)
	if err != nil {
		t.Fatalf("mark not done: %v", err)
	}
	if res.Tracking.Completed || res.Tracking.XPLost != 20 || res.Tracking.XPGained != 0 {
		t.Errorf("tracking = %+v, want not completed with 20 lost", res.Tracking)
	}
	if res.XPTotal != 10 {
		t.Errorf("xp_total = %d, want 10 (gain-only ledger)", res.XPTotal)
	}

	// Completing again after un-marking is a new transition.
	res, err = env.svc.MarkHabit(ctx, env.userID, h.ID, true, nil)
	if err != nil {
		t.Fatalf("mark done again: %v", err)
	}
	if res.XPAwarded != 10 || res.XPTotal != 20 {
		t.Errorf("result = %+v, want +10 total 20", res)
	}
}

func TestMarkHabitOtherUser(t *testing.T) {
	env := setupService(t)
	ctx := context.Background()
	h, _ := env.svc.CreateHabit(ctx, env.userID, model.Habit{Name: "Water", Periodicity: model.PeriodicityDaily, XPGain: 10, Active: true})

	other, err := env.stores.Users.Create(ctx, "other@example.com", "hash")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	if _, err := env.svc.MarkHabit(ctx, other.ID, h.ID, true, nil); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
	if b := env.xp(t); b.XPTotal != 0 {
		t.Errorf("owner xp = %d, want 0", b.XPTotal)
	}
}

func TestUpdateAndDeleteHabit(t *testing.T) {
	env := setupService(t)
	ctx := context.Background()
	h, _ := env.svc.CreateHabit(ctx, env.userID, model.Habit{Name: "Water", Periodicity: model.PeriodicityDaily, XPGain: 10, Active: true})

	updated, err := env.svc.UpdateHabit(ctx, env.userID, h.ID, model.Habit{
		Name: "Stretch", Periodicity: model.PeriodicityWeekly,
		Weekdays: []time.Weekday{time.Saturday}, XPGain: 30, Active: true,
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Name != "Stretch" || updated.XPGain != 30 || updated.Periodicity != model.PeriodicityWeekly {
		t.Errorf("updated = %+v", updated)
	}

	if _, err := env.svc.UpdateHabit(ctx, env.userID, 999, *updated); !errors.Is(err, ErrNotFound) {
		t.Errorf("update missing: err = %v, want ErrNotFound", err)
	}

	if err := env.svc.DeleteHabit(ctx, env.userID, h.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := env.svc.DeleteHabit(ctx, env.userID, h.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("delete twice: err = %v, want ErrNotFound", err)
	}
}
