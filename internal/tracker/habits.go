package tracker

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dukerupert/lifequest/internal/habit"
	"github.com/dukerupert/lifequest/internal/model"
	"github.com/dukerupert/lifequest/internal/store"
)

// MarkResult is the outcome of marking a habit for a day.
type MarkResult struct {
	Tracking  *model.TrackingRecord `json:"tracking"`
	XPAwarded int                   `json:"xp_awarded"`
	XPTotal   int                   `json:"xp_total"`
	Level     int                   `json:"level"`
}

// HabitsForDate returns the user's active habits due on date, each with its
// tracking state for that day.
func (s *Service) HabitsForDate(ctx context.Context, userID int64, date time.Time) ([]model.HabitWithStatus, error) {
	day := habit.Day(date)

	habits, err := s.stores.Habits.ListActive(ctx, userID)
	if err != nil {
		return nil, err
	}
	records, err := s.stores.Tracking.ListByDate(ctx, userID, day)
	if err != nil {
		return nil, err
	}

	due := habit.DueOn(habits, day)
	out := make([]model.HabitWithStatus, 0, len(due))
	for _, h := range due {
		hs := model.HabitWithStatus{Habit: h}
		if rec, ok := records[h.ID]; ok {
			id := rec.ID
			hs.TrackingID = &id
			hs.Completed = rec.Completed
			hs.XPGained = rec.XPGained
			hs.XPLost = rec.XPLost
		}
		out = append(out, hs)
	}
	return out, nil
}

func (s *Service) ListHabits(ctx context.Context, userID int64) ([]model.Habit, error) {
	return s.stores.Habits.List(ctx, userID)
}

func (s *Service) XP(ctx context.Context, userID int64) (*model.XPBalance, error) {
	return s.stores.XP.Get(ctx, userID)
}

// CreateHabit stores a user-defined habit. Plan-generated habits are only
// created through the reading and workout operations.
func (s *Service) CreateHabit(ctx context.Context, userID int64, h model.Habit) (*model.Habit, error) {
	h.UserID = userID
	h.Name = strings.TrimSpace(h.Name)
	h.Weekdays = habit.SortWeekdays(h.Weekdays)
	h.SourceType = model.SourceNone
	h.SourceRef = ""
	if err := habit.Validate(h); err != nil {
		return nil, err
	}

	created, err := s.stores.Habits.Create(ctx, h)
	if err != nil {
		return nil, err
	}
	s.notify.Notify(userID, "habit", "created", created.ID)
	return created, nil
}

// UpdateHabit replaces the definition of an existing habit. The link to a
// generating plan is preserved.
func (s *Service) UpdateHabit(ctx context.Context, userID, id int64, h model.Habit) (*model.Habit, error) {
	existing, err := s.stores.Habits.GetByID(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, ErrNotFound
	}

	h.ID = id
	h.UserID = userID
	h.Name = strings.TrimSpace(h.Name)
	h.Weekdays = habit.SortWeekdays(h.Weekdays)
	h.SourceType = existing.SourceType
	h.SourceRef = existing.SourceRef
	if err := habit.Validate(h); err != nil {
		return nil, err
	}

	updated, err := s.stores.Habits.Update(ctx, h)
	if err != nil {
		return nil, err
	}
	s.notify.Notify(userID, "habit", "updated", id)
	return updated, nil
}

// DeleteHabit removes a habit and its tracking history.
func (s *Service) DeleteHabit(ctx context.Context, userID, id int64) error {
	ok, err := s.stores.Habits.Delete(ctx, userID, id)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}
	s.notify.Notify(userID, "habit", "deleted", id)
	return nil
}

// MarkHabit records whether a habit was done on date (today when nil).
// XP is credited only when the day goes from not completed to completed;
// marking a day not done records the would-be penalty on the tracking
// record without debiting the ledger.
func (s *Service) MarkHabit(ctx context.Context, userID, habitID int64, completed bool, date *time.Time) (*MarkResult, error) {
	day := s.dayOrToday(date)

	var res MarkResult
	err := s.stores.InTx(ctx, func(tx *store.Stores) error {
		h, err := tx.Habits.GetByID(ctx, userID, habitID)
		if err != nil {
			return err
		}
		if h == nil {
			return ErrNotFound
		}

		prev, err := tx.Tracking.Get(ctx, h.ID, day)
		if err != nil {
			return err
		}

		rec := model.TrackingRecord{HabitID: h.ID, UserID: userID, Date: day, Completed: completed}
		if completed {
			rec.XPGained = h.XPGain
		} else {
			rec.XPLost = 2 * h.XPGain
		}
		res.Tracking, err = tx.Tracking.Upsert(ctx, rec)
		if err != nil {
			return err
		}

		var bal *model.XPBalance
		if completed && (prev == nil || !prev.Completed) {
			bal, err = tx.XP.Credit(ctx, userID, h.XPGain)
			res.XPAwarded = h.XPGain
		} else {
			bal, err = tx.XP.Get(ctx, userID)
		}
		if err != nil {
			return err
		}
		res.XPTotal = bal.XPTotal
		res.Level = bal.Level
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("mark habit: %w", err)
	}

	s.logger.Debug("habit marked", "user_id", userID, "habit_id", habitID,
		"date", habit.FormatDate(day), "completed", completed, "xp_awarded", res.XPAwarded)
	s.notify.Notify(userID, "habit", "marked", habitID)
	return &res, nil
}
