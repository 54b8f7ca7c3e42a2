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

const (
	readingXP       = 15
	readingNameTmpl = "Read: %s"
	readingDescTmpl = "Reading \"%s\" - week %d/%d"
)

var readingWeekdays = []time.Weekday{time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday}

// ReadingWeekResult is the outcome of marking a reading week.
type ReadingWeekResult struct {
	Entry               *model.ReadingPlanEntry `json:"entry"`
	TotalCompletedWeeks int                     `json:"total_completed_weeks"`
	Unlocked            []model.Reward          `json:"unlocked"`
}

func (s *Service) ReadingPlan(ctx context.Context, userID int64, year int) ([]model.ReadingPlanEntry, error) {
	return s.stores.Reading.List(ctx, userID, year)
}

func validateWeek(year, week int) error {
	if year < 1 || year > 9999 {
		return habit.Invalid("year", "must be between 1 and 9999")
	}
	if week < 1 || week > 53 {
		return habit.Invalid("week", "must be between 1 and 53")
	}
	if week == 53 {
		mon, _ := habit.ISOWeekRange(year, week)
		if y, w := mon.ISOWeek(); y != year || w != 53 {
			return habit.Invalid("week", "%d has no ISO week 53", year)
		}
	}
	return nil
}

func cleanTitle(title string) (string, error) {
	title = strings.Join(strings.Fields(title), " ")
	if title == "" {
		return "", habit.Invalid("book_title", "is required")
	}
	return title, nil
}

// AddBook plans a book for an ISO week and creates or refreshes the daily
// reading habit for that book.
func (s *Service) AddBook(ctx context.Context, userID int64, title string, week, year int) (*model.ReadingPlanEntry, error) {
	title, err := cleanTitle(title)
	if err != nil {
		return nil, err
	}
	if err := validateWeek(year, week); err != nil {
		return nil, err
	}

	existing, err := s.stores.Reading.GetByWeek(ctx, userID, year, week)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, fmt.Errorf("%w: week %d/%d already has a book", ErrConflict, week, year)
	}

	entry, err := s.stores.Reading.Create(ctx, userID, year, week, title)
	if store.IsUniqueViolation(err) {
		return nil, fmt.Errorf("%w: week %d/%d already has a book", ErrConflict, week, year)
	}
	if err != nil {
		return nil, err
	}

	if err := s.syncReadingHabit(ctx, userID, "", entry); err != nil {
		s.logger.Error("sync reading habit", "user_id", userID, "entry_id", entry.ID, "error", err)
	}
	s.notify.Notify(userID, "reading_plan", "created", entry.ID)
	return entry, nil
}

// EditBook changes the title of a planned week and relinks the reading habit.
func (s *Service) EditBook(ctx context.Context, userID, id int64, title string) (*model.ReadingPlanEntry, error) {
	title, err := cleanTitle(title)
	if err != nil {
		return nil, err
	}

	entry, err := s.stores.Reading.GetByID(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return nil, ErrNotFound
	}
	oldTitle := entry.BookTitle

	updated, err := s.stores.Reading.UpdateTitle(ctx, userID, id, title)
	if err != nil {
		return nil, err
	}

	if err := s.syncReadingHabit(ctx, userID, oldTitle, updated); err != nil {
		s.logger.Error("sync reading habit", "user_id", userID, "entry_id", id, "error", err)
	}
	s.notify.Notify(userID, "reading_plan", "updated", id)
	return updated, nil
}

// DeleteBook removes a planned week. The book's habit is deactivated once
// no planned week references the book.
func (s *Service) DeleteBook(ctx context.Context, userID, id int64) error {
	entry, err := s.stores.Reading.GetByID(ctx, userID, id)
	if err != nil {
		return err
	}
	if entry == nil {
		return ErrNotFound
	}
	if err := s.stores.Reading.Delete(ctx, userID, id); err != nil {
		return err
	}

	err = s.stores.InTx(ctx, func(tx *store.Stores) error {
		return retireReadingHabit(ctx, tx, userID, habit.NormalizeTitle(entry.BookTitle))
	})
	if err != nil {
		s.logger.Error("deactivate reading habit", "user_id", userID, "entry_id", id, "error", err)
	}
	s.notify.Notify(userID, "reading_plan", "deleted", id)
	return nil
}

// syncReadingHabit points the habit of entry's book at entry's week. When
// the title changed and nothing else uses the old book's habit, that habit
// is renamed so its history follows the book.
func (s *Service) syncReadingHabit(ctx context.Context, userID int64, oldTitle string, entry *model.ReadingPlanEntry) error {
	ref := habit.NormalizeTitle(entry.BookTitle)
	oldRef := habit.NormalizeTitle(oldTitle)
	mon, sun := habit.ISOWeekRange(entry.Year, entry.Week)

	return s.stores.InTx(ctx, func(tx *store.Stores) error {
		h, err := tx.Habits.GetBySource(ctx, userID, model.SourceReading, ref)
		if err != nil {
			return err
		}

		if h == nil && oldTitle != "" && oldRef != ref {
			used, err := titleInUse(ctx, tx, userID, oldRef)
			if err != nil {
				return err
			}
			if !used {
				h, err = tx.Habits.GetBySource(ctx, userID, model.SourceReading, oldRef)
				if err != nil {
					return err
				}
			}
		} else if oldTitle != "" && oldRef != ref {
			if err := retireReadingHabit(ctx, tx, userID, oldRef); err != nil {
				return err
			}
		}

		if h == nil {
			_, err := tx.Habits.Create(ctx, model.Habit{
				UserID:      userID,
				Name:        fmt.Sprintf(readingNameTmpl, entry.BookTitle),
				Description: fmt.Sprintf(readingDescTmpl, entry.BookTitle, entry.Week, entry.Year),
				Periodicity: model.PeriodicityDaily,
				Weekdays:    readingWeekdays,
				StartDate:   &mon,
				EndDate:     &sun,
				XPGain:      readingXP,
				Active:      true,
				SourceType:  model.SourceReading,
				SourceRef:   ref,
			})
			return err
		}

		h.Name = fmt.Sprintf(readingNameTmpl, entry.BookTitle)
		h.SourceRef = ref
		h.Active = true
		// A retitle that normalizes to the same book keeps the habit's week.
		if oldTitle == "" || oldRef != ref {
			h.Description = fmt.Sprintf(readingDescTmpl, entry.BookTitle, entry.Week, entry.Year)
			h.StartDate = &mon
			h.EndDate = &sun
		}
		_, err = tx.Habits.Update(ctx, *h)
		return err
	})
}

// retireReadingHabit deactivates the habit of a book no planned week uses.
func retireReadingHabit(ctx context.Context, tx *store.Stores, userID int64, ref string) error {
	used, err := titleInUse(ctx, tx, userID, ref)
	if err != nil || used {
		return err
	}
	h, err := tx.Habits.GetBySource(ctx, userID, model.SourceReading, ref)
	if err != nil || h == nil || !h.Active {
		return err
	}
	return tx.Habits.SetActive(ctx, userID, h.ID, false)
}

func titleInUse(ctx context.Context, tx *store.Stores, userID int64, ref string) (bool, error) {
	entries, err := tx.Reading.List(ctx, userID, 0)
	if err != nil {
		return false, err
	}
	for _, e := range entries {
		if habit.NormalizeTitle(e.BookTitle) == ref {
			return true, nil
		}
	}
	return false, nil
}

// MarkReadingWeek sets the completion of a planned week. Completing a week
// tracks every day of its ISO week as done for the book's habit and credits
// XP for each day that was not already done, so toggling a week off and on
// again credits nothing new. Rewards are re-evaluated either way.
func (s *Service) MarkReadingWeek(ctx context.Context, userID, id int64, completed bool) (*ReadingWeekResult, error) {
	today := s.Today()

	var entry *model.ReadingPlanEntry
	var noHabit bool
	err := s.stores.InTx(ctx, func(tx *store.Stores) error {
		noHabit = false
		cur, err := tx.Reading.GetByID(ctx, userID, id)
		if err != nil {
			return err
		}
		if cur == nil {
			return ErrNotFound
		}
		entry, err = tx.Reading.SetCompleted(ctx, userID, id, completed, today)
		if err != nil || !completed {
			return err
		}

		h, err := tx.Habits.GetBySource(ctx, userID, model.SourceReading, habit.NormalizeTitle(entry.BookTitle))
		if err != nil {
			return err
		}
		if h == nil {
			noHabit = true
			return nil
		}
		return creditReadingWeek(ctx, tx, userID, h, entry)
	})
	if err != nil {
		return nil, fmt.Errorf("mark reading week: %w", err)
	}
	if noHabit {
		s.logger.Warn("no reading habit for book", "user_id", userID, "entry_id", id, "book", entry.BookTitle)
	}

	total, unlocked, err := s.EvaluateRewards(ctx, userID)
	if err != nil {
		return nil, err
	}

	s.notify.Notify(userID, "reading_plan", "marked", id)
	return &ReadingWeekResult{Entry: entry, TotalCompletedWeeks: total, Unlocked: unlocked}, nil
}

// creditReadingWeek marks Monday through Sunday of entry's week done for h.
// Only days whose record goes from not done to done earn XP.
func creditReadingWeek(ctx context.Context, tx *store.Stores, userID int64, h *model.Habit, entry *model.ReadingPlanEntry) error {
	mon, _ := habit.ISOWeekRange(entry.Year, entry.Week)

	var delta int
	for i := 0; i < 7; i++ {
		d := mon.AddDate(0, 0, i)
		prev, err := tx.Tracking.Get(ctx, h.ID, d)
		if err != nil {
			return err
		}
		if prev != nil && prev.Completed {
			continue
		}
		_, err = tx.Tracking.Upsert(ctx, model.TrackingRecord{
			HabitID:   h.ID,
			UserID:    userID,
			Date:      d,
			Completed: true,
			XPGained:  h.XPGain,
		})
		if err != nil {
			return err
		}
		delta += h.XPGain
	}
	if delta == 0 {
		return nil
	}
	_, err := tx.XP.Credit(ctx, userID, delta)
	return err
}

// SaveReadingNotes stores free-form notes on a planned week. Blank notes
// clear the field.
func (s *Service) SaveReadingNotes(ctx context.Context, userID, id int64, notes string) (*model.ReadingPlanEntry, error) {
	entry, err := s.stores.Reading.GetByID(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return nil, ErrNotFound
	}

	var arg *string
	if trimmed := strings.TrimSpace(notes); trimmed != "" {
		arg = &trimmed
	}
	updated, err := s.stores.Reading.SetNotes(ctx, userID, id, arg)
	if err != nil {
		return nil, err
	}
	s.notify.Notify(userID, "reading_plan", "updated", id)
	return updated, nil
}
