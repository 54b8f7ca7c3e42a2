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
	workoutXP   = 20
	workoutName = "Workout"
	workoutDesc = "Weekly workout program"

	defaultProgressDays = 90
	maxProgressDays     = 366
)

// ScheduleChange edits a scheduled exercise. Nil fields are left unchanged.
type ScheduleChange struct {
	Weekday     *time.Weekday `json:"weekday"`
	PlannedSets *int          `json:"planned_sets"`
	PlannedReps *string       `json:"planned_reps"`
}

// Series is one set to log for a scheduled exercise.
type Series struct {
	WeightKg float64 `json:"weight_kg"`
	Reps     int     `json:"reps"`
}

// SeriesResult is the outcome of logging sets.
type SeriesResult struct {
	Sets             []model.WorkoutSet `json:"sets"`
	WorkoutCompleted bool               `json:"workout_completed"`
	XPAwarded        int                `json:"xp_awarded"`
}

func (s *Service) CreateExercise(ctx context.Context, userID int64, name, muscleGroup, notes string) (*model.Exercise, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, habit.Invalid("name", "is required")
	}
	e, err := s.stores.Workout.CreateExercise(ctx, userID, name, strings.TrimSpace(muscleGroup), strings.TrimSpace(notes))
	if err != nil {
		return nil, err
	}
	s.notify.Notify(userID, "exercise", "created", e.ID)
	return e, nil
}

func (s *Service) ListExercises(ctx context.Context, userID int64) ([]model.Exercise, error) {
	return s.stores.Workout.ListExercises(ctx, userID)
}

// WorkoutSchedule returns the active program, optionally for one weekday.
func (s *Service) WorkoutSchedule(ctx context.Context, userID int64, weekday *time.Weekday) ([]model.ScheduledExercise, error) {
	if weekday != nil {
		return s.stores.Workout.ListScheduleForWeekday(ctx, userID, *weekday)
	}
	return s.stores.Workout.ListSchedule(ctx, userID)
}

func validateSchedule(weekday time.Weekday, sets int) error {
	if weekday < time.Sunday || weekday > time.Saturday {
		return habit.Invalid("weekday", "must be between 0 and 6")
	}
	if sets < 1 {
		return habit.Invalid("planned_sets", "must be at least 1")
	}
	return nil
}

// ScheduleExercise adds an exercise at the end of a weekday's program and
// recomputes the workout habit.
func (s *Service) ScheduleExercise(ctx context.Context, userID, exerciseID int64, weekday time.Weekday, sets int, reps string) (*model.ScheduledExercise, error) {
	if err := validateSchedule(weekday, sets); err != nil {
		return nil, err
	}
	ex, err := s.stores.Workout.GetExercise(ctx, userID, exerciseID)
	if err != nil {
		return nil, err
	}
	if ex == nil {
		return nil, ErrNotFound
	}

	entry, err := s.stores.Workout.AddScheduled(ctx, userID, exerciseID, weekday, sets, strings.TrimSpace(reps))
	if err != nil {
		return nil, err
	}

	s.syncWorkoutHabitLogged(ctx, userID)
	s.notify.Notify(userID, "workout_schedule", "created", entry.ID)
	return entry, nil
}

// EditScheduledExercise applies change to a scheduled exercise. Moving it to
// another weekday appends it to that day's program.
func (s *Service) EditScheduledExercise(ctx context.Context, userID, id int64, change ScheduleChange) (*model.ScheduledExercise, error) {
	var updated *model.ScheduledExercise
	err := s.stores.InTx(ctx, func(tx *store.Stores) error {
		e, err := tx.Workout.GetScheduled(ctx, userID, id)
		if err != nil {
			return err
		}
		if e == nil || !e.Active {
			return ErrNotFound
		}

		if change.Weekday != nil && *change.Weekday != e.Weekday {
			e.Weekday = *change.Weekday
			if err := validateSchedule(e.Weekday, e.PlannedSets); err != nil {
				return err
			}
			e.Position, err = tx.Workout.NextPosition(ctx, userID, e.Weekday)
			if err != nil {
				return err
			}
		}
		if change.PlannedSets != nil {
			e.PlannedSets = *change.PlannedSets
		}
		if change.PlannedReps != nil {
			e.PlannedReps = strings.TrimSpace(*change.PlannedReps)
		}
		if err := validateSchedule(e.Weekday, e.PlannedSets); err != nil {
			return err
		}

		updated, err = tx.Workout.UpdateScheduled(ctx, *e)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.syncWorkoutHabitLogged(ctx, userID)
	s.notify.Notify(userID, "workout_schedule", "updated", id)
	return updated, nil
}

// RemoveScheduledExercise takes an exercise out of the program. The row is
// deactivated so sets already logged against it stay in the history.
func (s *Service) RemoveScheduledExercise(ctx context.Context, userID, id int64) error {
	err := s.stores.InTx(ctx, func(tx *store.Stores) error {
		e, err := tx.Workout.GetScheduled(ctx, userID, id)
		if err != nil {
			return err
		}
		if e == nil || !e.Active {
			return ErrNotFound
		}
		e.Active = false
		_, err = tx.Workout.UpdateScheduled(ctx, *e)
		return err
	})
	if err != nil {
		return err
	}

	s.syncWorkoutHabitLogged(ctx, userID)
	s.notify.Notify(userID, "workout_schedule", "deleted", id)
	return nil
}

func (s *Service) syncWorkoutHabitLogged(ctx context.Context, userID int64) {
	if err := s.SyncWorkoutHabit(ctx, userID); err != nil {
		s.logger.Error("sync workout habit", "user_id", userID, "error", err)
	}
}

// SyncWorkoutHabit recomputes the workout habit from one consistent read of
// the active program: deactivated when nothing is scheduled, otherwise
// active on exactly the scheduled weekdays.
func (s *Service) SyncWorkoutHabit(ctx context.Context, userID int64) error {
	return s.stores.InTx(ctx, func(tx *store.Stores) error {
		days, err := tx.Workout.ActiveWeekdays(ctx, userID)
		if err != nil {
			return err
		}
		h, err := tx.Habits.GetBySource(ctx, userID, model.SourceWorkout, "")
		if err != nil {
			return err
		}

		if len(days) == 0 {
			if h == nil || !h.Active {
				return nil
			}
			return tx.Habits.SetActive(ctx, userID, h.ID, false)
		}

		if h == nil {
			h = &model.Habit{
				UserID:      userID,
				Name:        workoutName,
				Description: workoutDesc,
				XPGain:      workoutXP,
				SourceType:  model.SourceWorkout,
			}
		}
		h.Periodicity = habit.PeriodicityForWeekdays(len(days))
		h.Weekdays = days
		h.Active = true
		if err := habit.Validate(*h); err != nil {
			return err
		}

		if h.ID == 0 {
			_, err = tx.Habits.Create(ctx, *h)
		} else {
			_, err = tx.Habits.Update(ctx, *h)
		}
		return err
	})
}

// SaveWorkoutSeries logs sets for a scheduled exercise on date (today when
// nil). Once every exercise scheduled for that weekday has a logged set,
// the workout habit is completed for the day and its XP credited once.
func (s *Service) SaveWorkoutSeries(ctx context.Context, userID, scheduleID int64, series []Series, date *time.Time) (*SeriesResult, error) {
	if len(series) == 0 {
		return nil, habit.Invalid("series", "at least one set is required")
	}
	for i, set := range series {
		if set.Reps < 0 {
			return nil, habit.Invalid("series", "set %d: reps must not be negative", i+1)
		}
		if set.WeightKg < 0 {
			return nil, habit.Invalid("series", "set %d: weight must not be negative", i+1)
		}
	}
	day := s.dayOrToday(date)

	err := s.stores.InTx(ctx, func(tx *store.Stores) error {
		entry, err := tx.Workout.GetScheduled(ctx, userID, scheduleID)
		if err != nil {
			return err
		}
		if entry == nil {
			return ErrNotFound
		}
		if !entry.Active {
			return habit.Invalid("schedule_id", "exercise is no longer scheduled")
		}

		next, err := tx.Workout.MaxSetNumber(ctx, scheduleID, day)
		if err != nil {
			return err
		}
		for _, set := range series {
			next++
			err := tx.Workout.LogSet(ctx, model.WorkoutSet{
				UserID:     userID,
				ScheduleID: scheduleID,
				Date:       day,
				SetNumber:  next,
				WeightKg:   set.WeightKg,
				Reps:       set.Reps,
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("save workout series: %w", err)
	}

	res := &SeriesResult{}
	res.XPAwarded, res.WorkoutCompleted, err = s.completeWorkout(ctx, userID, day)
	if err != nil {
		s.logger.Error("complete workout", "user_id", userID, "date", habit.FormatDate(day), "error", err)
	}

	res.Sets, err = s.stores.Workout.ListSets(ctx, userID, day)
	if err != nil {
		return nil, err
	}
	s.notify.Notify(userID, "workout", "logged", scheduleID)
	return res, nil
}

// completeWorkout marks the workout habit done for day when nothing
// scheduled that weekday is still missing a set.
func (s *Service) completeWorkout(ctx context.Context, userID int64, day time.Time) (int, bool, error) {
	var awarded int
	var completed bool
	err := s.stores.InTx(ctx, func(tx *store.Stores) error {
		h, err := tx.Habits.GetBySource(ctx, userID, model.SourceWorkout, "")
		if err != nil || h == nil || !h.Active {
			return err
		}

		pending, err := tx.Workout.CountPending(ctx, userID, day)
		if err != nil || pending > 0 {
			return err
		}

		prev, err := tx.Tracking.Get(ctx, h.ID, day)
		if err != nil {
			return err
		}
		completed = true
		if prev != nil && prev.Completed {
			return nil
		}

		_, err = tx.Tracking.Upsert(ctx, model.TrackingRecord{
			HabitID:   h.ID,
			UserID:    userID,
			Date:      day,
			Completed: true,
			XPGained:  h.XPGain,
		})
		if err != nil {
			return err
		}
		if _, err := tx.XP.Credit(ctx, userID, h.XPGain); err != nil {
			return err
		}
		awarded = h.XPGain
		return nil
	})
	if err != nil {
		return 0, false, err
	}
	return awarded, completed, nil
}

// DeleteWorkout removes every set logged on date and the workout habit's
// tracking record for that day. XP already credited is kept.
func (s *Service) DeleteWorkout(ctx context.Context, userID int64, date time.Time) (int64, error) {
	day := habit.Day(date)

	var removed int64
	err := s.stores.InTx(ctx, func(tx *store.Stores) error {
		var err error
		removed, err = tx.Workout.DeleteSets(ctx, userID, day)
		if err != nil {
			return err
		}
		h, err := tx.Habits.GetBySource(ctx, userID, model.SourceWorkout, "")
		if err != nil || h == nil {
			return err
		}
		return tx.Tracking.Delete(ctx, h.ID, day)
	})
	if err != nil {
		return 0, fmt.Errorf("delete workout: %w", err)
	}

	s.notify.Notify(userID, "workout", "deleted", 0)
	return removed, nil
}

func (s *Service) WorkoutHistory(ctx context.Context, userID int64, date time.Time) ([]model.WorkoutSet, error) {
	return s.stores.Workout.ListSets(ctx, userID, habit.Day(date))
}

// ExerciseProgress returns per-day bests over the last days days, 90 when
// days is not positive.
func (s *Service) ExerciseProgress(ctx context.Context, userID int64, days int) ([]model.ExerciseProgress, error) {
	if days <= 0 {
		days = defaultProgressDays
	}
	if days > maxProgressDays {
		days = maxProgressDays
	}
	return s.stores.Workout.Progress(ctx, userID, s.Today().AddDate(0, 0, -days))
}
