// Package habit holds the pure scheduling rules for habits: which calendar
// days a habit is due on and which definitions are valid.
package habit

import (
	"slices"
	"time"

	"github.com/dukerupert/lifequest/internal/model"
)

const biweeklyPeriod = 15

// IsDue reports whether h is due on date. Only the calendar day of date is
// considered.
func IsDue(h model.Habit, date time.Time) bool {
	day := Day(date)

	if h.StartDate != nil && day.Before(Day(*h.StartDate)) {
		return false
	}
	if h.EndDate != nil && day.After(Day(*h.EndDate)) {
		return false
	}

	switch h.Periodicity {
	case model.PeriodicityDaily:
		if len(h.Weekdays) == 0 {
			return true
		}
		return slices.Contains(h.Weekdays, day.Weekday())

	case model.PeriodicityWeekly, model.PeriodicityThriceWeekly,
		model.PeriodicityFiveWeekly, model.PeriodicityCustomWeekly:
		return slices.Contains(h.Weekdays, day.Weekday())

	case model.PeriodicityMonthly:
		return h.DayOfMonth != nil && day.Day() == *h.DayOfMonth

	case model.PeriodicityBiweekly:
		if h.StartDate == nil {
			return false
		}
		return daysBetween(*h.StartDate, day)%biweeklyPeriod == 0
	}

	return false
}

// DueOn filters habits to the active ones due on date, preserving order.
func DueOn(habits []model.Habit, date time.Time) []model.Habit {
	var due []model.Habit
	for _, h := range habits {
		if h.Active && IsDue(h, date) {
			due = append(due, h)
		}
	}
	return due
}

// PeriodicityForWeekdays maps the number of distinct training days to the
// periodicity of the workout habit.
func PeriodicityForWeekdays(n int) model.Periodicity {
	switch n {
	case 7:
		return model.PeriodicityDaily
	case 5:
		return model.PeriodicityFiveWeekly
	case 3:
		return model.PeriodicityThriceWeekly
	case 1:
		return model.PeriodicityWeekly
	default:
		return model.PeriodicityCustomWeekly
	}
}
