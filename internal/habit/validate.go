package habit

import (
	"fmt"
	"strings"

	"github.com/dukerupert/lifequest/internal/model"
)

// ValidationError reports a malformed input. Handlers surface it as 400.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

// Invalid builds a *ValidationError.
func Invalid(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// Validate checks a habit definition against the periodicity invariants.
func Validate(h model.Habit) error {
	if strings.TrimSpace(h.Name) == "" {
		return Invalid("name", "is required")
	}
	if h.XPGain < 0 {
		return Invalid("xp_gain", "must not be negative")
	}
	if h.StartDate != nil && h.EndDate != nil && Day(*h.EndDate).Before(Day(*h.StartDate)) {
		return Invalid("end_date", "is before start_date")
	}
	for _, d := range h.Weekdays {
		if d < 0 || d > 6 {
			return Invalid("weekdays", "value %d out of range 0..6", d)
		}
	}
	days := len(SortWeekdays(h.Weekdays))

	switch h.Periodicity {
	case model.PeriodicityDaily:
	case model.PeriodicityWeekly:
		if days != 1 {
			return Invalid("weekdays", "SEMANAL needs exactly 1 weekday, got %d", days)
		}
	case model.PeriodicityThriceWeekly:
		if days != 3 {
			return Invalid("weekdays", "TRES_SEMANA needs exactly 3 weekdays, got %d", days)
		}
	case model.PeriodicityFiveWeekly:
		if days != 5 {
			return Invalid("weekdays", "CINCO_SEMANA needs exactly 5 weekdays, got %d", days)
		}
	case model.PeriodicityCustomWeekly:
		if days == 0 {
			return Invalid("weekdays", "PERSONALIZADO needs at least 1 weekday")
		}
	case model.PeriodicityMonthly:
		if h.DayOfMonth == nil || *h.DayOfMonth < 1 || *h.DayOfMonth > 31 {
			return Invalid("day_of_month", "MENSAL needs a day of month in 1..31")
		}
	case model.PeriodicityBiweekly:
		if h.StartDate == nil {
			return Invalid("start_date", "QUINZENAL needs a start date")
		}
	default:
		return Invalid("periodicity", "unknown periodicity %q", h.Periodicity)
	}
	return nil
}
