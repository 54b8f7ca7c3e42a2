package model

import "time"

// Periodicity is the stored code of a habit's recurrence rule.
type Periodicity string

const (
	PeriodicityDaily        Periodicity = "DIARIO"
	PeriodicityWeekly       Periodicity = "SEMANAL"
	PeriodicityThriceWeekly Periodicity = "TRES_SEMANA"
	PeriodicityFiveWeekly   Periodicity = "CINCO_SEMANA"
	PeriodicityBiweekly     Periodicity = "QUINZENAL"
	PeriodicityMonthly      Periodicity = "MENSAL"
	// PeriodicityCustomWeekly covers weekday sets that fit none of the
	// fixed-cardinality weekly rules.
	PeriodicityCustomWeekly Periodicity = "PERSONALIZADO"
)

// SourceType links a habit to the plan that generates it.
type SourceType string

const (
	SourceNone    SourceType = "none"
	SourceReading SourceType = "reading"
	SourceWorkout SourceType = "workout"
)

type Habit struct {
	ID          int64          `json:"id"`
	UserID      int64          `json:"user_id"`
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Periodicity Periodicity    `json:"periodicity"`
	Weekdays    []time.Weekday `json:"weekdays"`
	DayOfMonth  *int           `json:"day_of_month"`
	StartDate   *time.Time     `json:"start_date"`
	EndDate     *time.Time     `json:"end_date"`
	XPGain      int            `json:"xp_gain"`
	Active      bool           `json:"active"`
	SourceType  SourceType     `json:"source_type"`
	SourceRef   string         `json:"source_ref"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// TrackingRecord is the completion state of one habit on one calendar day.
type TrackingRecord struct {
	ID          int64      `json:"id"`
	HabitID     int64      `json:"habit_id"`
	UserID      int64      `json:"user_id"`
	Date        time.Time  `json:"date"`
	Completed   bool       `json:"completed"`
	XPGained    int        `json:"xp_gained"`
	XPLost      int        `json:"xp_lost"`
	CompletedAt *time.Time `json:"completed_at"`
}

// HabitWithStatus is a due habit annotated with its tracking state for a day.
type HabitWithStatus struct {
	Habit
	TrackingID *int64 `json:"tracking_id"`
	Completed  bool   `json:"completed"`
	XPGained   int    `json:"xp_gained_today"`
	XPLost     int    `json:"xp_lost"`
}

// XPBalance is a user's ledger entry.
type XPBalance struct {
	UserID  int64 `json:"user_id"`
	XPTotal int   `json:"xp_total"`
	Level   int   `json:"level"`
}
