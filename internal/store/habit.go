package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dukerupert/lifequest/internal/habit"
	"github.com/dukerupert/lifequest/internal/model"
)

type HabitStore struct {
	db Querier
}

func NewHabitStore(db Querier) *HabitStore {
	return &HabitStore{db: db}
}

func scanHabit(sc scanner) (*model.Habit, error) {
	var h model.Habit
	var weekdays, createdAt, updatedAt string
	var dayOfMonth sql.NullInt64
	var startDate, endDate sql.NullString
	var active int

	err := sc.Scan(&h.ID, &h.UserID, &h.Name, &h.Description, &h.Periodicity, &weekdays,
		&dayOfMonth, &startDate, &endDate, &h.XPGain, &active, &h.SourceType, &h.SourceRef,
		&createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	h.Weekdays, err = habit.ParseWeekdays(weekdays)
	if err != nil {
		return nil, fmt.Errorf("habit %d: %w", h.ID, err)
	}
	if dayOfMonth.Valid {
		d := int(dayOfMonth.Int64)
		h.DayOfMonth = &d
	}
	h.StartDate = nullDate(startDate)
	h.EndDate = nullDate(endDate)
	h.Active = active != 0
	h.CreatedAt = parseTimestamp(createdAt)
	h.UpdatedAt = parseTimestamp(updatedAt)
	return &h, nil
}

const habitCols = `id, user_id, name, description, periodicity, weekdays, day_of_month,
	start_date, end_date, xp_gain, active, source_type, source_ref, created_at, updated_at`

func dayOfMonthArg(d *int) any {
	if d == nil {
		return nil
	}
	return *d
}

func (s *HabitStore) Create(ctx context.Context, h model.Habit) (*model.Habit, error) {
	if h.SourceType == "" {
		h.SourceType = model.SourceNone
	}
	result, err := s.db.ExecContext(ctx,
		`INSERT INTO habits (user_id, name, description, periodicity, weekdays, day_of_month,
			start_date, end_date, xp_gain, active, source_type, source_ref)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		h.UserID, h.Name, h.Description, h.Periodicity, habit.FormatWeekdays(h.Weekdays),
		dayOfMonthArg(h.DayOfMonth), dateArg(h.StartDate), dateArg(h.EndDate), h.XPGain,
		boolInt(h.Active), h.SourceType, h.SourceRef,
	)
	if err != nil {
		return nil, fmt.Errorf("insert habit: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(ctx, h.UserID, id)
}

// GetByID returns nil, nil when the habit does not exist or belongs to
// another user.
func (s *HabitStore) GetByID(ctx context.Context, userID, id int64) (*model.Habit, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+habitCols+` FROM habits WHERE id = ? AND user_id = ?`, id, userID)
	h, err := scanHabit(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get habit: %w", err)
	}
	return h, nil
}

// GetBySource returns the habit generated by a plan, active or not.
func (s *HabitStore) GetBySource(ctx context.Context, userID int64, source model.SourceType, ref string) (*model.Habit, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+habitCols+` FROM habits WHERE user_id = ? AND source_type = ? AND source_ref = ?`,
		userID, source, ref)
	h, err := scanHabit(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get habit by source: %w", err)
	}
	return h, nil
}

func (s *HabitStore) List(ctx context.Context, userID int64) ([]model.Habit, error) {
	return s.list(ctx, `SELECT `+habitCols+` FROM habits WHERE user_id = ? ORDER BY id ASC`, userID)
}

func (s *HabitStore) ListActive(ctx context.Context, userID int64) ([]model.Habit, error) {
	return s.list(ctx,
		`SELECT `+habitCols+` FROM habits WHERE user_id = ? AND active = 1 ORDER BY id ASC`, userID)
}

func (s *HabitStore) list(ctx context.Context, query string, args ...any) ([]model.Habit, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list habits: %w", err)
	}
	defer rows.Close()

	var habits []model.Habit
	for rows.Next() {
		h, err := scanHabit(rows)
		if err != nil {
			return nil, fmt.Errorf("scan habit: %w", err)
		}
		habits = append(habits, *h)
	}
	return habits, rows.Err()
}

// Update overwrites every mutable column of h.
func (s *HabitStore) Update(ctx context.Context, h model.Habit) (*model.Habit, error) {
	_, err := s.db.ExecContext(ctx,
		`UPDATE habits SET name = ?, description = ?, periodicity = ?, weekdays = ?,
			day_of_month = ?, start_date = ?, end_date = ?, xp_gain = ?, active = ?,
			source_ref = ?, updated_at = ?
		WHERE id = ? AND user_id = ?`,
		h.Name, h.Description, h.Periodicity, habit.FormatWeekdays(h.Weekdays),
		dayOfMonthArg(h.DayOfMonth), dateArg(h.StartDate), dateArg(h.EndDate), h.XPGain,
		boolInt(h.Active), h.SourceRef, now(), h.ID, h.UserID,
	)
	if err != nil {
		return nil, fmt.Errorf("update habit: %w", err)
	}
	return s.GetByID(ctx, h.UserID, h.ID)
}

func (s *HabitStore) SetActive(ctx context.Context, userID, id int64, active bool) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE habits SET active = ?, updated_at = ? WHERE id = ? AND user_id = ?`,
		boolInt(active), now(), id, userID)
	if err != nil {
		return fmt.Errorf("set habit active: %w", err)
	}
	return nil
}

// Delete removes the habit and, by cascade, its tracking history. It reports
// whether a row was removed.
func (s *HabitStore) Delete(ctx context.Context, userID, id int64) (bool, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM habits WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return false, fmt.Errorf("delete habit: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}
