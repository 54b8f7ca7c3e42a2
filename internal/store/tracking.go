package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dukerupert/lifequest/internal/habit"
	"github.com/dukerupert/lifequest/internal/model"
)

type TrackingStore struct {
	db Querier
}

func NewTrackingStore(db Querier) *TrackingStore {
	return &TrackingStore{db: db}
}

func scanTracking(sc scanner) (*model.TrackingRecord, error) {
	var r model.TrackingRecord
	var date string
	var completed int
	var completedAt sql.NullString

	err := sc.Scan(&r.ID, &r.HabitID, &r.UserID, &date, &completed, &r.XPGained, &r.XPLost, &completedAt)
	if err != nil {
		return nil, err
	}
	r.Date, err = habit.ParseDate(date)
	if err != nil {
		return nil, fmt.Errorf("tracking %d: %w", r.ID, err)
	}
	r.Completed = completed != 0
	r.CompletedAt = nullTimestamp(completedAt)
	return &r, nil
}

const trackingCols = `id, habit_id, user_id, date, completed, xp_gained, xp_lost, completed_at`

// Upsert writes the record for (habit, date), replacing any existing one.
// CompletedAt is stamped when the record is completed and cleared otherwise.
func (s *TrackingStore) Upsert(ctx context.Context, rec model.TrackingRecord) (*model.TrackingRecord, error) {
	var completedAt any
	if rec.Completed {
		at := time.Now().UTC()
		if rec.CompletedAt != nil {
			at = rec.CompletedAt.UTC()
		}
		completedAt = at.Format(time.RFC3339)
	}

	row := s.db.QueryRowContext(ctx,
		`INSERT INTO habit_tracking (habit_id, user_id, date, completed, xp_gained, xp_lost, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (habit_id, date) DO UPDATE SET
			completed = excluded.completed,
			xp_gained = excluded.xp_gained,
			xp_lost = excluded.xp_lost,
			completed_at = excluded.completed_at
		RETURNING `+trackingCols,
		rec.HabitID, rec.UserID, habit.FormatDate(rec.Date), boolInt(rec.Completed),
		rec.XPGained, rec.XPLost, completedAt,
	)
	r, err := scanTracking(row)
	if err != nil {
		return nil, fmt.Errorf("upsert tracking: %w", err)
	}
	return r, nil
}

func (s *TrackingStore) Get(ctx context.Context, habitID int64, date time.Time) (*model.TrackingRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+trackingCols+` FROM habit_tracking WHERE habit_id = ? AND date = ?`,
		habitID, habit.FormatDate(date))
	r, err := scanTracking(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get tracking: %w", err)
	}
	return r, nil
}

// ListByDate returns the user's records for one day keyed by habit ID.
func (s *TrackingStore) ListByDate(ctx context.Context, userID int64, date time.Time) (map[int64]model.TrackingRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+trackingCols+` FROM habit_tracking WHERE user_id = ? AND date = ?`,
		userID, habit.FormatDate(date))
	if err != nil {
		return nil, fmt.Errorf("list tracking: %w", err)
	}
	defer rows.Close()

	records := make(map[int64]model.TrackingRecord)
	for rows.Next() {
		r, err := scanTracking(rows)
		if err != nil {
			return nil, fmt.Errorf("scan tracking: %w", err)
		}
		records[r.HabitID] = *r
	}
	return records, rows.Err()
}

func (s *TrackingStore) Delete(ctx context.Context, habitID int64, date time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM habit_tracking WHERE habit_id = ? AND date = ?`, habitID, habit.FormatDate(date))
	if err != nil {
		return fmt.Errorf("delete tracking: %w", err)
	}
	return nil
}
