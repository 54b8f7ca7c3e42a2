package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dukerupert/lifequest/internal/habit"
	"github.com/dukerupert/lifequest/internal/model"
)

type ReadingStore struct {
	db Querier
}

func NewReadingStore(db Querier) *ReadingStore {
	return &ReadingStore{db: db}
}

func scanReading(sc scanner) (*model.ReadingPlanEntry, error) {
	var e model.ReadingPlanEntry
	var completed int
	var completedOn, notes sql.NullString

	err := sc.Scan(&e.ID, &e.UserID, &e.Year, &e.Week, &e.BookTitle, &completed, &completedOn, &notes)
	if err != nil {
		return nil, err
	}
	e.Completed = completed != 0
	e.CompletedOn = nullDate(completedOn)
	if notes.Valid {
		n := notes.String
		e.Notes = &n
	}
	return &e, nil
}

const readingCols = `id, user_id, year, week, book_title, completed, completed_on, notes`

func (s *ReadingStore) Create(ctx context.Context, userID int64, year, week int, title string) (*model.ReadingPlanEntry, error) {
	result, err := s.db.ExecContext(ctx,
		`INSERT INTO reading_plan (user_id, year, week, book_title) VALUES (?, ?, ?, ?)`,
		userID, year, week, title,
	)
	if err != nil {
		return nil, fmt.Errorf("insert reading plan: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(ctx, userID, id)
}

func (s *ReadingStore) GetByID(ctx context.Context, userID, id int64) (*model.ReadingPlanEntry, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+readingCols+` FROM reading_plan WHERE id = ? AND user_id = ?`, id, userID)
	e, err := scanReading(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get reading plan: %w", err)
	}
	return e, nil
}

func (s *ReadingStore) GetByWeek(ctx context.Context, userID int64, year, week int) (*model.ReadingPlanEntry, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+readingCols+` FROM reading_plan WHERE user_id = ? AND year = ? AND week = ?`,
		userID, year, week)
	e, err := scanReading(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get reading plan by week: %w", err)
	}
	return e, nil
}

// List returns the user's plan ordered by week. A zero year lists every year.
func (s *ReadingStore) List(ctx context.Context, userID int64, year int) ([]model.ReadingPlanEntry, error) {
	query := `SELECT ` + readingCols + ` FROM reading_plan WHERE user_id = ?`
	args := []any{userID}
	if year != 0 {
		query += ` AND year = ?`
		args = append(args, year)
	}
	query += ` ORDER BY year ASC, week ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list reading plan: %w", err)
	}
	defer rows.Close()

	var entries []model.ReadingPlanEntry
	for rows.Next() {
		e, err := scanReading(rows)
		if err != nil {
			return nil, fmt.Errorf("scan reading plan: %w", err)
		}
		entries = append(entries, *e)
	}
	return entries, rows.Err()
}

func (s *ReadingStore) UpdateTitle(ctx context.Context, userID, id int64, title string) (*model.ReadingPlanEntry, error) {
	_, err := s.db.ExecContext(ctx,
		`UPDATE reading_plan SET book_title = ? WHERE id = ? AND user_id = ?`, title, id, userID)
	if err != nil {
		return nil, fmt.Errorf("update reading plan: %w", err)
	}
	return s.GetByID(ctx, userID, id)
}

// SetCompleted stores the completion flag; completed_on is cleared when the
// week is marked not completed.
func (s *ReadingStore) SetCompleted(ctx context.Context, userID, id int64, completed bool, on time.Time) (*model.ReadingPlanEntry, error) {
	var completedOn any
	if completed {
		completedOn = habit.FormatDate(on)
	}
	_, err := s.db.ExecContext(ctx,
		`UPDATE reading_plan SET completed = ?, completed_on = ? WHERE id = ? AND user_id = ?`,
		boolInt(completed), completedOn, id, userID)
	if err != nil {
		return nil, fmt.Errorf("set reading plan completed: %w", err)
	}
	return s.GetByID(ctx, userID, id)
}

func (s *ReadingStore) SetNotes(ctx context.Context, userID, id int64, notes *string) (*model.ReadingPlanEntry, error) {
	var arg any
	if notes != nil {
		arg = *notes
	}
	_, err := s.db.ExecContext(ctx,
		`UPDATE reading_plan SET notes = ? WHERE id = ? AND user_id = ?`, arg, id, userID)
	if err != nil {
		return nil, fmt.Errorf("set reading plan notes: %w", err)
	}
	return s.GetByID(ctx, userID, id)
}

func (s *ReadingStore) Delete(ctx context.Context, userID, id int64) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM reading_plan WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete reading plan: %w", err)
	}
	return nil
}

// CountCompleted counts completed weeks across all years.
func (s *ReadingStore) CountCompleted(ctx context.Context, userID int64) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM reading_plan WHERE user_id = ? AND completed = 1`, userID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count completed weeks: %w", err)
	}
	return n, nil
}
