package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dukerupert/lifequest/internal/habit"
	"github.com/dukerupert/lifequest/internal/model"
)

type WorkoutStore struct {
	db Querier
}

func NewWorkoutStore(db Querier) *WorkoutStore {
	return &WorkoutStore{db: db}
}

// --- Exercise methods ---

func scanExercise(sc scanner) (*model.Exercise, error) {
	var e model.Exercise
	var active int
	if err := sc.Scan(&e.ID, &e.UserID, &e.Name, &e.MuscleGroup, &e.Notes, &active); err != nil {
		return nil, err
	}
	e.Active = active != 0
	return &e, nil
}

const exerciseCols = `id, user_id, name, muscle_group, notes, active`

func (s *WorkoutStore) CreateExercise(ctx context.Context, userID int64, name, muscleGroup, notes string) (*model.Exercise, error) {
	result, err := s.db.ExecContext(ctx,
		`INSERT INTO exercises (user_id, name, muscle_group, notes) VALUES (?, ?, ?, ?)`,
		userID, name, muscleGroup, notes,
	)
	if err != nil {
		return nil, fmt.Errorf("insert exercise: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetExercise(ctx, userID, id)
}

func (s *WorkoutStore) GetExercise(ctx context.Context, userID, id int64) (*model.Exercise, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+exerciseCols+` FROM exercises WHERE id = ? AND user_id = ?`, id, userID)
	e, err := scanExercise(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get exercise: %w", err)
	}
	return e, nil
}

func (s *WorkoutStore) ListExercises(ctx context.Context, userID int64) ([]model.Exercise, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+exerciseCols+` FROM exercises WHERE user_id = ? AND active = 1
		ORDER BY muscle_group ASC, name ASC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list exercises: %w", err)
	}
	defer rows.Close()

	var exercises []model.Exercise
	for rows.Next() {
		e, err := scanExercise(rows)
		if err != nil {
			return nil, fmt.Errorf("scan exercise: %w", err)
		}
		exercises = append(exercises, *e)
	}
	return exercises, rows.Err()
}

// --- Schedule methods ---

func scanScheduled(sc scanner) (*model.ScheduledExercise, error) {
	var e model.ScheduledExercise
	var active int
	err := sc.Scan(&e.ID, &e.UserID, &e.ExerciseID, &e.ExerciseName, &e.MuscleGroup,
		&e.Weekday, &e.Position, &e.PlannedSets, &e.PlannedReps, &active)
	if err != nil {
		return nil, err
	}
	e.Active = active != 0
	return &e, nil
}

const scheduleCols = `s.id, s.user_id, s.exercise_id, e.name, e.muscle_group,
	s.weekday, s.position, s.planned_sets, s.planned_reps, s.active`

const scheduleFrom = ` FROM workout_schedule s JOIN exercises e ON e.id = s.exercise_id`

// AddScheduled appends an exercise to the end of a weekday's program.
func (s *WorkoutStore) AddScheduled(ctx context.Context, userID, exerciseID int64, weekday time.Weekday, sets int, reps string) (*model.ScheduledExercise, error) {
	result, err := s.db.ExecContext(ctx,
		`INSERT INTO workout_schedule (user_id, exercise_id, weekday, position, planned_sets, planned_reps)
		SELECT ?, ?, ?, COALESCE(MAX(position), 0) + 1, ?, ?
		FROM workout_schedule WHERE user_id = ? AND weekday = ?`,
		userID, exerciseID, int(weekday), sets, reps, userID, int(weekday),
	)
	if err != nil {
		return nil, fmt.Errorf("insert scheduled exercise: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetScheduled(ctx, userID, id)
}

func (s *WorkoutStore) GetScheduled(ctx context.Context, userID, id int64) (*model.ScheduledExercise, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+scheduleCols+scheduleFrom+` WHERE s.id = ? AND s.user_id = ?`, id, userID)
	e, err := scanScheduled(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get scheduled exercise: %w", err)
	}
	return e, nil
}

// ListSchedule returns the active weekly program ordered by weekday and
// position.
func (s *WorkoutStore) ListSchedule(ctx context.Context, userID int64) ([]model.ScheduledExercise, error) {
	return s.querySchedule(ctx,
		`SELECT `+scheduleCols+scheduleFrom+`
		WHERE s.user_id = ? AND s.active = 1
		ORDER BY s.weekday ASC, s.position ASC`, userID)
}

func (s *WorkoutStore) ListScheduleForWeekday(ctx context.Context, userID int64, weekday time.Weekday) ([]model.ScheduledExercise, error) {
	return s.querySchedule(ctx,
		`SELECT `+scheduleCols+scheduleFrom+`
		WHERE s.user_id = ? AND s.active = 1 AND s.weekday = ?
		ORDER BY s.position ASC`, userID, int(weekday))
}

func (s *WorkoutStore) querySchedule(ctx context.Context, query string, args ...any) ([]model.ScheduledExercise, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list schedule: %w", err)
	}
	defer rows.Close()

	var entries []model.ScheduledExercise
	for rows.Next() {
		e, err := scanScheduled(rows)
		if err != nil {
			return nil, fmt.Errorf("scan scheduled exercise: %w", err)
		}
		entries = append(entries, *e)
	}
	return entries, rows.Err()
}

// ActiveWeekdays returns the distinct weekdays with at least one active
// scheduled exercise.
func (s *WorkoutStore) ActiveWeekdays(ctx context.Context, userID int64) ([]time.Weekday, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT DISTINCT weekday FROM workout_schedule WHERE user_id = ? AND active = 1 ORDER BY weekday ASC`,
		userID)
	if err != nil {
		return nil, fmt.Errorf("list active weekdays: %w", err)
	}
	defer rows.Close()

	var days []time.Weekday
	for rows.Next() {
		var d int
		if err := rows.Scan(&d); err != nil {
			return nil, fmt.Errorf("scan weekday: %w", err)
		}
		days = append(days, time.Weekday(d))
	}
	return days, rows.Err()
}

func (s *WorkoutStore) UpdateScheduled(ctx context.Context, e model.ScheduledExercise) (*model.ScheduledExercise, error) {
	_, err := s.db.ExecContext(ctx,
		`UPDATE workout_schedule SET weekday = ?, position = ?, planned_sets = ?, planned_reps = ?, active = ?
		WHERE id = ? AND user_id = ?`,
		int(e.Weekday), e.Position, e.PlannedSets, e.PlannedReps, boolInt(e.Active), e.ID, e.UserID,
	)
	if err != nil {
		return nil, fmt.Errorf("update scheduled exercise: %w", err)
	}
	return s.GetScheduled(ctx, e.UserID, e.ID)
}

// NextPosition returns the position after the last exercise of a weekday.
func (s *WorkoutStore) NextPosition(ctx context.Context, userID int64, weekday time.Weekday) (int, error) {
	var pos int
	err := s.db.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(position), 0) + 1 FROM workout_schedule WHERE user_id = ? AND weekday = ?`,
		userID, int(weekday),
	).Scan(&pos)
	if err != nil {
		return 0, fmt.Errorf("next position: %w", err)
	}
	return pos, nil
}

// --- Log methods ---

func scanSet(sc scanner) (*model.WorkoutSet, error) {
	var w model.WorkoutSet
	var date, createdAt string
	err := sc.Scan(&w.ID, &w.UserID, &w.ScheduleID, &w.ExerciseName, &date,
		&w.SetNumber, &w.WeightKg, &w.Reps, &createdAt)
	if err != nil {
		return nil, err
	}
	w.Date, err = habit.ParseDate(date)
	if err != nil {
		return nil, fmt.Errorf("workout set %d: %w", w.ID, err)
	}
	w.CreatedAt = parseTimestamp(createdAt)
	return &w, nil
}

const setCols = `l.id, l.user_id, l.schedule_id, e.name, l.date, l.set_number, l.weight_kg, l.reps, l.created_at`

const setFrom = ` FROM workout_log l
	JOIN workout_schedule s ON s.id = l.schedule_id
	JOIN exercises e ON e.id = s.exercise_id`

func (s *WorkoutStore) LogSet(ctx context.Context, set model.WorkoutSet) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO workout_log (user_id, schedule_id, date, set_number, weight_kg, reps)
		VALUES (?, ?, ?, ?, ?, ?)`,
		set.UserID, set.ScheduleID, habit.FormatDate(set.Date), set.SetNumber, set.WeightKg, set.Reps,
	)
	if err != nil {
		return fmt.Errorf("insert workout set: %w", err)
	}
	return nil
}

func (s *WorkoutStore) ListSets(ctx context.Context, userID int64, date time.Time) ([]model.WorkoutSet, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+setCols+setFrom+`
		WHERE l.user_id = ? AND l.date = ?
		ORDER BY s.position ASC, l.set_number ASC`,
		userID, habit.FormatDate(date))
	if err != nil {
		return nil, fmt.Errorf("list workout sets: %w", err)
	}
	defer rows.Close()

	var sets []model.WorkoutSet
	for rows.Next() {
		w, err := scanSet(rows)
		if err != nil {
			return nil, fmt.Errorf("scan workout set: %w", err)
		}
		sets = append(sets, *w)
	}
	return sets, rows.Err()
}

// MaxSetNumber returns the highest set number logged for a scheduled
// exercise on date, or 0.
func (s *WorkoutStore) MaxSetNumber(ctx context.Context, scheduleID int64, date time.Time) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(set_number), 0) FROM workout_log WHERE schedule_id = ? AND date = ?`,
		scheduleID, habit.FormatDate(date),
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("max set number: %w", err)
	}
	return n, nil
}

// DeleteSets removes every set logged on date and reports how many were
// removed.
func (s *WorkoutStore) DeleteSets(ctx context.Context, userID int64, date time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM workout_log WHERE user_id = ? AND date = ?`, userID, habit.FormatDate(date))
	if err != nil {
		return 0, fmt.Errorf("delete workout sets: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return n, nil
}

// CountPending counts the active exercises scheduled on date's weekday that
// have no set logged on date.
func (s *WorkoutStore) CountPending(ctx context.Context, userID int64, date time.Time) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM workout_schedule s
		WHERE s.user_id = ? AND s.active = 1 AND s.weekday = ?
		AND NOT EXISTS (SELECT 1 FROM workout_log l WHERE l.schedule_id = s.id AND l.date = ?)`,
		userID, int(habit.Day(date).Weekday()), habit.FormatDate(date),
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count pending exercises: %w", err)
	}
	return n, nil
}

// Progress returns, per exercise and day since the given date, the heaviest
// weight and the total reps logged.
func (s *WorkoutStore) Progress(ctx context.Context, userID int64, since time.Time) ([]model.ExerciseProgress, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT e.id, e.name, l.date, MAX(l.weight_kg), SUM(l.reps)`+setFrom+`
		WHERE l.user_id = ? AND l.date >= ?
		GROUP BY e.id, e.name, l.date
		ORDER BY e.name ASC, l.date ASC`,
		userID, habit.FormatDate(since))
	if err != nil {
		return nil, fmt.Errorf("query progress: %w", err)
	}
	defer rows.Close()

	var progress []model.ExerciseProgress
	for rows.Next() {
		var p model.ExerciseProgress
		var date string
		if err := rows.Scan(&p.ExerciseID, &p.ExerciseName, &date, &p.MaxWeightKg, &p.TotalReps); err != nil {
			return nil, fmt.Errorf("scan progress: %w", err)
		}
		if p.Date, err = habit.ParseDate(date); err != nil {
			return nil, err
		}
		progress = append(progress, p)
	}
	return progress, rows.Err()
}
