package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/sethvargo/go-retry"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/dukerupert/lifequest/internal/habit"
)

// Querier is the subset of *sql.DB and *sql.Tx the stores need.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Stores bundles every store over one connection or one transaction.
type Stores struct {
	db *sql.DB

	Users    *UserStore
	Habits   *HabitStore
	Tracking *TrackingStore
	XP       *XPStore
	Reading  *ReadingStore
	Rewards  *RewardStore
	Workout  *WorkoutStore
	Push     *PushStore
}

func New(db *sql.DB) *Stores {
	s := bind(db)
	s.db = db
	return s
}

func bind(q Querier) *Stores {
	return &Stores{
		Users:    NewUserStore(q),
		Habits:   NewHabitStore(q),
		Tracking: NewTrackingStore(q),
		XP:       NewXPStore(q),
		Reading:  NewReadingStore(q),
		Rewards:  NewRewardStore(q),
		Workout:  NewWorkoutStore(q),
		Push:     NewPushStore(q),
	}
}

// InTx runs fn against transaction-bound stores and commits when fn returns
// nil. The whole attempt is retried when SQLite reports the database busy.
// Calling InTx on transaction-bound stores runs fn in the same transaction.
func (s *Stores) InTx(ctx context.Context, fn func(tx *Stores) error) error {
	if s.db == nil {
		return fn(s)
	}

	b := retry.WithMaxRetries(3, retry.NewExponential(10*time.Millisecond))
	return retry.Do(ctx, b, func(ctx context.Context) error {
		err := s.runTx(ctx, fn)
		if isBusy(err) {
			return retry.RetryableError(err)
		}
		return err
	})
}

func (s *Stores) runTx(ctx context.Context, fn func(tx *Stores) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := fn(bind(tx)); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func isBusy(err error) bool {
	var se *sqlite.Error
	if !errors.As(err, &se) {
		return false
	}
	code := se.Code() & 0xff
	return code == sqlite3.SQLITE_BUSY || code == sqlite3.SQLITE_LOCKED
}

// IsUniqueViolation reports whether err is a UNIQUE constraint failure.
func IsUniqueViolation(err error) bool {
	var se *sqlite.Error
	if !errors.As(err, &se) {
		return false
	}
	return se.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE
}

type scanner interface{ Scan(...any) error }

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func parseTimestamp(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func nullTimestamp(ns sql.NullString) *time.Time {
	if !ns.Valid || ns.String == "" {
		return nil
	}
	t := parseTimestamp(ns.String)
	return &t
}

func nullDate(ns sql.NullString) *time.Time {
	if !ns.Valid || ns.String == "" {
		return nil
	}
	t, err := habit.ParseDate(ns.String)
	if err != nil {
		return nil
	}
	return &t
}

func dateArg(t *time.Time) any {
	if t == nil {
		return nil
	}
	return habit.FormatDate(*t)
}

func now() string {
	return time.Now().UTC().Format(time.RFC3339)
}
