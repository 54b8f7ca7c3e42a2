package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dukerupert/lifequest/internal/habit"
	"github.com/dukerupert/lifequest/internal/model"
)

type XPStore struct {
	db Querier
}

func NewXPStore(db Querier) *XPStore {
	return &XPStore{db: db}
}

// Credit adds delta to the user's total in a single statement and returns
// the new balance. Concurrent credits never lose an update.
func (s *XPStore) Credit(ctx context.Context, userID int64, delta int) (*model.XPBalance, error) {
	if delta < 0 {
		return nil, fmt.Errorf("credit xp: negative delta %d", delta)
	}

	b := model.XPBalance{UserID: userID}
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO user_xp (user_id, xp_total, level, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT (user_id) DO UPDATE SET
			xp_total = user_xp.xp_total + excluded.xp_total,
			level = ((user_xp.xp_total + excluded.xp_total) / 100) + 1,
			updated_at = excluded.updated_at
		RETURNING xp_total, level`,
		userID, delta, habit.Level(delta), now(),
	).Scan(&b.XPTotal, &b.Level)
	if err != nil {
		return nil, fmt.Errorf("credit xp: %w", err)
	}
	return &b, nil
}

// Get returns the user's balance, or a zero balance at level 1 when the user
// has never earned XP.
func (s *XPStore) Get(ctx context.Context, userID int64) (*model.XPBalance, error) {
	b := model.XPBalance{UserID: userID, Level: 1}
	err := s.db.QueryRowContext(ctx,
		`SELECT xp_total, level FROM user_xp WHERE user_id = ?`, userID,
	).Scan(&b.XPTotal, &b.Level)
	if err == sql.ErrNoRows {
		return &b, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get xp: %w", err)
	}
	return &b, nil
}
