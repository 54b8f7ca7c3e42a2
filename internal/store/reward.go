package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dukerupert/lifequest/internal/habit"
	"github.com/dukerupert/lifequest/internal/model"
)

type RewardStore struct {
	db Querier
}

func NewRewardStore(db Querier) *RewardStore {
	return &RewardStore{db: db}
}

func scanReward(sc scanner) (*model.Reward, error) {
	var r model.Reward
	var unlocked int
	var unlockedOn sql.NullString
	var createdAt string

	err := sc.Scan(&r.ID, &r.UserID, &r.WeeksRequired, &r.Title, &r.Description,
		&unlocked, &unlockedOn, &createdAt)
	if err != nil {
		return nil, err
	}
	r.Unlocked = unlocked != 0
	r.UnlockedOn = nullDate(unlockedOn)
	r.CreatedAt = parseTimestamp(createdAt)
	return &r, nil
}

const rewardCols = `id, user_id, weeks_required, title, description, unlocked, unlocked_on, created_at`

func (s *RewardStore) Create(ctx context.Context, userID int64, weeksRequired int, title, description string) (*model.Reward, error) {
	result, err := s.db.ExecContext(ctx,
		`INSERT INTO rewards (user_id, weeks_required, title, description) VALUES (?, ?, ?, ?)`,
		userID, weeksRequired, title, description,
	)
	if err != nil {
		return nil, fmt.Errorf("insert reward: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(ctx, userID, id)
}

func (s *RewardStore) GetByID(ctx context.Context, userID, id int64) (*model.Reward, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+rewardCols+` FROM rewards WHERE id = ? AND user_id = ?`, id, userID)
	r, err := scanReward(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get reward: %w", err)
	}
	return r, nil
}

func (s *RewardStore) List(ctx context.Context, userID int64) ([]model.Reward, error) {
	return s.query(ctx,
		`SELECT `+rewardCols+` FROM rewards WHERE user_id = ? ORDER BY weeks_required ASC, id ASC`, userID)
}

// UnlockEligible unlocks, in one statement, every locked reward whose
// threshold is met by completedWeeks and returns the rows it changed.
// Already unlocked rewards are never touched.
func (s *RewardStore) UnlockEligible(ctx context.Context, userID int64, completedWeeks int, on time.Time) ([]model.Reward, error) {
	return s.query(ctx,
		`UPDATE rewards SET unlocked = 1, unlocked_on = ?
		WHERE user_id = ? AND unlocked = 0 AND weeks_required <= ?
		RETURNING `+rewardCols,
		habit.FormatDate(on), userID, completedWeeks)
}

func (s *RewardStore) query(ctx context.Context, query string, args ...any) ([]model.Reward, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query rewards: %w", err)
	}
	defer rows.Close()

	var rewards []model.Reward
	for rows.Next() {
		r, err := scanReward(rows)
		if err != nil {
			return nil, fmt.Errorf("scan reward: %w", err)
		}
		rewards = append(rewards, *r)
	}
	return rewards, rows.Err()
}

func (s *RewardStore) Delete(ctx context.Context, userID, id int64) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM rewards WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete reward: %w", err)
	}
	return nil
}
