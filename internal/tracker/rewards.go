package tracker

import (
	"context"
	"fmt"
	"strings"

	"github.com/dukerupert/lifequest/internal/habit"
	"github.com/dukerupert/lifequest/internal/model"
	"github.com/dukerupert/lifequest/internal/store"
)

// EvaluateRewards unlocks every locked reward whose threshold is met by the
// user's completed reading weeks, across all years. It returns the count of
// completed weeks and the rewards unlocked by this call.
func (s *Service) EvaluateRewards(ctx context.Context, userID int64) (int, []model.Reward, error) {
	today := s.Today()

	var total int
	var unlocked []model.Reward
	err := s.stores.InTx(ctx, func(tx *store.Stores) error {
		var err error
		total, err = tx.Reading.CountCompleted(ctx, userID)
		if err != nil {
			return err
		}
		unlocked, err = tx.Rewards.UnlockEligible(ctx, userID, total, today)
		return err
	})
	if err != nil {
		return 0, nil, fmt.Errorf("evaluate rewards: %w", err)
	}

	for _, r := range unlocked {
		s.logger.Info("reward unlocked", "user_id", userID, "reward_id", r.ID, "weeks_required", r.WeeksRequired)
		s.notify.Notify(userID, "reward", "unlocked", r.ID)
	}
	if unlocked == nil {
		unlocked = []model.Reward{}
	}
	return total, unlocked, nil
}

func (s *Service) CreateReward(ctx context.Context, userID int64, weeksRequired int, title, description string) (*model.Reward, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, habit.Invalid("title", "is required")
	}
	if weeksRequired < 1 {
		return nil, habit.Invalid("weeks_required", "must be at least 1")
	}

	r, err := s.stores.Rewards.Create(ctx, userID, weeksRequired, title, strings.TrimSpace(description))
	if err != nil {
		return nil, err
	}
	s.notify.Notify(userID, "reward", "created", r.ID)
	return r, nil
}

func (s *Service) ListRewards(ctx context.Context, userID int64) ([]model.Reward, error) {
	return s.stores.Rewards.List(ctx, userID)
}

func (s *Service) DeleteReward(ctx context.Context, userID, id int64) error {
	r, err := s.stores.Rewards.GetByID(ctx, userID, id)
	if err != nil {
		return err
	}
	if r == nil {
		return ErrNotFound
	}
	if err := s.stores.Rewards.Delete(ctx, userID, id); err != nil {
		return err
	}
	s.notify.Notify(userID, "reward", "deleted", id)
	return nil
}
