package model

import "time"

// Reward is a reading milestone unlocked after WeeksRequired completed weeks.
type Reward struct {
	ID            int64      `json:"id"`
	UserID        int64      `json:"user_id"`
	WeeksRequired int        `json:"weeks_required"`
	Title         string     `json:"title"`
	Description   string     `json:"description"`
	Unlocked      bool       `json:"unlocked"`
	UnlockedOn    *time.Time `json:"unlocked_on"`
	CreatedAt     time.Time  `json:"created_at"`
}
