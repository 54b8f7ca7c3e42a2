package model

import "time"

type ReadingPlanEntry struct {
	ID          int64      `json:"id"`
	UserID      int64      `json:"user_id"`
	Year        int        `json:"year"`
	Week        int        `json:"week"`
	BookTitle   string     `json:"book_title"`
	Completed   bool       `json:"completed"`
	CompletedOn *time.Time `json:"completed_on"`
	Notes       *string    `json:"notes"`
}
