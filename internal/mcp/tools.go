package mcp

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dukerupert/lifequest/internal/habit"
	"github.com/dukerupert/lifequest/internal/model"
	"github.com/dukerupert/lifequest/internal/tracker"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

func (s *Server) registerTools() {
	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "list_habits",
		Description: "List the habits due on a day with their completion state",
	}, s.handleListHabits)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "mark_habit",
		Description: "Mark a habit done or not done for a day and report the XP change",
	}, s.handleMarkHabit)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "get_xp",
		Description: "Get the XP total and level",
	}, s.handleGetXP)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "reading_plan",
		Description: "List the reading plan for a year",
	}, s.handleReadingPlan)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "mark_reading_week",
		Description: "Mark a reading plan week complete or incomplete",
	}, s.handleMarkReadingWeek)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "workout_history",
		Description: "List the workout sets logged on a day",
	}, s.handleWorkoutHistory)
}

type listHabitsInput struct {
	Date string `json:"date,omitempty" jsonschema:"day as YYYY-MM-DD, defaults to today"`
}

type markHabitInput struct {
	HabitID   int64  `json:"habit_id" jsonschema:"id of the habit"`
	Completed bool   `json:"completed" jsonschema:"true for done, false for not done"`
	Date      string `json:"date,omitempty" jsonschema:"day as YYYY-MM-DD, defaults to today"`
}

type markHabitOutput struct {
	XPAwarded int    `json:"xp_awarded"`
	XPTotal   int    `json:"xp_total"`
	Level     int    `json:"level"`
	Message   string `json:"message"`
}

type xpOutput struct {
	XPTotal int `json:"xp_total"`
	Level   int `json:"level"`
}

type readingPlanInput struct {
	Year int `json:"year,omitempty" jsonschema:"calendar year, defaults to the current one"`
}

type markReadingWeekInput struct {
	EntryID   int64 `json:"entry_id" jsonschema:"id of the reading plan entry"`
	Completed bool  `json:"completed" jsonschema:"true to complete the week"`
}

type markReadingWeekOutput struct {
	TotalCompletedWeeks int      `json:"total_completed_weeks"`
	Unlocked            []string `json:"unlocked"`
	Message             string   `json:"message"`
}

func (s *Server) day(raw string) (time.Time, error) {
	if raw == "" {
		return s.svc.Today(), nil
	}
	d, err := habit.ParseDate(raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: use YYYY-MM-DD", raw)
	}
	return d, nil
}

// toolError turns service errors into messages an assistant can act on.
func toolError(err error) error {
	var ve *habit.ValidationError
	switch {
	case errors.As(err, &ve):
		return ve
	case errors.Is(err, tracker.ErrNotFound):
		return errors.New("not found")
	case errors.Is(err, tracker.ErrConflict):
		return errors.New("conflicts with an existing entry")
	}
	return err
}

func (s *Server) handleListHabits(ctx context.Context, req *mcp.CallToolRequest, input listHabitsInput) (*mcp.CallToolResult, any, error) {
	day, err := s.day(input.Date)
	if err != nil {
		return nil, nil, err
	}
	habits, err := s.svc.HabitsForDate(ctx, s.userID, day)
	if err != nil {
		return nil, nil, toolError(err)
	}
	if len(habits) == 0 {
		return nil, map[string]any{"message": "No habits due on " + habit.FormatDate(day) + "."}, nil
	}
	return nil, map[string]any{"date": habit.FormatDate(day), "habits": habits}, nil
}

func (s *Server) handleMarkHabit(ctx context.Context, req *mcp.CallToolRequest, input markHabitInput) (*mcp.CallToolResult, markHabitOutput, error) {
	var date *time.Time
	if input.Date != "" {
		d, err := s.day(input.Date)
		if err != nil {
			return nil, markHabitOutput{}, err
		}
		date = &d
	}

	res, err := s.svc.MarkHabit(ctx, s.userID, input.HabitID, input.Completed, date)
	if err != nil {
		return nil, markHabitOutput{}, toolError(err)
	}

	msg := fmt.Sprintf("Marked habit %d not done", input.HabitID)
	if input.Completed {
		msg = fmt.Sprintf("Marked habit %d done (+%d XP)", input.HabitID, res.XPAwarded)
	}
	return nil, markHabitOutput{
		XPAwarded: res.XPAwarded,
		XPTotal:   res.XPTotal,
		Level:     res.Level,
		Message:   msg,
	}, nil
}

func (s *Server) handleGetXP(ctx context.Context, req *mcp.CallToolRequest, _ struct{}) (*mcp.CallToolResult, xpOutput, error) {
	bal, err := s.svc.XP(ctx, s.userID)
	if err != nil {
		return nil, xpOutput{}, toolError(err)
	}
	return nil, xpOutput{XPTotal: bal.XPTotal, Level: bal.Level}, nil
}

func (s *Server) handleReadingPlan(ctx context.Context, req *mcp.CallToolRequest, input readingPlanInput) (*mcp.CallToolResult, any, error) {
	year := input.Year
	if year == 0 {
		year = s.svc.Today().Year()
	}
	entries, err := s.svc.ReadingPlan(ctx, s.userID, year)
	if err != nil {
		return nil, nil, toolError(err)
	}
	if len(entries) == 0 {
		return nil, map[string]any{"message": fmt.Sprintf("No books planned for %d.", year)}, nil
	}
	return nil, map[string]any{"year": year, "entries": entries}, nil
}

func (s *Server) handleMarkReadingWeek(ctx context.Context, req *mcp.CallToolRequest, input markReadingWeekInput) (*mcp.CallToolResult, markReadingWeekOutput, error) {
	res, err := s.svc.MarkReadingWeek(ctx, s.userID, input.EntryID, input.Completed)
	if err != nil {
		return nil, markReadingWeekOutput{}, toolError(err)
	}

	out := markReadingWeekOutput{
		TotalCompletedWeeks: res.TotalCompletedWeeks,
		Unlocked:            []string{},
		Message:             fmt.Sprintf("%d reading weeks completed", res.TotalCompletedWeeks),
	}
	for _, r := range res.Unlocked {
		out.Unlocked = append(out.Unlocked, r.Title)
	}
	if len(out.Unlocked) > 0 {
		out.Message += fmt.Sprintf(", unlocked %d reward(s)", len(out.Unlocked))
	}
	return nil, out, nil
}

func (s *Server) handleWorkoutHistory(ctx context.Context, req *mcp.CallToolRequest, input listHabitsInput) (*mcp.CallToolResult, any, error) {
	day, err := s.day(input.Date)
	if err != nil {
		return nil, nil, err
	}
	sets, err := s.svc.WorkoutHistory(ctx, s.userID, day)
	if err != nil {
		return nil, nil, toolError(err)
	}
	if len(sets) == 0 {
		return nil, map[string]any{"message": "No sets logged on " + habit.FormatDate(day) + "."}, nil
	}
	return nil, map[string]any{"date": habit.FormatDate(day), "sets": sets}, nil
}

// openHabits is the subset of today's habits not yet done.
func openHabits(habits []model.HabitWithStatus) []model.HabitWithStatus {
	var open []model.HabitWithStatus
	for _, h := range habits {
		if !h.Completed {
			open = append(open, h)
		}
	}
	return open
}

func habitNames(habits []model.HabitWithStatus) []string {
	names := make([]string, 0, len(habits))
	for _, h := range habits {
		names = append(names, h.Name)
	}
	return names
}
