package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/dukerupert/lifequest/internal/habit"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const todayURI = "lifequest://today"

func (s *Server) registerResources() {
	s.mcpServer.AddResource(&mcp.Resource{
		URI:         todayURI,
		Name:        "Today",
		Description: "Habits still open today plus the XP total and level",
		MIMEType:    "application/json",
	}, s.handleTodayResource)
}

func (s *Server) handleTodayResource(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	today := s.svc.Today()
	habits, err := s.svc.HabitsForDate(ctx, s.userID, today)
	if err != nil {
		return nil, fmt.Errorf("habits for today: %w", err)
	}
	bal, err := s.svc.XP(ctx, s.userID)
	if err != nil {
		return nil, fmt.Errorf("xp balance: %w", err)
	}

	open := openHabits(habits)
	summary := map[string]any{
		"date":       habit.FormatDate(today),
		"due":        len(habits),
		"open":       len(open),
		"open_names": habitNames(open),
		"xp_total":   bal.XPTotal,
		"level":      bal.Level,
	}
	data, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal summary: %w", err)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      todayURI,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}
