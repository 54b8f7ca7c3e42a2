// Package mcp exposes one user's habits, XP and plans to AI assistants
// over the Model Context Protocol.
package mcp

import (
	"context"
	"log/slog"

	"github.com/dukerupert/lifequest/internal/tracker"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Server binds an MCP server to a tracker service acting as a single user.
type Server struct {
	mcpServer *mcp.Server
	svc       *tracker.Service
	userID    int64
	logger    *slog.Logger
}

func NewServer(svc *tracker.Service, userID int64, version string, logger *slog.Logger) *Server {
	mcpServer := mcp.NewServer(
		&mcp.Implementation{
			Name:    "lifequest",
			Version: version,
		},
		nil,
	)

	s := &Server{
		mcpServer: mcpServer,
		svc:       svc,
		userID:    userID,
		logger:    logger,
	}
	s.registerTools()
	s.registerResources()
	return s
}

// Serve runs the server over stdio until ctx is done or the client hangs up.
func (s *Server) Serve(ctx context.Context) error {
	return s.mcpServer.Run(ctx, &mcp.StdioTransport{})
}
