package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/dukerupert/lifequest/internal/mcp"
	"github.com/dukerupert/lifequest/internal/store"
	"github.com/dukerupert/lifequest/internal/tracker"
	"github.com/spf13/cobra"
)

var (
	version  = "dev"
	mcpEmail string
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start an MCP server for one user over stdio",
	Long: `Start a Model Context Protocol server so an AI assistant can read and
mark your habits. The server speaks on stdin/stdout and acts as the user
given by --email.

  {
    "mcpServers": {
      "lifequest": {
        "command": "lifequest",
        "args": ["mcp", "--email", "me@example.com"]
      }
    }
  }

TOOLS:

  list_habits        Habits due on a day with completion state
  mark_habit         Mark a habit done or not done
  get_xp             XP total and level
  reading_plan       Reading plan for a year
  mark_reading_week  Complete or reopen a reading week
  workout_history    Sets logged on a day

RESOURCES:

  lifequest://today  Open habits today plus XP`,
	RunE: func(cmd *cobra.Command, args []string) error {
		stores := store.New(db)
		u, err := stores.Users.GetByEmail(cmd.Context(), mcpEmail)
		if err != nil {
			return err
		}
		if u == nil {
			return fmt.Errorf("no user with email %s", mcpEmail)
		}

		svc := tracker.New(stores, logger.With("component", "tracker"), tracker.WithLocation(cfg.Location))
		server := mcp.NewServer(svc, u.ID, version, logger.With("component", "mcp"))

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return server.Serve(ctx)
	},
}

func init() {
	mcpCmd.Flags().StringVar(&mcpEmail, "email", "", "account the assistant acts as")
	mcpCmd.MarkFlagRequired("email")
	rootCmd.AddCommand(mcpCmd)
}
