package main

import (
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/dukerupert/lifequest/internal/config"
	"github.com/dukerupert/lifequest/internal/database"
	"github.com/dukerupert/lifequest/internal/logging"
	"github.com/spf13/cobra"
)

var (
	cfg    *config.Config
	logger *slog.Logger
	db     *sql.DB
)

var rootCmd = &cobra.Command{
	Use:   "lifequest",
	Short: "Habit tracker with XP, a weekly reading plan and a workout program",
	Long: `LifeQuest tracks recurring habits and rewards completing them with XP.

A weekly reading plan and a per-weekday workout program keep their own
habits in sync, and finished reading weeks unlock rewards.

QUICK START:

  $ lifequest user add --email me@example.com --password '...'
  $ lifequest serve
  $ curl -X POST localhost:8080/auth/token -d '{"email":"me@example.com","password":"..."}'

CONFIGURATION:

  Settings come from LIFEQUEST_* environment variables, optionally loaded
  from a .env file in the working directory.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "help" || cmd.Annotations["db"] == "none" {
			return nil
		}

		var err error
		cfg, err = config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		logger = logging.Setup(cfg.LogLevel)

		db, err = database.Open(cfg.DBPath)
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if db != nil {
			return db.Close()
		}
		return nil
	},
}
