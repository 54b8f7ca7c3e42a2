package main

import (
	"github.com/dukerupert/lifequest/internal/database"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations",
	Long: `Apply pending database migrations and print the schema version.

Migrations also run automatically whenever the database is opened, so this
command is mostly useful to prepare a database file ahead of a deploy.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := database.Migrate(db); err != nil {
			return err
		}
		version, err := database.Version(db)
		if err != nil {
			return err
		}
		color.Green("✓ %s is at schema version %d", cfg.DBPath, version)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
