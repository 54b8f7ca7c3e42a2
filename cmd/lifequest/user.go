package main

import (
	"fmt"

	"github.com/dukerupert/lifequest/internal/auth"
	"github.com/dukerupert/lifequest/internal/store"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	userEmail    string
	userPassword string
)

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage user accounts",
}

var userAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Create a user account",
	Long: `Create a user account that can exchange its email and password for an
API token at POST /auth/token.

Examples:
  lifequest user add --email me@example.com --password 'correct horse'`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(userPassword) < 8 {
			return fmt.Errorf("password must be at least 8 characters")
		}
		hash, err := auth.HashPassword(userPassword)
		if err != nil {
			return err
		}

		users := store.NewUserStore(db)
		u, err := users.Create(cmd.Context(), userEmail, hash)
		if store.IsUniqueViolation(err) {
			return fmt.Errorf("a user with email %s already exists", userEmail)
		}
		if err != nil {
			return err
		}
		color.Green("✓ Created user %d (%s)", u.ID, u.Email)
		return nil
	},
}

var userPasswdCmd = &cobra.Command{
	Use:   "passwd",
	Short: "Reset a user's password",
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(userPassword) < 8 {
			return fmt.Errorf("password must be at least 8 characters")
		}
		users := store.NewUserStore(db)
		u, err := users.GetByEmail(cmd.Context(), userEmail)
		if err != nil {
			return err
		}
		if u == nil {
			return fmt.Errorf("no user with email %s", userEmail)
		}
		hash, err := auth.HashPassword(userPassword)
		if err != nil {
			return err
		}
		if err := users.UpdatePassword(cmd.Context(), u.ID, hash); err != nil {
			return err
		}
		color.Green("✓ Password updated for %s", u.Email)
		return nil
	},
}

func init() {
	for _, c := range []*cobra.Command{userAddCmd, userPasswdCmd} {
		c.Flags().StringVar(&userEmail, "email", "", "account email")
		c.Flags().StringVar(&userPassword, "password", "", "account password")
		c.MarkFlagRequired("email")
		c.MarkFlagRequired("password")
		userCmd.AddCommand(c)
	}
	rootCmd.AddCommand(userCmd)
}
