package main

import (
	"fmt"
	"time"

	"github.com/dukerupert/lifequest/internal/auth"
	"github.com/dukerupert/lifequest/internal/store"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var tokenEmail string

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue an API token for a user without their password",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate(); err != nil {
			return err
		}
		u, err := store.NewUserStore(db).GetByEmail(cmd.Context(), tokenEmail)
		if err != nil {
			return err
		}
		if u == nil {
			return fmt.Errorf("no user with email %s", tokenEmail)
		}

		token, exp, err := auth.NewIssuer(cfg.JWTSecret, cfg.TokenTTL).Issue(u.ID)
		if err != nil {
			return err
		}
		fmt.Println(token)
		color.New(color.Faint).Printf("expires %s\n", exp.Local().Format(time.RFC1123))
		return nil
	},
}

func init() {
	tokenCmd.Flags().StringVar(&tokenEmail, "email", "", "account email")
	tokenCmd.MarkFlagRequired("email")
	rootCmd.AddCommand(tokenCmd)
}
