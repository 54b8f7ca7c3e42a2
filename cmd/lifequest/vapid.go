package main

import (
	"fmt"

	"github.com/dukerupert/lifequest/internal/push"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var vapidCmd = &cobra.Command{
	Use:         "vapid",
	Short:       "Generate a VAPID key pair for push notifications",
	Annotations: map[string]string{"db": "none"},
	RunE: func(cmd *cobra.Command, args []string) error {
		pub, priv, err := push.GenerateVAPIDKeys()
		if err != nil {
			return err
		}
		fmt.Printf("LIFEQUEST_VAPID_PUBLIC_KEY=%s\n", pub)
		fmt.Printf("LIFEQUEST_VAPID_PRIVATE_KEY=%s\n", priv)
		color.New(color.Faint).Println("# add both lines to .env and restart the server")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(vapidCmd)
}
