package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Verifies the configured credentials against the portal.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		client, err := newClient(ctx, cfg)
		if err != nil {
			return err
		}

		hidden, err := client.FetchHiddenFields(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("collected %d hidden fields\n", len(hidden))

		_, err = client.Login(ctx, hidden)
		if err != nil {
			return err
		}
		defer client.Logout(ctx)

		fmt.Println("login ok")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(loginCmd)
}
