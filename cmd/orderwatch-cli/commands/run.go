package commands

import (
	"context"

	"orderwatch/services/agent"

	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Performs one full run immediately, ignoring the time gate. Accepts matching orders for real.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		svc := agent.NewService(cfg)
		if httpDumpDir != "" {
			svc.OpenSession = func(ctx context.Context) (agent.PortalSession, error) {
				client, err := newClient(ctx, cfg)
				if err != nil {
					return nil, err
				}
				return client, nil
			}
		}
		return svc.RunOnce(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
}
