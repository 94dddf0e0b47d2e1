package commands

import (
	"context"
	"fmt"
	"os"

	"orderwatch/lib/configutil"
	"orderwatch/lib/restyutil"
	"orderwatch/lib/scrapers/portal"
	"orderwatch/services/agent"

	"github.com/spf13/cobra"
)

var configPath string
var httpDumpDir string

var rootCmd = &cobra.Command{
	Use:   "orderwatch-cli",
	Short: "orderwatch-cli exercises single steps of the portal workflow without waiting for the schedule.",
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "orderwatch.json5", "path to the agent config file")
	rootCmd.PersistentFlags().StringVar(&httpDumpDir, "http-dump", "", "directory to dump raw http exchanges into")
}

func ExecuteContext(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadConfig() (agent.Config, error) {
	return configutil.ReadConfig[agent.Config](configPath)
}

func newClient(ctx context.Context, cfg agent.Config) (*portal.Client, error) {
	client, err := portal.NewClient(ctx, cfg.Portal)
	if err != nil {
		return nil, err
	}
	if httpDumpDir != "" {
		client.SetHTTPDumpOutput(restyutil.NewFilesystemOutput(httpDumpDir))
	}
	return client, nil
}
