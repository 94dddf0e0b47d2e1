package commands

import (
	"os"

	"orderwatch/services/agent"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var matchedOnly bool

var ordersCmd = &cobra.Command{
	Use:   "orders",
	Short: "Logs in, scrapes the order listing and prints it.",
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
		content, err := client.Login(ctx, hidden)
		if err != nil {
			return err
		}
		defer client.Logout(ctx)

		orders, err := client.ExtractOrders(ctx, content)
		if err != nil {
			return err
		}
		if matchedOnly {
			orders = agent.Filter(ctx, orders, cfg.Search)
		}

		t := table.NewWriter()
		t.SetStyle(table.StyleRounded)
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{"ID", "Work ID", "Property", "Priority", "City", "Postal Code", "Category", "Summary"})
		for _, o := range orders {
			t.AppendRow(table.Row{o.ID, o.WorkID, o.Property, o.Priority, o.City, o.PostalCode, o.Category, o.Summary})
		}
		t.Render()
		return nil
	},
}

func init() {
	ordersCmd.Flags().BoolVar(&matchedOnly, "matched", false, "only show orders matching the configured search criteria")
	rootCmd.AddCommand(ordersCmd)
}
