package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func checkCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Check all tracked items now",
		Long: "Trigger an immediate sweep of every tracked item instead of waiting\n" +
			"for the next scheduled run.",
		Example: `  pwc check`,
		RunE: func(_ *cobra.Command, _ []string) error {
			c := newClient()
			res, err := c.CheckNow(context.Background())
			if err != nil {
				return err
			}
			if jsonOutput() {
				return outputJSON(res)
			}
			fmt.Printf("Checked %d items, sent %d emails", res.ItemsChecked, res.EmailsSent)
			if res.FetchFailures > 0 || res.ResolveFailures > 0 || res.InvalidItems > 0 {
				fmt.Printf(" (%d fetch failures, %d resolve failures, %d invalid items)",
					res.FetchFailures, res.ResolveFailures, res.InvalidItems)
			}
			fmt.Println()
			return nil
		},
	}
}
