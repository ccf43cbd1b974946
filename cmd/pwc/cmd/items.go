package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	apiclient "pricewatch/internal/api/client"
)

func itemsCmd() *cobra.Command {
	itemsRoot := &cobra.Command{
		Use:   "items",
		Short: "Manage tracked items",
		Long: "Manage the product pages you track. Each item pairs a URL with a\n" +
			"CSS selector pointing at the price element and your price threshold.",
	}

	itemsRoot.AddCommand(
		itemListCmd(),
		itemGetCmd(),
		itemAddCmd(),
		itemRemoveCmd(),
	)

	return itemsRoot
}

func itemListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List your tracked items",
		Example: `  pwc items list
  pwc items list --output json`,
		RunE: func(_ *cobra.Command, _ []string) error {
			c := newClient()
			items, err := c.ListItems(context.Background())
			if err != nil {
				return err
			}
			if jsonOutput() {
				return outputJSON(items)
			}
			if len(items) == 0 {
				fmt.Println("No tracked items.")
				return nil
			}
			return printItemTable(items)
		},
	}
}

func itemGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Show one item with its price history",
		Example: `  pwc items get 8f14e45f-ceea-467f-a0d6-1c4f2f4f6a7b
  pwc items get 8f14e45f-ceea-467f-a0d6-1c4f2f4f6a7b --output json`,
		Args: cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			c := newClient()
			item, err := c.GetItem(context.Background(), args[0])
			if err != nil {
				return err
			}
			if jsonOutput() {
				return outputJSON(item)
			}
			return printItemDetail(item)
		},
	}
}

func itemAddCmd() *cobra.Command {
	var (
		itemURL      string
		itemSelector string
		itemMaxPrice float64
	)

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Track a new item",
		Long: "Track a product page. The selector must match the element holding\n" +
			"the price; you get an email when the price drops to your threshold.",
		Example: `  pwc items add --url "https://shop.example/widget" \
    --selector ".product-price" --max-price 99.90`,
		RunE: func(_ *cobra.Command, _ []string) error {
			if itemURL == "" || itemSelector == "" {
				return fmt.Errorf("--url and --selector are required")
			}
			if itemMaxPrice <= 0 {
				return fmt.Errorf("--max-price must be positive")
			}
			c := newClient()
			item, err := c.AddItem(context.Background(), apiclient.AddItemRequest{
				URL:      itemURL,
				Selector: itemSelector,
				MaxPrice: itemMaxPrice,
			})
			if err != nil {
				return err
			}
			if jsonOutput() {
				return outputJSON(item)
			}
			fmt.Printf("Tracking %s (%s)\n", item.URL, item.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&itemURL, "url", "", "product page URL")
	cmd.Flags().StringVar(&itemSelector, "selector", "", "CSS selector of the price element")
	cmd.Flags().Float64Var(&itemMaxPrice, "max-price", 0, "notify when the price drops to this value")
	return cmd
}

func itemRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "remove <id>",
		Short:   "Stop tracking an item",
		Example: `  pwc items remove 8f14e45f-ceea-467f-a0d6-1c4f2f4f6a7b`,
		Args:    cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			c := newClient()
			if err := c.RemoveItem(context.Background(), args[0]); err != nil {
				return err
			}
			fmt.Println("Item removed.")
			return nil
		},
	}
}
