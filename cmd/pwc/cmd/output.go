package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	apiclient "pricewatch/internal/api/client"
)

// tabWriter wraps tabwriter with error tracking.
type tabWriter struct {
	*tabwriter.Writer
	err error
}

func newTabWriter(w io.Writer) *tabWriter {
	return &tabWriter{Writer: tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)}
}

func (tw *tabWriter) writef(format string, args ...any) {
	if tw.err != nil {
		return
	}
	_, tw.err = fmt.Fprintf(tw.Writer, format, args...)
}

func (tw *tabWriter) finish() error {
	if tw.err != nil {
		return tw.err
	}
	return tw.Flush()
}

func outputJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func formatPrice(p *float64) string {
	if p == nil {
		return "-"
	}
	return fmt.Sprintf("%.2f", *p)
}

func printItemTable(items []apiclient.Item) error {
	tw := newTabWriter(os.Stdout)
	tw.writef("ID\tURL\tSELECTOR\tMAX PRICE\tLAST PRICE\tLAST CHECKED\n")
	for i := range items {
		checked := "-"
		if items[i].LastCheckedAt != nil {
			checked = items[i].LastCheckedAt.Format("2006-01-02 15:04")
		}
		tw.writef("%s\t%s\t%s\t%.2f\t%s\t%s\n",
			items[i].ID,
			items[i].URL,
			items[i].Selector,
			items[i].MaxPrice,
			formatPrice(items[i].LastPrice),
			checked,
		)
	}
	return tw.finish()
}

func printItemDetail(item *apiclient.ItemDetail) error {
	tw := newTabWriter(os.Stdout)
	tw.writef("ID:\t%s\n", item.ID)
	tw.writef("URL:\t%s\n", item.URL)
	tw.writef("Selector:\t%s\n", item.Selector)
	tw.writef("Max price:\t%.2f\n", item.MaxPrice)
	tw.writef("Last price:\t%s\n", formatPrice(item.LastPrice))
	if err := tw.finish(); err != nil {
		return err
	}

	if len(item.Snapshots) == 0 {
		fmt.Println("\nNo price history yet.")
		return nil
	}

	fmt.Println("\nPrice history:")
	tw = newTabWriter(os.Stdout)
	tw.writef("TIMESTAMP\tPRICE\n")
	for i := range item.Snapshots {
		tw.writef("%s\t%.2f\n",
			item.Snapshots[i].Timestamp.Format("2006-01-02 15:04"),
			item.Snapshots[i].Price,
		)
	}
	return tw.finish()
}
