package tracker

import (
	"context"
	"fmt"
	"time"

	"pricewatch/internal/metrics"
)

// SweepReport summarizes a full check of every tracked item.
type SweepReport struct {
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`

	ItemsChecked    int `json:"items_checked"`
	InvalidItems    int `json:"invalid_items"`
	FetchFailures   int `json:"fetch_failures"`
	ResolveFailures int `json:"resolve_failures"`
	EmailsSent      int `json:"emails_sent"`
}

// CheckAll runs one cycle for every tracked item in sequence, with a small
// stagger between items so target sites see spaced requests. Per-item
// failures are absorbed into the report; the sweep only aborts when the
// store cannot list items or the context is cancelled.
func (t *Tracker) CheckAll(ctx context.Context) (*SweepReport, error) {
	start := t.nowFunc().UTC()
	defer func() {
		metrics.SweepDuration.Observe(time.Since(start).Seconds())
	}()

	items, err := t.store.ListItems(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing tracked items: %w", err)
	}

	t.log.Info("starting sweep", "items", len(items))
	rep := &SweepReport{StartedAt: start}

	for i := range items {
		if err := ctx.Err(); err != nil {
			rep.Duration = time.Since(start)
			return rep, err
		}

		item := &items[i]
		res, err := t.Track(ctx, item)
		if err != nil {
			rep.InvalidItems++
			t.log.Error("skipping item", "id", item.ID, "error", err)
			continue
		}

		rep.ItemsChecked++
		metrics.ItemsCheckedTotal.Inc()
		if res.FetchErr != nil {
			rep.FetchFailures++
		}
		if res.ResolveErr != nil {
			rep.ResolveFailures++
		}

		rep.EmailsSent += len(t.SendEmails(ctx, item))

		if t.staggerOffset > 0 && i < len(items)-1 {
			select {
			case <-ctx.Done():
				rep.Duration = time.Since(start)
				return rep, ctx.Err()
			case <-time.After(t.staggerOffset):
			}
		}
	}

	rep.Duration = time.Since(start)
	t.log.Info("sweep complete",
		"items_checked", rep.ItemsChecked,
		"fetch_failures", rep.FetchFailures,
		"emails_sent", rep.EmailsSent,
		"duration", rep.Duration)

	return rep, nil
}
