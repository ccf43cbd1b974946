package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"pricewatch/internal/config"
	"pricewatch/internal/mail"
	"pricewatch/internal/scrape"
	"pricewatch/internal/store"
	"pricewatch/internal/tracker"
	"pricewatch/pkg/logger"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Run one sweep of all tracked items and exit",
	RunE:  runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	log := logger.New(cfg.Logging.Level, cfg.Logging.Format)

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	st, err := store.NewPostgresStore(ctx, cfg.Database.DSN(), cfg.Database.PoolSize)
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer st.Close()

	var provider mail.Provider
	if cfg.SMTP.Enabled {
		provider = mail.NewSMTPProvider(cfg.SMTP.Addr(),
			cfg.SMTP.Username, cfg.SMTP.Password, cfg.SMTP.Host, cfg.SMTP.From)
	} else {
		provider = mail.NewMockProvider(log)
	}
	mailer := mail.NewSender(provider, cfg.Hostname, log)

	fetcher := scrape.NewFetcher(scrape.WithTimeout(cfg.Tracker.FetchTimeout))
	trk := tracker.NewTracker(st, fetcher, mailer,
		tracker.WithLogger(log),
		tracker.WithPolicy(tracker.Policy{
			Quota:  cfg.Tracker.NotifyQuota,
			Window: cfg.Tracker.NotifyWindow,
		}),
		tracker.WithStaggerOffset(cfg.Tracker.StaggerOffset),
	)

	rep, err := trk.CheckAll(ctx)
	if err != nil {
		return fmt.Errorf("running sweep: %w", err)
	}

	fmt.Printf("checked %d items (%d invalid, %d fetch failures, %d resolve failures), sent %d emails in %s\n",
		rep.ItemsChecked, rep.InvalidItems, rep.FetchFailures,
		rep.ResolveFailures, rep.EmailsSent, rep.Duration.Round(time.Millisecond))

	return nil
}
