package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humaecho"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"pricewatch/internal/api/handlers"
	"pricewatch/internal/api/middleware"
	"pricewatch/internal/auth"
	"pricewatch/internal/config"
	"pricewatch/internal/mail"
	"pricewatch/internal/scrape"
	"pricewatch/internal/store"
	"pricewatch/internal/tracker"
	"pricewatch/pkg/logger"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the API server and scheduler",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(_ *cobra.Command, _ []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	log := logger.New(cfg.Logging.Level, cfg.Logging.Format)

	connectCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	st, err := store.NewPostgresStore(connectCtx, cfg.Database.DSN(), cfg.Database.PoolSize)
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer st.Close()

	tokens := auth.NewTokenManager(cfg.Auth.TokenSecret,
		cfg.Auth.TokenTTL, cfg.Auth.LoginValidPeriod, cfg.Auth.ActivationTTL)

	// With SMTP disabled the mock provider logs outgoing mail and accounts
	// skip the activation step entirely.
	var provider mail.Provider
	if cfg.SMTP.Enabled {
		provider = mail.NewSMTPProvider(cfg.SMTP.Addr(),
			cfg.SMTP.Username, cfg.SMTP.Password, cfg.SMTP.Host, cfg.SMTP.From)
	} else {
		provider = mail.NewMockProvider(log)
	}
	mailer := mail.NewSender(provider, cfg.Hostname, log)

	var activationMailer mail.Mailer
	if cfg.SMTP.Enabled {
		activationMailer = mailer
	}

	fetcher := scrape.NewFetcher(scrape.WithTimeout(cfg.Tracker.FetchTimeout))
	trk := tracker.NewTracker(st, fetcher, mailer,
		tracker.WithLogger(log),
		tracker.WithPolicy(tracker.Policy{
			Quota:  cfg.Tracker.NotifyQuota,
			Window: cfg.Tracker.NotifyWindow,
		}),
		tracker.WithStaggerOffset(cfg.Tracker.StaggerOffset),
	)

	sched, err := tracker.NewScheduler(trk, cfg.Tracker.CheckInterval, log)
	if err != nil {
		return fmt.Errorf("creating scheduler: %w", err)
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Server.ReadTimeout = cfg.Server.ReadTimeout
	e.Server.WriteTimeout = cfg.Server.WriteTimeout

	e.Use(
		middleware.Recovery(log),
		middleware.RequestLog(log),
		middleware.Metrics(),
	)

	health := handlers.NewHealthHandler(st)
	e.GET("/healthz", health.Healthz)
	e.GET("/readyz", health.Readyz)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	authH := handlers.NewAuthHandler(st, tokens, activationMailer, log)
	registerLimit := middleware.RateLimit(
		rate.Limit(cfg.RateLimit.RegisterPerHour/3600), cfg.RateLimit.Burst)

	authGroup := e.Group("/api/v1/auth")
	authGroup.POST("/register", authH.Register, registerLimit)
	authGroup.GET("/activate/:token", authH.Activate)
	authGroup.POST("/login", authH.Login)
	authGroup.POST("/refresh", authH.Refresh)

	itemH := handlers.NewItemHandler(st)
	items := e.Group("/api/v1/items", middleware.RequireAuth(tokens))
	items.POST("", itemH.Add)
	items.GET("", itemH.List)
	items.GET("/:id", itemH.Get)
	items.DELETE("/:id", itemH.Delete)

	api := humaecho.New(e, huma.DefaultConfig("pricewatch API", Version))
	handlers.RegisterCheckRoutes(api, handlers.NewCheckHandler(trk))

	sched.Start()

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	log.Info("starting server", "addr", addr)

	go func() {
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()

	if err := e.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down server: %w", err)
	}

	select {
	case <-sched.Stop().Done():
	case <-shutdownCtx.Done():
		log.Warn("scheduler did not stop before shutdown deadline")
	}

	log.Info("server stopped")
	return nil
}
