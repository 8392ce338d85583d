package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"sitewatch/internal/config"
	"sitewatch/internal/httpapi"
	"sitewatch/internal/httpapi/middleware"
	"sitewatch/internal/hub"
	"sitewatch/internal/logging"
	"sitewatch/internal/notify"
	"sitewatch/internal/probe"
	"sitewatch/internal/repo"
	"sitewatch/internal/repo/postgres"
	"sitewatch/internal/repo/sqlite"
	"sitewatch/internal/scheduler"
)

func main() {
	cfg := config.FromEnv()
	logger, err := logging.NewLogger(cfg.LogDir)
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var (
		targets repo.TargetStore
		history repo.HistoryStore
	)
	if cfg.PostgresDSN != "" {
		pg, err := postgres.New(ctx, cfg.PostgresDSN, logger)
		if err != nil {
			logger.Fatal("postgres_connect_error", zap.Error(err))
		}
		defer pg.Close()
		targets, history = pg, pg
		logger.Info("store_postgres")
	} else {
		db, err := sqlite.New(cfg.SQLitePath)
		if err != nil {
			logger.Fatal("sqlite_open_error", zap.Error(err))
		}
		defer db.Close()
		targets, history = db, db
		logger.Info("store_sqlite", zap.String("path", cfg.SQLitePath))
	}

	// Both adapters tolerate a nil receiver; unconfigured sinks are
	// silent no-ops.
	notifier := notify.Multi{
		notify.NewEmail(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass, cfg.SMTPFrom),
		notify.NewWebhook(cfg.WebhookURL),
	}

	live := hub.New(logger)
	prober := scheduler.NewProber(
		logger,
		targets,
		history,
		&probe.RetryChecker{
			Inner:    probe.NewHTTPChecker(cfg.HTTPTimeout),
			Attempts: cfg.RetryAttempts,
			Backoff:  cfg.RetryBackoff,
		},
		probe.NewPingChecker(cfg.HTTPTimeout),
		scheduler.NewDowntimeTracker(),
		notifier,
	)
	monitor := scheduler.NewMonitor(
		logger, targets, prober, live,
		cfg.CheckInterval, cfg.ProbeTimeout, cfg.Concurrency,
	)

	api := httpapi.NewServer(logger, targets, history, monitor, live)
	api.Keys = middleware.Keys{Public: cfg.PublicAPIKeys, Admin: cfg.AdminAPIKeys}
	api.PublicRPM = cfg.PublicRPM
	api.Burst = cfg.PublicBurst

	srv := &http.Server{Addr: cfg.Addr, Handler: api.Router()}

	go monitor.Run(ctx)

	go func() {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutCtx)
	}()

	logger.Info("api_listen", zap.String("addr", cfg.Addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal("api_serve_error", zap.Error(err))
	}
	logger.Info("shutdown_complete")
}
