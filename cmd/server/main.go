package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/bagiro44/baby-tracker/internal"
	"github.com/bagiro44/baby-tracker/internal/api"
	"github.com/bagiro44/baby-tracker/internal/auth"
	"github.com/bagiro44/baby-tracker/internal/clock"
	"github.com/bagiro44/baby-tracker/internal/config"
	"github.com/bagiro44/baby-tracker/internal/flow"
	"github.com/bagiro44/baby-tracker/internal/notify"
	"github.com/bagiro44/baby-tracker/internal/service"
	"github.com/bagiro44/baby-tracker/internal/storage"
)

func main() {
	cfg := config.Load()

	logger, err := internal.NewLogger(cfg.Env)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}

	clk := clock.NewReal(cfg.Location())

	var (
		repos  *storage.Repositories
		closer interface{ Close() error }
		users  storage.UserRepository
	)
	switch cfg.DBType {
	case "postgres":
		pgRepos, pg, err := storage.NewPostgresRepositories(cfg.DBDSN, logger)
		if err != nil {
			logger.Fatalf("failed to init postgres storage: %v", err)
		}
		repos = pgRepos
		users = pg
		closer = closeFunc(func() error { pg.Close(); return nil })
	default:
		fileRepos, fs, err := storage.NewFileRepositories(cfg, logger)
		if err != nil {
			logger.Fatalf("failed to init file storage: %v", err)
		}
		repos = fileRepos
		closer = fs
	}

	var sink notify.Sink
	if cfg.NotifyWebhookURL != "" {
		sink = notify.NewWebhookSink(cfg.NotifyWebhookURL, logger)
	} else {
		sink = notify.NewLogSink(logger)
	}

	scheduler := service.NewReminderScheduler(repos.Reminders, clk, cfg.FeedingInterval, cfg.ReminderLead, cfg.RetentionDays, logger)
	engine := service.NewSessionEngine(repos.Events, scheduler, sink, clk, logger)
	stats := service.NewStatsAggregator(repos.Events, scheduler, clk)
	flows := flow.NewManager(repos.States)
	poller := service.NewPoller(scheduler, repos.Subjects, sink, clk, cfg.PollInterval, logger)

	var provider auth.Provider
	switch {
	case cfg.Env == "development":
		provider = auth.NewLocalAuthProvider(cfg.AuthToken, logger)
	case cfg.AuthServiceURL != "":
		provider = auth.NewRemoteAuthProvider(cfg.AuthServiceURL, logger)
	case users != nil:
		provider = auth.NewDBAuthProvider(users, logger)
	default:
		provider = auth.NewLocalAuthProvider(cfg.AuthToken, logger)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	go poller.Run(ctx)

	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.Default()
	r.Use(api.RequestIDMiddleware())
	r.Use(auth.AuthMiddleware(provider, cfg))
	api.RegisterRoutes(r, api.NewApp(logger, repos.Subjects, engine, stats, flows))

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: r}
	go func() {
		logger.Infof("server running on %s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("failed to start server: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("server shutdown: %v", err)
	}
	if err := closer.Close(); err != nil {
		logger.Errorf("storage close: %v", err)
	}
}

type closeFunc func() error

func (f closeFunc) Close() error { return f() }
