package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gmcore/internal/config"
	"gmcore/internal/infra"
	"gmcore/internal/repository"
	"gmcore/internal/router"
	"gmcore/internal/service"
	"gmcore/internal/worker"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	// Structured logger — dev: pretty, prod: JSON
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	db, err := infra.NewDatabase(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to postgres")
	}

	rdb, err := infra.NewRedis(cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Background graph: delivery workers, redelivery cron, and the
	// periodic scheduler. Wired here (composition root) so the pool has
	// full access to all infrastructure dependencies.
	userRepo := repository.NewUserRepository(db)
	locationRepo := repository.NewLocationRepository(db)
	inventoryRepo := repository.NewInventoryRepository(db)
	alertRepo := repository.NewAlertRepository(db)
	activityRepo := repository.NewActivityRepository(db)
	sessionRepo := repository.NewSessionRepository(db)
	usageRepo := repository.NewUsageRepository(db)
	keyRepo := repository.NewKeyRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)

	dispatcher := worker.NewDispatcher(rdb)
	mailer := infra.NewMailer(cfg)
	cb := infra.NewCircuitBreaker(infra.DefaultCBConfig())

	alertSvc := service.NewAlertService(alertRepo, inventoryRepo, locationRepo, cfg.CriticalStockThreshold)
	activitySvc := service.NewActivityService(activityRepo, sessionRepo, usageRepo, cfg.DenyList())
	notifySvc := service.NewNotifyService(notificationRepo, locationRepo, userRepo, alertRepo, dispatcher, activitySvc, cfg.NotifyMaxWindows)
	usageSvc := service.NewUsageService(usageRepo, activityRepo)
	keyringSvc := service.NewKeyringService(keyRepo, cfg.KeyRotationDays, cfg.KeyExpiryWarningDays)

	handlers := map[string]worker.Handler{
		"notify": worker.NewNotifyWorker(notificationRepo, notifySvc, mailer, cb, rdb),
	}
	worker.StartWorkerPool(ctx, rdb, cfg.WorkerPoolSize, handlers)
	worker.StartRetryCron(ctx, worker.RetryCronConfig{
		NotificationRepo: notificationRepo,
		Dispatcher:       dispatcher,
		CB:               cb,
		MaxAttempts:      cfg.NotifyMaxWindows,
		Window:           time.Duration(cfg.DispatchWindowMinutes) * time.Minute,
	})

	scheduler := worker.NewScheduler(worker.SchedulerConfig{
		Keyring:     keyringSvc,
		Alerts:      alertSvc,
		Notify:      notifySvc,
		Usage:       usageSvc,
		Activity:    activitySvc,
		RDB:         rdb,
		Interval:    time.Duration(cfg.SweepIntervalMinutes) * time.Minute,
		IdleTimeout: time.Duration(cfg.SessionIdleTimeoutMinutes) * time.Minute,
	})
	scheduler.Start(ctx)

	r := router.New(cfg, db, rdb)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown on SIGINT / SIGTERM
	go func() {
		log.Info().Msgf("gmcore listening on :%d", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server…")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("forced shutdown")
	}
	log.Info().Msg("server exited")
}
