package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"carwash-backend/internal/app"
	"carwash-backend/internal/config"
	h "carwash-backend/internal/http"
	"carwash-backend/internal/handlers"
	"carwash-backend/internal/health"
	"carwash-backend/internal/live"
	"carwash-backend/internal/logging"
	"carwash-backend/internal/metrics"
	"carwash-backend/internal/middleware"
	"carwash-backend/internal/scheduler"

	"github.com/sirupsen/logrus"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "Path to config file")
	port := flag.Int("port", 0, "Server port (overrides config)")
	skipMigrations := flag.Bool("skip-migrations", false, "Do not apply migrations on startup")
	flag.Parse()

	cfg, err := config.LoadFrom(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	if *port > 0 {
		cfg.Server.Port = *port
	}

	logger := logging.New(cfg.Log.Level, cfg.Log.Format)
	metrics.Init()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.WithError(err).Fatal("startup failed")
	}
	defer a.Close()

	if !*skipMigrations {
		applied, err := a.Migrate(ctx)
		if err != nil {
			logger.WithError(err).Fatal("migrations failed")
		}
		logger.WithField("applied", applied).Info("migrations complete")
	}

	// Live job feed
	hub := live.NewHub(logger).AllowOrigins(cfg.Server.CorsAllowedOrigins)
	go hub.Run(ctx)
	a.JobService.SetPublisher(hub)

	// Nightly reconcile + archive
	if cfg.Scheduler.Enabled {
		nightly := scheduler.NewNightly(a.Branches, a.ReconcileService, a.ArchiveService, a.Locker(), cfg.Scheduler.Repair, logger)
		s, err := nightly.Start(ctx, cfg.Scheduler.At)
		if err != nil {
			logger.WithError(err).Fatal("scheduler start failed")
		}
		defer s.Stop()
		logger.WithFields(logrus.Fields{
			"at":     cfg.Scheduler.At,
			"repair": cfg.Scheduler.Repair,
		}).Info("nightly scheduler started")
	}

	healthChecker := health.NewHealthChecker(a.Pool).WithLiveClients(hub.Clients)
	if cfg.Redis.Addr != "" {
		healthChecker.WithRedis(a.Redis)
	}

	authMiddleware := middleware.NewAuthMiddleware(a.JWT, a.UserService)
	router := h.NewRouter(
		logger,
		handlers.NewAuthHandler(a.UserService),
		handlers.NewUserHandler(a.UserService),
		handlers.NewCatalogHandler(a.CatalogService),
		handlers.NewJobHandler(a.JobService),
		handlers.NewReportHandler(a.SummaryService, a.ReconcileService, a.ExportService),
		handlers.NewHealthHandler(healthChecker),
		handlers.NewLiveHandler(hub),
		authMiddleware,
	)
	handler := middleware.NewCORS(cfg)(router)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.WithField("addr", srv.Addr).Info("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("server failed")
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("graceful shutdown failed")
	}
}
