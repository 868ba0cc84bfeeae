// Package app wires the stores and services shared by the server and the CLI.
package app

import (
	"context"
	"fmt"
	"time"

	"carwash-backend/internal/auth"
	"carwash-backend/internal/cache"
	"carwash-backend/internal/config"
	"carwash-backend/internal/database"
	"carwash-backend/internal/db"
	"carwash-backend/internal/policy"
	"carwash-backend/internal/repositories"
	"carwash-backend/internal/services"
	"carwash-backend/internal/timeutil"
	"carwash-backend/migrations"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"
)

type App struct {
	Config *config.Config
	Logger *logrus.Logger
	Pool   *pgxpool.Pool
	Redis  *cache.Redis // nil when redis is not configured or unreachable
	JWT    *auth.JWTManager

	Branches *repositories.BranchRepository
	Users    *repositories.UserRepository
	Washers  *repositories.WasherRepository
	Items    *repositories.ServiceItemRepository
	Jobs     *repositories.JobRepository
	Reports  *repositories.ReportRepository

	JobService       *services.JobService
	SummaryService   *services.SummaryService
	ReconcileService *services.ReconcileService
	CatalogService   *services.CatalogService
	UserService      *services.UserService
	ExportService    *services.ExportService
	ArchiveService   *services.ArchiveService
}

// New connects postgres (required), redis and the archive bucket (both
// optional) and builds every service.
func New(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (*App, error) {
	if err := timeutil.SetLocation(cfg.Business.Timezone); err != nil {
		return nil, fmt.Errorf("business timezone: %w", err)
	}

	pool, err := db.Connect(ctx, cfg)
	if err != nil {
		return nil, err
	}
	logger.WithFields(logrus.Fields{
		"host": cfg.Database.Host,
		"name": cfg.Database.Name,
	}).Info("connected to database")

	a := &App{
		Config:   cfg,
		Logger:   logger,
		Pool:     pool,
		JWT:      auth.NewJWTManager(cfg),
		Branches: repositories.NewBranchRepository(pool),
		Users:    repositories.NewUserRepository(pool),
		Washers:  repositories.NewWasherRepository(pool),
		Items:    repositories.NewServiceItemRepository(pool),
		Jobs:     repositories.NewJobRepository(pool),
		Reports:  repositories.NewReportRepository(pool),
	}

	if cfg.Redis.Addr != "" {
		r, err := cache.Connect(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			logger.WithError(err).Warn("redis unavailable, continuing without cache, revocation or locks")
		} else {
			a.Redis = r
			logger.WithField("addr", cfg.Redis.Addr).Info("connected to redis")
		}
	}

	a.JobService = services.NewJobService(a.Jobs, policy.NewCreditPolicy(cfg.Business.CreditWasherName), timeutil.Now, logger)
	if cfg.Business.PhoneRegion != "" {
		a.JobService.PhoneRegion = cfg.Business.PhoneRegion
	}
	a.SummaryService = services.NewSummaryService(a.Reports, a.Branches, logger)
	a.ReconcileService = services.NewReconcileService(a.Reports, logger)
	a.CatalogService = services.NewCatalogService(a.Branches, a.Washers, a.Items, logger)
	a.UserService = services.NewUserService(a.Users, a.Branches, a.JWT, logger)
	a.ExportService = services.NewExportService()

	if a.Redis != nil {
		a.JobService.SetCache(a.Redis)
		a.SummaryService.SetCache(a.Redis, time.Duration(cfg.Business.SummaryCacheMins)*time.Minute)
		a.ReconcileService.SetCache(a.Redis)
		a.UserService.SetRevoker(a.Redis)
	}

	var putter services.ObjectPutter
	if cfg.Archive.Enabled {
		client, err := config.NewS3Client(ctx, cfg.Archive)
		if err != nil {
			logger.WithError(err).Warn("archive bucket unavailable, report archiving disabled")
		} else {
			putter = client
		}
	}
	a.ArchiveService = services.NewArchiveService(a.SummaryService, a.ExportService, putter, cfg.Archive.Bucket, cfg.Archive.Prefix, logger)

	return a, nil
}

// Migrate applies pending schema migrations.
func (a *App) Migrate(ctx context.Context) (int, error) {
	return a.migrator().RunMigrations(ctx)
}

// MigrationStatus lists every embedded migration and whether it has run.
func (a *App) MigrationStatus(ctx context.Context) ([]database.MigrationStatus, error) {
	return a.migrator().Status(ctx)
}

func (a *App) migrator() *database.Migrator {
	return database.NewMigrator(a.Pool, migrations.FS, a.Logger)
}

// Locker returns the redis lock client; without redis locks are granted locally.
func (a *App) Locker() *cache.Redis {
	return a.Redis
}

func (a *App) Close() {
	if err := a.Redis.Close(); err != nil {
		a.Logger.WithError(err).Warn("closing redis")
	}
	a.Pool.Close()
}
