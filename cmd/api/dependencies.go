package api

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	categoryhandler "github.com/FACorreiaa/expense-tracker/internal/domain/category/handler"
	importhandler "github.com/FACorreiaa/expense-tracker/internal/domain/import/handler"
	"github.com/FACorreiaa/expense-tracker/internal/domain/import/normalizer"
	importrepo "github.com/FACorreiaa/expense-tracker/internal/domain/import/repository"
	importservice "github.com/FACorreiaa/expense-tracker/internal/domain/import/service"
	"github.com/FACorreiaa/expense-tracker/internal/domain/insights"
	insightshandler "github.com/FACorreiaa/expense-tracker/internal/domain/insights/handler"

	"github.com/FACorreiaa/expense-tracker/internal/domain/category"
	"github.com/FACorreiaa/expense-tracker/internal/domain/transaction"

	"github.com/FACorreiaa/expense-tracker/pkg/config"
	"github.com/FACorreiaa/expense-tracker/pkg/cron"
	"github.com/FACorreiaa/expense-tracker/pkg/db"
	"github.com/FACorreiaa/expense-tracker/pkg/metrics"
	"github.com/FACorreiaa/expense-tracker/pkg/storage"
)

// archivePrefix namespaces uploads inside a shared GCS bucket.
const archivePrefix = "statements"

// Dependencies holds all application dependencies
type Dependencies struct {
	Config *config.Config
	DB     *db.DB
	Logger *slog.Logger

	// Repositories
	TransactionRepo *transaction.PostgresRepository
	CategoryRepo    *category.PostgresRepository
	ImportRepo      importrepo.ImportRepository
	OverrideStore   *normalizer.OverrideStore

	// Services
	CategoryService *category.Service
	ImportService   *importservice.ImportService
	InsightsService *insights.Service
	FileStorage     storage.Storage
	ImportMetrics   *metrics.ImportMetrics
	Scheduler       *cron.Scheduler

	// Handlers
	CategoryHandler *categoryhandler.CategoryHandler
	ImportHandler   *importhandler.ImportHandler
	InsightsHandler *insightshandler.InsightsHandler
}

// InitDependencies initializes all application dependencies
func InitDependencies(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, error) {
	deps := &Dependencies{
		Config: cfg,
		Logger: logger,
	}

	// Initialize database
	if err := deps.initDatabase(); err != nil {
		return nil, fmt.Errorf("failed to init database: %w", err)
	}

	// Initialize repositories
	deps.initRepositories()

	// Initialize services
	if err := deps.initServices(ctx); err != nil {
		deps.Cleanup()
		return nil, fmt.Errorf("failed to init services: %w", err)
	}

	// Initialize handlers
	deps.initHandlers()

	logger.Info("all dependencies initialized successfully")

	return deps, nil
}

// initDatabase initializes the database connection and runs migrations
func (d *Dependencies) initDatabase() error {
	database, err := db.New(db.Config{
		DSN:             d.Config.Database.DSN(),
		MaxConns:        int32(d.Config.Database.MaxConns),
		MinConns:        int32(d.Config.Database.MinConns),
		MaxConnLifetime: 5 * time.Minute,
		MaxConnIdleTime: 10 * time.Minute,
	}, d.Logger)
	if err != nil {
		return err
	}

	d.DB = database

	// Run migrations
	if err := d.DB.RunMigrations(); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	d.Logger.Info("database connected and migrations completed successfully")
	return nil
}

// initRepositories initializes all repository layer dependencies
func (d *Dependencies) initRepositories() {
	d.TransactionRepo = transaction.NewPostgresRepository(d.DB.Pool)
	d.CategoryRepo = category.NewPostgresRepository(d.DB.Pool)
	d.ImportRepo = importrepo.NewPostgresImportRepository(d.DB.Pool)
	d.OverrideStore = normalizer.NewOverrideStore(d.DB.Pool)

	d.Logger.Info("repositories initialized")
}

// initServices initializes all service layer dependencies
func (d *Dependencies) initServices(ctx context.Context) error {
	if d.Config.Auth.JWTSecret == "" {
		return fmt.Errorf("jwt secret is required")
	}

	d.CategoryService = category.NewService(d.CategoryRepo, d.Logger)

	if d.Config.Observability.MetricsEnabled {
		d.ImportMetrics = metrics.NewImportMetrics()
	}

	pipeline := importservice.NewPipeline(d.Logger).
		WithDefaultCurrency(d.Config.Import.DefaultCurrency)

	d.ImportService = importservice.NewImportService(pipeline, d.TransactionRepo, d.ImportRepo, d.Logger).
		WithCategories(d.CategoryService).
		WithOverrides(d.OverrideStore).
		WithMetrics(d.ImportMetrics)

	// Archive of raw and normalized uploads, swept by the retention job
	if d.Config.Import.ArchiveUploads {
		fileStorage, err := storage.New(ctx, &storage.Config{
			Type:      storage.StorageType(d.Config.Storage.Backend),
			LocalPath: d.Config.Storage.LocalPath,
			GCSBucket: d.Config.Storage.GCSBucket,
			GCSPrefix: archivePrefix,
		})
		if err != nil {
			return fmt.Errorf("failed to init file storage: %w", err)
		}
		d.FileStorage = fileStorage
		d.ImportService.WithArchive(fileStorage)

		if d.Config.Storage.RetentionDays > 0 {
			d.Scheduler = cron.NewScheduler(
				fileStorage,
				d.Config.Storage.SweepSchedule,
				d.Config.Storage.Retention(),
				d.Logger,
			)
		}
	}

	d.InsightsService = insights.NewService(d.TransactionRepo, d.CategoryService, d.Logger).
		WithLocation(d.Config.Analytics.Location()).
		WithCurrency(d.Config.Import.DefaultCurrency).
		WithTopMerchants(d.Config.Analytics.TopMerchantsLimit)

	d.Logger.Info("services initialized",
		slog.Bool("archive", d.FileStorage != nil),
		slog.Bool("metrics", d.ImportMetrics != nil),
	)
	return nil
}

// initHandlers initializes all handler dependencies
func (d *Dependencies) initHandlers() {
	d.CategoryHandler = categoryhandler.NewCategoryHandler(d.CategoryService, d.Logger)
	d.ImportHandler = importhandler.NewImportHandler(d.ImportService, d.Config.Import.MaxUploadBytes, d.Logger)
	d.InsightsHandler = insightshandler.NewInsightsHandler(d.InsightsService, d.Logger)

	d.Logger.Info("handlers initialized")
}

// Cleanup closes all resources
func (d *Dependencies) Cleanup() {
	if closer, ok := d.FileStorage.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			d.Logger.Warn("failed to close file storage", slog.Any("error", err))
		}
	}
	if d.DB != nil {
		d.DB.Close()
	}
	d.Logger.Info("cleanup completed")
}
