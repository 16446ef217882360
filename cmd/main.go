package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/swagger"
	"github.com/minio/minio-go/v7"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"ops-dashboard/docs"
	"ops-dashboard/internal/config"
	"ops-dashboard/internal/handlers"
	"ops-dashboard/internal/invoice"
	"ops-dashboard/internal/logger"
	"ops-dashboard/internal/metrics"
	"ops-dashboard/internal/models"
	"ops-dashboard/internal/repository"
	"ops-dashboard/internal/services"
	"ops-dashboard/internal/services/cache"
	"ops-dashboard/internal/services/caches"
	"ops-dashboard/internal/storage"
)

const apiBase = "/api/dashboard"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	serve := &cobra.Command{
		Use:   "serve",
		Short: "Run the dashboard API server",
		RunE:  runServe,
	}
	root := &cobra.Command{
		Use:   "dashboard",
		Short: "Business operations dashboard: projects, priorities and invoices",
		RunE:  runServe,
	}
	root.AddCommand(serve, &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := InitConfig()
			MigrateDatabase(ConnectDatabase(cfg))
			slog.Info("migration complete")
			return nil
		},
	})
	return root
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := InitConfig()
	db := ConnectDatabase(cfg)
	MigrateDatabase(db)
	minioClient := InitMinIOClient(ctx, cfg)
	store := storage.NewMinioStore(minioClient, cfg.MinioBucket)
	counterCache := InitCounterCache(ctx, cfg)

	m := metrics.NewMetrics(prometheus.DefaultRegisterer)

	invoiceService := services.NewInvoiceService(
		repository.NewInvoiceProjectRepository(db),
		repository.NewExportedInvoiceRepository(db),
		repository.NewInvoiceCounterRepository(db),
		counterCache,
		store,
		m,
		services.InvoiceOptions{
			Issuer: invoice.Issuer{
				Name:         cfg.IssuerName,
				Tagline:      cfg.IssuerTagline,
				PaymentLines: cfg.PaymentLines,
			},
			HighlightThreshold: cfg.HighlightThreshold,
		},
	)
	if err := invoiceService.SeedCounters(ctx); err != nil {
		slog.Warn("invoice counters not seeded, fallback numbering starts at 1", "error", err)
	}

	projectService := services.NewProjectService(repository.NewProjectRepository(db), invoiceService, m)
	if err := projectService.Reload(ctx); err != nil {
		slog.Warn("initial project load failed, will retry on first request", "error", err)
	}
	attachmentService := services.NewAttachmentService(projectService, store, cfg.MaxUploadBytes)

	app := fiber.New(fiber.Config{
		AppName:   "ops-dashboard",
		BodyLimit: int(cfg.MaxUploadBytes) * 4,
	})
	app.Use(recover.New())
	app.Use(fiberlogger.New())
	app.Use(cors.New())

	// Register Prometheus metrics endpoint
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	api := app.Group(apiBase)
	handlers.RegisterRoutes(api,
		handlers.NewProjectHandler(projectService, attachmentService),
		handlers.NewInvoiceHandler(invoiceService),
		handlers.NewFileHandler(attachmentService),
	)

	docs.SwaggerInfo.BasePath = apiBase
	api.Get("/swagger/*", swagger.HandlerDefault)

	api.Get("/health", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	for _, r := range app.GetRoutes(true) {
		slog.Debug("route", "method", r.Method, "path", r.Path)
	}

	go func() {
		<-ctx.Done()
		slog.Info("shutting down")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			slog.Error("shutdown", "error", err)
		}
	}()

	slog.Info("server listening", "port", cfg.AppPort)
	return app.Listen(":" + cfg.AppPort)
}

func InitConfig() *config.Config {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Config error: %v", err)
	}
	logger.Init(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})
	return cfg
}

func ConnectDatabase(cfg *config.Config) *gorm.DB {
	db, err := config.ConnectDatabase(cfg)
	if err != nil {
		log.Fatalf("Database connection failed: %v", err)
	}
	return db
}

func MigrateDatabase(db *gorm.DB) {
	err := db.AutoMigrate(
		&models.Project{},
		&models.InvoiceProject{},
		&models.ExportedInvoice{},
		&models.InvoiceCounter{},
	)
	if err != nil {
		log.Fatalf("Database migration failed: %v", err)
	}
}

func InitMinIOClient(ctx context.Context, cfg *config.Config) *minio.Client {
	minioClient, err := storage.NewMinioClient(ctx, cfg)
	if err != nil {
		log.Fatalf("MinIO client initialization failed: %v", err)
	}
	return minioClient
}

// InitCounterCache picks the invoice-number fallback cache. Redis is used
// when configured and reachable, memory otherwise.
func InitCounterCache(ctx context.Context, cfg *config.Config) cache.CounterCache {
	if cfg.RedisHost == "" {
		return caches.NewMemoryCache()
	}
	client, err := storage.NewRedisClient(ctx, cfg.RedisHost, cfg.RedisPort)
	if err != nil {
		slog.Warn("redis unavailable, keeping invoice counters in memory", "host", cfg.RedisHost, "error", err)
		return caches.NewMemoryCache()
	}
	return caches.NewRedisCache(client)
}
