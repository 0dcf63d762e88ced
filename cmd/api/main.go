package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/swagger"
	_ "github.com/joho/godotenv/autoload"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"recordapi/docs"
	"recordapi/internal/config"
	"recordapi/internal/database"
	"recordapi/internal/database/migration"
	handlers "recordapi/internal/http/handler"
	"recordapi/internal/http/middleware"
	"recordapi/internal/logging"
	appotel "recordapi/internal/otel"
	"recordapi/internal/repository"
	"recordapi/internal/repository/postgres"
	"recordapi/internal/repository/sqlite"
	"recordapi/internal/service"
	"recordapi/internal/storage"
)

// multipart framing and the other form fields ride on top of the file itself.
const bodyLimitSlack = 1 << 20

// @title Audio Recording API
// @version 1.0
// @description Upload, list, fetch and delete audio recordings.
// @BasePath /
func main() {
	// Load configuration from environment variables (.env auto-loaded if present)
	cfg := config.Load()
	log := logging.New(os.Stdout, logging.LoadLocation(cfg.LogTimezone))

	if err := run(cfg, log); err != nil {
		log.Error("fatal", map[string]any{"error": err.Error()})
		os.Exit(1)
	}
}

func run(cfg *config.AppConfig, log *logging.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := appotel.Init(ctx, log)
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			log.Error("tracing_shutdown_failed", map[string]any{"error": err.Error()})
		}
	}()

	db, dialect, err := database.Open(cfg.Database)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close()
	log.Info("database_connected", map[string]any{"engine": dialect})

	migrateCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	err = migration.EnsureMigrated(migrateCtx, db, dialect, log, dbLabel(cfg.Database, dialect))
	cancel()
	if err != nil {
		return fmt.Errorf("migrate schema: %w", err)
	}

	store, location, err := newStorage(cfg)
	if err != nil {
		return fmt.Errorf("initialize storage: %w", err)
	}
	log.Info("storage_ready", map[string]any{"driver": cfg.Upload.Driver, "location": location})

	repo, err := newRepository(dialect, db)
	if err != nil {
		return err
	}
	recSvc := service.NewRecordingService(store, repo, cfg.Upload.MaxBytes, log)

	opts := handlers.Options{
		Environment:    cfg.Environment,
		MaxUploadBytes: cfg.Upload.MaxBytes,
		Log:            log,
	}
	app := fiber.New(fiber.Config{
		ErrorHandler: handlers.ErrorHandler(opts),
		BodyLimit:    int(cfg.Upload.MaxBytes) + bodyLimitSlack,
	})

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	promMiddleware, err := middleware.NewPrometheusMiddleware(reg)
	if err != nil {
		return fmt.Errorf("register metrics: %w", err)
	}

	// Register global middleware
	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.FrontendURL,
		AllowMethods:     "GET,POST,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, " + middleware.RequestIDHeader,
		AllowCredentials: cfg.FrontendURL != "*",
	}))
	app.Use(middleware.RequestID())
	app.Use(middleware.LoggerWith(log))
	app.Use(otelfiber.Middleware())
	app.Use(promMiddleware.Handler())

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))

	// Swagger UI with dynamic host and scheme
	app.Get("/swagger/*", func(c *fiber.Ctx) error {
		scheme := c.Protocol()
		if proto := c.Get("X-Forwarded-Proto"); proto != "" {
			scheme = strings.TrimSpace(strings.Split(proto, ",")[0])
		}

		docs.SwaggerInfo.Host = c.Get("Host")
		docs.SwaggerInfo.Schemes = []string{scheme}

		return swagger.HandlerDefault(c)
	})

	// Mounts the 404 fallback, so it goes last.
	handlers.RegisterRoutes(app, db, recSvc, opts)

	errCh := make(chan error, 1)
	go func() {
		errCh <- app.Listen(":" + cfg.Port)
	}()
	log.Info("server_started", map[string]any{
		"port":        cfg.Port,
		"environment": cfg.Environment,
		"database":    dialect,
	})

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("start server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("server_shutting_down", nil)
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		log.Error("server_shutdown_failed", map[string]any{"error": err.Error()})
	}
	return nil
}

func newStorage(cfg *config.AppConfig) (storage.Storage, string, error) {
	switch cfg.Upload.Driver {
	case "", "disk":
		disk, err := storage.NewDisk(cfg.Upload.BaseDir)
		if err != nil {
			return nil, "", err
		}
		return disk, disk.Dir(), nil
	case "minio":
		store, err := storage.NewMinIO(cfg.MinIO)
		if err != nil {
			return nil, "", err
		}
		return store, "s3://" + cfg.MinIO.Bucket, nil
	default:
		return nil, "", fmt.Errorf("unknown STORAGE_DRIVER %q", cfg.Upload.Driver)
	}
}

func newRepository(dialect string, db *sql.DB) (repository.RecordingRepository, error) {
	switch dialect {
	case config.DialectPostgres:
		return postgres.NewRecordingPostgres(db), nil
	case config.DialectSQLite:
		return sqlite.NewRecordingSQLite(db), nil
	default:
		return nil, fmt.Errorf("unsupported database dialect %q", dialect)
	}
}

// dbLabel names the database in migration logs without leaking credentials.
func dbLabel(c config.DatabaseConfig, dialect string) string {
	if dialect == config.DialectSQLite {
		return c.SQLitePath
	}
	if c.Name != "" {
		return c.Name
	}
	return "postgres"
}
