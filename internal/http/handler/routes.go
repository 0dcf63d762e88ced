package handler

import (
	"database/sql"

	"github.com/gofiber/fiber/v2"

	"recordapi/internal/logging"
	"recordapi/internal/service"
)

// Options carries the settings handlers need from the app config.
type Options struct {
	Environment    string
	MaxUploadBytes int64
	Log            *logging.Logger
}

func (o Options) production() bool {
	return o.Environment == "production"
}

func (o Options) logger() *logging.Logger {
	if o.Log == nil {
		return logging.Discard()
	}
	return o.Log
}

// RegisterRoutes attaches the HTTP routes to app and mounts the 404 fallback,
// so it must be called after every other route has been registered.
func RegisterRoutes(app *fiber.App, db *sql.DB, svc service.RecordingService, opts Options) {
	log := opts.logger()

	app.Get("/", Root(opts.Environment))
	app.Get("/health", HealthCheck(db))
	app.Get("/healthz", LivenessProbe())

	api := app.Group("/api/recordings")
	api.Get("/", ListRecordings(svc, log))
	api.Post("/", UploadRecording(svc, opts))
	api.Get("/:id", GetRecording(svc, log))
	api.Delete("/:id", DeleteRecording(svc, log))

	app.Get("/uploads/:filename", ServeUpload(svc, log))

	app.Use(NotFound())
}
