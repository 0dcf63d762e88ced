package middleware

import (
	"io"
	"os"
	"time"

	"github.com/gofiber/fiber/v2"

	"recordapi/internal/logging"
)

// Logger is a middleware that logs each HTTP request as one JSON line on stdout.
// Fields:
// - request_id (taken from context locals set by RequestID middleware)
// - method
// - path
// - status
// - latency (in milliseconds, as float)
func Logger() fiber.Handler {
	return LoggerWithWriter(os.Stdout, time.UTC)
}

// LoggerWithWriter is Logger writing to w with "ts" rendered in loc.
func LoggerWithWriter(w io.Writer, loc *time.Location) fiber.Handler {
	return LoggerWith(logging.New(w, loc))
}

// LoggerWith logs requests through an existing logger.
// Responses with status >= 500 are logged at error level.
func LoggerWith(log *logging.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		err := c.Next()

		status := statusOf(c, err)
		level := "info"
		if status >= fiber.StatusInternalServerError {
			level = "error"
		}
		rid, _ := c.Locals(RequestIDLocalKey).(string)

		log.Log(map[string]any{
			"level":      level,
			"msg":        "http_request",
			"request_id": rid,
			"method":     c.Method(),
			"path":       c.Path(),
			"status":     status,
			"latency":    float64(time.Since(start).Microseconds()) / 1000,
		})

		return err
	}
}

// statusOf returns the status the client will see. Errors returned by
// handlers are rendered later by the app's ErrorHandler, so the response
// status is not final yet when they bubble up.
func statusOf(c *fiber.Ctx, err error) int {
	if err == nil {
		return c.Response().StatusCode()
	}
	if fiberErr, ok := err.(*fiber.Error); ok {
		return fiberErr.Code
	}
	return fiber.StatusInternalServerError
}
