package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
)

const (
	msgRouteNotFound  = "Route not found"
	msgInternal       = "Internal server error"
	msgSomethingWrong = "Something went wrong"
)

// NotFound answers any request no route matched. Mount it last.
func NotFound() fiber.Handler {
	return func(c *fiber.Ctx) error {
		return writeError(c, fiber.StatusNotFound, msgRouteNotFound)
	}
}

// ErrorHandler returns the Fiber global error handler.
//
// Errors reaching it were not answered by a handler. Oversized request
// bodies become the same 400 the upload endpoint uses; other *fiber.Error
// values keep their status; anything else is a 500 whose message carries
// the error text outside production only.
func ErrorHandler(opts Options) fiber.ErrorHandler {
	log := opts.logger()
	return func(c *fiber.Ctx, err error) error {
		var fe *fiber.Error
		if errors.As(err, &fe) {
			switch fe.Code {
			case fiber.StatusRequestEntityTooLarge:
				return writeError(c, fiber.StatusBadRequest, tooLargeMessage(opts.MaxUploadBytes))
			case fiber.StatusNotFound:
				return writeError(c, fiber.StatusNotFound, msgRouteNotFound)
			case fiber.StatusMethodNotAllowed:
				return writeError(c, fiber.StatusMethodNotAllowed, "Method not allowed")
			}
			if fe.Code < fiber.StatusInternalServerError {
				return writeError(c, fe.Code, fe.Message)
			}
		}

		log.Error("unhandled_error", map[string]any{
			"request_id": requestIDFromCtx(c),
			"method":     c.Method(),
			"path":       c.Path(),
			"error":      err.Error(),
		})

		msg := err.Error()
		if opts.production() {
			msg = msgSomethingWrong
		}
		return c.Status(fiber.StatusInternalServerError).JSON(Response{
			Success: false,
			Error:   msgInternal,
			Message: msg,
		})
	}
}
