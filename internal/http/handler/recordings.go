package handler

import (
	"errors"
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"recordapi/internal/logging"
	"recordapi/internal/service"
)

const (
	uploadField = "recording"

	msgNoFile          = "No file uploaded"
	msgNotAudio        = "Only audio files are allowed!"
	msgNotFound        = "Recording not found"
	msgListFailed      = "Failed to fetch recordings"
	msgGetFailed       = "Failed to fetch recording"
	msgUploadFailed    = "Failed to upload recording"
	msgDeleteFailed    = "Failed to delete recording"
	msgUploaded        = "Recording uploaded successfully"
	msgDeleted         = "Recording deleted successfully"
	bytesPerMB         = 1 << 20
	defaultContentType = "application/octet-stream"
)

// tooLargeMessage renders the client message for an upload over max bytes.
func tooLargeMessage(max int64) string {
	if max >= bytesPerMB && max%bytesPerMB == 0 {
		return fmt.Sprintf("File too large. Maximum size is %dMB.", max/bytesPerMB)
	}
	return fmt.Sprintf("File too large. Maximum size is %d bytes.", max)
}

// parseID accepts positive base-10 integers only.
func parseID(c *fiber.Ctx) (int64, bool) {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || id < 1 {
		return 0, false
	}
	return id, true
}

func logFailure(log *logging.Logger, c *fiber.Ctx, msg string, err error) {
	log.Error(msg, map[string]any{
		"request_id": requestIDFromCtx(c),
		"method":     c.Method(),
		"path":       c.Path(),
		"error":      err.Error(),
	})
}

// ListRecordings godoc
// @Summary      List recordings
// @Description  All recordings, most recent first.
// @Tags         recordings
// @Produce      json
// @Success      200  {object}  Response{data=[]model.Recording}
// @Failure      500  {object}  Response
// @Router       /api/recordings [get]
func ListRecordings(svc service.RecordingService, log *logging.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		items, err := svc.List(c.UserContext())
		if err != nil {
			logFailure(log, c, "list_recordings_failed", err)
			return writeError(c, fiber.StatusInternalServerError, msgListFailed)
		}
		count := len(items)
		return c.JSON(Response{Success: true, Data: items, Count: &count})
	}
}

// UploadRecording godoc
// @Summary      Upload a recording
// @Tags         recordings
// @Accept       multipart/form-data
// @Produce      json
// @Param        recording  formData  file  true  "Audio file"
// @Success      201  {object}  Response{data=model.Recording}
// @Failure      400  {object}  Response
// @Failure      500  {object}  Response
// @Router       /api/recordings [post]
func UploadRecording(svc service.RecordingService, opts Options) fiber.Handler {
	log := opts.logger()
	return func(c *fiber.Ctx) error {
		fh, err := c.FormFile(uploadField)
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, msgNoFile)
		}

		ct := fh.Header.Get("Content-Type")
		// Reject before opening the part.
		if !service.IsAudio(ct) {
			return writeError(c, fiber.StatusBadRequest, msgNotAudio)
		}

		f, err := fh.Open()
		if err != nil {
			logFailure(log, c, "upload_open_failed", err)
			return writeError(c, fiber.StatusInternalServerError, msgUploadFailed)
		}
		defer f.Close()

		res, err := svc.Upload(c.UserContext(), service.UploadInput{
			Reader:       f,
			OriginalName: fh.Filename,
			ContentType:  ct,
			Size:         fh.Size,
		})
		switch {
		case err == nil:
			return writeData(c, fiber.StatusCreated, msgUploaded, res.Recording)
		case errors.Is(err, service.ErrFileRequired):
			return writeError(c, fiber.StatusBadRequest, msgNoFile)
		case errors.Is(err, service.ErrInvalidMediaType):
			return writeError(c, fiber.StatusBadRequest, msgNotAudio)
		case errors.Is(err, service.ErrTooLarge):
			return writeError(c, fiber.StatusBadRequest, tooLargeMessage(opts.MaxUploadBytes))
		}

		fields := map[string]any{
			"request_id": requestIDFromCtx(c),
			"error":      err.Error(),
		}
		if res != nil {
			fields["outcome"] = res.Outcome.String()
		}
		log.Error("upload_recording_failed", fields)
		return writeError(c, fiber.StatusInternalServerError, msgUploadFailed)
	}
}

// GetRecording godoc
// @Summary      Get a recording
// @Tags         recordings
// @Produce      json
// @Param        id   path      int  true  "Recording ID"
// @Success      200  {object}  Response{data=model.Recording}
// @Failure      404  {object}  Response
// @Failure      500  {object}  Response
// @Router       /api/recordings/{id} [get]
func GetRecording(svc service.RecordingService, log *logging.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := parseID(c)
		if !ok {
			return writeError(c, fiber.StatusNotFound, msgNotFound)
		}
		rec, err := svc.Get(c.UserContext(), id)
		if err != nil {
			if errors.Is(err, service.ErrNotFound) {
				return writeError(c, fiber.StatusNotFound, msgNotFound)
			}
			logFailure(log, c, "get_recording_failed", err)
			return writeError(c, fiber.StatusInternalServerError, msgGetFailed)
		}
		return writeData(c, fiber.StatusOK, "", rec)
	}
}

// DeleteRecording godoc
// @Summary      Delete a recording
// @Description  Removes the stored file, then the metadata row.
// @Tags         recordings
// @Produce      json
// @Param        id   path      int  true  "Recording ID"
// @Success      200  {object}  Response
// @Failure      404  {object}  Response
// @Failure      500  {object}  Response
// @Router       /api/recordings/{id} [delete]
func DeleteRecording(svc service.RecordingService, log *logging.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := parseID(c)
		if !ok {
			return writeError(c, fiber.StatusNotFound, msgNotFound)
		}
		res, err := svc.Delete(c.UserContext(), id)
		if err != nil {
			if errors.Is(err, service.ErrNotFound) {
				return writeError(c, fiber.StatusNotFound, msgNotFound)
			}
			fields := map[string]any{
				"request_id": requestIDFromCtx(c),
				"id":         id,
				"error":      err.Error(),
			}
			if res != nil {
				fields["outcome"] = res.Outcome.String()
			}
			log.Error("delete_recording_failed", fields)
			return writeError(c, fiber.StatusInternalServerError, msgDeleteFailed)
		}
		return c.JSON(Response{Success: true, Message: msgDeleted})
	}
}

// ServeUpload godoc
// @Summary      Download a stored recording file
// @Tags         recordings
// @Produce      octet-stream
// @Param        filename  path  string  true  "Generated filename"
// @Success      200
// @Failure      404  {object}  Response
// @Router       /uploads/{filename} [get]
func ServeUpload(svc service.RecordingService, log *logging.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		name := c.Params("filename")
		rc, info, err := svc.Open(c.UserContext(), name)
		if err != nil {
			if errors.Is(err, service.ErrNotFound) {
				return writeError(c, fiber.StatusNotFound, msgRouteNotFound)
			}
			logFailure(log, c, "serve_upload_failed", err)
			return writeError(c, fiber.StatusInternalServerError, msgInternal)
		}

		switch {
		case info.ContentType != "":
			c.Set(fiber.HeaderContentType, info.ContentType)
		case filepath.Ext(name) != "":
			c.Type(filepath.Ext(name))
		default:
			c.Set(fiber.HeaderContentType, defaultContentType)
		}

		size := -1
		if info.Size > 0 {
			size = int(info.Size)
		}
		// The response stream closes rc once it has been sent.
		return c.SendStream(rc, size)
	}
}
