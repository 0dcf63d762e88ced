package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"

	"recordapi/internal/model"
	"recordapi/internal/service"
	serviceMocks "recordapi/internal/service/mocks"
	"recordapi/internal/storage"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// envelope mirrors Response with Data left raw for per-test decoding.
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
	Message string          `json:"message"`
	Count   *int            `json:"count"`
}

func decode(t *testing.T, resp *http.Response) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	return env
}

// multipartBody builds a form with one file part carrying an explicit Content-Type.
func multipartBody(t *testing.T, field, filename, contentType string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, field, filename))
	if contentType != "" {
		h.Set("Content-Type", contentType)
	}
	part, err := writer.CreatePart(h)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, writer.Close())
	return body, writer.FormDataContentType()
}

func uploadRequest(t *testing.T, field, filename, contentType string, content []byte) *http.Request {
	t.Helper()
	body, ct := multipartBody(t, field, filename, contentType, content)
	req := httptest.NewRequest(http.MethodPost, "/api/recordings", body)
	req.Header.Set("Content-Type", ct)
	return req
}

func TestHealthCheck(t *testing.T) {
	db, dbMock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer db.Close()

	app := fiber.New()
	app.Get("/health", HealthCheck(db))

	t.Run("healthy", func(t *testing.T) {
		dbMock.ExpectPing().WillReturnError(nil)

		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var body map[string]string
		json.NewDecoder(resp.Body).Decode(&body)
		assert.Equal(t, "healthy", body["status"])
	})

	t.Run("unhealthy", func(t *testing.T) {
		dbMock.ExpectPing().WillReturnError(errors.New("db error"))

		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
		env := decode(t, resp)
		assert.False(t, env.Success)
		assert.Equal(t, "Database unavailable", env.Error)
	})
}

func TestLivenessProbe(t *testing.T) {
	app := fiber.New()
	app.Get("/healthz", LivenessProbe())

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	resp, _ := app.Test(req)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestRoot(t *testing.T) {
	app := fiber.New()
	app.Get("/", Root("staging"))

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "Audio Recording API", body["message"])
	assert.Equal(t, "staging", body["environment"])
	assert.Regexp(t, `^\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}\.\d{3}Z$`, body["timestamp"])
}

func TestListRecordings(t *testing.T) {
	mockSvc := new(serviceMocks.MockRecordingService)
	app := fiber.New()
	app.Get("/api/recordings", ListRecordings(mockSvc, nil))

	t.Run("success", func(t *testing.T) {
		mockSvc.On("List", mock.Anything).Return([]model.Recording{{ID: 2, Filename: "b.wav"}, {ID: 1, Filename: "a.wav"}}, nil).Once()

		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/api/recordings", nil))
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		env := decode(t, resp)
		assert.True(t, env.Success)
		require.NotNil(t, env.Count)
		assert.Equal(t, 2, *env.Count)

		var items []model.Recording
		require.NoError(t, json.Unmarshal(env.Data, &items))
		assert.Equal(t, int64(2), items[0].ID)
		mockSvc.AssertExpectations(t)
	})

	t.Run("empty", func(t *testing.T) {
		mockSvc.On("List", mock.Anything).Return([]model.Recording{}, nil).Once()

		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/api/recordings", nil))
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		env := decode(t, resp)
		assert.True(t, env.Success)
		require.NotNil(t, env.Count)
		assert.Equal(t, 0, *env.Count)
		assert.JSONEq(t, `[]`, string(env.Data))
		mockSvc.AssertExpectations(t)
	})

	t.Run("service error", func(t *testing.T) {
		mockSvc.On("List", mock.Anything).Return(nil, errors.New("db down")).Once()

		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/api/recordings", nil))
		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)

		env := decode(t, resp)
		assert.False(t, env.Success)
		assert.Equal(t, "Failed to fetch recordings", env.Error)
		mockSvc.AssertExpectations(t)
	})
}

func TestUploadRecording(t *testing.T) {
	mockSvc := new(serviceMocks.MockRecordingService)
	app := fiber.New()
	app.Post("/api/recordings", UploadRecording(mockSvc, Options{MaxUploadBytes: 50 << 20}))

	t.Run("success", func(t *testing.T) {
		rec := &model.Recording{ID: 1, Filename: "recording-1-2.wav", OriginalName: "test.wav", Size: 10, Mimetype: "audio/wav"}
		mockSvc.On("Upload", mock.Anything, mock.MatchedBy(func(in service.UploadInput) bool {
			return in.Reader != nil && in.OriginalName == "test.wav" && in.ContentType == "audio/wav" && in.Size == 10
		})).Return(&service.UploadResult{Recording: rec, Outcome: service.OutcomeCommitted}, nil).Once()

		resp, _ := app.Test(uploadRequest(t, "recording", "test.wav", "audio/wav", []byte("0123456789")))
		assert.Equal(t, http.StatusCreated, resp.StatusCode)

		env := decode(t, resp)
		assert.True(t, env.Success)
		assert.Equal(t, "Recording uploaded successfully", env.Message)

		var got model.Recording
		require.NoError(t, json.Unmarshal(env.Data, &got))
		assert.Equal(t, int64(1), got.ID)
		assert.Equal(t, "recording-1-2.wav", got.Filename)
		mockSvc.AssertExpectations(t)
	})

	t.Run("no file", func(t *testing.T) {
		resp, _ := app.Test(httptest.NewRequest(http.MethodPost, "/api/recordings", nil))
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "No file uploaded", decode(t, resp).Error)
	})

	t.Run("wrong field name", func(t *testing.T) {
		resp, _ := app.Test(uploadRequest(t, "file", "test.wav", "audio/wav", []byte("x")))
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "No file uploaded", decode(t, resp).Error)
	})

	t.Run("not audio", func(t *testing.T) {
		resp, _ := app.Test(uploadRequest(t, "recording", "notes.txt", "text/plain", []byte("hello")))
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

		env := decode(t, resp)
		assert.False(t, env.Success)
		assert.Equal(t, "Only audio files are allowed!", env.Error)
	})

	t.Run("too large", func(t *testing.T) {
		mockSvc.On("Upload", mock.Anything, mock.Anything).Return(nil, service.ErrTooLarge).Once()

		resp, _ := app.Test(uploadRequest(t, "recording", "big.wav", "audio/wav", []byte("0123456789")))
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "File too large. Maximum size is 50MB.", decode(t, resp).Error)
		mockSvc.AssertExpectations(t)
	})

	t.Run("service error", func(t *testing.T) {
		mockSvc.On("Upload", mock.Anything, mock.Anything).
			Return(&service.UploadResult{Outcome: service.OutcomeCompensated}, errors.New("save metadata: db down")).Once()

		resp, _ := app.Test(uploadRequest(t, "recording", "test.wav", "audio/wav", []byte("x")))
		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
		assert.Equal(t, "Failed to upload recording", decode(t, resp).Error)
		mockSvc.AssertExpectations(t)
	})
}

func TestGetRecording(t *testing.T) {
	mockSvc := new(serviceMocks.MockRecordingService)
	app := fiber.New()
	app.Get("/api/recordings/:id", GetRecording(mockSvc, nil))

	t.Run("success", func(t *testing.T) {
		mockSvc.On("Get", mock.Anything, int64(5)).Return(&model.Recording{ID: 5, Filename: "a.wav"}, nil).Once()

		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/api/recordings/5", nil))
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		env := decode(t, resp)
		assert.True(t, env.Success)
		var got model.Recording
		require.NoError(t, json.Unmarshal(env.Data, &got))
		assert.Equal(t, int64(5), got.ID)
		mockSvc.AssertExpectations(t)
	})

	t.Run("not found", func(t *testing.T) {
		mockSvc.On("Get", mock.Anything, int64(99)).Return(nil, service.ErrNotFound).Once()

		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/api/recordings/99", nil))
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		assert.Equal(t, "Recording not found", decode(t, resp).Error)
		mockSvc.AssertExpectations(t)
	})

	for _, id := range []string{"abc", "0", "-1", "1.5"} {
		t.Run("non-integer id "+id, func(t *testing.T) {
			resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/api/recordings/"+id, nil))
			assert.Equal(t, http.StatusNotFound, resp.StatusCode)
			assert.Equal(t, "Recording not found", decode(t, resp).Error)
		})
	}

	t.Run("service error", func(t *testing.T) {
		mockSvc.On("Get", mock.Anything, int64(6)).Return(nil, errors.New("db error")).Once()

		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/api/recordings/6", nil))
		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
		assert.Equal(t, "Failed to fetch recording", decode(t, resp).Error)
		mockSvc.AssertExpectations(t)
	})
}

func TestDeleteRecording(t *testing.T) {
	mockSvc := new(serviceMocks.MockRecordingService)
	app := fiber.New()
	app.Delete("/api/recordings/:id", DeleteRecording(mockSvc, nil))

	t.Run("success", func(t *testing.T) {
		mockSvc.On("Delete", mock.Anything, int64(3)).Return(&service.DeleteResult{Outcome: service.OutcomeCommitted}, nil).Once()

		resp, _ := app.Test(httptest.NewRequest(http.MethodDelete, "/api/recordings/3", nil))
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		env := decode(t, resp)
		assert.True(t, env.Success)
		assert.Equal(t, "Recording deleted successfully", env.Message)
		mockSvc.AssertExpectations(t)
	})

	t.Run("not found", func(t *testing.T) {
		mockSvc.On("Delete", mock.Anything, int64(4)).Return(nil, service.ErrNotFound).Once()

		resp, _ := app.Test(httptest.NewRequest(http.MethodDelete, "/api/recordings/4", nil))
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		assert.Equal(t, "Recording not found", decode(t, resp).Error)
		mockSvc.AssertExpectations(t)
	})

	t.Run("non-integer id", func(t *testing.T) {
		resp, _ := app.Test(httptest.NewRequest(http.MethodDelete, "/api/recordings/x", nil))
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("service error", func(t *testing.T) {
		mockSvc.On("Delete", mock.Anything, int64(5)).
			Return(&service.DeleteResult{Outcome: service.OutcomeOrphaned}, errors.New("delete metadata: db down")).Once()

		resp, _ := app.Test(httptest.NewRequest(http.MethodDelete, "/api/recordings/5", nil))
		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
		assert.Equal(t, "Failed to delete recording", decode(t, resp).Error)
		mockSvc.AssertExpectations(t)
	})
}

func TestServeUpload(t *testing.T) {
	mockSvc := new(serviceMocks.MockRecordingService)
	app := fiber.New()
	app.Get("/uploads/:filename", ServeUpload(mockSvc, nil))

	t.Run("stored content type", func(t *testing.T) {
		mockSvc.On("Open", mock.Anything, "a.bin").
			Return(io.NopCloser(strings.NewReader("abc")), storage.ObjectInfo{Size: 3, ContentType: "audio/ogg"}, nil).Once()

		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/uploads/a.bin", nil))
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "audio/ogg", resp.Header.Get("Content-Type"))

		body, _ := io.ReadAll(resp.Body)
		assert.Equal(t, "abc", string(body))
	})

	t.Run("type from extension", func(t *testing.T) {
		mockSvc.On("Open", mock.Anything, "a.mp3").
			Return(io.NopCloser(strings.NewReader("abc")), storage.ObjectInfo{Size: 3}, nil).Once()

		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/uploads/a.mp3", nil))
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "audio/mpeg", resp.Header.Get("Content-Type"))
	})

	t.Run("missing", func(t *testing.T) {
		mockSvc.On("Open", mock.Anything, "gone.wav").Return(nil, storage.ObjectInfo{}, service.ErrNotFound).Once()

		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/uploads/gone.wav", nil))
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		assert.Equal(t, "Route not found", decode(t, resp).Error)
	})

	mockSvc.AssertExpectations(t)
}

func TestRouting(t *testing.T) {
	opts := Options{Environment: "development", MaxUploadBytes: 50 << 20}
	app := fiber.New(fiber.Config{
		ErrorHandler: ErrorHandler(opts),
	})

	mockSvc := new(serviceMocks.MockRecordingService)
	RegisterRoutes(app, nil, mockSvc, opts)

	t.Run("not found route", func(t *testing.T) {
		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/non-existent", nil))
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)

		env := decode(t, resp)
		assert.False(t, env.Success)
		assert.Equal(t, "Route not found", env.Error)
	})

	t.Run("unmatched method", func(t *testing.T) {
		resp, _ := app.Test(httptest.NewRequest(http.MethodPut, "/api/recordings/1", nil))
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		assert.Equal(t, "Route not found", decode(t, resp).Error)
	})

	t.Run("list without trailing slash", func(t *testing.T) {
		mockSvc.On("List", mock.Anything).Return([]model.Recording{}, nil).Once()

		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/api/recordings", nil))
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		mockSvc.AssertExpectations(t)
	})
}

func TestErrorHandler(t *testing.T) {
	newApp := func(env string) *fiber.App {
		app := fiber.New(fiber.Config{
			ErrorHandler: ErrorHandler(Options{Environment: env, MaxUploadBytes: 50 << 20}),
		})
		app.Get("/boom", func(c *fiber.Ctx) error {
			return errors.New("disk exploded")
		})
		app.Get("/large", func(c *fiber.Ctx) error {
			return fiber.ErrRequestEntityTooLarge
		})
		app.Get("/bad", func(c *fiber.Ctx) error {
			return fiber.NewError(fiber.StatusBadRequest, "Malformed request")
		})
		return app
	}

	t.Run("development exposes message", func(t *testing.T) {
		resp, _ := newApp("development").Test(httptest.NewRequest(http.MethodGet, "/boom", nil))
		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)

		env := decode(t, resp)
		assert.False(t, env.Success)
		assert.Equal(t, "Internal server error", env.Error)
		assert.Equal(t, "disk exploded", env.Message)
	})

	t.Run("production hides message", func(t *testing.T) {
		resp, _ := newApp("production").Test(httptest.NewRequest(http.MethodGet, "/boom", nil))
		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)

		env := decode(t, resp)
		assert.Equal(t, "Internal server error", env.Error)
		assert.Equal(t, "Something went wrong", env.Message)
	})

	t.Run("entity too large becomes 400", func(t *testing.T) {
		resp, _ := newApp("development").Test(httptest.NewRequest(http.MethodGet, "/large", nil))
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "File too large. Maximum size is 50MB.", decode(t, resp).Error)
	})

	t.Run("client error keeps status", func(t *testing.T) {
		resp, _ := newApp("development").Test(httptest.NewRequest(http.MethodGet, "/bad", nil))
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "Malformed request", decode(t, resp).Error)
	})
}

func TestErrorHandler_BodyLimit(t *testing.T) {
	opts := Options{MaxUploadBytes: 1024}
	app := fiber.New(fiber.Config{
		BodyLimit:    1024,
		ErrorHandler: ErrorHandler(opts),
	})
	app.Post("/api/recordings", UploadRecording(new(serviceMocks.MockRecordingService), opts))

	resp, err := app.Test(uploadRequest(t, "recording", "big.wav", "audio/wav", bytes.Repeat([]byte("x"), 4096)))
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "File too large. Maximum size is 1024 bytes.", decode(t, resp).Error)
}

func TestTooLargeMessage(t *testing.T) {
	assert.Equal(t, "File too large. Maximum size is 50MB.", tooLargeMessage(50<<20))
	assert.Equal(t, "File too large. Maximum size is 1MB.", tooLargeMessage(1<<20))
	assert.Equal(t, "File too large. Maximum size is 1500000 bytes.", tooLargeMessage(1500000))
}
