package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/burnbox/backend/internal/crypto"
	"github.com/burnbox/backend/internal/middleware"
	"github.com/burnbox/backend/internal/models"
	"github.com/burnbox/backend/internal/repository"
	"github.com/burnbox/backend/internal/services"
	"github.com/burnbox/backend/internal/storage"
	"github.com/burnbox/backend/internal/validation"
	"github.com/burnbox/backend/pkg/logger"
	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"gorm.io/gorm"
)

const testMaxFileSize = 1024 * 1024

type testEnv struct {
	app     *fiber.App
	db      *gorm.DB
	store   *storage.MemoryStore
	service *services.TransferService
}

var testSetupOnce sync.Once

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()

	testSetupOnce.Do(func() {
		logger.Init()
	})

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("failed opening in-memory sqlite database: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed getting sql.DB from gorm: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	t.Cleanup(func() {
		_ = sqlDB.Close()
	})

	err = db.AutoMigrate(
		&models.Transfer{},
		&models.AuditEvent{},
		&models.AuditExportCursor{},
	)
	if err != nil {
		t.Fatalf("failed automigrating models: %v", err)
	}

	codec, err := crypto.NewCodec(bytes.Repeat([]byte{0x42}, 32))
	if err != nil {
		t.Fatalf("failed creating codec: %v", err)
	}

	store := storage.NewMemoryStore()
	transferService := services.NewTransferService(
		repository.NewTransferRepository(db),
		store,
		codec,
		time.Hour,
	)
	auditService := services.NewAuditService(db, nil, 100)

	policy := validation.UploadPolicy{
		MaxSize:      testMaxFileSize,
		AllowedMimes: []string{"text/plain", "application/pdf"},
	}

	transfersHandler := NewTransfersHandler(transferService, auditService, policy, "http://localhost:8080")
	adminHandler := NewAdminHandler(db)

	app := fiber.New(fiber.Config{BodyLimit: testMaxFileSize + 1024*1024})
	app.Use(recover.New(recover.Config{EnableStackTrace: true}))
	app.Use(middleware.CORS(""))
	app.Use(middleware.RequestLogger())
	app.Use(middleware.SecurityLogger())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"status": "ok"})
	})

	api := app.Group("/api")
	api.Get("/version", GetVersion)
	api.Post("/upload", transfersHandler.Upload)
	api.Get("/download/:token", transfersHandler.Download)
	api.Get("/files/:token", transfersHandler.Describe)

	admin := api.Group("/admin")
	admin.Get("/transfers", adminHandler.ListTransfers)
	admin.Get("/audit-events", adminHandler.ListAuditEvents)

	return &testEnv{app: app, db: db, store: store, service: transferService}
}

func performRequest(t *testing.T, app *fiber.App, method, path string, body io.Reader, headers map[string]string) *http.Response {
	t.Helper()

	req := httptest.NewRequest(method, path, body)
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	resp, err := app.Test(req, int((10 * time.Second).Milliseconds()))
	if err != nil {
		t.Fatalf("request %s %s failed: %v", method, path, err)
	}

	return resp
}

func multipartUpload(t *testing.T, filename, contentType string, payload []byte) (io.Reader, string) {
	t.Helper()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	header := make(map[string][]string)
	header["Content-Disposition"] = []string{`form-data; name="file"; filename="` + filename + `"`}
	header["Content-Type"] = []string{contentType}

	part, err := writer.CreatePart(header)
	if err != nil {
		t.Fatalf("failed creating multipart field: %v", err)
	}
	if _, err := part.Write(payload); err != nil {
		t.Fatalf("failed writing multipart payload: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("failed finalizing multipart body: %v", err)
	}

	return &buf, writer.FormDataContentType()
}

func uploadFile(t *testing.T, app *fiber.App, filename, contentType string, payload []byte) *http.Response {
	t.Helper()

	body, bodyContentType := multipartUpload(t, filename, contentType, payload)
	return performRequest(t, app, http.MethodPost, "/api/upload", body, map[string]string{
		"Content-Type": bodyContentType,
	})
}

func decodeJSONMap(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed reading response body: %v", err)
	}

	var payload map[string]any
	if err := json.Unmarshal(raw, &payload); err != nil {
		t.Fatalf("failed decoding JSON response: %v body=%q", err, string(raw))
	}

	return payload
}

func dataField(t *testing.T, body map[string]any) map[string]any {
	t.Helper()

	data, ok := body["data"].(map[string]any)
	if !ok {
		t.Fatalf("expected data object, got %T", body["data"])
	}
	return data
}

func uploadAndGetToken(t *testing.T, app *fiber.App, filename, contentType string, payload []byte) string {
	t.Helper()

	resp := uploadFile(t, app, filename, contentType, payload)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected status %d, got %d", http.StatusCreated, resp.StatusCode)
	}

	data := dataField(t, decodeJSONMap(t, resp))
	token, ok := data["token"].(string)
	if !ok || token == "" {
		t.Fatalf("expected token in upload response, got %v", data["token"])
	}
	return token
}

func assertStatus(t *testing.T, resp *http.Response, expected int) {
	t.Helper()
	if resp.StatusCode != expected {
		t.Fatalf("expected status %d, got %d", expected, resp.StatusCode)
	}
}

func assertErrorResponse(t *testing.T, resp *http.Response, expectedStatus int, expectedMessage string) {
	t.Helper()

	assertStatus(t, resp, expectedStatus)
	body := decodeJSONMap(t, resp)

	if success, _ := body["success"].(bool); success {
		t.Fatalf("expected success=false, got %+v", body)
	}
	if got, _ := body["error"].(string); got != expectedMessage {
		t.Fatalf("expected error %q, got %q", expectedMessage, got)
	}
}
