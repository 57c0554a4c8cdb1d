package utils

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
)

func performEnvelopeRequest(t *testing.T, app *fiber.App, path string) (int, map[string]any) {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, path, nil)
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("request to %s failed: %v", path, err)
	}
	defer resp.Body.Close()

	var body map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("failed decoding %s response body: %v", path, err)
	}

	return resp.StatusCode, body
}

func TestSuccessEnvelope(t *testing.T) {
	app := fiber.New()
	app.Get("/", func(c *fiber.Ctx) error {
		return Success(c, fiber.StatusCreated, fiber.Map{"token": "abc"})
	})

	status, body := performEnvelopeRequest(t, app, "/")
	if status != fiber.StatusCreated {
		t.Fatalf("expected status %d, got %d", fiber.StatusCreated, status)
	}
	if success, _ := body["success"].(bool); !success {
		t.Fatalf("expected success=true, got %v", body["success"])
	}

	data, ok := body["data"].(map[string]any)
	if !ok {
		t.Fatalf("expected data object, got %T", body["data"])
	}
	if data["token"] != "abc" {
		t.Fatalf("expected data.token=abc, got %v", data["token"])
	}
}

func TestErrorEnvelope(t *testing.T) {
	app := fiber.New()
	app.Get("/", func(c *fiber.Ctx) error {
		return Error(c, fiber.StatusGone, "link is no longer available")
	})

	status, body := performEnvelopeRequest(t, app, "/")
	if status != fiber.StatusGone {
		t.Fatalf("expected status %d, got %d", fiber.StatusGone, status)
	}
	if success, _ := body["success"].(bool); success {
		t.Fatalf("expected success=false, got %v", body["success"])
	}
	if body["error"] != "link is no longer available" {
		t.Fatalf("unexpected error message: %v", body["error"])
	}
}

func TestPaginatedEnvelope(t *testing.T) {
	app := fiber.New()
	app.Get("/", func(c *fiber.Ctx) error {
		return Paginated(c, []string{"x", "y", "z"}, 1, 10, 23)
	})

	status, body := performEnvelopeRequest(t, app, "/")
	if status != fiber.StatusOK {
		t.Fatalf("expected status %d, got %d", fiber.StatusOK, status)
	}

	data, ok := body["data"].([]any)
	if !ok || len(data) != 3 {
		t.Fatalf("expected 3 data items, got %v", body["data"])
	}

	pagination, ok := body["pagination"].(map[string]any)
	if !ok {
		t.Fatalf("expected pagination object, got %T", body["pagination"])
	}
	if total, _ := pagination["total"].(float64); int(total) != 23 {
		t.Fatalf("expected total=23, got %v", pagination["total"])
	}
	if totalPages, _ := pagination["totalPages"].(float64); int(totalPages) != 3 {
		t.Fatalf("expected totalPages=3, got %v", pagination["totalPages"])
	}
}
