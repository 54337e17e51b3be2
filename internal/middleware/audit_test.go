package middleware

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"

	"github.com/congo-pay/walletsync/internal/logging"
)

func auditApp(buf *bytes.Buffer, handler fiber.Handler) *fiber.App {
	logger := slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	app := fiber.New()
	app.Use(RequestID(), Audit(logger))
	app.Post("/sync", handler)
	return app
}

func lastLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	var entry map[string]any
	if err := json.Unmarshal([]byte(lines[len(lines)-1]), &entry); err != nil {
		t.Fatalf("decode log line %q: %v", lines[len(lines)-1], err)
	}
	return entry
}

func TestAuditIncludesHandlerAnnotations(t *testing.T) {
	var buf bytes.Buffer
	var seenCtxID string
	app := auditApp(&buf, func(c *fiber.Ctx) error {
		seenCtxID = logging.RequestID(c.UserContext())
		Annotate(c, slog.String("user_id", "user-1"), slog.String("network", "bsc"))
		return c.SendStatus(fiber.StatusOK)
	})

	req := httptest.NewRequest(fiber.MethodPost, "/sync", nil)
	req.Header.Set(requestIDHeader, "req-42")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.Header.Get(requestIDHeader) != "req-42" || seenCtxID != "req-42" {
		t.Fatalf("request id not propagated: header=%q ctx=%q", resp.Header.Get(requestIDHeader), seenCtxID)
	}

	entry := lastLine(t, &buf)
	if entry["request_id"] != "req-42" || entry["user_id"] != "user-1" || entry["network"] != "bsc" {
		t.Fatalf("missing audit attributes: %v", entry)
	}
	if entry["status"] != float64(200) {
		t.Fatalf("expected status 200, got %v", entry["status"])
	}
}

func TestAuditUsesDeliveryIDAndErrorStatus(t *testing.T) {
	var buf bytes.Buffer
	app := auditApp(&buf, func(c *fiber.Ctx) error {
		return fiber.NewError(fiber.StatusBadRequest, "invalid webhook payload")
	})

	req := httptest.NewRequest(fiber.MethodPost, "/sync", nil)
	req.Header.Set(webhookDeliveryHeader, "whevt_9")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.Header.Get(requestIDHeader) != "whevt_9" {
		t.Fatalf("expected delivery id as request id, got %q", resp.Header.Get(requestIDHeader))
	}

	entry := lastLine(t, &buf)
	if entry["status"] != float64(400) || entry["level"] != "WARN" {
		t.Fatalf("expected rejected request at warn with 400, got %v", entry)
	}
}
