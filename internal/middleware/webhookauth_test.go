package middleware

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
)

func webhookApp(secret string) *fiber.App {
	app := fiber.New()
	app.Post("/hook", WebhookAuth(secret), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})
	return app
}

func TestWebhookAuth(t *testing.T) {
	const secret = "s3cret"
	body := `{"type":"ADDRESS_ACTIVITY"}`

	cases := []struct {
		name    string
		headers map[string]string
		want    int
	}{
		{"valid signature", map[string]string{WebhookSignatureHeader: SignWebhook(secret, []byte(body))}, fiber.StatusOK},
		{"prefixed signature", map[string]string{WebhookSignatureHeader: "sha256=" + SignWebhook(secret, []byte(body))}, fiber.StatusOK},
		{"valid token", map[string]string{WebhookTokenHeader: secret}, fiber.StatusOK},
		{"wrong signature", map[string]string{WebhookSignatureHeader: SignWebhook("other", []byte(body))}, fiber.StatusUnauthorized},
		{"wrong token", map[string]string{WebhookTokenHeader: "nope"}, fiber.StatusUnauthorized},
		{"no credentials", nil, fiber.StatusUnauthorized},
	}

	app := webhookApp(secret)
	for _, tc := range cases {
		req := httptest.NewRequest(fiber.MethodPost, "/hook", strings.NewReader(body))
		for k, v := range tc.headers {
			req.Header.Set(k, v)
		}
		resp, err := app.Test(req)
		if err != nil {
			t.Fatalf("%s: %v", tc.name, err)
		}
		if resp.StatusCode != tc.want {
			t.Errorf("%s: expected %d got %d", tc.name, tc.want, resp.StatusCode)
		}
	}
}

func TestWebhookAuthDisabledWithoutSecret(t *testing.T) {
	req := httptest.NewRequest(fiber.MethodPost, "/hook", strings.NewReader("{}"))
	req.Header.Set(WebhookTokenHeader, "")
	resp, err := webhookApp("").Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != fiber.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", resp.StatusCode)
	}
}
