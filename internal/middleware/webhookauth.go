package middleware

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"strings"

	"github.com/gofiber/fiber/v2"
)

const (
	// WebhookSignatureHeader carries the hex HMAC-SHA256 of the raw body.
	WebhookSignatureHeader = "X-Webhook-Signature"
	// WebhookTokenHeader carries the shared secret itself.
	WebhookTokenHeader = "X-Webhook-Token"
)

// WebhookAuth authenticates chain webhook deliveries with either a body
// signature or the shared token. An empty secret disables the endpoint.
func WebhookAuth(secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if secret == "" {
			return fiber.NewError(fiber.StatusServiceUnavailable, "webhook secret not configured")
		}
		if sig := c.Get(WebhookSignatureHeader); sig != "" {
			if validSignature(secret, c.Body(), sig) {
				return c.Next()
			}
			return fiber.NewError(fiber.StatusUnauthorized, "invalid webhook signature")
		}
		if token := c.Get(WebhookTokenHeader); token != "" {
			if subtle.ConstantTimeCompare([]byte(token), []byte(secret)) == 1 {
				return c.Next()
			}
		}
		return fiber.NewError(fiber.StatusUnauthorized, "invalid webhook credentials")
	}
}

// SignWebhook returns the hex signature a sender puts in WebhookSignatureHeader.
func SignWebhook(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func validSignature(secret string, body []byte, header string) bool {
	header = strings.TrimPrefix(strings.TrimSpace(header), "sha256=")
	got, err := hex.DecodeString(header)
	if err != nil {
		return false
	}
	want, _ := hex.DecodeString(SignWebhook(secret, body))
	return hmac.Equal(got, want)
}
