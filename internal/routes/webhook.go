package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/congo-pay/walletsync/internal/webhook"
)

// RegisterWebhookRoutes wires the chain webhook receiver.
func RegisterWebhookRoutes(r fiber.Router, h *webhook.Handler, auth fiber.Handler) {
	r.Post("/webhooks/chain", auth, h.Receive)
}
