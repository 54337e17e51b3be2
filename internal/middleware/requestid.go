package middleware

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/congo-pay/walletsync/internal/logging"
)

const (
	requestIDHeader = "X-Request-ID"
	// webhookDeliveryHeader is sent by the chain webhook provider and stays
	// stable across its retries of the same delivery.
	webhookDeliveryHeader = "X-Webhook-Delivery"
)

// RequestID tags each request with an identifier. A caller supplied
// X-Request-ID wins, then the webhook delivery id, then a fresh UUID. The id is
// echoed in the response and carried on the user context for ledger logs.
func RequestID() fiber.Handler {
	return func(c *fiber.Ctx) error {
		reqID := c.Get(requestIDHeader)
		if reqID == "" {
			reqID = c.Get(webhookDeliveryHeader)
		}
		if reqID == "" {
			reqID = uuid.NewString()
		}
		c.Set(requestIDHeader, reqID)
		c.Locals(requestIDHeader, reqID)
		c.SetUserContext(logging.WithRequestID(c.UserContext(), reqID))

		return c.Next()
	}
}
