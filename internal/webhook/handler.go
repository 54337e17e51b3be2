package webhook

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/bytedance/sonic"
	"github.com/gofiber/fiber/v2"

	"github.com/congo-pay/walletsync/internal/metrics"
	"github.com/congo-pay/walletsync/internal/middleware"
)

// Handler exposes the chain webhook endpoint.
type Handler struct {
	service *Service
}

// NewHandler builds a webhook HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Receive decodes a delivery and applies it. Authentication runs in middleware.
func (h *Handler) Receive(c *fiber.Ctx) error {
	var env Envelope
	if err := sonic.Unmarshal(c.Body(), &env); err != nil {
		metrics.WebhookEvents.WithLabelValues("unknown", "malformed").Inc()
		return fiber.NewError(http.StatusBadRequest, "invalid webhook payload")
	}

	middleware.Annotate(c, slog.String("delivery_id", env.ID), slog.String("event_type", env.Type))

	res, err := h.service.OnChainEvent(c.UserContext(), env)
	if err != nil {
		if errors.Is(err, ErrMalformedEvent) {
			metrics.WebhookEvents.WithLabelValues(typeLabel(env.Type), "malformed").Inc()
			return fiber.NewError(http.StatusBadRequest, err.Error())
		}
		metrics.WebhookEvents.WithLabelValues(typeLabel(env.Type), "error").Inc()
		return err
	}
	metrics.WebhookEvents.WithLabelValues(typeLabel(env.Type), res.Status).Inc()
	middleware.Annotate(c, slog.Int("processed", res.Processed), slog.Int("duplicates", res.Duplicates))
	return c.Status(http.StatusOK).JSON(res)
}

func typeLabel(t string) string {
	if t == TypeAddressActivity {
		return t
	}
	return "other"
}
