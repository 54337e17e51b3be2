package middleware

import (
	"errors"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
)

const auditAttrsKey = "audit.attrs"

// Annotate adds attributes to the audit line written for the current request.
// Handlers use it to record who was synced or which delivery was applied.
func Annotate(c *fiber.Ctx, attrs ...slog.Attr) {
	existing, _ := c.Locals(auditAttrsKey).([]slog.Attr)
	c.Locals(auditAttrsKey, append(existing, attrs...))
}

// Audit writes one structured line per request once the handler chain
// returns. Health and metrics scrapes are logged at debug.
func Audit(logger *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		// The app error handler has not written the response yet.
		status := c.Response().StatusCode()
		if err != nil {
			status = fiber.StatusInternalServerError
			var fe *fiber.Error
			if errors.As(err, &fe) {
				status = fe.Code
			}
		}

		attrs := []any{
			slog.String("method", c.Method()),
			slog.String("path", c.Path()),
			slog.Int("status", status),
			slog.Duration("duration", time.Since(start)),
		}
		if requestID, _ := c.Locals(requestIDHeader).(string); requestID != "" {
			attrs = append(attrs, slog.String("request_id", requestID))
		}
		if extra, ok := c.Locals(auditAttrsKey).([]slog.Attr); ok {
			for _, a := range extra {
				attrs = append(attrs, a)
			}
		}

		switch {
		case err != nil && status >= fiber.StatusInternalServerError:
			logger.Error("request failed", append(attrs, slog.Any("error", err))...)
		case err != nil:
			logger.Warn("request rejected", append(attrs, slog.Any("error", err))...)
		case c.Path() == "/healthz" || c.Path() == "/metrics":
			logger.Debug("request completed", attrs...)
		default:
			logger.Info("request completed", attrs...)
		}
		return err
	}
}
