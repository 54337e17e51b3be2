package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/congo-pay/walletsync/internal/syncer"
)

// RegisterSyncRoutes wires the poll sync endpoint behind the given guards.
func RegisterSyncRoutes(r fiber.Router, h *syncer.Handler, guards ...fiber.Handler) {
	handlers := append(guards, h.Sync)
	r.Post("/sync", handlers...)
}
