package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/congo-pay/walletsync/internal/wallet"
)

// RegisterWalletRoutes wires wallet binding and balance read endpoints.
func RegisterWalletRoutes(r fiber.Router, h *wallet.Handler) {
	r.Post("/wallets", h.Bind)
	r.Get("/users/:userId/wallets", h.List)
	r.Get("/users/:userId/balances", h.Balances)
	r.Get("/users/:userId/transactions", h.Transactions)
}
