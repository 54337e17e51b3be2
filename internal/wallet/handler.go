package wallet

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/congo-pay/walletsync/internal/categorize"
	"github.com/congo-pay/walletsync/internal/chain"
	"github.com/congo-pay/walletsync/internal/ledger"
)

// Handler exposes wallet HTTP endpoints.
type Handler struct {
	service *Service
}

// NewHandler builds a wallet HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type bindRequest struct {
	UserID  string `json:"user_id"`
	Address string `json:"address"`
	Network string `json:"network"`
}

type transactionResponse struct {
	ledger.TransactionRecord
	Category string `json:"category"`
}

// Bind attaches an address to a user.
func (h *Handler) Bind(c *fiber.Ctx) error {
	var req bindRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	binding, err := h.service.Bind(c.UserContext(), BindInput{UserID: req.UserID, Address: req.Address, Network: req.Network})
	if err != nil {
		switch {
		case errors.Is(err, ErrAlreadyBound):
			return fiber.NewError(http.StatusConflict, err.Error())
		case errors.Is(err, ErrUserRequired), chain.IsValidation(err):
			return fiber.NewError(http.StatusBadRequest, err.Error())
		default:
			return err
		}
	}
	return c.Status(http.StatusCreated).JSON(binding)
}

// List returns the user's bound addresses.
func (h *Handler) List(c *fiber.Ctx) error {
	userID := c.Params("userId")
	bindings, err := h.service.Wallets(c.UserContext(), userID)
	if err != nil {
		return err
	}
	if bindings == nil {
		bindings = []Binding{}
	}
	return c.JSON(fiber.Map{"user_id": userID, "wallets": bindings})
}

// Balances returns the user's balances per token and network.
func (h *Handler) Balances(c *fiber.Ctx) error {
	userID := c.Params("userId")
	balances, err := h.service.Balances(c.UserContext(), userID)
	if err != nil {
		return err
	}
	if balances == nil {
		balances = []ledger.BalanceAggregate{}
	}
	return c.JSON(fiber.Map{"user_id": userID, "balances": balances})
}

// Transactions returns recent transaction records for the user.
func (h *Handler) Transactions(c *fiber.Ctx) error {
	userID := c.Params("userId")
	records, err := h.service.Transactions(c.UserContext(), userID, c.QueryInt("limit", ledger.DefaultTransactionLimit))
	if err != nil {
		return err
	}
	out := make([]transactionResponse, 0, len(records))
	for _, rec := range records {
		out = append(out, transactionResponse{TransactionRecord: rec, Category: categorize.Category(rec)})
	}
	return c.JSON(fiber.Map{"user_id": userID, "transactions": out})
}
