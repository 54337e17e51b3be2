package syncer

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/congo-pay/walletsync/internal/chain"
	"github.com/congo-pay/walletsync/internal/middleware"
)

// Handler exposes the poll sync endpoint.
type Handler struct {
	service *Service
}

// NewHandler builds a sync HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type syncRequest struct {
	UserID  string `json:"user_id"`
	Address string `json:"address"`
	Network string `json:"network"`
}

// Sync pulls on-chain activity for the address and credits incoming transfers.
func (h *Handler) Sync(c *fiber.Ctx) error {
	var req syncRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	middleware.Annotate(c, slog.String("user_id", req.UserID), slog.String("network", req.Network))

	var (
		res Result
		err error
	)
	if req.Network != "" {
		network, perr := chain.ParseNetwork(req.Network)
		if perr != nil {
			return fiber.NewError(http.StatusBadRequest, perr.Error())
		}
		res, err = h.service.SyncNetwork(c.UserContext(), req.UserID, req.Address, network)
	} else {
		res, err = h.service.SyncUser(c.UserContext(), req.UserID, req.Address)
	}
	if err != nil {
		return mapError(err)
	}
	if res.Stats.Errors == nil {
		res.Stats.Errors = []string{}
	}
	return c.Status(http.StatusOK).JSON(res)
}

func mapError(err error) error {
	switch {
	case chain.IsValidation(err):
		return fiber.NewError(http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrNotOwner):
		return fiber.NewError(http.StatusForbidden, err.Error())
	case errors.Is(err, chain.ErrProviderNotConfigured):
		return fiber.NewError(http.StatusServiceUnavailable, err.Error())
	case chain.IsProvider(err):
		return fiber.NewError(http.StatusBadGateway, err.Error())
	default:
		return err
	}
}
