package wallet

import (
	"errors"

	walletsvc "stockhouse-backend/internal/application/wallet"
	"stockhouse-backend/internal/middleware"
	"stockhouse-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

type Handlers struct {
	Service *walletsvc.Service
}

func fail(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, walletsvc.ErrAccountNotFound):
		return response.Error(c, err.Error(), fiber.StatusNotFound, nil)
	case errors.Is(err, walletsvc.ErrInvalidAmount), errors.Is(err, walletsvc.ErrAmountTooLarge):
		return response.Error(c, err.Error(), fiber.StatusBadRequest, nil)
	}
	return response.Internal(c, err)
}

// Balance GET /wallet/balance/:userId
func (h *Handlers) Balance(c *fiber.Ctx) error {
	userID, err := middleware.TargetAccount(c, c.Params("userId"))
	if err != nil {
		return err
	}
	bal, err := h.Service.Balance(c.Context(), userID)
	if err != nil {
		return fail(c, err)
	}
	return response.Success(c, "Balance fetched", bal, nil)
}

// AddFunds POST /wallet/add-funds {userId, amount}
func (h *Handlers) AddFunds(c *fiber.Ctx) error {
	var body struct {
		UserID string  `json:"userId"`
		Amount float64 `json:"amount"`
	}
	if err := c.BodyParser(&body); err != nil {
		return response.Error(c, walletsvc.ErrInvalidAmount.Error(), fiber.StatusBadRequest, nil)
	}
	userID, err := middleware.TargetAccount(c, body.UserID)
	if err != nil {
		return err
	}
	dep, err := h.Service.AddFunds(c.Context(), userID, body.Amount)
	if err != nil {
		return fail(c, err)
	}
	return response.Success(c, "Funds added", dep, nil)
}
