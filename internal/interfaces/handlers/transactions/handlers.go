package transactions

import (
	txsvc "stockhouse-backend/internal/application/transactions"
	"stockhouse-backend/internal/middleware"
	"stockhouse-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

type Handlers struct {
	Service *txsvc.Service
}

// List GET /transactions?type&limit&skip. Admins may pass userId to read another account.
func (h *Handlers) List(c *fiber.Ctx) error {
	userID, err := middleware.TargetAccount(c, c.Query("userId"))
	if err != nil {
		return err
	}
	result, err := h.Service.List(c.Context(), txsvc.Filter{
		UserID: &userID,
		Type:   c.Query("type"),
		Limit:  c.QueryInt("limit", 0),
		Skip:   c.QueryInt("skip", 0),
	})
	if err != nil {
		return response.Internal(c, err)
	}
	return response.Success(c, "Transactions fetched successfully", result, nil)
}
