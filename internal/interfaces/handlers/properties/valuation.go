package properties

import (
	"stockhouse-backend/internal/middleware"
	"stockhouse-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// Portfolio GET /properties/portfolio/:userId
func (h *Handlers) Portfolio(c *fiber.Ctx) error {
	userID, err := middleware.TargetAccount(c, c.Params("userId"))
	if err != nil {
		return err
	}
	summary, err := h.Portfolios.Value(c.Context(), userID)
	if err != nil {
		return fail(c, err)
	}
	return response.Success(c, "Portfolio valued", summary, nil)
}

// ValidateEquity GET /properties/validate-equity/:id
func (h *Handlers) ValidateEquity(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return invalidID(c, "id")
	}
	if _, err := h.Catalog.Get(c.Context(), id); err != nil {
		return fail(c, err)
	}
	report, err := h.Equity.Validate(c.Context(), id)
	if err != nil {
		return fail(c, err)
	}
	return response.Success(c, "Equity validated", report, nil)
}

// Sync POST /properties/sync/:id refreshes the valuation from the oracle.
func (h *Handlers) Sync(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return invalidID(c, "id")
	}
	result, err := h.Oracle.Sync(c.Context(), id)
	if err != nil {
		return fail(c, err)
	}
	return response.Success(c, "Valuation synced", result, nil)
}
