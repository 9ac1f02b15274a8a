package properties

import (
	"errors"
	"strings"

	"stockhouse-backend/internal/application/dataset"
	"stockhouse-backend/internal/application/equity"
	"stockhouse-backend/internal/application/oracle"
	"stockhouse-backend/internal/application/portfolio"
	propsvc "stockhouse-backend/internal/application/properties"
	"stockhouse-backend/internal/application/trading"
	"stockhouse-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// Handlers serves everything under /properties.
type Handlers struct {
	Catalog    *propsvc.Service
	Trading    *trading.Service
	Portfolios *portfolio.Service
	Equity     *equity.Service
	Oracle     *oracle.Bridge
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, propsvc.ErrPropertyNotFound),
		errors.Is(err, trading.ErrPropertyNotFound),
		errors.Is(err, trading.ErrAccountNotFound),
		errors.Is(err, portfolio.ErrPropertyNotFound),
		errors.Is(err, oracle.ErrPropertyNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, propsvc.ErrNoRows),
		errors.Is(err, propsvc.ErrInvalidShares),
		errors.Is(err, propsvc.ErrInvalidStatus),
		errors.Is(err, trading.ErrInvalidShares),
		errors.Is(err, trading.ErrInvalidPrice),
		errors.Is(err, trading.ErrSameAccount),
		errors.Is(err, trading.ErrPropertyUnavailable),
		errors.Is(err, trading.ErrInsufficientSupply),
		errors.Is(err, trading.ErrCapExceeded),
		errors.Is(err, trading.ErrInsufficientFunds),
		errors.Is(err, trading.ErrInsufficientShares):
		return fiber.StatusBadRequest
	case errors.Is(err, trading.ErrIdempotencyKeyReused):
		return fiber.StatusConflict
	}
	return fiber.StatusInternalServerError
}

func fail(c *fiber.Ctx, err error) error {
	if errors.Is(err, oracle.ErrOracleUnavailable) {
		return response.Error(c, oracle.ErrOracleUnavailable.Error(), fiber.StatusInternalServerError, nil)
	}
	code := statusFor(err)
	if code == fiber.StatusInternalServerError {
		return response.Internal(c, err)
	}
	return response.Error(c, err.Error(), code, nil)
}

func invalidID(c *fiber.Ctx, field string) error {
	return response.Error(c, "Invalid UUID format for "+field, fiber.StatusBadRequest, nil)
}

// List GET /properties?limit&skip&status
func (h *Handlers) List(c *fiber.Ctx) error {
	result, err := h.Catalog.List(c.Context(), propsvc.ListFilter{
		Status: c.Query("status"),
		Limit:  c.QueryInt("limit", 0),
		Skip:   c.QueryInt("skip", 0),
	})
	if err != nil {
		return fail(c, err)
	}
	return response.Success(c, "Properties fetched successfully", result, nil)
}

// Get GET /properties/:id
func (h *Handlers) Get(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return invalidID(c, "id")
	}
	prop, err := h.Catalog.Get(c.Context(), id)
	if err != nil {
		return fail(c, err)
	}
	return response.Success(c, "Property fetched successfully", prop, nil)
}

type ingestRequest struct {
	Rows            []map[string]interface{} `json:"rows"`
	TotalShares     int64                    `json:"totalShares"`
	PerUserShareCap int64                    `json:"perUserShareCap"`
}

// Ingest POST /properties/ingest (admin)
func (h *Handlers) Ingest(c *fiber.Ctx) error {
	var body ingestRequest
	if err := c.BodyParser(&body); err != nil {
		return response.Error(c, propsvc.ErrNoRows.Error(), fiber.StatusBadRequest, nil)
	}
	rows := make([]dataset.Row, 0, len(body.Rows))
	for _, obj := range body.Rows {
		rows = append(rows, dataset.RowFromJSON(obj))
	}
	result, err := h.Catalog.Ingest(c.Context(), propsvc.IngestInput{
		Rows:            rows,
		TotalShares:     body.TotalShares,
		PerUserShareCap: body.PerUserShareCap,
	})
	if err != nil {
		return fail(c, err)
	}
	return response.Success(c, "Listings ingested", result, nil)
}

// Clear DELETE /properties/clear (admin)
func (h *Handlers) Clear(c *fiber.Ctx) error {
	deleted, err := h.Catalog.Clear(c.Context())
	if err != nil {
		return fail(c, err)
	}
	return response.Success(c, "All properties cleared", fiber.Map{"deleted": deleted}, nil)
}

// ActiveInvestors GET /properties/stats/active-investors?propertyIds=a,b
func (h *Handlers) ActiveInvestors(c *fiber.Ctx) error {
	var ids []uuid.UUID
	for _, raw := range strings.Split(c.Query("propertyIds"), ",") {
		if strings.TrimSpace(raw) == "" {
			continue
		}
		id, err := uuid.Parse(strings.TrimSpace(raw))
		if err != nil {
			return invalidID(c, "propertyIds")
		}
		ids = append(ids, id)
	}
	count, err := h.Catalog.ActiveInvestors(c.Context(), ids)
	if err != nil {
		return fail(c, err)
	}
	return response.Success(c, "Active investors counted", fiber.Map{"count": count}, nil)
}
