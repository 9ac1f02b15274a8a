package properties

import (
	"stockhouse-backend/internal/application/trading"
	"stockhouse-backend/internal/middleware"
	"stockhouse-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const idempotencyHeader = "Idempotency-Key"

type purchaseRequest struct {
	UserID         string `json:"userId"`
	PropertyID     string `json:"propertyId"`
	SharesToBuy    int64  `json:"sharesToBuy"`
	IsResident     bool   `json:"isResident"`
	IdempotencyKey string `json:"idempotencyKey"`
}

// Purchase POST /properties/purchase
func (h *Handlers) Purchase(c *fiber.Ctx) error {
	var body purchaseRequest
	if err := c.BodyParser(&body); err != nil {
		return response.Error(c, "Missing required fields", fiber.StatusBadRequest, nil)
	}
	userID, err := middleware.TargetAccount(c, body.UserID)
	if err != nil {
		return err
	}
	propertyID, err := uuid.Parse(body.PropertyID)
	if err != nil {
		return invalidID(c, "propertyId")
	}
	key := c.Get(idempotencyHeader)
	if key == "" {
		key = body.IdempotencyKey
	}

	result, err := h.Trading.Purchase(c.Context(), trading.PurchaseInput{
		UserID:         userID,
		PropertyID:     propertyID,
		Shares:         body.SharesToBuy,
		IsResident:     body.IsResident,
		IdempotencyKey: key,
	})
	if err != nil {
		return fail(c, err)
	}
	return response.Success(c, "Purchase successful", result, nil)
}

type transferRequest struct {
	PropertyID       string  `json:"propertyId"`
	FromUserID       string  `json:"fromUserId"`
	ToUserID         string  `json:"toUserId"`
	SharesAmount     int64   `json:"sharesAmount"`
	TransactionPrice float64 `json:"transactionPrice"`
}

// Transfer POST /properties/transfer-shares
func (h *Handlers) Transfer(c *fiber.Ctx) error {
	var body transferRequest
	if err := c.BodyParser(&body); err != nil {
		return response.Error(c, "Missing required fields", fiber.StatusBadRequest, nil)
	}
	fromID, err := middleware.TargetAccount(c, body.FromUserID)
	if err != nil {
		return err
	}
	propertyID, err := uuid.Parse(body.PropertyID)
	if err != nil {
		return invalidID(c, "propertyId")
	}
	toID, err := uuid.Parse(body.ToUserID)
	if err != nil {
		return invalidID(c, "toUserId")
	}

	result, err := h.Trading.Transfer(c.Context(), trading.TransferInput{
		PropertyID: propertyID,
		FromUserID: fromID,
		ToUserID:   toID,
		Shares:     body.SharesAmount,
		Price:      body.TransactionPrice,
	})
	if err != nil {
		return fail(c, err)
	}
	return response.Success(c, "Shares transferred successfully", result, nil)
}
