package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Investment is an account's position in one property, derived from its Holding.
type Investment struct {
	PropertyID       uuid.UUID  `json:"propertyId"`
	ShareCount       int64      `json:"shareCount"`
	SharePrice       float64    `json:"sharePrice"`
	TotalCost        float64    `json:"totalCost"`
	OwnershipPercent float64    `json:"ownershipPercent"`
	PurchaseDate     *time.Time `json:"purchaseDate"`
	TransactionID    *uuid.UUID `json:"transactionId"`
}

// NewInvestment derives the position view. SharePrice is the weighted average cost_basis / shares.
func NewInvestment(h Holding, totalShares int64) Investment {
	inv := Investment{
		PropertyID:    h.PropertyID,
		ShareCount:    h.SharesOwned,
		TotalCost:     h.CostBasis,
		PurchaseDate:  h.LastPurchasedAt,
		TransactionID: h.LastTransactionID,
	}
	if h.SharesOwned > 0 {
		inv.SharePrice = decimal.NewFromFloat(h.CostBasis).
			Div(decimal.NewFromInt(h.SharesOwned)).
			Round(6).InexactFloat64()
	}
	if totalShares > 0 {
		inv.OwnershipPercent = decimal.NewFromInt(h.SharesOwned * 100).
			Div(decimal.NewFromInt(totalShares)).
			Round(4).InexactFloat64()
	}
	return inv
}
