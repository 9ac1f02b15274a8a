package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Holding is the ledger row for one (user, property) pair. It is the only record of ownership;
// investment views are derived from it.
type Holding struct {
	HoldingID         uuid.UUID  `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	UserID            uuid.UUID  `gorm:"column:user_id;type:uuid;not null;uniqueIndex:idx_holding_user_property" json:"userId"`
	PropertyID        uuid.UUID  `gorm:"column:property_id;type:uuid;not null;uniqueIndex:idx_holding_user_property;index" json:"propertyId"`
	SharesOwned       int64      `gorm:"column:shares_owned;not null;default:0" json:"sharesOwned"`
	CostBasis         float64    `gorm:"column:cost_basis;type:decimal(18,2);not null;default:0" json:"costBasis"`
	LastTransactionID *uuid.UUID `gorm:"column:last_transaction_id;type:uuid" json:"lastTransactionId"`
	LastPurchasedAt   *time.Time `gorm:"column:last_purchased_at" json:"lastPurchasedAt"`
	CreatedAt         time.Time  `json:"createdAt"`
	UpdatedAt         time.Time  `json:"updatedAt"`
}

func (Holding) TableName() string {
	return "holdings"
}

// BeforeCreate: never insert zero UUID for primary key; generate random when not set.
func (h *Holding) BeforeCreate(tx *gorm.DB) error {
	if h.HoldingID == uuid.Nil {
		h.HoldingID = uuid.New()
	}
	return nil
}
