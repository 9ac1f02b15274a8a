package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	TxPurchase      = "purchase"
	TxTransfer      = "transfer"
	TxFaucet        = "faucet"
	TxValuationSync = "valuation_sync"
)

// Transaction is an append-only journal entry.
type Transaction struct {
	TxID           uuid.UUID      `gorm:"column:tx_id;type:uuid;primaryKey" json:"txId"`
	Type           string         `gorm:"column:type;type:varchar(20);not null;index" json:"type"`
	PropertyID     *uuid.UUID     `gorm:"column:property_id;type:uuid;index" json:"propertyId"`
	FromUserID     *uuid.UUID     `gorm:"column:from_user_id;type:uuid;index" json:"fromUserId"`
	ToUserID       *uuid.UUID     `gorm:"column:to_user_id;type:uuid;index" json:"toUserId"`
	Shares         int64          `gorm:"column:shares;not null;default:0" json:"shares"`
	PricePerShare  float64        `gorm:"column:price_per_share;type:decimal(18,6);not null;default:0" json:"pricePerShare"`
	Amount         float64        `gorm:"column:amount;type:decimal(18,2);not null;default:0" json:"amount"`
	IdempotencyKey *string        `gorm:"column:idempotency_key;uniqueIndex" json:"idempotencyKey,omitempty"`
	Metadata       datatypes.JSON `gorm:"column:metadata" json:"metadata"`
	CreatedAt      time.Time      `json:"createdAt"`
	UpdatedAt      time.Time      `json:"updatedAt"`
}

func (Transaction) TableName() string {
	return "transactions"
}

func (t *Transaction) BeforeCreate(tx *gorm.DB) error {
	if t.TxID == uuid.Nil {
		t.TxID = uuid.New()
	}
	return nil
}
