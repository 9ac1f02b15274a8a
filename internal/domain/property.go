package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	PropertyActive         = "active"
	PropertyPaused         = "paused"
	PropertyFullyAllocated = "fully_allocated"
	DefaultTotalShares     = 10000
	DefaultPerUserShareCap = 200
)

// Property is a listing split into a fixed number of shares.
type Property struct {
	PropertyID         uuid.UUID `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	ExternalPropertyID string    `gorm:"column:external_property_id;not null;uniqueIndex" json:"externalPropertyId"`
	Address            string    `gorm:"column:address;not null" json:"address"`
	City               string    `gorm:"column:city;not null" json:"city"`
	State              string    `gorm:"column:state" json:"state"`
	Zip                string    `gorm:"column:zip" json:"zip"`
	Valuation          float64   `gorm:"column:valuation;type:decimal(18,2);not null;default:0" json:"valuation"`
	TotalShares        int64     `gorm:"column:total_shares;not null" json:"totalShares"`
	AvailableShares    int64     `gorm:"column:available_shares;not null" json:"availableShares"`
	SharePrice         float64   `gorm:"column:share_price;type:decimal(18,6);not null" json:"sharePrice"`
	PerUserShareCap    int64     `gorm:"column:per_user_share_cap;not null;default:0" json:"perUserShareCap"`
	Status             string    `gorm:"column:status;type:varchar(20);not null;default:active" json:"status"`
	CreatedAt          time.Time `json:"createdAt"`
	UpdatedAt          time.Time `json:"updatedAt"`
}

func (Property) TableName() string {
	return "properties"
}

func (p *Property) BeforeCreate(tx *gorm.DB) error {
	if p.PropertyID == uuid.Nil {
		p.PropertyID = uuid.New()
	}
	return nil
}

// EffectiveCap returns the per-user share cap, falling back to def when unset.
func (p *Property) EffectiveCap(def int64) int64 {
	if p.PerUserShareCap > 0 {
		return p.PerUserShareCap
	}
	if def > 0 {
		return def
	}
	return DefaultPerUserShareCap
}
