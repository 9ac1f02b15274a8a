package equity

import (
	"context"
	"sort"

	"stockhouse-backend/internal/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// MinOccupantEquity is the percentage the largest holder must reach.
const MinOccupantEquity = 51

// Service checks the controlling-equity rule for a property. It only reads.
type Service struct {
	DB *gorm.DB
}

type HolderShare struct {
	UserID     uuid.UUID `json:"userId"`
	Shares     int64     `json:"shares"`
	Percentage float64   `json:"percentage"`
}

type Report struct {
	PropertyID        uuid.UUID     `json:"propertyId"`
	IsCompliant       bool          `json:"isCompliant"`
	TopHolderPercent  float64       `json:"topHolderPercentage"`
	TotalSharesIssued int64         `json:"totalSharesIssued"`
	HolderCount       int           `json:"holderCount"`
	Breakdown         []HolderShare `json:"breakdown"`
}

// Validate reports whether the largest holder owns at least 51% of the recorded shares.
// Percentages are of the shares on the ledger, not of the property's total supply.
func (s *Service) Validate(ctx context.Context, propertyID uuid.UUID) (*Report, error) {
	var holdings []domain.Holding
	if err := s.DB.WithContext(ctx).
		Where("property_id = ? AND shares_owned > 0", propertyID).
		Find(&holdings).Error; err != nil {
		return nil, err
	}
	return Evaluate(propertyID, holdings), nil
}

// Evaluate builds the report from a property's holdings.
func Evaluate(propertyID uuid.UUID, holdings []domain.Holding) *Report {
	r := &Report{PropertyID: propertyID, Breakdown: make([]HolderShare, 0, len(holdings))}
	for _, h := range holdings {
		r.TotalSharesIssued += h.SharesOwned
	}
	if r.TotalSharesIssued == 0 {
		return r
	}
	total := decimal.NewFromInt(r.TotalSharesIssued)
	for _, h := range holdings {
		pct := decimal.NewFromInt(h.SharesOwned * 100).Div(total)
		r.Breakdown = append(r.Breakdown, HolderShare{
			UserID:     h.UserID,
			Shares:     h.SharesOwned,
			Percentage: pct.Round(2).InexactFloat64(),
		})
	}
	sort.SliceStable(r.Breakdown, func(i, j int) bool {
		return r.Breakdown[i].Shares > r.Breakdown[j].Shares
	})
	r.HolderCount = len(r.Breakdown)
	top := r.Breakdown[0]
	r.TopHolderPercent = top.Percentage
	// Compare on exact integers so 50.999% never rounds up to compliant.
	r.IsCompliant = top.Shares*100 >= MinOccupantEquity*r.TotalSharesIssued
	return r
}
