package portfolio

import (
	"context"
	"errors"
	"fmt"

	"stockhouse-backend/internal/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var ErrPropertyNotFound = errors.New("Property not found")

// Service values a user's holdings against current property valuations.
type Service struct {
	DB *gorm.DB
}

// Position is one valued holding.
type Position struct {
	PropertyID          uuid.UUID `json:"propertyId"`
	ExternalPropertyID  string    `json:"externalPropertyId"`
	Address             string    `json:"address"`
	City                string    `json:"city"`
	SharesOwned         int64     `json:"sharesOwned"`
	EquityPercentage    float64   `json:"equityPercentage"`
	InvestedCapital     float64   `json:"investedCapital"`
	CurrentValue        float64   `json:"currentValue"`
	UnrealizedProfit    float64   `json:"unrealizedProfit"`
	AppreciationPercent float64   `json:"appreciationPercent"`
}

// Summary aggregates all positions.
type Summary struct {
	UserID               uuid.UUID  `json:"userId"`
	Positions            []Position `json:"positions"`
	TotalInvestedCapital float64    `json:"totalInvestedCapital"`
	TotalCurrentValue    float64    `json:"totalCurrentValue"`
	TotalProfit          float64    `json:"totalProfit"`
}

// Value computes position and portfolio figures for userID. A user with no holdings
// gets an empty summary.
func (s *Service) Value(ctx context.Context, userID uuid.UUID) (*Summary, error) {
	var holdings []domain.Holding
	if err := s.DB.WithContext(ctx).
		Where("user_id = ? AND shares_owned > 0", userID).
		Order("created_at").
		Find(&holdings).Error; err != nil {
		return nil, err
	}

	props := make(map[uuid.UUID]domain.Property, len(holdings))
	if len(holdings) > 0 {
		ids := make([]uuid.UUID, 0, len(holdings))
		for _, h := range holdings {
			ids = append(ids, h.PropertyID)
		}
		var rows []domain.Property
		if err := s.DB.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
			return nil, err
		}
		for _, p := range rows {
			props[p.PropertyID] = p
		}
	}

	out := &Summary{UserID: userID, Positions: make([]Position, 0, len(holdings))}
	invested, value := decimal.Zero, decimal.Zero
	for _, h := range holdings {
		p, ok := props[h.PropertyID]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrPropertyNotFound, h.PropertyID)
		}
		pos, cost, cur := valuePosition(h, p)
		out.Positions = append(out.Positions, pos)
		invested = invested.Add(cost)
		value = value.Add(cur)
	}
	out.TotalInvestedCapital = invested.Round(2).InexactFloat64()
	out.TotalCurrentValue = value.Round(2).InexactFloat64()
	out.TotalProfit = value.Sub(invested).Round(2).InexactFloat64()
	return out, nil
}

// valuePosition prices one holding. Original cost is the tracked cost basis, falling back to
// the property's share price when no basis was recorded.
func valuePosition(h domain.Holding, p domain.Property) (Position, decimal.Decimal, decimal.Decimal) {
	shares := decimal.NewFromInt(h.SharesOwned)
	cost := decimal.NewFromFloat(h.CostBasis)
	if !cost.IsPositive() {
		cost = decimal.NewFromFloat(p.SharePrice).Mul(shares)
	}
	current := decimal.Zero
	equity := decimal.Zero
	if p.TotalShares > 0 {
		total := decimal.NewFromInt(p.TotalShares)
		current = decimal.NewFromFloat(p.Valuation).Div(total).Mul(shares)
		equity = shares.Mul(decimal.NewFromInt(100)).Div(total)
	}
	profit := current.Sub(cost)
	appreciation := decimal.Zero
	if cost.IsPositive() {
		appreciation = profit.Div(cost).Mul(decimal.NewFromInt(100))
	}
	return Position{
		PropertyID:          p.PropertyID,
		ExternalPropertyID:  p.ExternalPropertyID,
		Address:             p.Address,
		City:                p.City,
		SharesOwned:         h.SharesOwned,
		EquityPercentage:    equity.Round(4).InexactFloat64(),
		InvestedCapital:     cost.Round(2).InexactFloat64(),
		CurrentValue:        current.Round(2).InexactFloat64(),
		UnrealizedProfit:    profit.Round(2).InexactFloat64(),
		AppreciationPercent: appreciation.Round(2).InexactFloat64(),
	}, cost, current
}
