package trading

import (
	"stockhouse-backend/internal/domain"

	"github.com/shopspring/decimal"
)

// Admission is the state a purchase is judged against.
type Admission struct {
	Shares         int64
	Status         string
	Available      int64
	Existing       int64
	Cap            int64
	Resident       bool
	WalletEnforced bool
	Balance        decimal.Decimal
	SharePrice     decimal.Decimal
}

// Cost is the purchase price rounded to cents.
func Cost(shares int64, sharePrice decimal.Decimal) decimal.Decimal {
	return sharePrice.Mul(decimal.NewFromInt(shares)).Round(2)
}

// Admit applies the purchase rules in order and returns the cost on success.
// Residents are exempt from the per-user cap.
func Admit(a Admission) (decimal.Decimal, error) {
	if a.Shares <= 0 {
		return decimal.Zero, ErrInvalidShares
	}
	switch a.Status {
	case domain.PropertyActive:
	case domain.PropertyFullyAllocated:
		return decimal.Zero, ErrInsufficientSupply
	default:
		return decimal.Zero, ErrPropertyUnavailable
	}
	if a.Available < a.Shares {
		return decimal.Zero, ErrInsufficientSupply
	}
	if !a.Resident && a.Existing+a.Shares > a.Cap {
		return decimal.Zero, ErrCapExceeded
	}
	cost := Cost(a.Shares, a.SharePrice)
	if a.WalletEnforced && a.Balance.LessThan(cost) {
		return decimal.Zero, ErrInsufficientFunds
	}
	return cost, nil
}
