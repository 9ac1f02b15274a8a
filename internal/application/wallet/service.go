package wallet

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"stockhouse-backend/internal/domain"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var (
	ErrAccountNotFound = errors.New("User not found")
	ErrInvalidAmount   = errors.New("Amount must be a positive number")
	ErrAmountTooLarge  = errors.New("Amount exceeds the faucet limit")
)

// Service manages demo-money balances.
type Service struct {
	DB        *gorm.DB
	MaxAmount float64
}

type Balance struct {
	UserID  uuid.UUID `json:"userId"`
	Balance float64   `json:"balance"`
}

type Deposit struct {
	UserID        uuid.UUID `json:"userId"`
	Amount        float64   `json:"amount"`
	Balance       float64   `json:"balance"`
	TransactionID uuid.UUID `json:"transactionId"`
}

func (s *Service) Balance(ctx context.Context, userID uuid.UUID) (*Balance, error) {
	var acc domain.Account
	if err := s.DB.WithContext(ctx).Select("id", "balance").Where("id = ?", userID).First(&acc).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}
	return &Balance{UserID: acc.AccountID, Balance: acc.Balance}, nil
}

// AddFunds credits the wallet with an atomic increment and journals a faucet entry.
func (s *Service) AddFunds(ctx context.Context, userID uuid.UUID, amount float64) (*Deposit, error) {
	amt := decimal.NewFromFloat(amount).Round(2)
	if !amt.IsPositive() {
		return nil, ErrInvalidAmount
	}
	if s.MaxAmount > 0 && amt.GreaterThan(decimal.NewFromFloat(s.MaxAmount)) {
		return nil, fmt.Errorf("%w of %s", ErrAmountTooLarge, decimal.NewFromFloat(s.MaxAmount).StringFixed(2))
	}
	credit := amt.InexactFloat64()

	out := &Deposit{UserID: userID, Amount: credit, TransactionID: uuid.New()}
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&domain.Account{}).Where("id = ?", userID).
			Update("balance", gorm.Expr("balance + ?", credit))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrAccountNotFound
		}
		meta, err := json.Marshal(map[string]interface{}{"source": "faucet"})
		if err != nil {
			return err
		}
		if err := tx.Create(&domain.Transaction{
			TxID:     out.TransactionID,
			Type:     domain.TxFaucet,
			ToUserID: &userID,
			Amount:   credit,
			Metadata: datatypes.JSON(meta),
		}).Error; err != nil {
			return err
		}
		var acc domain.Account
		if err := tx.Select("id", "balance").Where("id = ?", userID).First(&acc).Error; err != nil {
			return err
		}
		out.Balance = acc.Balance
		return nil
	})
	if err != nil {
		return nil, err
	}
	log.Info().Str("user_id", userID.String()).Float64("amount", credit).Msg("wallet funded")
	return out, nil
}
