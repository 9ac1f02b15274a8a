package trading

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"stockhouse-backend/internal/domain"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// TransferInput for POST /properties/transfer-shares.
type TransferInput struct {
	PropertyID uuid.UUID
	FromUserID uuid.UUID
	ToUserID   uuid.UUID
	Shares     int64
	Price      float64
}

type TransferResult struct {
	TransactionID uuid.UUID `json:"transactionId"`
	PropertyID    uuid.UUID `json:"propertyId"`
	FromUserID    uuid.UUID `json:"fromUserId"`
	ToUserID      uuid.UUID `json:"toUserId"`
	SharesAmount  int64     `json:"sharesAmount"`
	PricePerShare float64   `json:"transactionPrice"`
	TotalValue    float64   `json:"totalValue"`
	SellerShares  int64     `json:"sellerSharesRemaining"`
	BuyerShares   int64     `json:"buyerSharesOwned"`
}

// Transfer moves shares between two holders. The property's available pool is untouched,
// so total shares outstanding are conserved.
func (s *Service) Transfer(ctx context.Context, in TransferInput) (*TransferResult, error) {
	if in.Shares <= 0 {
		return nil, ErrInvalidShares
	}
	if in.Price < 0 {
		return nil, ErrInvalidPrice
	}
	if in.FromUserID == in.ToUserID {
		return nil, ErrSameAccount
	}

	var result *TransferResult
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var prop domain.Property
		if err := tx.Where("id = ?", in.PropertyID).First(&prop).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrPropertyNotFound
			}
			return err
		}
		var n int64
		if err := tx.Model(&domain.Account{}).Where("id = ?", in.ToUserID).Count(&n).Error; err != nil {
			return err
		}
		if n == 0 {
			return ErrAccountNotFound
		}

		var seller domain.Holding
		if err := tx.Where("user_id = ? AND property_id = ?", in.FromUserID, in.PropertyID).First(&seller).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrInsufficientShares
			}
			return err
		}
		if seller.SharesOwned < in.Shares {
			return ErrInsufficientShares
		}

		// Seller basis leaves at the seller's average price.
		basisOut := decimal.NewFromFloat(seller.CostBasis)
		if in.Shares < seller.SharesOwned {
			basisOut = basisOut.Mul(decimal.NewFromInt(in.Shares)).
				Div(decimal.NewFromInt(seller.SharesOwned)).Round(2)
		}
		res := tx.Model(&domain.Holding{}).
			Where("id = ? AND shares_owned >= ?", seller.HoldingID, in.Shares).
			Updates(map[string]interface{}{
				"shares_owned": gorm.Expr("shares_owned - ?", in.Shares),
				"cost_basis":   gorm.Expr("cost_basis - ?", basisOut.InexactFloat64()),
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrInsufficientShares
		}
		if err := tx.Where("id = ? AND shares_owned <= 0", seller.HoldingID).Delete(&domain.Holding{}).Error; err != nil {
			return err
		}

		price := decimal.NewFromFloat(in.Price)
		total := price.Mul(decimal.NewFromInt(in.Shares)).Round(2)
		basisIn := total
		if in.Price == 0 {
			basisIn = basisOut
		}
		txID := uuid.New()
		if err := creditHolding(tx, in.ToUserID, in.PropertyID, in.Shares, basisIn.InexactFloat64(), 0, txID, time.Now().UTC()); err != nil {
			return err
		}

		sellerLeft, err := heldShares(tx, in.FromUserID, in.PropertyID)
		if err != nil {
			return err
		}
		buyerNow, err := heldShares(tx, in.ToUserID, in.PropertyID)
		if err != nil {
			return err
		}

		meta, err := json.Marshal(map[string]interface{}{
			"sellerBasisReleased": basisOut.InexactFloat64(),
			"buyerBasisAdded":     basisIn.InexactFloat64(),
		})
		if err != nil {
			return err
		}
		if err := tx.Create(&domain.Transaction{
			TxID:          txID,
			Type:          domain.TxTransfer,
			PropertyID:    &prop.PropertyID,
			FromUserID:    &in.FromUserID,
			ToUserID:      &in.ToUserID,
			Shares:        in.Shares,
			PricePerShare: in.Price,
			Amount:        total.InexactFloat64(),
			Metadata:      datatypes.JSON(meta),
		}).Error; err != nil {
			return err
		}

		result = &TransferResult{
			TransactionID: txID,
			PropertyID:    prop.PropertyID,
			FromUserID:    in.FromUserID,
			ToUserID:      in.ToUserID,
			SharesAmount:  in.Shares,
			PricePerShare: in.Price,
			TotalValue:    total.InexactFloat64(),
			SellerShares:  sellerLeft,
			BuyerShares:   buyerNow,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	log.Info().
		Str("tx_id", result.TransactionID.String()).
		Str("property_id", in.PropertyID.String()).
		Str("from", in.FromUserID.String()).
		Str("to", in.ToUserID.String()).
		Int64("shares", in.Shares).
		Msg("shares transferred")
	return result, nil
}
