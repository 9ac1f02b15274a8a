package trading

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"stockhouse-backend/internal/domain"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Service performs share purchases and transfers. Every mutation runs in one DB transaction
// and guards shared counters with conditional updates, so concurrent requests cannot
// oversell a pool, overdraw a wallet or transfer shares twice.
type Service struct {
	DB             *gorm.DB
	WalletEnforced bool
	DefaultCap     int64
}

// PurchaseInput for POST /properties/purchase.
type PurchaseInput struct {
	UserID         uuid.UUID
	PropertyID     uuid.UUID
	Shares         int64
	IsResident     bool
	IdempotencyKey string
}

// PurchaseResult is returned on success and replayed for a repeated idempotency key.
type PurchaseResult struct {
	TransactionID   uuid.UUID         `json:"transactionId"`
	PropertyID      uuid.UUID         `json:"propertyId"`
	UserID          uuid.UUID         `json:"userId"`
	SharesPurchased int64             `json:"sharesPurchased"`
	PricePerShare   float64           `json:"pricePerShare"`
	TotalCost       float64           `json:"totalCost"`
	RemainingShares int64             `json:"remainingShares"`
	PropertyStatus  string            `json:"propertyStatus"`
	Balance         float64           `json:"balance"`
	Investment      domain.Investment `json:"investment"`
	Replayed        bool              `json:"replayed"`
}

// Purchase admits and settles a share purchase.
func (s *Service) Purchase(ctx context.Context, in PurchaseInput) (*PurchaseResult, error) {
	if in.Shares <= 0 {
		return nil, ErrInvalidShares
	}
	in.IdempotencyKey = strings.TrimSpace(in.IdempotencyKey)

	var result *PurchaseResult
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if in.IdempotencyKey != "" {
			prev, err := findReplay(tx, in)
			if err != nil {
				return err
			}
			if prev != nil {
				result = prev
				return nil
			}
		}
		r, err := s.purchase(tx, in)
		if err != nil {
			return err
		}
		result = r
		return nil
	})
	if err != nil && in.IdempotencyKey != "" && !isPurchaseRejection(err) {
		// A concurrent request with the same key may have committed first.
		if prev, lookupErr := findReplay(s.DB.WithContext(ctx), in); lookupErr == nil && prev != nil {
			return prev, nil
		}
	}
	if err != nil {
		return nil, err
	}
	if !result.Replayed {
		log.Info().
			Str("tx_id", result.TransactionID.String()).
			Str("user_id", in.UserID.String()).
			Str("property_id", in.PropertyID.String()).
			Int64("shares", in.Shares).
			Int64("remaining", result.RemainingShares).
			Msg("shares purchased")
	}
	return result, nil
}

func (s *Service) purchase(tx *gorm.DB, in PurchaseInput) (*PurchaseResult, error) {
	var acc domain.Account
	if err := tx.Where("id = ?", in.UserID).First(&acc).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}
	var prop domain.Property
	if err := tx.Where("id = ?", in.PropertyID).First(&prop).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPropertyNotFound
		}
		return nil, err
	}
	existing, err := heldShares(tx, in.UserID, in.PropertyID)
	if err != nil {
		return nil, err
	}

	admission := Admission{
		Shares:         in.Shares,
		Status:         prop.Status,
		Available:      prop.AvailableShares,
		Existing:       existing,
		Cap:            prop.EffectiveCap(s.DefaultCap),
		Resident:       in.IsResident && acc.CanClaimResidency(),
		WalletEnforced: s.WalletEnforced,
		Balance:        decimal.NewFromFloat(acc.Balance),
		SharePrice:     decimal.NewFromFloat(prop.SharePrice),
	}
	cost, err := Admit(admission)
	if err != nil {
		return nil, err
	}
	costF := cost.InexactFloat64()

	if err := reserveShares(tx, prop.PropertyID, in.Shares); err != nil {
		return nil, err
	}

	if s.WalletEnforced {
		res := tx.Model(&domain.Account{}).
			Where("id = ? AND balance >= ?", acc.AccountID, costF).
			Update("balance", gorm.Expr("balance - ?", costF))
		if res.Error != nil {
			return nil, res.Error
		}
		if res.RowsAffected == 0 {
			return nil, ErrInsufficientFunds
		}
	}

	txID := uuid.New()
	now := time.Now().UTC()
	limit := int64(0)
	if !admission.Resident {
		limit = admission.Cap
	}
	if err := creditHolding(tx, in.UserID, in.PropertyID, in.Shares, costF, limit, txID, now); err != nil {
		return nil, err
	}

	if err := tx.Where("id = ?", prop.PropertyID).First(&prop).Error; err != nil {
		return nil, err
	}
	if err := tx.Where("id = ?", acc.AccountID).First(&acc).Error; err != nil {
		return nil, err
	}
	var holding domain.Holding
	if err := tx.Where("user_id = ? AND property_id = ?", in.UserID, in.PropertyID).First(&holding).Error; err != nil {
		return nil, err
	}

	result := &PurchaseResult{
		TransactionID:   txID,
		PropertyID:      prop.PropertyID,
		UserID:          acc.AccountID,
		SharesPurchased: in.Shares,
		PricePerShare:   prop.SharePrice,
		TotalCost:       costF,
		RemainingShares: prop.AvailableShares,
		PropertyStatus:  prop.Status,
		Balance:         acc.Balance,
		Investment:      domain.NewInvestment(holding, prop.TotalShares),
	}
	meta, err := json.Marshal(map[string]interface{}{
		"isResident": admission.Resident,
		"result":     result,
	})
	if err != nil {
		return nil, err
	}
	entry := domain.Transaction{
		TxID:          txID,
		Type:          domain.TxPurchase,
		PropertyID:    &prop.PropertyID,
		ToUserID:      &acc.AccountID,
		Shares:        in.Shares,
		PricePerShare: prop.SharePrice,
		Amount:        costF,
		Metadata:      datatypes.JSON(meta),
	}
	if in.IdempotencyKey != "" {
		key := in.IdempotencyKey
		entry.IdempotencyKey = &key
	}
	if err := tx.Create(&entry).Error; err != nil {
		return nil, err
	}
	return result, nil
}

// reserveShares takes n shares from an active pool. The guard is re-evaluated by the UPDATE
// itself, so a pool drained after the caller's read is reported as ErrInsufficientSupply.
func reserveShares(tx *gorm.DB, propertyID uuid.UUID, n int64) error {
	res := tx.Model(&domain.Property{}).
		Where("id = ? AND status = ? AND available_shares >= ?", propertyID, domain.PropertyActive, n).
		Updates(map[string]interface{}{
			"status":           gorm.Expr("CASE WHEN available_shares - ? <= 0 THEN ? ELSE status END", n, domain.PropertyFullyAllocated),
			"available_shares": gorm.Expr("available_shares - ?", n),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrInsufficientSupply
	}
	return nil
}

// creditHolding adds shares and cost basis to a holding, creating it on first acquisition.
// A positive limit bounds the resulting position and is checked inside the UPDATE; a position
// that would exceed it is ErrCapExceeded.
func creditHolding(tx *gorm.DB, userID, propertyID uuid.UUID, shares int64, cost float64, limit int64, txID uuid.UUID, at time.Time) error {
	if limit > 0 && shares > limit {
		return ErrCapExceeded
	}
	for attempt := 0; attempt < 2; attempt++ {
		q := tx.Model(&domain.Holding{}).Where("user_id = ? AND property_id = ?", userID, propertyID)
		if limit > 0 {
			q = q.Where("shares_owned + ? <= ?", shares, limit)
		}
		res := q.Updates(map[string]interface{}{
			"shares_owned":        gorm.Expr("shares_owned + ?", shares),
			"cost_basis":          gorm.Expr("cost_basis + ?", cost),
			"last_transaction_id": txID,
			"last_purchased_at":   at,
		})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected > 0 {
			return nil
		}
		if limit > 0 {
			var n int64
			if err := tx.Model(&domain.Holding{}).Where("user_id = ? AND property_id = ?", userID, propertyID).Count(&n).Error; err != nil {
				return err
			}
			if n > 0 {
				return ErrCapExceeded
			}
		}

		res = tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&domain.Holding{
			UserID:            userID,
			PropertyID:        propertyID,
			SharesOwned:       shares,
			CostBasis:         cost,
			LastTransactionID: &txID,
			LastPurchasedAt:   &at,
		})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected > 0 {
			return nil
		}
		// A concurrent first acquisition created the row; apply the increment to it.
	}
	return errors.New("holding changed concurrently")
}

func heldShares(tx *gorm.DB, userID, propertyID uuid.UUID) (int64, error) {
	var h domain.Holding
	res := tx.Where("user_id = ? AND property_id = ?", userID, propertyID).Limit(1).Find(&h)
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected == 0 {
		return 0, nil
	}
	return h.SharesOwned, nil
}

// findReplay returns the stored result for an already-used idempotency key.
func findReplay(db *gorm.DB, in PurchaseInput) (*PurchaseResult, error) {
	var prev domain.Transaction
	err := db.Where("idempotency_key = ?", in.IdempotencyKey).First(&prev).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if prev.Type != domain.TxPurchase ||
		prev.ToUserID == nil || *prev.ToUserID != in.UserID ||
		prev.PropertyID == nil || *prev.PropertyID != in.PropertyID ||
		prev.Shares != in.Shares {
		return nil, ErrIdempotencyKeyReused
	}
	var meta struct {
		Result PurchaseResult `json:"result"`
	}
	if err := json.Unmarshal(prev.Metadata, &meta); err != nil {
		return nil, err
	}
	meta.Result.Replayed = true
	return &meta.Result, nil
}

func isPurchaseRejection(err error) bool {
	for _, target := range []error{
		ErrAccountNotFound, ErrPropertyNotFound, ErrPropertyUnavailable, ErrInsufficientSupply,
		ErrCapExceeded, ErrInsufficientFunds, ErrIdempotencyKeyReused,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
