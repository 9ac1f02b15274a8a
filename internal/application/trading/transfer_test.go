package trading

import (
	"context"
	"encoding/json"
	"testing"

	"stockhouse-backend/internal/domain"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func totalOwned(t *testing.T, db *gorm.DB, propertyID uuid.UUID) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(&domain.Holding{}).
		Where("property_id = ?", propertyID).
		Select("COALESCE(SUM(shares_owned), 0)").Scan(&n).Error)
	return n
}

func TestTransfer_ConservesShares(t *testing.T) {
	svc, db := setupTradingTest(t)
	ctx := context.Background()
	seller := seedAccount(t, db, "investor", 1e6)
	buyer := seedAccount(t, db, "investor", 0)
	prop := seedProperty(t, db, nil)

	_, err := svc.Purchase(ctx, PurchaseInput{UserID: seller.AccountID, PropertyID: prop.PropertyID, Shares: 100})
	require.NoError(t, err)
	before := totalOwned(t, db, prop.PropertyID)

	res, err := svc.Transfer(ctx, TransferInput{
		PropertyID: prop.PropertyID,
		FromUserID: seller.AccountID,
		ToUserID:   buyer.AccountID,
		Shares:     40,
		Price:      125,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(60), res.SellerShares)
	assert.Equal(t, int64(40), res.BuyerShares)
	assert.InDelta(t, 5000.0, res.TotalValue, 1e-9)

	assert.Equal(t, before, totalOwned(t, db, prop.PropertyID))
	p := reload[domain.Property](t, db, prop.PropertyID)
	assert.Equal(t, int64(9900), p.AvailableShares)

	var sellerHolding, buyerHolding domain.Holding
	require.NoError(t, db.Where("user_id = ?", seller.AccountID).First(&sellerHolding).Error)
	require.NoError(t, db.Where("user_id = ?", buyer.AccountID).First(&buyerHolding).Error)
	assert.InDelta(t, 6000.0, sellerHolding.CostBasis, 1e-9)
	assert.InDelta(t, 5000.0, buyerHolding.CostBasis, 1e-9)

	var entry domain.Transaction
	require.NoError(t, db.Where("type = ?", domain.TxTransfer).First(&entry).Error)
	assert.InDelta(t, 125.0, entry.PricePerShare, 1e-9)
	assert.Equal(t, int64(40), entry.Shares)
	var meta map[string]float64
	require.NoError(t, json.Unmarshal(entry.Metadata, &meta))
	assert.InDelta(t, 4000.0, meta["sellerBasisReleased"], 1e-9)
	assert.InDelta(t, 5000.0, meta["buyerBasisAdded"], 1e-9)
}

func TestTransfer_FullPositionDeletesSellerRow(t *testing.T) {
	svc, db := setupTradingTest(t)
	ctx := context.Background()
	seller := seedAccount(t, db, "investor", 1e6)
	buyer := seedAccount(t, db, "investor", 0)
	prop := seedProperty(t, db, nil)

	_, err := svc.Purchase(ctx, PurchaseInput{UserID: seller.AccountID, PropertyID: prop.PropertyID, Shares: 20})
	require.NoError(t, err)

	res, err := svc.Transfer(ctx, TransferInput{
		PropertyID: prop.PropertyID,
		FromUserID: seller.AccountID,
		ToUserID:   buyer.AccountID,
		Shares:     20,
	})
	require.NoError(t, err)
	assert.Zero(t, res.SellerShares)

	var n int64
	db.Model(&domain.Holding{}).Where("user_id = ?", seller.AccountID).Count(&n)
	assert.Zero(t, n)

	// A gift carries the seller's basis.
	var buyerHolding domain.Holding
	require.NoError(t, db.Where("user_id = ?", buyer.AccountID).First(&buyerHolding).Error)
	assert.InDelta(t, 2000.0, buyerHolding.CostBasis, 1e-9)
}

func TestTransfer_Errors(t *testing.T) {
	svc, db := setupTradingTest(t)
	ctx := context.Background()
	seller := seedAccount(t, db, "investor", 1e6)
	buyer := seedAccount(t, db, "investor", 0)
	prop := seedProperty(t, db, nil)
	_, err := svc.Purchase(ctx, PurchaseInput{UserID: seller.AccountID, PropertyID: prop.PropertyID, Shares: 10})
	require.NoError(t, err)

	base := TransferInput{PropertyID: prop.PropertyID, FromUserID: seller.AccountID, ToUserID: buyer.AccountID, Shares: 5, Price: 100}

	in := base
	in.Shares = 11
	_, err = svc.Transfer(ctx, in)
	assert.ErrorIs(t, err, ErrInsufficientShares)

	in = base
	in.FromUserID = buyer.AccountID
	in.ToUserID = seller.AccountID
	_, err = svc.Transfer(ctx, in)
	assert.ErrorIs(t, err, ErrInsufficientShares)

	in = base
	in.ToUserID = seller.AccountID
	_, err = svc.Transfer(ctx, in)
	assert.ErrorIs(t, err, ErrSameAccount)

	in = base
	in.Price = -1
	_, err = svc.Transfer(ctx, in)
	assert.ErrorIs(t, err, ErrInvalidPrice)

	in = base
	in.Shares = 0
	_, err = svc.Transfer(ctx, in)
	assert.ErrorIs(t, err, ErrInvalidShares)

	in = base
	in.PropertyID = uuid.New()
	_, err = svc.Transfer(ctx, in)
	assert.ErrorIs(t, err, ErrPropertyNotFound)

	in = base
	in.ToUserID = uuid.New()
	_, err = svc.Transfer(ctx, in)
	assert.ErrorIs(t, err, ErrAccountNotFound)

	var h domain.Holding
	require.NoError(t, db.Where("user_id = ?", seller.AccountID).First(&h).Error)
	assert.Equal(t, int64(10), h.SharesOwned)
}
