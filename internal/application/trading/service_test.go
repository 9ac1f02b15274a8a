package trading

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"stockhouse-backend/internal/domain"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupTradingTest(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(domain.All()...))
	return &Service{DB: db, WalletEnforced: true, DefaultCap: 200}, db
}

func seedAccount(t *testing.T, db *gorm.DB, role string, balance float64) domain.Account {
	t.Helper()
	acc := domain.Account{
		FirstName:    "Test",
		LastName:     "User",
		Email:        fmt.Sprintf("%s@example.com", uuid.NewString()),
		PasswordHash: "x",
		Role:         role,
		Balance:      balance,
	}
	require.NoError(t, db.Create(&acc).Error)
	return acc
}

func seedProperty(t *testing.T, db *gorm.DB, mutate func(*domain.Property)) domain.Property {
	t.Helper()
	p := domain.Property{
		ExternalPropertyID: uuid.NewString(),
		Address:            "1 Main St",
		City:               "Austin",
		Valuation:          1000000,
		TotalShares:        10000,
		AvailableShares:    10000,
		SharePrice:         100,
		PerUserShareCap:    200,
		Status:             domain.PropertyActive,
	}
	if mutate != nil {
		mutate(&p)
	}
	require.NoError(t, db.Create(&p).Error)
	return p
}

func reload[T any](t *testing.T, db *gorm.DB, id uuid.UUID) T {
	t.Helper()
	var v T
	require.NoError(t, db.Where("id = ?", id).First(&v).Error)
	return v
}

func TestPurchase_DecrementsPoolAndDebitsWallet(t *testing.T) {
	svc, db := setupTradingTest(t)
	ctx := context.Background()
	acc := seedAccount(t, db, "investor", 5000)
	prop := seedProperty(t, db, nil)

	res, err := svc.Purchase(ctx, PurchaseInput{UserID: acc.AccountID, PropertyID: prop.PropertyID, Shares: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(9990), res.RemainingShares)
	assert.InDelta(t, 4000.0, res.Balance, 1e-9)
	assert.InDelta(t, 1000.0, res.TotalCost, 1e-9)
	assert.Equal(t, int64(10), res.Investment.ShareCount)
	assert.InDelta(t, 0.1, res.Investment.OwnershipPercent, 1e-9)

	p := reload[domain.Property](t, db, prop.PropertyID)
	assert.Equal(t, int64(9990), p.AvailableShares)
	a := reload[domain.Account](t, db, acc.AccountID)
	assert.InDelta(t, 4000.0, a.Balance, 1e-9)

	var entries []domain.Transaction
	require.NoError(t, db.Where("type = ?", domain.TxPurchase).Find(&entries).Error)
	require.Len(t, entries, 1)
	assert.Equal(t, res.TransactionID, entries[0].TxID)
}

func TestPurchase_WeightedAverage(t *testing.T) {
	svc, db := setupTradingTest(t)
	ctx := context.Background()
	acc := seedAccount(t, db, "investor", 10000)
	prop := seedProperty(t, db, nil)

	_, err := svc.Purchase(ctx, PurchaseInput{UserID: acc.AccountID, PropertyID: prop.PropertyID, Shares: 10})
	require.NoError(t, err)

	require.NoError(t, db.Model(&domain.Property{}).Where("id = ?", prop.PropertyID).
		Updates(map[string]interface{}{"valuation": 1200000, "share_price": 120}).Error)

	res, err := svc.Purchase(ctx, PurchaseInput{UserID: acc.AccountID, PropertyID: prop.PropertyID, Shares: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(20), res.Investment.ShareCount)
	assert.InDelta(t, 2200.0, res.Investment.TotalCost, 1e-9)
	assert.InDelta(t, 110.0, res.Investment.SharePrice, 1e-9)

	var holdings []domain.Holding
	require.NoError(t, db.Find(&holdings).Error)
	require.Len(t, holdings, 1)
}

func TestPurchase_RejectionLeavesStateUnchanged(t *testing.T) {
	svc, db := setupTradingTest(t)
	ctx := context.Background()
	acc := seedAccount(t, db, "investor", 1e6)
	prop := seedProperty(t, db, func(p *domain.Property) {
		p.AvailableShares = 5
	})

	_, err := svc.Purchase(ctx, PurchaseInput{UserID: acc.AccountID, PropertyID: prop.PropertyID, Shares: 6})
	assert.ErrorIs(t, err, ErrInsufficientSupply)

	p := reload[domain.Property](t, db, prop.PropertyID)
	assert.Equal(t, int64(5), p.AvailableShares)
	a := reload[domain.Account](t, db, acc.AccountID)
	assert.InDelta(t, 1e6, a.Balance, 1e-9)
	var n int64
	db.Model(&domain.Holding{}).Count(&n)
	assert.Zero(t, n)
	db.Model(&domain.Transaction{}).Count(&n)
	assert.Zero(t, n)
}

func TestPurchase_Errors(t *testing.T) {
	svc, db := setupTradingTest(t)
	ctx := context.Background()
	poor := seedAccount(t, db, "investor", 50)
	rich := seedAccount(t, db, "investor", 1e6)
	prop := seedProperty(t, db, nil)
	paused := seedProperty(t, db, func(p *domain.Property) { p.Status = domain.PropertyPaused })

	_, err := svc.Purchase(ctx, PurchaseInput{UserID: poor.AccountID, PropertyID: prop.PropertyID, Shares: 1})
	assert.ErrorIs(t, err, ErrInsufficientFunds)

	_, err = svc.Purchase(ctx, PurchaseInput{UserID: rich.AccountID, PropertyID: prop.PropertyID, Shares: 201})
	assert.ErrorIs(t, err, ErrCapExceeded)

	_, err = svc.Purchase(ctx, PurchaseInput{UserID: rich.AccountID, PropertyID: paused.PropertyID, Shares: 1})
	assert.ErrorIs(t, err, ErrPropertyUnavailable)

	_, err = svc.Purchase(ctx, PurchaseInput{UserID: rich.AccountID, PropertyID: uuid.New(), Shares: 1})
	assert.ErrorIs(t, err, ErrPropertyNotFound)

	_, err = svc.Purchase(ctx, PurchaseInput{UserID: uuid.New(), PropertyID: prop.PropertyID, Shares: 1})
	assert.ErrorIs(t, err, ErrAccountNotFound)

	_, err = svc.Purchase(ctx, PurchaseInput{UserID: rich.AccountID, PropertyID: prop.PropertyID, Shares: 0})
	assert.ErrorIs(t, err, ErrInvalidShares)
}

func TestPurchase_CapIsCumulative(t *testing.T) {
	svc, db := setupTradingTest(t)
	ctx := context.Background()
	acc := seedAccount(t, db, "investor", 1e6)
	prop := seedProperty(t, db, nil)

	_, err := svc.Purchase(ctx, PurchaseInput{UserID: acc.AccountID, PropertyID: prop.PropertyID, Shares: 150})
	require.NoError(t, err)
	_, err = svc.Purchase(ctx, PurchaseInput{UserID: acc.AccountID, PropertyID: prop.PropertyID, Shares: 51})
	assert.ErrorIs(t, err, ErrCapExceeded)
	_, err = svc.Purchase(ctx, PurchaseInput{UserID: acc.AccountID, PropertyID: prop.PropertyID, Shares: 50})
	assert.NoError(t, err)
}

func TestPurchase_ResidencyOnlyForHomeowners(t *testing.T) {
	svc, db := setupTradingTest(t)
	ctx := context.Background()
	investor := seedAccount(t, db, "investor", 1e7)
	owner := seedAccount(t, db, "homeowner", 1e7)
	prop := seedProperty(t, db, nil)

	_, err := svc.Purchase(ctx, PurchaseInput{UserID: investor.AccountID, PropertyID: prop.PropertyID, Shares: 5100, IsResident: true})
	assert.ErrorIs(t, err, ErrCapExceeded)

	res, err := svc.Purchase(ctx, PurchaseInput{UserID: owner.AccountID, PropertyID: prop.PropertyID, Shares: 5100, IsResident: true})
	require.NoError(t, err)
	assert.InDelta(t, 51.0, res.Investment.OwnershipPercent, 1e-9)
}

func TestPurchase_EmptyingPoolMarksFullyAllocated(t *testing.T) {
	svc, db := setupTradingTest(t)
	ctx := context.Background()
	acc := seedAccount(t, db, "investor", 1e6)
	prop := seedProperty(t, db, func(p *domain.Property) { p.AvailableShares = 10 })

	res, err := svc.Purchase(ctx, PurchaseInput{UserID: acc.AccountID, PropertyID: prop.PropertyID, Shares: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(0), res.RemainingShares)
	assert.Equal(t, domain.PropertyFullyAllocated, res.PropertyStatus)

	_, err = svc.Purchase(ctx, PurchaseInput{UserID: acc.AccountID, PropertyID: prop.PropertyID, Shares: 1})
	assert.ErrorIs(t, err, ErrInsufficientSupply)
}

func TestPurchase_WalletNotEnforced(t *testing.T) {
	svc, db := setupTradingTest(t)
	svc.WalletEnforced = false
	acc := seedAccount(t, db, "investor", 0)
	prop := seedProperty(t, db, nil)

	res, err := svc.Purchase(context.Background(), PurchaseInput{UserID: acc.AccountID, PropertyID: prop.PropertyID, Shares: 5})
	require.NoError(t, err)
	assert.Zero(t, res.Balance)
}

func TestPurchase_IdempotentReplay(t *testing.T) {
	svc, db := setupTradingTest(t)
	ctx := context.Background()
	acc := seedAccount(t, db, "investor", 5000)
	prop := seedProperty(t, db, nil)
	in := PurchaseInput{UserID: acc.AccountID, PropertyID: prop.PropertyID, Shares: 10, IdempotencyKey: "buy-1"}

	first, err := svc.Purchase(ctx, in)
	require.NoError(t, err)
	second, err := svc.Purchase(ctx, in)
	require.NoError(t, err)

	assert.True(t, second.Replayed)
	assert.Equal(t, first.TransactionID, second.TransactionID)
	assert.Equal(t, first.RemainingShares, second.RemainingShares)

	p := reload[domain.Property](t, db, prop.PropertyID)
	assert.Equal(t, int64(9990), p.AvailableShares)
	a := reload[domain.Account](t, db, acc.AccountID)
	assert.InDelta(t, 4000.0, a.Balance, 1e-9)

	in.Shares = 11
	_, err = svc.Purchase(ctx, in)
	assert.ErrorIs(t, err, ErrIdempotencyKeyReused)
}

func TestPurchase_ConcurrentOversubscription(t *testing.T) {
	svc, db := setupTradingTest(t)
	ctx := context.Background()
	prop := seedProperty(t, db, func(p *domain.Property) { p.PerUserShareCap = 10000 })
	buyers := []domain.Account{
		seedAccount(t, db, "investor", 1e6),
		seedAccount(t, db, "investor", 1e6),
	}

	var wg sync.WaitGroup
	errs := make([]error, len(buyers))
	for i, b := range buyers {
		wg.Add(1)
		go func(i int, id uuid.UUID) {
			defer wg.Done()
			_, errs[i] = svc.Purchase(ctx, PurchaseInput{UserID: id, PropertyID: prop.PropertyID, Shares: 6000})
		}(i, b.AccountID)
	}
	wg.Wait()

	ok, supply := 0, 0
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case assert.ErrorIs(t, err, ErrInsufficientSupply):
			supply++
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 1, supply)

	p := reload[domain.Property](t, db, prop.PropertyID)
	assert.Equal(t, int64(4000), p.AvailableShares)
	var owned int64
	require.NoError(t, db.Model(&domain.Holding{}).Select("COALESCE(SUM(shares_owned), 0)").Scan(&owned).Error)
	assert.Equal(t, int64(6000), owned)
}

func TestReserveShares_RechecksPoolAtUpdate(t *testing.T) {
	_, db := setupTradingTest(t)
	prop := seedProperty(t, db, func(p *domain.Property) { p.AvailableShares = 100 })

	// A competing purchase commits after this request read the pool at 100.
	stale := reload[domain.Property](t, db, prop.PropertyID)
	require.NoError(t, db.Model(&domain.Property{}).Where("id = ?", prop.PropertyID).
		Update("available_shares", 40).Error)
	require.Equal(t, int64(100), stale.AvailableShares)

	err := reserveShares(db, stale.PropertyID, 60)
	assert.ErrorIs(t, err, ErrInsufficientSupply)
	assert.Equal(t, int64(40), reload[domain.Property](t, db, prop.PropertyID).AvailableShares)

	require.NoError(t, reserveShares(db, stale.PropertyID, 40))
	p := reload[domain.Property](t, db, prop.PropertyID)
	assert.Equal(t, int64(0), p.AvailableShares)
	assert.Equal(t, domain.PropertyFullyAllocated, p.Status)

	assert.ErrorIs(t, reserveShares(db, stale.PropertyID, 1), ErrInsufficientSupply)
}

func TestReserveShares_PausedProperty(t *testing.T) {
	_, db := setupTradingTest(t)
	prop := seedProperty(t, db, func(p *domain.Property) { p.Status = domain.PropertyPaused })

	assert.ErrorIs(t, reserveShares(db, prop.PropertyID, 1), ErrInsufficientSupply)
	assert.Equal(t, int64(10000), reload[domain.Property](t, db, prop.PropertyID).AvailableShares)
}

func TestCreditHolding_CapCheckedAtUpdate(t *testing.T) {
	_, db := setupTradingTest(t)
	acc := seedAccount(t, db, "investor", 0)
	prop := seedProperty(t, db, nil)
	now := time.Now().UTC()

	// This request saw no holding; a concurrent one then bought 150.
	existing, err := heldShares(db, acc.AccountID, prop.PropertyID)
	require.NoError(t, err)
	require.Zero(t, existing)
	require.NoError(t, creditHolding(db, acc.AccountID, prop.PropertyID, 150, 15000, 200, uuid.New(), now))

	err = creditHolding(db, acc.AccountID, prop.PropertyID, 150, 15000, 200, uuid.New(), now)
	assert.ErrorIs(t, err, ErrCapExceeded)
	held, err := heldShares(db, acc.AccountID, prop.PropertyID)
	require.NoError(t, err)
	assert.Equal(t, int64(150), held)

	require.NoError(t, creditHolding(db, acc.AccountID, prop.PropertyID, 50, 5000, 200, uuid.New(), now))
	held, err = heldShares(db, acc.AccountID, prop.PropertyID)
	require.NoError(t, err)
	assert.Equal(t, int64(200), held)

	// No limit for residents and transfers.
	require.NoError(t, creditHolding(db, acc.AccountID, prop.PropertyID, 500, 50000, 0, uuid.New(), now))
	held, err = heldShares(db, acc.AccountID, prop.PropertyID)
	require.NoError(t, err)
	assert.Equal(t, int64(700), held)
}

func TestCreditHolding_FirstAcquisitionOverLimit(t *testing.T) {
	_, db := setupTradingTest(t)
	acc := seedAccount(t, db, "investor", 0)
	prop := seedProperty(t, db, nil)

	err := creditHolding(db, acc.AccountID, prop.PropertyID, 201, 20100, 200, uuid.New(), time.Now().UTC())
	assert.ErrorIs(t, err, ErrCapExceeded)
	var n int64
	require.NoError(t, db.Model(&domain.Holding{}).Count(&n).Error)
	assert.Zero(t, n)
}
