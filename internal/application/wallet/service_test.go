package wallet

import (
	"context"
	"sync"
	"testing"

	"stockhouse-backend/internal/domain"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupWalletTest(t *testing.T) (*Service, domain.Account) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(domain.All()...))

	acc := domain.Account{FirstName: "W", LastName: "Allet", Email: "w@example.com", PasswordHash: "x", Role: "investor"}
	require.NoError(t, db.Create(&acc).Error)
	return &Service{DB: db, MaxAmount: 1000000}, acc
}

func TestAddFunds(t *testing.T) {
	svc, acc := setupWalletTest(t)
	ctx := context.Background()

	dep, err := svc.AddFunds(ctx, acc.AccountID, 250.5)
	require.NoError(t, err)
	assert.InDelta(t, 250.5, dep.Balance, 1e-9)

	bal, err := svc.Balance(ctx, acc.AccountID)
	require.NoError(t, err)
	assert.InDelta(t, 250.5, bal.Balance, 1e-9)

	var entry domain.Transaction
	require.NoError(t, svc.DB.Where("type = ?", domain.TxFaucet).First(&entry).Error)
	assert.JSONEq(t, `{"source":"faucet"}`, string(entry.Metadata))
}

func TestAddFunds_Validation(t *testing.T) {
	svc, acc := setupWalletTest(t)
	ctx := context.Background()

	_, err := svc.AddFunds(ctx, acc.AccountID, 0)
	assert.ErrorIs(t, err, ErrInvalidAmount)
	_, err = svc.AddFunds(ctx, acc.AccountID, -5)
	assert.ErrorIs(t, err, ErrInvalidAmount)
	_, err = svc.AddFunds(ctx, acc.AccountID, 1000000.01)
	assert.ErrorIs(t, err, ErrAmountTooLarge)
	_, err = svc.AddFunds(ctx, uuid.New(), 10)
	assert.ErrorIs(t, err, ErrAccountNotFound)
}

func TestAddFunds_ConcurrentIncrements(t *testing.T) {
	svc, acc := setupWalletTest(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.AddFunds(ctx, acc.AccountID, 10)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	bal, err := svc.Balance(ctx, acc.AccountID)
	require.NoError(t, err)
	assert.InDelta(t, 100.0, bal.Balance, 1e-9)
}

func TestBalance_Unknown(t *testing.T) {
	svc, _ := setupWalletTest(t)
	_, err := svc.Balance(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrAccountNotFound)
}
