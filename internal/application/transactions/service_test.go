package transactions

import (
	"context"
	"testing"
	"time"

	"stockhouse-backend/internal/domain"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupJournalTest(t *testing.T) *Service {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(domain.All()...))
	return &Service{DB: db}
}

func TestList_FiltersByParticipant(t *testing.T) {
	svc := setupJournalTest(t)
	alice, bob, carol := uuid.New(), uuid.New(), uuid.New()
	base := time.Now().Add(-time.Hour)

	entries := []domain.Transaction{
		{Type: domain.TxFaucet, ToUserID: &alice, Amount: 100, CreatedAt: base},
		{Type: domain.TxTransfer, FromUserID: &alice, ToUserID: &bob, Shares: 5, CreatedAt: base.Add(time.Minute)},
		{Type: domain.TxFaucet, ToUserID: &carol, Amount: 50, CreatedAt: base.Add(2 * time.Minute)},
	}
	for i := range entries {
		require.NoError(t, svc.DB.Create(&entries[i]).Error)
	}

	res, err := svc.List(context.Background(), Filter{UserID: &alice})
	require.NoError(t, err)
	assert.Equal(t, int64(2), res.Count)
	require.Len(t, res.Transactions, 2)
	assert.Equal(t, domain.TxTransfer, res.Transactions[0].Type)

	res, err = svc.List(context.Background(), Filter{UserID: &bob})
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.Count)

	res, err = svc.List(context.Background(), Filter{Type: domain.TxFaucet})
	require.NoError(t, err)
	assert.Equal(t, int64(2), res.Count)

	res, err = svc.List(context.Background(), Filter{Limit: 1, Skip: 1})
	require.NoError(t, err)
	assert.Equal(t, int64(3), res.Count)
	require.Len(t, res.Transactions, 1)
	assert.Equal(t, domain.TxTransfer, res.Transactions[0].Type)
}

func TestList_Empty(t *testing.T) {
	svc := setupJournalTest(t)
	id := uuid.New()
	res, err := svc.List(context.Background(), Filter{UserID: &id})
	require.NoError(t, err)
	assert.NotNil(t, res.Transactions)
	assert.Zero(t, res.Count)
}
