package equity

import (
	"context"
	"testing"

	"stockhouse-backend/internal/domain"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func holdings(shares ...int64) []domain.Holding {
	out := make([]domain.Holding, 0, len(shares))
	for _, s := range shares {
		out = append(out, domain.Holding{UserID: uuid.New(), SharesOwned: s})
	}
	return out
}

func TestEvaluate(t *testing.T) {
	cases := []struct {
		name      string
		shares    []int64
		compliant bool
		top       float64
	}{
		{"controlling holder", []int64{510, 490}, true, 51.0},
		{"even split", []int64{500, 500}, false, 50.0},
		{"single holder", []int64{7}, true, 100.0},
		{"just under", []int64{50999, 49001}, false, 51.0},
		{"unsorted input", []int64{100, 300, 600}, true, 60.0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := Evaluate(uuid.New(), holdings(tc.shares...))
			assert.Equal(t, tc.compliant, r.IsCompliant)
			assert.InDelta(t, tc.top, r.TopHolderPercent, 1e-9)
			assert.Equal(t, len(tc.shares), r.HolderCount)
		})
	}
}

func TestEvaluate_SortedDescending(t *testing.T) {
	r := Evaluate(uuid.New(), holdings(100, 300, 600))
	require.Len(t, r.Breakdown, 3)
	assert.Equal(t, int64(600), r.Breakdown[0].Shares)
	assert.Equal(t, int64(100), r.Breakdown[2].Shares)
	assert.Equal(t, int64(1000), r.TotalSharesIssued)
}

func TestEvaluate_EmptyLedger(t *testing.T) {
	r := Evaluate(uuid.New(), nil)
	assert.False(t, r.IsCompliant)
	assert.Zero(t, r.HolderCount)
	assert.Empty(t, r.Breakdown)
}

func TestValidate_ReadsLedger(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(domain.All()...))
	svc := &Service{DB: db}

	prop := uuid.New()
	other := uuid.New()
	require.NoError(t, db.Create(&domain.Holding{UserID: uuid.New(), PropertyID: prop, SharesOwned: 510}).Error)
	require.NoError(t, db.Create(&domain.Holding{UserID: uuid.New(), PropertyID: prop, SharesOwned: 490}).Error)
	require.NoError(t, db.Create(&domain.Holding{UserID: uuid.New(), PropertyID: other, SharesOwned: 9000}).Error)

	r, err := svc.Validate(context.Background(), prop)
	require.NoError(t, err)
	assert.True(t, r.IsCompliant)
	assert.Equal(t, int64(1000), r.TotalSharesIssued)
	assert.InDelta(t, 51.0, r.TopHolderPercent, 1e-9)
}
