package transactions

import (
	"context"

	"stockhouse-backend/internal/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	defaultLimit = 50
	maxLimit     = 200
)

type Service struct {
	DB *gorm.DB
}

// Filter selects journal entries. A nil UserID lists every entry.
type Filter struct {
	UserID *uuid.UUID
	Type   string
	Limit  int
	Skip   int
}

// ListResult pairs a page of entries with the total match count.
type ListResult struct {
	Transactions []domain.Transaction `json:"transactions"`
	Count        int64                `json:"count"`
}

// List returns journal entries newest first. A user sees entries where they are sender or
// receiver.
func (s *Service) List(ctx context.Context, f Filter) (*ListResult, error) {
	q := s.DB.WithContext(ctx).Model(&domain.Transaction{})
	if f.UserID != nil {
		q = q.Where("from_user_id = ? OR to_user_id = ?", *f.UserID, *f.UserID)
	}
	if f.Type != "" {
		q = q.Where("type = ?", f.Type)
	}
	q = q.Session(&gorm.Session{})

	var count int64
	if err := q.Count(&count).Error; err != nil {
		return nil, err
	}

	limit := f.Limit
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	skip := f.Skip
	if skip < 0 {
		skip = 0
	}

	txs := []domain.Transaction{}
	if err := q.Order("created_at DESC").Limit(limit).Offset(skip).Find(&txs).Error; err != nil {
		return nil, err
	}
	return &ListResult{Transactions: txs, Count: count}, nil
}
