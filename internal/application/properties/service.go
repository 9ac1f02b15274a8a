package properties

import (
	"context"
	"errors"

	"stockhouse-backend/internal/application/dataset"
	"stockhouse-backend/internal/domain"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var (
	ErrPropertyNotFound = errors.New("Property not found")
	ErrNoRows           = errors.New("rows must be a non-empty array")
	ErrInvalidShares    = errors.New("totalShares and perUserShareCap must be positive")
	ErrInvalidStatus    = errors.New("status must be active, paused or fully_allocated")
)

const (
	defaultPageSize = 50
	maxPageSize     = 200
)

// Service is the property catalog.
type Service struct {
	DB *gorm.DB
}

type ListFilter struct {
	Status string
	Limit  int
	Skip   int
}

type ListResult struct {
	Properties []domain.Property `json:"properties"`
	Count      int64             `json:"count"`
}

// IngestInput carries raw dataset rows plus the share structure for new listings.
type IngestInput struct {
	Rows            []dataset.Row
	TotalShares     int64
	PerUserShareCap int64
}

type IngestResult struct {
	Ingested int `json:"ingested"`
	Created  int `json:"created"`
	Updated  int `json:"updated"`
	Skipped  int `json:"skipped"`
}

// List returns properties newest first.
func (s *Service) List(ctx context.Context, f ListFilter) (*ListResult, error) {
	q := s.DB.WithContext(ctx).Model(&domain.Property{})
	if f.Status != "" {
		switch f.Status {
		case domain.PropertyActive, domain.PropertyPaused, domain.PropertyFullyAllocated:
		default:
			return nil, ErrInvalidStatus
		}
		q = q.Where("status = ?", f.Status)
	}
	q = q.Session(&gorm.Session{})

	var count int64
	if err := q.Count(&count).Error; err != nil {
		return nil, err
	}
	limit := f.Limit
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	skip := f.Skip
	if skip < 0 {
		skip = 0
	}
	props := []domain.Property{}
	if err := q.Order("created_at DESC").Limit(limit).Offset(skip).Find(&props).Error; err != nil {
		return nil, err
	}
	return &ListResult{Properties: props, Count: count}, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*domain.Property, error) {
	var p domain.Property
	if err := s.DB.WithContext(ctx).Where("id = ?", id).First(&p).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPropertyNotFound
		}
		return nil, err
	}
	return &p, nil
}

// Ingest upserts listings by external id. New rows get the share structure; existing rows
// only have their valuation and share price refreshed, so sold shares are never reset.
func (s *Service) Ingest(ctx context.Context, in IngestInput) (*IngestResult, error) {
	if len(in.Rows) == 0 {
		return nil, ErrNoRows
	}
	if in.TotalShares == 0 {
		in.TotalShares = domain.DefaultTotalShares
	}
	if in.PerUserShareCap == 0 {
		in.PerUserShareCap = domain.DefaultPerUserShareCap
	}
	if in.TotalShares < 0 || in.PerUserShareCap < 0 {
		return nil, ErrInvalidShares
	}

	out := &IngestResult{}
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, row := range in.Rows {
			l, ok := row.Listing()
			if !ok {
				out.Skipped++
				continue
			}
			created, err := upsertListing(tx, l, in.TotalShares, in.PerUserShareCap)
			if err != nil {
				return err
			}
			if created {
				out.Created++
			} else {
				out.Updated++
			}
			out.Ingested++
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	log.Info().Int("created", out.Created).Int("updated", out.Updated).Int("skipped", out.Skipped).Msg("listings ingested")
	return out, nil
}

func upsertListing(tx *gorm.DB, l dataset.Listing, totalShares, perUserCap int64) (bool, error) {
	valuation := decimal.NewFromFloat(l.Valuation).Round(2)

	var existing domain.Property
	err := tx.Where("external_property_id = ?", l.ExternalID).First(&existing).Error
	if err == nil {
		price := decimal.Zero
		if existing.TotalShares > 0 {
			price = valuation.Div(decimal.NewFromInt(existing.TotalShares)).Round(6)
		}
		return false, tx.Model(&domain.Property{}).Where("id = ?", existing.PropertyID).Updates(map[string]interface{}{
			"valuation":   valuation.InexactFloat64(),
			"share_price": price.InexactFloat64(),
		}).Error
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return false, err
	}
	return true, tx.Create(&domain.Property{
		ExternalPropertyID: l.ExternalID,
		Address:            l.Address,
		City:               l.City,
		State:              l.State,
		Zip:                l.Zip,
		Valuation:          valuation.InexactFloat64(),
		TotalShares:        totalShares,
		AvailableShares:    totalShares,
		SharePrice:         valuation.Div(decimal.NewFromInt(totalShares)).Round(6).InexactFloat64(),
		PerUserShareCap:    perUserCap,
		Status:             domain.PropertyActive,
	}).Error
}

// Clear deletes every property together with the holdings that reference them.
func (s *Service) Clear(ctx context.Context) (int64, error) {
	var deleted int64
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&domain.Holding{}).Error; err != nil {
			return err
		}
		res := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&domain.Property{})
		if res.Error != nil {
			return res.Error
		}
		deleted = res.RowsAffected
		return nil
	})
	if err != nil {
		return 0, err
	}
	log.Warn().Int64("deleted", deleted).Msg("all properties cleared")
	return deleted, nil
}

// ActiveInvestors counts distinct users holding shares, optionally limited to propertyIDs.
func (s *Service) ActiveInvestors(ctx context.Context, propertyIDs []uuid.UUID) (int64, error) {
	q := s.DB.WithContext(ctx).Model(&domain.Holding{}).Where("shares_owned > 0")
	if len(propertyIDs) > 0 {
		q = q.Where("property_id IN ?", propertyIDs)
	}
	var users []uuid.UUID
	if err := q.Distinct().Pluck("user_id", &users).Error; err != nil {
		return 0, err
	}
	return int64(len(users)), nil
}
