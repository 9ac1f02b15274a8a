package oracle

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"

	"stockhouse-backend/internal/domain"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/semaphore"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var (
	ErrPropertyNotFound  = errors.New("Property not found")
	ErrOracleUnavailable = errors.New("Oracle Sync Failed")
)

const maxLogLines = 20

// Bridge refreshes a property's valuation from the external oracle.
type Bridge struct {
	DB     *gorm.DB
	Runner Runner
	sem    *semaphore.Weighted
}

// NewBridge bounds the number of oracle processes running at once.
func NewBridge(db *gorm.DB, runner Runner, maxConcurrent int64) *Bridge {
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}
	return &Bridge{DB: db, Runner: runner, sem: semaphore.NewWeighted(maxConcurrent)}
}

// Valuation is the oracle's answer.
type Valuation struct {
	OldValuation *float64 `json:"oldValuation"`
	NewValuation *float64 `json:"newValuation"`
	Appreciation *float64 `json:"appreciation"`
}

type SyncResult struct {
	PropertyID         uuid.UUID `json:"propertyId"`
	ExternalPropertyID string    `json:"externalPropertyId"`
	OldValuation       float64   `json:"oldValuation"`
	NewValuation       float64   `json:"newValuation"`
	Appreciation       float64   `json:"appreciation"`
	SharePrice         float64   `json:"sharePrice"`
	TransactionID      uuid.UUID `json:"transactionId"`
	Log                []string  `json:"log"`
}

// Sync runs the oracle for the property and persists the new valuation. Any oracle failure
// leaves the property untouched.
func (b *Bridge) Sync(ctx context.Context, propertyID uuid.UUID) (*SyncResult, error) {
	var prop domain.Property
	if err := b.DB.WithContext(ctx).Where("id = ?", propertyID).First(&prop).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPropertyNotFound
		}
		return nil, err
	}

	out, err := b.run(ctx, prop.ExternalPropertyID)
	if err != nil {
		log.Warn().Err(err).Str("property_id", propertyID.String()).Msg("oracle run failed")
		return nil, fmt.Errorf("%w: %v", ErrOracleUnavailable, err)
	}
	val, logLines, err := ParseOutput(out)
	if err != nil {
		log.Warn().Err(err).Str("property_id", propertyID.String()).Msg("oracle output rejected")
		return nil, fmt.Errorf("%w: %v", ErrOracleUnavailable, err)
	}

	newVal := decimal.NewFromFloat(*val.NewValuation)
	oldVal := decimal.NewFromFloat(prop.Valuation)
	if val.OldValuation != nil {
		oldVal = decimal.NewFromFloat(*val.OldValuation)
	}
	appreciation := decimal.Zero
	if val.Appreciation != nil {
		appreciation = decimal.NewFromFloat(*val.Appreciation)
	} else if oldVal.IsPositive() {
		appreciation = newVal.Sub(oldVal).Div(oldVal).Mul(decimal.NewFromInt(100)).Round(2)
	}
	sharePrice := decimal.Zero
	if prop.TotalShares > 0 {
		sharePrice = newVal.Div(decimal.NewFromInt(prop.TotalShares)).Round(6)
	}

	result := &SyncResult{
		PropertyID:         prop.PropertyID,
		ExternalPropertyID: prop.ExternalPropertyID,
		OldValuation:       oldVal.InexactFloat64(),
		NewValuation:       newVal.InexactFloat64(),
		Appreciation:       appreciation.InexactFloat64(),
		SharePrice:         sharePrice.InexactFloat64(),
		TransactionID:      uuid.New(),
		Log:                logLines,
	}
	err = b.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&domain.Property{}).Where("id = ?", prop.PropertyID).Updates(map[string]interface{}{
			"valuation":   result.NewValuation,
			"share_price": result.SharePrice,
		})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrPropertyNotFound
		}
		meta, err := json.Marshal(map[string]interface{}{
			"oldValuation": result.OldValuation,
			"newValuation": result.NewValuation,
			"appreciation": result.Appreciation,
		})
		if err != nil {
			return err
		}
		return tx.Create(&domain.Transaction{
			TxID:          result.TransactionID,
			Type:          domain.TxValuationSync,
			PropertyID:    &prop.PropertyID,
			PricePerShare: result.SharePrice,
			Amount:        result.NewValuation,
			Metadata:      datatypes.JSON(meta),
		}).Error
	})
	if err != nil {
		return nil, err
	}
	log.Info().
		Str("property_id", prop.PropertyID.String()).
		Float64("old", result.OldValuation).
		Float64("new", result.NewValuation).
		Msg("valuation synced")
	return result, nil
}

// run acquires a slot and invokes the oracle, retrying once after a timeout.
func (b *Bridge) run(ctx context.Context, externalID string) ([]byte, error) {
	if err := b.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer b.sem.Release(1)

	out, err := b.Runner.Run(ctx, externalID)
	if errors.Is(err, ErrTimeout) && ctx.Err() == nil {
		log.Warn().Str("external_id", externalID).Msg("oracle timed out, retrying once")
		out, err = b.Runner.Run(ctx, externalID)
	}
	return out, err
}

// ParseOutput reads a single JSON object from stdout. The object may span several lines and may
// be preceded by log lines, which are returned separately. Anything after the object is an error.
func ParseOutput(out []byte) (*Valuation, []string, error) {
	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	payload := -1
	var v Valuation
	decodeErr := errors.New("no JSON object in oracle output")
	for i := len(lines) - 1; i >= 0; i-- {
		if !strings.HasPrefix(strings.TrimSpace(lines[i]), "{") {
			continue
		}
		var candidate Valuation
		if err := json.Unmarshal([]byte(strings.Join(lines[i:], "\n")), &candidate); err != nil {
			decodeErr = fmt.Errorf("decode oracle output: %w", err)
			continue
		}
		v, payload = candidate, i
		break
	}
	if payload < 0 {
		return nil, nil, decodeErr
	}
	if v.NewValuation == nil {
		return nil, nil, errors.New("oracle output missing newValuation")
	}
	if !validAmount(*v.NewValuation) || *v.NewValuation <= 0 {
		return nil, nil, fmt.Errorf("invalid newValuation %v", *v.NewValuation)
	}
	if v.OldValuation != nil && !validAmount(*v.OldValuation) {
		return nil, nil, fmt.Errorf("invalid oldValuation %v", *v.OldValuation)
	}

	logLines := make([]string, 0, payload)
	for _, l := range lines[:payload] {
		if l = strings.TrimSpace(l); l != "" {
			logLines = append(logLines, l)
		}
	}
	if len(logLines) > maxLogLines {
		logLines = logLines[len(logLines)-maxLogLines:]
	}
	return &v, logLines, nil
}

func validAmount(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0) && f >= 0
}
