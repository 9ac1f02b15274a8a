package domain

import (
	"time"

	"stockhouse-backend/internal/pkg/constants"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Account is a registered user with a demo-money wallet.
type Account struct {
	AccountID    uuid.UUID  `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	FirstName    string     `gorm:"column:first_name;not null" json:"firstName"`
	LastName     string     `gorm:"column:last_name;not null" json:"lastName"`
	Email        string     `gorm:"column:email;not null;uniqueIndex" json:"email"`
	PasswordHash string     `gorm:"column:password_hash;not null" json:"-"`
	Role         string     `gorm:"column:role;type:varchar(20);not null;default:investor" json:"userType"`
	Balance      float64    `gorm:"column:balance;type:decimal(18,2);not null;default:0" json:"balance"`
	LastLoginAt  *time.Time `gorm:"column:last_login_at" json:"lastLoginAt"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

func (Account) TableName() string {
	return "accounts"
}

func (a *Account) BeforeCreate(tx *gorm.DB) error {
	if a.AccountID == uuid.Nil {
		a.AccountID = uuid.New()
	}
	return nil
}

// CanClaimResidency reports whether the account may buy past the per-user cap as the occupant.
func (a *Account) CanClaimResidency() bool {
	return a.Role == constants.Homeowner || a.Role == constants.Admin
}
