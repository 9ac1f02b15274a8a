package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"stockhouse-backend/internal/domain"
	"stockhouse-backend/internal/pkg/constants"
	"stockhouse-backend/internal/pkg/validation"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const defaultBcryptCost = 12

// Service handles signup, login and profile lookups.
type Service struct {
	DB         *gorm.DB
	Tokens     *Tokens
	SignupTTL  time.Duration
	LoginTTL   time.Duration
	BcryptCost int
}

// SignupInput for POST /auth/signup.
type SignupInput struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	UserType  string `json:"userType"`
}

// LoginInput for POST /auth/login.
type LoginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Session is returned by signup and login.
type Session struct {
	Token    string    `json:"token"`
	UserID   uuid.UUID `json:"userId"`
	UserType string    `json:"userType"`
}

// Profile is the authenticated account with its derived investments.
type Profile struct {
	domain.Account
	Investments []domain.Investment `json:"investments"`
}

// Signup creates an investor or homeowner account and returns a token for it.
func (s *Service) Signup(ctx context.Context, in SignupInput) (*Session, error) {
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	in.Email = validation.NormalizeEmail(in.Email)
	in.UserType = strings.TrimSpace(in.UserType)
	if in.UserType == "" {
		in.UserType = constants.Investor
	}
	if in.FirstName == "" || in.LastName == "" || in.Email == "" || in.Password == "" {
		return nil, ErrMissingFields
	}
	if !validation.IsValidEmail(in.Email) {
		return nil, ErrInvalidEmail
	}
	if !validation.IsValidName(in.FirstName) || !validation.IsValidName(in.LastName) {
		return nil, ErrInvalidName
	}
	if !validation.IsValidPassword(in.Password) {
		return nil, ErrWeakPassword
	}
	if !constants.IsSelfAssignable(in.UserType) {
		return nil, ErrRoleNotAllowed
	}

	exists, err := s.emailTaken(ctx, in.Email)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrUserExists
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.cost())
	if err != nil {
		return nil, err
	}
	acc := domain.Account{
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		Email:        in.Email,
		PasswordHash: string(hash),
		Role:         in.UserType,
	}
	if err := s.DB.WithContext(ctx).Create(&acc).Error; err != nil {
		// Lost a race on the unique email index.
		if taken, _ := s.emailTaken(ctx, in.Email); taken {
			return nil, ErrUserExists
		}
		return nil, err
	}
	log.Info().Str("user_id", acc.AccountID.String()).Str("role", acc.Role).Msg("account created")
	return s.session(acc, s.SignupTTL)
}

// Login verifies credentials. Unknown email and wrong password are indistinguishable.
func (s *Service) Login(ctx context.Context, in LoginInput) (*Session, error) {
	email := validation.NormalizeEmail(in.Email)
	if email == "" || in.Password == "" {
		return nil, ErrEmailPasswordRequired
	}
	var acc domain.Account
	if err := s.DB.WithContext(ctx).Where("email = ?", email).First(&acc).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(acc.PasswordHash), []byte(in.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	now := time.Now().UTC()
	if err := s.DB.WithContext(ctx).Model(&domain.Account{}).
		Where("id = ?", acc.AccountID).
		Update("last_login_at", now).Error; err != nil {
		return nil, err
	}
	return s.session(acc, s.LoginTTL)
}

// UserType returns only the role of an account.
func (s *Service) UserType(ctx context.Context, id uuid.UUID) (string, error) {
	acc, err := s.FindAccount(ctx, id)
	if err != nil {
		return "", err
	}
	return acc.Role, nil
}

func (s *Service) FindAccount(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	var acc domain.Account
	if err := s.DB.WithContext(ctx).Where("id = ?", id).First(&acc).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &acc, nil
}

// Profile returns the account and one investment per non-empty holding.
func (s *Service) Profile(ctx context.Context, id uuid.UUID) (*Profile, error) {
	acc, err := s.FindAccount(ctx, id)
	if err != nil {
		return nil, err
	}
	var holdings []domain.Holding
	if err := s.DB.WithContext(ctx).
		Where("user_id = ? AND shares_owned > 0", id).
		Order("created_at").
		Find(&holdings).Error; err != nil {
		return nil, err
	}
	totals := make(map[uuid.UUID]int64, len(holdings))
	if len(holdings) > 0 {
		ids := make([]uuid.UUID, 0, len(holdings))
		for _, h := range holdings {
			ids = append(ids, h.PropertyID)
		}
		var props []domain.Property
		if err := s.DB.WithContext(ctx).Select("id", "total_shares").Where("id IN ?", ids).Find(&props).Error; err != nil {
			return nil, err
		}
		for _, p := range props {
			totals[p.PropertyID] = p.TotalShares
		}
	}
	out := &Profile{Account: *acc, Investments: make([]domain.Investment, 0, len(holdings))}
	for _, h := range holdings {
		out.Investments = append(out.Investments, domain.NewInvestment(h, totals[h.PropertyID]))
	}
	return out, nil
}

// Logout revokes the presented token.
func (s *Service) Logout(ctx context.Context, claims *Claims) error {
	if claims == nil {
		return ErrNotAuthenticated
	}
	return s.Tokens.Revoke(ctx, claims)
}

func (s *Service) session(acc domain.Account, ttl time.Duration) (*Session, error) {
	if ttl <= 0 {
		ttl = time.Hour
	}
	token, err := s.Tokens.Issue(acc.AccountID, acc.Role, ttl)
	if err != nil {
		return nil, err
	}
	return &Session{Token: token, UserID: acc.AccountID, UserType: acc.Role}, nil
}

func (s *Service) emailTaken(ctx context.Context, email string) (bool, error) {
	var n int64
	if err := s.DB.WithContext(ctx).Model(&domain.Account{}).Where("email = ?", email).Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *Service) cost() int {
	if s.BcryptCost > 0 {
		return s.BcryptCost
	}
	return defaultBcryptCost
}
