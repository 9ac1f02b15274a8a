package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// DenylistPrefix is the Redis key prefix for revoked token ids.
const DenylistPrefix = "auth:denylist:"

var ErrTokenRevoked = errors.New("token has been revoked")

// Claims carried by every issued token. Subject is the account id.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// AccountID parses the subject claim.
func (c *Claims) AccountID() (uuid.UUID, error) {
	return uuid.Parse(c.Subject)
}

// Tokens issues and verifies HS256 bearer tokens. Revocation is tracked in
// Redis until the token's own expiry; a nil Redis client disables revocation.
type Tokens struct {
	secret []byte
	rdb    *redis.Client
	now    func() time.Time
}

func NewTokens(secret string, rdb *redis.Client) *Tokens {
	return &Tokens{secret: []byte(secret), rdb: rdb, now: time.Now}
}

// Issue signs a token for the account valid for ttl.
func (t *Tokens) Issue(accountID uuid.UUID, role string, ttl time.Duration) (string, error) {
	now := t.now()
	claims := Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   accountID.String(),
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
}

// Verify checks signature, expiry and revocation.
func (t *Tokens) Verify(ctx context.Context, raw string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return t.secret, nil
	}, jwt.WithTimeFunc(t.now))
	if err != nil {
		return nil, err
	}
	if _, err := claims.AccountID(); err != nil {
		return nil, fmt.Errorf("invalid subject: %w", err)
	}
	if t.rdb == nil || claims.ID == "" {
		return claims, nil
	}
	n, err := t.rdb.Exists(ctx, DenylistPrefix+claims.ID).Result()
	if err != nil {
		// Tokens are short lived; an unreachable denylist does not lock everyone out.
		log.Warn().Err(err).Msg("token denylist lookup failed")
		return claims, nil
	}
	if n > 0 {
		return nil, ErrTokenRevoked
	}
	return claims, nil
}

// Revoke denylists the token id until the token would have expired anyway.
func (t *Tokens) Revoke(ctx context.Context, claims *Claims) error {
	if t.rdb == nil || claims == nil || claims.ID == "" {
		return nil
	}
	ttl := time.Minute
	if claims.ExpiresAt != nil {
		ttl = claims.ExpiresAt.Sub(t.now())
	}
	if ttl <= 0 {
		return nil
	}
	return t.rdb.Set(ctx, DenylistPrefix+claims.ID, 1, ttl).Err()
}
