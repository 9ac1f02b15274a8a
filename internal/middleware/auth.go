package middleware

import (
	"context"
	"strings"

	"stockhouse-backend/internal/application/auth"
	"stockhouse-backend/internal/pkg/constants"
	"stockhouse-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const (
	userLocal   = "user"
	claimsLocal = "claims"
)

// TokenVerifier validates a raw bearer token.
type TokenVerifier interface {
	Verify(ctx context.Context, raw string) (*auth.Claims, error)
}

// RequireAuth accepts "Authorization: Bearer <token>" and stores the caller in Locals.
// Missing, malformed, expired or revoked tokens get 401.
func RequireAuth(tokens TokenVerifier) fiber.Handler {
	return func(c *fiber.Ctx) error {
		header := c.Get(fiber.HeaderAuthorization)
		raw, ok := strings.CutPrefix(header, "Bearer ")
		raw = strings.TrimSpace(raw)
		if !ok || raw == "" {
			return response.Unauthorized(c, "Unauthorized")
		}
		claims, err := tokens.Verify(c.Context(), raw)
		if err != nil {
			return response.Unauthorized(c, "Invalid or expired token")
		}
		SetClaims(c, claims)
		return c.Next()
	}
}

// SetClaims stores verified claims and the derived user map used by handlers.
func SetClaims(c *fiber.Ctx, claims *auth.Claims) {
	c.Locals(claimsLocal, claims)
	c.Locals(userLocal, map[string]interface{}{
		"user_id": claims.Subject,
		"role":    claims.Role,
		"jti":     claims.ID,
	})
}

// GetUser returns the authenticated user map from Locals (nil if none).
func GetUser(c *fiber.Ctx) interface{} {
	return c.Locals(userLocal)
}

// GetClaims returns the verified token claims, if any.
func GetClaims(c *fiber.Ctx) *auth.Claims {
	claims, _ := c.Locals(claimsLocal).(*auth.Claims)
	return claims
}

// Actor is the authenticated caller.
type Actor struct {
	UserID uuid.UUID
	Role   string
}

func (a *Actor) IsAdmin() bool {
	return a != nil && a.Role == constants.Admin
}

// CanActFor reports whether the actor may operate on userID's account.
func (a *Actor) CanActFor(userID uuid.UUID) bool {
	return a != nil && (a.UserID == userID || a.IsAdmin())
}

// GetActor extracts the caller from Locals; nil when unauthenticated or malformed.
func GetActor(c *fiber.Ctx) *Actor {
	m, ok := GetUser(c).(map[string]interface{})
	if !ok {
		return nil
	}
	raw, _ := m["user_id"].(string)
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil
	}
	role, _ := m["role"].(string)
	return &Actor{UserID: id, Role: role}
}

// TargetAccount resolves the account a request operates on: the caller when raw is empty,
// otherwise raw if the caller may act for it. Failures are *fiber.Error values for ErrorHandler.
func TargetAccount(c *fiber.Ctx, raw string) (uuid.UUID, error) {
	actor := GetActor(c)
	if actor == nil {
		return uuid.Nil, fiber.NewError(fiber.StatusUnauthorized, "Unauthorized")
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return actor.UserID, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fiber.NewError(fiber.StatusBadRequest, "Invalid UUID format for userId")
	}
	if !actor.CanActFor(id) {
		return uuid.Nil, fiber.NewError(fiber.StatusForbidden, "User is Forbidden from performing this action")
	}
	return id, nil
}
