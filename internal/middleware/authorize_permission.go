package middleware

import (
	"stockhouse-backend/internal/constants"
	"stockhouse-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
)

// AuthorizePermission admits the caller when their role is listed for permission. It must run
// after RequireAuth.
func AuthorizePermission(permission string) fiber.Handler {
	configured := len(constants.PermissionRoles[permission]) > 0
	if !configured {
		log.Error().Str("permission", permission).Msg("route guarded by a permission with no roles")
	}
	return func(c *fiber.Ctx) error {
		role, authenticated := callerRole(c)
		switch {
		case !authenticated:
			return response.Unauthorized(c, "Unauthorized")
		case role == "":
			return response.Error(c, "Authorization error", fiber.StatusInternalServerError, nil)
		case !configured:
			return response.Error(c, "Permission configuration error", fiber.StatusInternalServerError, nil)
		case !constants.AllowedRole(permission, role):
			return response.Error(c, "User is Forbidden from performing this action", fiber.StatusForbidden, nil)
		}
		return c.Next()
	}
}

func callerRole(c *fiber.Ctx) (string, bool) {
	m, ok := GetUser(c).(map[string]interface{})
	if !ok {
		return "", false
	}
	role, _ := m["role"].(string)
	return role, true
}
