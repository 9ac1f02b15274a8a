package middleware

import (
	"strconv"
	"strings"

	"stockhouse-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

const (
	devPasswordHeader    = "dev-password"
	idempotencyKeyHeader = "Idempotency-Key"
	corsMaxAge           = 600
)

var (
	corsMethods = strings.Join([]string{fiber.MethodGet, fiber.MethodPost, fiber.MethodPut, fiber.MethodDelete, fiber.MethodOptions}, ", ")
	corsHeaders = strings.Join([]string{fiber.HeaderContentType, fiber.HeaderAuthorization, idempotencyKeyHeader, devPasswordHeader}, ", ")
)

// CORSConfig selects which browser origins may call the API.
type CORSConfig struct {
	AllowedSuffix string // e.g. ".stockhouse.app"
	DevPassword   string
}

// CORS admits requests without an Origin, local dev origins, origins under AllowedSuffix and
// callers presenting DevPassword. Anything else gets 403. Preflights from admitted origins end here.
func CORS(cfg CORSConfig) fiber.Handler {
	suffix := strings.ToLower(cfg.AllowedSuffix)
	return func(c *fiber.Ctx) error {
		origin := c.Get(fiber.HeaderOrigin)
		if origin == "" {
			return c.Next()
		}
		if !originAllowed(c, origin, suffix, cfg.DevPassword) {
			return response.Error(c, "Not allowed by CORS", fiber.StatusForbidden, map[string]interface{}{})
		}

		c.Set(fiber.HeaderAccessControlAllowOrigin, origin)
		c.Set(fiber.HeaderAccessControlAllowCredentials, "true")
		c.Set(fiber.HeaderAccessControlExposeHeaders, traceIDHeader)
		c.Vary(fiber.HeaderOrigin)
		if c.Method() == fiber.MethodOptions {
			c.Set(fiber.HeaderAccessControlAllowMethods, corsMethods)
			c.Set(fiber.HeaderAccessControlAllowHeaders, corsHeaders)
			c.Set(fiber.HeaderAccessControlMaxAge, strconv.Itoa(corsMaxAge))
			return c.SendStatus(fiber.StatusNoContent)
		}
		return c.Next()
	}
}

func originAllowed(c *fiber.Ctx, origin, suffix, devPassword string) bool {
	if strings.HasPrefix(origin, "http://localhost:") || strings.HasPrefix(origin, "http://127.0.0.1:") {
		return true
	}
	if suffix != "" && strings.HasSuffix(strings.ToLower(origin), suffix) {
		return true
	}
	return devPassword != "" && c.Get(devPasswordHeader) == devPassword
}
