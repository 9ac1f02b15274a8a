package health

import (
	healthsvc "stockhouse-backend/internal/application/health"
	"stockhouse-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

const serviceName = "stockhouse-api"

// Handlers holds dependencies for health endpoints.
type Handlers struct {
	Checker        *healthsvc.Checker
	HealthAdminKey string
}

// Reset clears health stats in Redis. Requires query key=HEALTH_ADMIN_KEY.
func (h *Handlers) Reset(c *fiber.Ctx) error {
	key := c.Query("key")
	if key == "" || key != h.HealthAdminKey {
		return response.Error(c, "Unauthorized", fiber.StatusForbidden, nil)
	}
	if h.Checker.Rdb == nil {
		return response.Error(c, "Redis not configured", fiber.StatusServiceUnavailable, nil)
	}
	if err := h.Checker.Reset(c.Context()); err != nil {
		return response.Internal(c, err)
	}
	return response.Success(c, "Stats reset successfully", fiber.Map{"success": true}, nil)
}

// JSON GET /health/json
func (h *Handlers) JSON(c *fiber.Ctx) error {
	report := h.Checker.Collect(c.Context())
	return c.JSON(fiber.Map{
		"service":      serviceName,
		"status":       report.Status,
		"runtime":      report.Runtime,
		"traffic":      report.Traffic,
		"dependencies": report.Dependencies,
	})
}

// Errors GET /health/errors returns recent 5xx entries.
func (h *Handlers) Errors(c *fiber.Ctx) error {
	entries, err := h.Checker.Errors(c.Context())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON([]interface{}{})
	}
	return c.JSON(entries)
}

// Dashboard GET / renders the status page.
func (h *Handlers) Dashboard(c *fiber.Ctx) error {
	html, err := healthsvc.RenderDashboard(h.Checker.Collect(c.Context()))
	if err != nil {
		return response.Internal(c, err)
	}
	c.Set("Content-Type", "text/html; charset=utf-8")
	return c.SendString(html)
}
