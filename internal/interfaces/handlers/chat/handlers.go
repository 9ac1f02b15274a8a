package chat

import (
	"errors"

	"stockhouse-backend/internal/application/advisor"
	"stockhouse-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

type Handlers struct {
	Advisor *advisor.Service
}

type chatRequest struct {
	Message string                 `json:"message"`
	Context map[string]interface{} `json:"context"`
}

// Chat POST /chat {message, context?}
func (h *Handlers) Chat(c *fiber.Ctx) error {
	var body chatRequest
	if err := c.BodyParser(&body); err != nil {
		return response.Error(c, advisor.ErrMessageRequired.Error(), fiber.StatusBadRequest, nil)
	}
	reply, err := h.Advisor.Reply(c.Context(), body.Message, body.Context)
	switch {
	case err == nil:
		return response.Success(c, "Reply generated", fiber.Map{"reply": reply}, nil)
	case errors.Is(err, advisor.ErrMessageRequired):
		return response.Error(c, err.Error(), fiber.StatusBadRequest, nil)
	case errors.Is(err, advisor.ErrNotConfigured):
		return response.Error(c, err.Error(), fiber.StatusServiceUnavailable, nil)
	}
	return response.Error(c, advisor.ErrUnavailable.Error(), fiber.StatusInternalServerError, fiber.Map{"reply": advisor.ErrUnavailable.Error()})
}
