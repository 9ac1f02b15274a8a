package middleware

import (
	"errors"

	"stockhouse-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
)

// ErrorHandler renders errors that escape handlers in the error envelope. *fiber.Error keeps
// its code and message; anything else is a logged 500 whose details carry the trace id.
func ErrorHandler(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) && fe.Code < fiber.StatusInternalServerError {
		return response.Error(c, fe.Message, fe.Code, nil)
	}

	code, message := fiber.StatusInternalServerError, "Internal Server Error"
	if fe != nil {
		code, message = fe.Code, fe.Message
	}
	traceID := GetTraceID(c)
	log.Error().Err(err).Str("trace_id", traceID).Str("path", c.Path()).Int("status", code).Msg("request failed")
	details := map[string]interface{}{}
	if traceID != "" {
		details["traceId"] = traceID
	}
	return response.Error(c, message, code, details)
}
