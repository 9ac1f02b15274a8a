package middleware

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// RouteLogger writes one line when a request arrives and one when it completes. Completion is
// logged at warn for 4xx and error for 5xx.
func RouteLogger() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		reqLog := log.With().
			Str("trace_id", traceIDOrPlaceholder(c)).
			Str("method", c.Method()).
			Str("path", c.Path()).
			Logger()
		reqLog.Debug().Msg("request started")

		err := c.Next()

		status := c.Response().StatusCode()
		if err != nil {
			if fe, ok := err.(*fiber.Error); ok {
				status = fe.Code
			} else {
				status = fiber.StatusInternalServerError
			}
		}
		reqLog.WithLevel(levelForStatus(status)).
			Int("status", status).
			Dur("elapsed", time.Since(start)).
			Msg("request completed")
		return err
	}
}

func levelForStatus(status int) zerolog.Level {
	switch {
	case status >= 500:
		return zerolog.ErrorLevel
	case status >= 400:
		return zerolog.WarnLevel
	default:
		return zerolog.InfoLevel
	}
}

func traceIDOrPlaceholder(c *fiber.Ctx) string {
	if id := GetTraceID(c); id != "" {
		return id
	}
	return "no-trace-id"
}
