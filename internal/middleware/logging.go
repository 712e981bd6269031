package middleware

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/rs/zerolog"
)

// RequestLogger logs one structured line per request: method, path, status,
// latency, request id, and (when Tenant ran first) the court id.
func RequestLogger(logger zerolog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		latency := time.Since(start)

		id := ""
		if v := c.Locals(requestid.ConfigDefault.ContextKey); v != nil {
			id, _ = v.(string)
		}
		courtID, _ := CourtID(c)

		logger.Info().
			Str("request_id", id).
			Str("court_id", string(courtID)).
			Str("method", c.Method()).
			Str("path", c.Path()).
			Int("status", c.Response().StatusCode()).
			Dur("latency", latency).
			Str("ip", c.IP()).
			Msg("request")

		return err
	}
}
