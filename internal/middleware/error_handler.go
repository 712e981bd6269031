package middleware

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/rs/zerolog"

	"github.com/districtcms/backend/internal/apperr"
)

// ErrorHandler builds a Fiber ErrorHandler that converts any error returned
// by a handler — an *apperr.Error, a *fiber.Error, or anything else — into
// the stable {kind, message, field_errors} envelope, logging at a level
// matched to severity.
func ErrorHandler(logger zerolog.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		id := ""
		if v := c.Locals(requestid.ConfigDefault.ContextKey); v != nil {
			id, _ = v.(string)
		}

		var fiberErr *fiber.Error
		var appErr *apperr.Error
		switch e := err.(type) {
		case *apperr.Error:
			appErr = e
		default:
			if asFiberErr, ok := err.(*fiber.Error); ok {
				fiberErr = asFiberErr
				appErr = fiberErrToAppErr(fiberErr)
			} else {
				appErr = apperr.As(err)
			}
		}

		event := logger.Info()
		if appErr.Status() >= 500 {
			event = logger.Error()
		}
		event.Str("request_id", id).Str("path", c.Path()).Str("method", c.Method()).
			Int("status", appErr.Status()).Err(err).Msg("request failed")

		return c.Status(appErr.Status()).JSON(appErr)
	}
}

func fiberErrToAppErr(fe *fiber.Error) *apperr.Error {
	switch fe.Code {
	case fiber.StatusNotFound:
		return apperr.New(apperr.KindNotFound, fe.Message)
	case fiber.StatusBadRequest:
		return apperr.New(apperr.KindBadRequest, fe.Message)
	case fiber.StatusUnauthorized:
		return apperr.New(apperr.KindUnauthorized, fe.Message)
	case fiber.StatusForbidden:
		return apperr.New(apperr.KindForbidden, fe.Message)
	case fiber.StatusConflict:
		return apperr.New(apperr.KindConflict, fe.Message)
	case fiber.StatusTooManyRequests:
		return apperr.New(apperr.KindRateLimited, fe.Message)
	default:
		return apperr.New(apperr.KindInternalError, fe.Message)
	}
}
