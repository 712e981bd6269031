package middleware

import (
	"github.com/gofiber/fiber/v2"

	"github.com/districtcms/backend/internal/apperr"
	"github.com/districtcms/backend/pkg/models"
)

const (
	CourtHeader      = "X-Court-District"
	localsCourtID    = "tenant:court_id"
)

// Tenant reads the mandatory X-Court-District header and stores it in
// locals for handlers to consume. Admin-only routes that never touch
// tenant-scoped data should not mount this middleware.
func Tenant() fiber.Handler {
	return func(c *fiber.Ctx) error {
		header := c.Get(CourtHeader)
		if header == "" {
			return apperr.New(apperr.KindBadRequest, "missing "+CourtHeader+" header")
		}
		c.Locals(localsCourtID, models.CourtID(header))
		return c.Next()
	}
}

// CourtID returns the tenant id extracted by Tenant.
func CourtID(c *fiber.Ctx) (models.CourtID, bool) {
	v := c.Locals(localsCourtID)
	if v == nil {
		return "", false
	}
	id, ok := v.(models.CourtID)
	return id, ok
}

// RequireCourtAccess enforces the membership access rule: admins pass
// unconditionally; everyone else must present the tenant header, hold
// exactly the clerk role in that court, and target that same court. Any
// mismatch surfaces as NotFound, never Forbidden, so a caller cannot probe
// for a court's existence or another user's role.
func RequireCourtAccess(c *fiber.Ctx, targetCourt models.CourtID) error {
	claims, ok := Claims(c)
	if !ok {
		return apperr.New(apperr.KindUnauthorized, "authentication required")
	}
	if claims.Role == models.RoleAdmin {
		return nil
	}

	courtID, ok := CourtID(c)
	if !ok {
		return apperr.NotFound("court")
	}
	role, ok := claims.CourtRoles[courtID]
	if !ok || role != models.RoleClerk {
		return apperr.NotFound("court")
	}
	if courtID != targetCourt {
		return apperr.NotFound("court")
	}
	return nil
}
