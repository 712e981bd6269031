package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/districtcms/backend/internal/apperr"
	"github.com/districtcms/backend/internal/middleware"
	"github.com/districtcms/backend/internal/repository"
	"github.com/districtcms/backend/internal/token"
	"github.com/districtcms/backend/pkg/models"
)

// requireAuth fetches the request's validated claims or fails with
// Unauthorized.
func requireAuth(c *fiber.Ctx) (*token.Claims, error) {
	claims, ok := middleware.Claims(c)
	if !ok {
		return nil, apperr.New(apperr.KindUnauthorized, "authentication required")
	}
	return claims, nil
}

// requireCourtRole authenticates the caller and resolves the role they hold
// in the tenant header's court: admins hold the top of the ladder
// unconditionally, everyone else must have a membership row for that exact
// court. A caller with no membership sees NotFound rather than Forbidden,
// so a court's existence and another user's membership can't be probed.
func requireCourtRole(c *fiber.Ctx) (models.CourtID, models.Role, error) {
	claims, err := requireAuth(c)
	if err != nil {
		return "", "", err
	}
	courtID, ok := middleware.CourtID(c)
	if !ok {
		return "", "", apperr.New(apperr.KindBadRequest, "missing "+middleware.CourtHeader+" header")
	}
	if claims.Role == models.RoleAdmin {
		return courtID, models.RoleAdmin, nil
	}
	role, ok := claims.CourtRoles[courtID]
	if !ok {
		return "", "", apperr.NotFound("court")
	}
	return courtID, role, nil
}

// page reads page/limit query params and clamps them via repository.NewPage.
func page(c *fiber.Ctx) repository.Page {
	return repository.NewPage(c.QueryInt("page", 1), c.QueryInt("limit", 20))
}
