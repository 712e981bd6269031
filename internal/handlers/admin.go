package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/jmoiron/sqlx"

	"github.com/districtcms/backend/internal/apperr"
	"github.com/districtcms/backend/internal/membership"
	"github.com/districtcms/backend/internal/middleware"
	"github.com/districtcms/backend/internal/repository"
	"github.com/districtcms/backend/pkg/models"
)

// AdminHandler implements the role-request lifecycle, the admin direct
// role grant, bar admissions, and court tenant CRUD. Listing and deciding
// role requests use middleware.RequireCourtAccess — the narrower,
// clerk-only membership gate — rather than requireCourtRole, since deciding
// who else holds a role is a clerk/admin privilege, unlike the broader
// business routes any court member may use. The direct role grant is
// restricted to global admins.
type AdminHandler struct {
	db         *sqlx.DB
	membership *membership.Service
}

// NewAdminHandler builds an AdminHandler.
func NewAdminHandler(db *sqlx.DB, membershipSvc *membership.Service) *AdminHandler {
	return &AdminHandler{db: db, membership: membershipSvc}
}

type requestRoleRequest struct {
	RequestedRole models.Role `json:"requested_role"`
}

// RequestRole lets any signed-in user ask to hold a role in the tenant
// header's court. A user need not already hold a role there to ask for
// one, so this does not gate through requireCourtRole.
func (h *AdminHandler) RequestRole(c *fiber.Ctx) error {
	claims, err := requireAuth(c)
	if err != nil {
		return err
	}
	courtID, ok := middleware.CourtID(c)
	if !ok {
		return apperr.New(apperr.KindBadRequest, "missing "+middleware.CourtHeader+" header")
	}

	var req requestRoleRequest
	if err := c.BodyParser(&req); err != nil {
		return apperr.New(apperr.KindBadRequest, "invalid request body")
	}

	result, err := h.membership.Request(c.Context(), claims.Subject, claims.Email, courtID, req.RequestedRole)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(result)
}

// ListPendingRoleRequests returns a court's open role requests for review.
// Clerk role (or global admin) is required.
func (h *AdminHandler) ListPendingRoleRequests(c *fiber.Ctx) error {
	courtID, ok := middleware.CourtID(c)
	if !ok {
		return apperr.New(apperr.KindBadRequest, "missing "+middleware.CourtHeader+" header")
	}
	if err := middleware.RequireCourtAccess(c, courtID); err != nil {
		return err
	}

	result, err := h.membership.ListPending(c.Context(), courtID, page(c))
	if err != nil {
		return err
	}
	return c.JSON(result)
}

type decideRoleRequestRequest struct {
	Approve bool `json:"approve"`
}

// DecideRoleRequest approves or denies a pending request. Clerk role (or
// global admin) is required. The request is loaded first and access is
// checked against the request's own court with RequireCourtAccess, which
// for anyone but a global admin also requires the tenant header to name
// that court; membership.Service.Decide
// itself does no court check.
func (h *AdminHandler) DecideRoleRequest(c *fiber.Ctx) error {
	claims, err := requireAuth(c)
	if err != nil {
		return err
	}
	id, err := c.ParamsInt("id")
	if err != nil {
		return apperr.New(apperr.KindBadRequest, "invalid role request id")
	}

	req, err := repository.GetRoleRequest(c.Context(), h.db, int64(id))
	if err != nil {
		return err
	}
	if err := middleware.RequireCourtAccess(c, req.CourtID); err != nil {
		return err
	}

	var body decideRoleRequestRequest
	if err := c.BodyParser(&body); err != nil {
		return apperr.New(apperr.KindBadRequest, "invalid request body")
	}

	decided, err := h.membership.Decide(c.Context(), int64(id), body.Approve, claims.Subject)
	if err != nil {
		return err
	}
	return c.JSON(decided)
}

type grantRoleRequest struct {
	UserID int64       `json:"user_id"`
	Role   models.Role `json:"role"`
}

// GrantRole sets or clears a user's role in a court directly, bypassing
// the request/decision cycle. Global admin only. Granting the attorney
// role requires a bar admission already on file for that court; every
// other role grant has no such prerequisite.
func (h *AdminHandler) GrantRole(c *fiber.Ctx) error {
	claims, err := requireAuth(c)
	if err != nil {
		return err
	}
	if claims.Role != models.RoleAdmin {
		return apperr.New(apperr.KindForbidden, "admin role required")
	}
	courtID, ok := middleware.CourtID(c)
	if !ok {
		return apperr.New(apperr.KindBadRequest, "missing "+middleware.CourtHeader+" header")
	}

	var req grantRoleRequest
	if err := c.BodyParser(&req); err != nil {
		return apperr.New(apperr.KindBadRequest, "invalid request body")
	}
	if req.UserID == 0 {
		return apperr.Validation(map[string]string{"user_id": "required"})
	}

	if req.Role == models.RoleAttorney {
		if _, err := repository.GetBarAdmission(c.Context(), h.db, req.UserID, courtID); err != nil {
			return apperr.New(apperr.KindBadRequest, "user has no bar admission on file for this court")
		}
	}

	u, err := membership.GrantRole(c.Context(), h.db, req.UserID, courtID, req.Role)
	if err != nil {
		return err
	}
	return c.JSON(u)
}

type createBarAdmissionRequest struct {
	UserID    int64  `json:"user_id"`
	BarNumber string `json:"bar_number"`
}

// CreateBarAdmission records a bar number for a user in a court. Clerk
// role or higher is required.
func (h *AdminHandler) CreateBarAdmission(c *fiber.Ctx) error {
	courtID, role, err := requireCourtRole(c)
	if err != nil {
		return err
	}
	if !role.AtLeast(models.RoleClerk) {
		return apperr.New(apperr.KindForbidden, "clerk role or higher required")
	}

	var req createBarAdmissionRequest
	if err := c.BodyParser(&req); err != nil {
		return apperr.New(apperr.KindBadRequest, "invalid request body")
	}
	if req.UserID == 0 || req.BarNumber == "" {
		return apperr.Validation(map[string]string{"user_id/bar_number": "required"})
	}

	admission, err := repository.CreateBarAdmission(c.Context(), h.db, models.CourtBarAdmission{
		UserID:    req.UserID,
		CourtID:   courtID,
		BarNumber: req.BarNumber,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(admission)
}

type createCourtRequest struct {
	ID   string           `json:"id"`
	Name string           `json:"name"`
	Tier models.CourtTier `json:"tier"`
}

// CreateCourt registers a new tenant. Global admin only.
func (h *AdminHandler) CreateCourt(c *fiber.Ctx) error {
	claims, err := requireAuth(c)
	if err != nil {
		return err
	}
	if claims.Role != models.RoleAdmin {
		return apperr.New(apperr.KindForbidden, "admin role required")
	}

	var req createCourtRequest
	if err := c.BodyParser(&req); err != nil {
		return apperr.New(apperr.KindBadRequest, "invalid request body")
	}
	if req.ID == "" || req.Name == "" {
		return apperr.Validation(map[string]string{"id/name": "required"})
	}
	tier := req.Tier
	if tier == "" {
		tier = models.TierFree
	}

	court, err := repository.CreateCourt(c.Context(), h.db, models.Court{
		ID:   models.CourtID(req.ID),
		Name: req.Name,
		Tier: tier,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(court)
}

// ListCourts returns every registered tenant. Global admin only.
func (h *AdminHandler) ListCourts(c *fiber.Ctx) error {
	claims, err := requireAuth(c)
	if err != nil {
		return err
	}
	if claims.Role != models.RoleAdmin {
		return apperr.New(apperr.KindForbidden, "admin role required")
	}
	result, err := repository.ListCourts(c.Context(), h.db, page(c))
	if err != nil {
		return err
	}
	return c.JSON(result)
}

// GetCourt fetches a single tenant's details. Any member of that court, or
// a global admin, may read it.
func (h *AdminHandler) GetCourt(c *fiber.Ctx) error {
	courtID, _, err := requireCourtRole(c)
	if err != nil {
		return err
	}
	court, err := repository.GetCourt(c.Context(), h.db, courtID)
	if err != nil {
		return err
	}
	return c.JSON(court)
}
