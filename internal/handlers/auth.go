package handlers

import (
	"context"
	"sort"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/districtcms/backend/internal/apperr"
	"github.com/districtcms/backend/internal/middleware"
	"github.com/districtcms/backend/internal/oauth"
	"github.com/districtcms/backend/internal/repository"
	"github.com/districtcms/backend/internal/token"
	"github.com/districtcms/backend/internal/validate"
	"github.com/districtcms/backend/pkg/models"
)

// postOAuthRedirectCookie carries the post-login destination across the
// provider round-trip independently of the state parameter, so a proxy or
// provider that mangles query string state still lands the user back where
// they started.
const postOAuthRedirectCookie = "post_oauth_redirect"
const postOAuthRedirectTTL = 10 * time.Minute

// AuthHandler implements registration, password and OAuth login, token
// refresh, logout, and the device authorization flow.
type AuthHandler struct {
	db           *sqlx.DB
	tokens       *token.Service
	oauthSvc     *oauth.Service
	deviceSvc    *oauth.DeviceService
	cookieSecure bool
	cookieDomain string
}

// NewAuthHandler builds an AuthHandler.
func NewAuthHandler(db *sqlx.DB, tokens *token.Service, oauthSvc *oauth.Service, deviceSvc *oauth.DeviceService, cookieSecure bool, cookieDomain string) *AuthHandler {
	return &AuthHandler{db: db, tokens: tokens, oauthSvc: oauthSvc, deviceSvc: deviceSvc, cookieSecure: cookieSecure, cookieDomain: cookieDomain}
}

type registerRequest struct {
	Username string `json:"username" validate:"required,min=3,max=64"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

// Register creates a password-authenticated user and signs them in.
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req registerRequest
	if err := c.BodyParser(&req); err != nil {
		return apperr.New(apperr.KindBadRequest, "invalid request body")
	}
	if err := validate.Struct(req); err != nil {
		return err
	}

	hash, err := repository.HashPassword(req.Password)
	if err != nil {
		return err
	}

	u, err := repository.CreateUser(c.Context(), h.db, models.User{
		Username:      req.Username,
		Email:         req.Email,
		PasswordHash:  hash,
		EmailVerified: false,
	})
	if err != nil {
		return err
	}

	return h.signIn(c, u)
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// Login authenticates by email/password.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return apperr.New(apperr.KindBadRequest, "invalid request body")
	}
	if err := validate.Struct(req); err != nil {
		return err
	}

	u, err := repository.GetUserByEmail(c.Context(), h.db, req.Email)
	if err != nil {
		return apperr.New(apperr.KindUnauthorized, "invalid email or password")
	}
	if u.PasswordHash == "" || !repository.CheckPassword(u.PasswordHash, req.Password) {
		return apperr.New(apperr.KindUnauthorized, "invalid email or password")
	}

	return h.signIn(c, u)
}

// Refresh rotates a refresh token presented via cookie: the old hash is
// revoked and a new access/refresh pair is issued, so a stolen refresh
// token is usable exactly once before a legitimate client notices the
// rotation failed.
func (h *AuthHandler) Refresh(c *fiber.Ctx) error {
	raw := c.Cookies(middleware.RefreshCookieName)
	if raw == "" {
		return apperr.New(apperr.KindUnauthorized, "refresh token required")
	}
	claims, err := h.tokens.ValidateRefresh(raw)
	if err != nil {
		return err
	}

	hash := token.Hash(raw)
	stored, err := repository.GetValidRefreshToken(c.Context(), h.db, hash)
	if err != nil {
		return apperr.New(apperr.KindUnauthorized, "refresh token is no longer valid")
	}
	if stored.UserID != claims.Subject {
		return apperr.New(apperr.KindUnauthorized, "refresh token is no longer valid")
	}

	if err := repository.RevokeRefreshToken(c.Context(), h.db, hash); err != nil {
		return err
	}

	u, err := repository.GetUser(c.Context(), h.db, claims.Subject)
	if err != nil {
		return apperr.New(apperr.KindUnauthorized, "refresh token is no longer valid")
	}
	return h.signIn(c, u)
}

// Logout revokes the presented refresh token (a no-op if it's already
// gone) and schedules cookie clearing.
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	if raw := c.Cookies(middleware.RefreshCookieName); raw != "" {
		if err := repository.RevokeRefreshToken(c.Context(), h.db, token.Hash(raw)); err != nil {
			return err
		}
	}
	slot := middleware.CookieSlot(c)
	if slot != nil {
		slot.ScheduleClear()
	}
	return c.JSON(fiber.Map{"status": "logged_out"})
}

// signIn issues an access/refresh pair for u, persists the refresh token's
// hash, and schedules the deferred cookie set.
func (h *AuthHandler) signIn(c *fiber.Ctx, u models.User) error {
	tier := resolveTier(c.Context(), h.db, u)
	jti := uuid.NewString()

	access, accessTTL, err := h.tokens.IssueAccess(&u, tier, jti)
	if err != nil {
		return err
	}
	refresh, refreshTTL, err := h.tokens.IssueRefresh(&u, tier, jti)
	if err != nil {
		return err
	}

	if _, err := repository.CreateRefreshToken(c.Context(), h.db, u.ID, token.Hash(refresh), time.Now().Add(refreshTTL)); err != nil {
		return err
	}

	slot := middleware.CookieSlot(c)
	if slot != nil {
		slot.ScheduleSet(access, accessTTL, refresh, refreshTTL)
	}

	return c.JSON(fiber.Map{
		"user": fiber.Map{
			"id":          u.ID,
			"username":    u.Username,
			"email":       u.Email,
			"global_role": u.GlobalRole,
			"court_roles": u.CourtRoles,
		},
	})
}

// resolveTier picks the caller's feature-flag tier from the court with the
// alphabetically first id among their memberships, so the result is stable
// across calls; the tiers of their other courts are not compared. A user
// who belongs to no court yet, or whose first court can't be loaded, gets
// TierFree.
func resolveTier(ctx context.Context, db repository.DBTX, u models.User) models.CourtTier {
	if len(u.CourtRoles) == 0 {
		return models.TierFree
	}
	courtIDs := make([]string, 0, len(u.CourtRoles))
	for cid := range u.CourtRoles {
		courtIDs = append(courtIDs, string(cid))
	}
	sort.Strings(courtIDs)

	court, err := repository.GetCourt(ctx, db, models.CourtID(courtIDs[0]))
	if err != nil {
		return models.TierFree
	}
	return court.Tier
}

// OAuthAuthorize redirects to the provider's consent screen. redirect is an
// optional query parameter naming the path to land on after login.
func (h *AuthHandler) OAuthAuthorize(c *fiber.Ctx) error {
	provider := c.Params("provider")
	redirectPath := c.Query("redirect", "/")

	url, err := h.oauthSvc.AuthorizeURL(c.Context(), provider, redirectPath)
	if err != nil {
		return err
	}

	c.Cookie(&fiber.Cookie{
		Name:     postOAuthRedirectCookie,
		Value:    redirectPath,
		Expires:  time.Now().Add(postOAuthRedirectTTL),
		HTTPOnly: true,
		Secure:   h.cookieSecure,
		Domain:   h.cookieDomain,
		SameSite: fiber.CookieSameSiteLaxMode,
		Path:     "/",
	})
	return c.Redirect(url, fiber.StatusFound)
}

// OAuthCallback completes the provider round-trip, signs the resulting user
// in, and redirects to the stored post-login destination.
func (h *AuthHandler) OAuthCallback(c *fiber.Ctx) error {
	provider := c.Params("provider")
	state := c.Query("state")
	code := c.Query("code")

	result, err := h.oauthSvc.HandleCallback(c.Context(), provider, state, code)
	if err != nil {
		return err
	}

	redirectPath := result.RedirectPath
	if redirectPath == "" {
		redirectPath = c.Cookies(postOAuthRedirectCookie, "/")
	}
	c.ClearCookie(postOAuthRedirectCookie)

	if err := h.signIn(c, result.User); err != nil {
		return err
	}
	return c.Redirect(redirectPath, fiber.StatusFound)
}

// DeviceInitiate starts an RFC 8628-shaped device authorization grant.
func (h *AuthHandler) DeviceInitiate(c *fiber.Ctx) error {
	d, err := h.deviceSvc.Initiate(c.Context())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"device_code":      d.DeviceCode,
		"user_code":        d.UserCode,
		"expires_in":       int(time.Until(d.ExpiresAt).Seconds()),
		"interval":         oauth.PollIntervalSeconds,
	})
}

type devicePollRequest struct {
	DeviceCode string `json:"device_code"`
}

// DevicePoll reports a device grant's status; once approved it hands back
// an access/refresh pair directly in the body, since a CLI/device client
// has no cookie jar to read Set-Cookie from.
func (h *AuthHandler) DevicePoll(c *fiber.Ctx) error {
	var req devicePollRequest
	if err := c.BodyParser(&req); err != nil || req.DeviceCode == "" {
		return apperr.New(apperr.KindBadRequest, "device_code is required")
	}

	status, err := h.deviceSvc.Poll(c.Context(), req.DeviceCode)
	if err != nil {
		return err
	}
	if status != models.DeviceAuthorizationApproved {
		return c.JSON(fiber.Map{"status": status})
	}

	auth, err := repository.GetDeviceAuthorizationByCode(c.Context(), h.db, req.DeviceCode)
	if err != nil {
		return err
	}
	if auth.UserID == nil {
		return c.JSON(fiber.Map{"status": models.DeviceAuthorizationPending})
	}

	u, err := repository.GetUser(c.Context(), h.db, *auth.UserID)
	if err != nil {
		return err
	}
	tier := resolveTier(c.Context(), h.db, u)
	jti := uuid.NewString()

	access, accessTTL, err := h.tokens.IssueAccess(&u, tier, jti)
	if err != nil {
		return err
	}
	refresh, refreshTTL, err := h.tokens.IssueRefresh(&u, tier, jti)
	if err != nil {
		return err
	}
	if _, err := repository.CreateRefreshToken(c.Context(), h.db, u.ID, token.Hash(refresh), time.Now().Add(refreshTTL)); err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"status":                  models.DeviceAuthorizationApproved,
		"access_token":            access,
		"access_token_expires_in": int(accessTTL.Seconds()),
		"refresh_token":           refresh,
	})
}

type deviceCodeRequest struct {
	UserCode string `json:"user_code"`
}

// DeviceApprove grants a pending device authorization to the signed-in
// caller; called from the browser-side "enter this code" page.
func (h *AuthHandler) DeviceApprove(c *fiber.Ctx) error {
	claims, ok := middleware.Claims(c)
	if !ok {
		return apperr.New(apperr.KindUnauthorized, "authentication required")
	}
	var req deviceCodeRequest
	if err := c.BodyParser(&req); err != nil || req.UserCode == "" {
		return apperr.New(apperr.KindBadRequest, "user_code is required")
	}
	if _, err := h.deviceSvc.Approve(c.Context(), req.UserCode, claims.Subject); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"status": "approved"})
}

// DeviceDeny rejects a pending device authorization.
func (h *AuthHandler) DeviceDeny(c *fiber.Ctx) error {
	if _, ok := middleware.Claims(c); !ok {
		return apperr.New(apperr.KindUnauthorized, "authentication required")
	}
	var req deviceCodeRequest
	if err := c.BodyParser(&req); err != nil || req.UserCode == "" {
		return apperr.New(apperr.KindBadRequest, "user_code is required")
	}
	if _, err := h.deviceSvc.Deny(c.Context(), req.UserCode); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"status": "denied"})
}
