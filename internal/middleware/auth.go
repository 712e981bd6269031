package middleware

import (
	"context"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/districtcms/backend/internal/cookie"
	"github.com/districtcms/backend/internal/token"
)

const (
	localsClaims      = "auth:claims"
	localsCookieSlot  = "auth:cookie_slot"
	AccessCookieName  = "cyber_access"
	RefreshCookieName = "cyber_refresh"
)

// UserExistsChecker reports whether a user id still exists, so the auth
// middleware can distinguish a token for a deleted user from one that's
// simply invalid.
type UserExistsChecker interface {
	UserExists(ctx context.Context, userID int64) (bool, error)
}

// AuthConfig configures the Auth middleware.
type AuthConfig struct {
	Tokens       *token.Service
	Users        UserExistsChecker
	Logger       zerolog.Logger
	CookieSecure bool
	CookieDomain string
}

// Auth runs the request through: Start -> Validated(claims) -> HandlerRan ->
// MaybeFlushCookies -> Done.
// It extracts the access token preferring AccessCookieName, falling back to
// a Bearer header, installs a CookieSlot so handlers can schedule deferred
// Set-Cookie/Clear-Cookie actions, runs the handler, then flushes the slot.
func Auth(cfg AuthConfig) fiber.Handler {
	return func(c *fiber.Ctx) error {
		slot := cookie.New()
		c.Locals(localsCookieSlot, slot)

		if raw := extractToken(c); raw != "" {
			if claims, err := cfg.Tokens.ValidateAccess(raw); err == nil {
				if cfg.Users != nil {
					exists, existsErr := cfg.Users.UserExists(c.Context(), claims.Subject)
					if existsErr == nil && !exists {
						cfg.Logger.Warn().Int64("user_id", claims.Subject).Msg("access token references a deleted user; clearing cookies")
						slot.ScheduleClear()
					} else {
						c.Locals(localsClaims, claims)
					}
				} else {
					c.Locals(localsClaims, claims)
				}
			}
		}

		err := c.Next()
		flushCookies(c, slot, cfg.CookieSecure, cfg.CookieDomain)
		return err
	}
}

// extractToken reads the access cookie first, falling back to the Bearer
// authorization header.
func extractToken(c *fiber.Ctx) string {
	if v := c.Cookies(AccessCookieName); v != "" {
		return v
	}
	header := c.Get("Authorization")
	if header == "" {
		return ""
	}
	trimmed := strings.TrimPrefix(header, "Bearer ")
	if trimmed == header {
		return ""
	}
	return strings.TrimSpace(trimmed)
}

// Claims returns the authenticated claims for the current request, if any.
func Claims(c *fiber.Ctx) (*token.Claims, bool) {
	v := c.Locals(localsClaims)
	if v == nil {
		return nil, false
	}
	claims, ok := v.(*token.Claims)
	return claims, ok
}

// CookieSlot returns the request's deferred cookie slot, installed by Auth.
func CookieSlot(c *fiber.Ctx) *cookie.Slot {
	v := c.Locals(localsCookieSlot)
	if v == nil {
		return nil
	}
	slot, _ := v.(*cookie.Slot)
	return slot
}

func flushCookies(c *fiber.Ctx, slot *cookie.Slot, secure bool, domain string) {
	if slot == nil {
		return
	}
	action, ok := slot.Take()
	if !ok {
		return
	}

	switch action.Kind {
	case cookie.ActionSet:
		c.Cookie(&fiber.Cookie{
			Name:     AccessCookieName,
			Value:    action.AccessToken,
			Expires:  time.Now().Add(action.AccessTTL),
			HTTPOnly: true,
			Secure:   secure,
			Domain:   domain,
			SameSite: fiber.CookieSameSiteLaxMode,
			Path:     "/",
		})
		c.Cookie(&fiber.Cookie{
			Name:     RefreshCookieName,
			Value:    action.RefreshToken,
			Expires:  time.Now().Add(action.RefreshTTL),
			HTTPOnly: true,
			Secure:   secure,
			Domain:   domain,
			SameSite: fiber.CookieSameSiteLaxMode,
			Path:     "/",
		})
	case cookie.ActionClear:
		c.ClearCookie(AccessCookieName, RefreshCookieName)
	}
}
