package middleware

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/districtcms/backend/internal/cookie"
	"github.com/districtcms/backend/internal/token"
	"github.com/districtcms/backend/pkg/models"
)

type fakeUserChecker struct {
	exists map[int64]bool
}

func (f fakeUserChecker) UserExists(ctx context.Context, userID int64) (bool, error) {
	return f.exists[userID], nil
}

func newTestApp(cfg AuthConfig) *fiber.App {
	app := fiber.New()
	app.Use(Auth(cfg))
	app.Get("/whoami", func(c *fiber.Ctx) error {
		claims, ok := Claims(c)
		if !ok {
			return c.Status(fiber.StatusOK).JSON(fiber.Map{"authenticated": false})
		}
		return c.JSON(fiber.Map{"authenticated": true, "sub": claims.Subject})
	})
	return app
}

func TestAuthAcceptsBearerToken(t *testing.T) {
	svc := token.NewService("s3cr3t", 15*time.Minute, 7*24*time.Hour)
	u := &models.User{ID: 7, GlobalRole: models.RoleClerk}
	raw, _, err := svc.IssueAccess(u, models.TierFree, "jti-1")
	require.NoError(t, err)

	app := newTestApp(AuthConfig{Tokens: svc, Users: fakeUserChecker{exists: map[int64]bool{7: true}}})
	req := httptest.NewRequest("GET", "/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+raw)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestAuthPrefersCookieOverBearer(t *testing.T) {
	svc := token.NewService("s3cr3t", 15*time.Minute, 7*24*time.Hour)
	cookieUser := &models.User{ID: 1, GlobalRole: models.RoleClerk}
	headerUser := &models.User{ID: 2, GlobalRole: models.RoleClerk}
	cookieTok, _, err := svc.IssueAccess(cookieUser, models.TierFree, "jti-c")
	require.NoError(t, err)
	headerTok, _, err := svc.IssueAccess(headerUser, models.TierFree, "jti-h")
	require.NoError(t, err)

	app := fiber.New()
	app.Use(Auth(AuthConfig{Tokens: svc, Users: fakeUserChecker{exists: map[int64]bool{1: true, 2: true}}}))
	app.Get("/whoami", func(c *fiber.Ctx) error {
		claims, _ := Claims(c)
		return c.JSON(fiber.Map{"sub": claims.Subject})
	})

	req := httptest.NewRequest("GET", "/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+headerTok)
	req.AddCookie(&http.Cookie{Name: AccessCookieName, Value: cookieTok})
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, float64(cookieUser.ID), body["sub"])
}

func TestAuthClearsCookiesForDeletedUser(t *testing.T) {
	svc := token.NewService("s3cr3t", 15*time.Minute, 7*24*time.Hour)
	u := &models.User{ID: 99, GlobalRole: models.RoleClerk}
	raw, _, err := svc.IssueAccess(u, models.TierFree, "jti-del")
	require.NoError(t, err)

	var capturedSlot *cookie.Slot
	app := fiber.New()
	app.Use(Auth(AuthConfig{
		Tokens: svc,
		Users:  fakeUserChecker{exists: map[int64]bool{}}, // 99 does not exist
		Logger: zerolog.Nop(),
	}))
	app.Get("/whoami", func(c *fiber.Ctx) error {
		capturedSlot = CookieSlot(c)
		_, authenticated := Claims(c)
		return c.JSON(fiber.Map{"authenticated": authenticated})
	})

	req := httptest.NewRequest("GET", "/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+raw)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.NotNil(t, capturedSlot)

	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, false, body["authenticated"])
	setCookies := strings.Join(resp.Header.Values("Set-Cookie"), "\n")
	assert.Contains(t, setCookies, AccessCookieName+"=")
	assert.Contains(t, setCookies, RefreshCookieName+"=")
}

func TestAuthWithNoCredentialsHasNoClaims(t *testing.T) {
	svc := token.NewService("s3cr3t", 15*time.Minute, 7*24*time.Hour)
	app := newTestApp(AuthConfig{Tokens: svc})
	req := httptest.NewRequest("GET", "/whoami", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestExtractTokenRejectsMalformedBearer(t *testing.T) {
	app := fiber.New()
	app.Get("/test", func(c *fiber.Ctx) error {
		return c.SendString(extractToken(c))
	})
	req := httptest.NewRequest("GET", "/test", nil)
	req.Header.Set("Authorization", "NotBearer xyz")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	extracted, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Empty(t, string(extracted))
}
