package oauth

import (
	"context"
	"database/sql"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/districtcms/backend/internal/apperr"
	"github.com/districtcms/backend/pkg/models"
)

var fixedTime = time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return sqlx.NewDb(db, "postgres"), mock
}

func userRow(id int64, email, provider, providerID string, globalRole models.Role) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "username", "email", "password_hash", "oauth_provider", "oauth_provider_id",
		"display_name", "avatar_url", "email_verified", "phone_verified",
		"court_roles", "global_role", "created_at", "updated_at",
	}).AddRow(id, "someone", email, nil, provider, providerID, "Some One", "", true, false,
		[]byte(`{}`), globalRole, fixedTime, fixedTime)
}

func newService(t *testing.T) (*Service, sqlmock.Sqlmock) {
	db, mock := newMockDB(t)
	states, err := NewStateStore("")
	require.NoError(t, err)
	svc := NewService(Config{GoogleClientID: "g-id", GoogleClientSecret: "g-secret", RedirectBaseURL: "https://backend.example"}, db, states)
	return svc, mock
}

func TestAuthorizeURLRejectsUnknownProvider(t *testing.T) {
	svc, _ := newService(t)
	_, err := svc.AuthorizeURL(context.Background(), "facebook", "")
	require.Error(t, err)
	require.Equal(t, apperr.KindBadRequest, apperr.As(err).Kind)
}

func TestAuthorizeURLRejectsUnconfiguredProvider(t *testing.T) {
	svc, _ := newService(t)
	_, err := svc.AuthorizeURL(context.Background(), ProviderGitHub, "")
	require.Error(t, err)
	require.Equal(t, apperr.KindInternalError, apperr.As(err).Kind)
}

func TestAuthorizeURLEmbedsStateAndPKCEChallenge(t *testing.T) {
	svc, _ := newService(t)
	authURL, err := svc.AuthorizeURL(context.Background(), ProviderGoogle, "/cases/5")
	require.NoError(t, err)
	require.Contains(t, authURL, "accounts.google.com")
	require.Contains(t, authURL, "code_challenge=")
	require.Contains(t, authURL, "code_challenge_method=S256")
	require.Contains(t, authURL, "state=")
}

func TestUpsertUserLinksByOAuthWhenAlreadyBound(t *testing.T) {
	svc, mock := newService(t)

	mock.ExpectQuery(`FROM users WHERE oauth_provider`).
		WithArgs("google", "abc").
		WillReturnRows(userRow(9, "jane@sdny.uscourts.gov", "google", "abc", models.RoleAdmin))

	u, err := svc.upsertUser(context.Background(), "google", "abc", "jane@sdny.uscourts.gov", "Jane", "")
	require.NoError(t, err)
	require.Equal(t, int64(9), u.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertUserLinksByEmailWhenOAuthUnbound(t *testing.T) {
	svc, mock := newService(t)

	mock.ExpectQuery(`FROM users WHERE oauth_provider`).
		WithArgs("google", "new-id").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery(`FROM users WHERE email`).
		WithArgs("existing@example.com").
		WillReturnRows(userRow(11, "existing@example.com", "", "", models.Role("")))
	mock.ExpectQuery(`SELECT id, username, email`).WithArgs(int64(11)).
		WillReturnRows(userRow(11, "existing@example.com", "", "", models.Role("")))
	mock.ExpectQuery(`UPDATE users\s+SET oauth_provider`).
		WithArgs(int64(11), "google", "new-id", "Existing User", "").
		WillReturnRows(sqlmock.NewRows([]string{"updated_at"}).AddRow(fixedTime))

	u, err := svc.upsertUser(context.Background(), "google", "new-id", "existing@example.com", "Existing User", "")
	require.NoError(t, err)
	require.Equal(t, int64(11), u.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertUserCreatesAndPromotesUSCourtsEmail(t *testing.T) {
	svc, mock := newService(t)

	mock.ExpectQuery(`FROM users WHERE oauth_provider`).
		WithArgs("google", "brand-new").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery(`FROM users WHERE email`).
		WithArgs("judge@cdca.uscourts.gov").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery(`INSERT INTO users`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow(int64(20), fixedTime, fixedTime))

	u, err := svc.upsertUser(context.Background(), "google", "brand-new", "judge@cdca.uscourts.gov", "Judge Judy", "")
	require.NoError(t, err)
	require.Equal(t, models.RoleAdmin, u.GlobalRole)
	require.NoError(t, mock.ExpectationsWereMet())
}
