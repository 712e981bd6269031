package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/districtcms/backend/internal/apperr"
	"github.com/districtcms/backend/pkg/models"
)

var fixedTime = time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

func TestHashAndCheckPasswordRoundTrip(t *testing.T) {
	hash, err := HashPassword("correct horse battery staple")
	require.NoError(t, err)
	require.True(t, CheckPassword(hash, "correct horse battery staple"))
	require.False(t, CheckPassword(hash, "wrong password"))
}

func TestUserExistsFalseForDeletedUser(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectQuery(`SELECT EXISTS`).WithArgs(int64(99)).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

	exists, err := UserExists(context.Background(), db, 99)
	require.NoError(t, err)
	require.False(t, exists)
}

func TestGetUserByEmailNotFound(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectQuery(`SELECT id, username, email`).WithArgs("nobody@example.com").
		WillReturnError(sql.ErrNoRows)

	_, err := GetUserByEmail(context.Background(), db, "nobody@example.com")
	require.Error(t, err)
	require.Equal(t, apperr.KindNotFound, apperr.As(err).Kind)
}

func TestUpdateCourtRoleRemovesRoleWhenEmpty(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectQuery(`SELECT id, username, email`).WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "username", "email", "password_hash", "oauth_provider", "oauth_provider_id",
			"display_name", "avatar_url", "email_verified", "phone_verified",
			"court_roles", "global_role", "created_at", "updated_at",
		}).AddRow(
			int64(7), "judge7", "judge7@example.com", nil, nil, nil,
			nil, nil, true, false,
			[]byte(`{"court-ndca":"judge"}`), models.Role(""), fixedTime, fixedTime,
		))
	mock.ExpectQuery(`UPDATE users SET court_roles`).
		WithArgs(int64(7), []byte(`{}`)).
		WillReturnRows(sqlmock.NewRows([]string{"updated_at"}).AddRow(fixedTime))

	u, err := UpdateCourtRole(context.Background(), db, 7, models.CourtID("court-ndca"), "")
	require.NoError(t, err)
	require.Empty(t, u.CourtRoles)
}
