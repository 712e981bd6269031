package oauth

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

func TestInitiateCreatesPendingAuthorization(t *testing.T) {
	db, mock := newMockDB(t)
	svc := NewDeviceService(db)

	mock.ExpectQuery(`INSERT INTO device_authorizations`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(int64(1), fixedTime))

	auth, err := svc.Initiate(context.Background())
	require.NoError(t, err)
	require.Equal(t, models.DeviceAuthorizationPending, auth.Status)
	require.Len(t, auth.DeviceCode, 36)
	require.Regexp(t, `^[A-Z2-9]{4}-[A-Z2-9]{4}$`, auth.UserCode)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPollReportsExpiredPastTTLEvenBeforeSweep(t *testing.T) {
	db, mock := newMockDB(t)
	svc := NewDeviceService(db)

	mock.ExpectQuery(`SELECT id, device_code, user_code, status, user_id, expires_at, created_at`).
		WithArgs("dc-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "device_code", "user_code", "status", "user_id", "expires_at", "created_at"}).
			AddRow(int64(1), "dc-1", "ABCD-1234", models.DeviceAuthorizationPending, nil, time.Now().Add(-time.Minute), fixedTime))

	status, err := svc.Poll(context.Background(), "dc-1")
	require.NoError(t, err)
	require.Equal(t, models.DeviceAuthorizationExpired, status)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestApproveUppercasesUserCode(t *testing.T) {
	db, mock := newMockDB(t)
	svc := NewDeviceService(db)

	mock.ExpectQuery(`UPDATE device_authorizations`).
		WithArgs("ABCD-1234", models.DeviceAuthorizationPending, models.DeviceAuthorizationApproved, int64(42)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "device_code", "user_code", "status", "user_id", "expires_at", "created_at"}).
			AddRow(int64(1), "dc-1", "ABCD-1234", models.DeviceAuthorizationApproved, int64(42), fixedTime.Add(time.Minute), fixedTime))

	auth, err := svc.Approve(context.Background(), "abcd-1234", 42)
	require.NoError(t, err)
	require.Equal(t, models.DeviceAuthorizationApproved, auth.Status)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestApproveAlreadyDecidedIsConflict(t *testing.T) {
	db, mock := newMockDB(t)
	svc := NewDeviceService(db)

	mock.ExpectQuery(`UPDATE device_authorizations`).
		WithArgs("ABCD-1234", models.DeviceAuthorizationPending, models.DeviceAuthorizationApproved, int64(42)).
		WillReturnError(sql.ErrNoRows)

	_, err := svc.Approve(context.Background(), "ABCD-1234", 42)
	require.Error(t, err)
	require.Equal(t, apperr.KindConflict, apperr.As(err).Kind)
}
