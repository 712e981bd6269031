package scheduler

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func newMockDB(t *testing.T) (sqlmock.Sqlmock, *Scheduler) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return mock, New(db, zerolog.Nop())
}

func TestSweepDeviceAuthorizationsDeletesExpiredRows(t *testing.T) {
	mock, s := newMockDB(t)

	mock.ExpectExec(`DELETE FROM device_authorizations WHERE expires_at <= now\(\)`).
		WillReturnResult(sqlmock.NewResult(0, 3))

	s.sweepDeviceAuthorizations(context.Background())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSweepDeviceAuthorizationsLogsErrorWithoutPanicking(t *testing.T) {
	mock, s := newMockDB(t)

	mock.ExpectExec(`DELETE FROM device_authorizations WHERE expires_at <= now\(\)`).
		WillReturnError(context.DeadlineExceeded)

	require.NotPanics(t, func() { s.sweepDeviceAuthorizations(context.Background()) })
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStartRegistersJobAndStopsOnContextCancel(t *testing.T) {
	_, s := newMockDB(t)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, s.Start(ctx))

	cancel()
	time.Sleep(10 * time.Millisecond)
}
