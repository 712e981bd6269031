package handlers

import (
	"encoding/json"
	"net/http/httptest"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/gofiber/fiber/v2"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
)

func newHealthMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return sqlx.NewDb(db, "postgres"), mock
}

func TestHealthLiveAlwaysOK(t *testing.T) {
	db, _ := newHealthMockDB(t)
	h := NewHealthHandler(db, nil)

	app := fiber.New()
	app.Get("/healthz/live", h.Live)

	resp, err := app.Test(httptest.NewRequest("GET", "/healthz/live", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Equal(t, "alive", body["status"])
}

func TestHealthReadyOKWhenDatabaseReachable(t *testing.T) {
	db, mock := newHealthMockDB(t)
	mock.ExpectPing()
	h := NewHealthHandler(db, nil)

	app := fiber.New()
	app.Get("/healthz/ready", h.Ready)

	resp, err := app.Test(httptest.NewRequest("GET", "/healthz/ready", nil))
	require.NoError(t, err)
	// search is unconfigured (nil), so readiness must report unavailable
	// even though the database ping succeeds.
	require.Equal(t, fiber.StatusServiceUnavailable, resp.StatusCode)

	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Equal(t, false, body["ready"])
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestHealthReadyUnavailableWhenDatabaseUnreachable(t *testing.T) {
	db, mock := newHealthMockDB(t)
	mock.ExpectPing().WillReturnError(fiber.ErrServiceUnavailable)
	h := NewHealthHandler(db, nil)

	app := fiber.New()
	app.Get("/healthz/ready", h.Ready)

	resp, err := app.Test(httptest.NewRequest("GET", "/healthz/ready", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusServiceUnavailable, resp.StatusCode)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestHealthStatusReportsDegradedComponent(t *testing.T) {
	db, mock := newHealthMockDB(t)
	mock.ExpectPing()
	h := NewHealthHandler(db, nil)

	app := fiber.New()
	app.Get("/healthz/status", h.Status)

	resp, err := app.Test(httptest.NewRequest("GET", "/healthz/status", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusServiceUnavailable, resp.StatusCode)

	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Equal(t, "degraded", body["status"])
	require.NotNil(t, body["system"])
	require.NoError(t, mock.ExpectationsWereMet())
}
