package repository

import (
	"database/sql"
	"errors"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/require"

	"github.com/districtcms/backend/internal/apperr"
)

func TestWrapDBErrPassesThroughNoRows(t *testing.T) {
	require.Equal(t, sql.ErrNoRows, wrapDBErr(sql.ErrNoRows))
}

func TestWrapDBErrReturnsNilForNil(t *testing.T) {
	require.NoError(t, wrapDBErr(nil))
}

func TestWrapDBErrMapsUniqueViolationToConflict(t *testing.T) {
	err := wrapDBErr(&pq.Error{Code: pqUniqueViolation, Message: "duplicate key value"})
	require.Equal(t, apperr.KindConflict, apperr.As(err).Kind)
}

func TestWrapDBErrMapsOtherPqErrorsToDatabaseError(t *testing.T) {
	err := wrapDBErr(&pq.Error{Code: "53300", Message: "too many connections"})
	require.Equal(t, apperr.KindDatabaseError, apperr.As(err).Kind)
}

func TestWrapDBErrMapsGenericErrorToDatabaseError(t *testing.T) {
	err := wrapDBErr(errors.New("connection reset"))
	require.Equal(t, apperr.KindDatabaseError, apperr.As(err).Kind)
}
