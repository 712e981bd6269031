package speedytrial

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/districtcms/backend/internal/apperr"
	"github.com/districtcms/backend/pkg/models"
)

func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return sqlx.NewDb(db, "postgres"), mock
}

func timeOrNil(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return *t
}

func clockRow(clock models.SpeedyTrialClock) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "court_id", "case_id", "arrest_date", "indictment_date", "arraignment_date",
		"deadline", "elapsed_days", "remaining_days", "tolled", "waived",
	}).AddRow(clock.ID, clock.CourtID, clock.CaseID, timeOrNil(clock.ArrestDate), timeOrNil(clock.IndictmentDate),
		timeOrNil(clock.ArraignmentDate), timeOrNil(clock.Deadline), clock.ElapsedDays, clock.RemainingDays,
		clock.Tolled, clock.Waived)
}

func TestTollRejectsEmptyReason(t *testing.T) {
	db, mock := newMockDB(t)
	svc := NewService(db)

	_, err := svc.Toll(context.Background(), models.CourtID("sdny"), 1, "", time.Now(), nil)
	require.Error(t, err)
	require.Equal(t, apperr.KindValidationError, apperr.As(err).Kind)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTollRejectsEndDateBeforeStartDate(t *testing.T) {
	db, mock := newMockDB(t)
	svc := NewService(db)

	from := time.Now()
	to := from.Add(-time.Hour)
	_, err := svc.Toll(context.Background(), models.CourtID("sdny"), 1, "interlocutory appeal", from, &to)
	require.Error(t, err)
	require.Equal(t, apperr.KindBadRequest, apperr.As(err).Kind)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTollRecordsDelayAndRecomputesClock(t *testing.T) {
	db, mock := newMockDB(t)
	svc := NewService(db)

	indictment := time.Now().Add(-100 * 24 * time.Hour)
	from := time.Now().Add(-50 * 24 * time.Hour)
	to := from.Add(10 * 24 * time.Hour)

	existing := models.SpeedyTrialClock{
		ID: 7, CourtID: "sdny", CaseID: 1, IndictmentDate: &indictment,
		ElapsedDays: 0, RemainingDays: statutoryDays,
	}

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT id, court_id, case_id, arrest_date, indictment_date, arraignment_date`).
		WithArgs(models.CourtID("sdny"), int64(1)).
		WillReturnRows(clockRow(existing))
	mock.ExpectQuery(`INSERT INTO excludable_delays`).
		WithArgs(int64(7), "interlocutory appeal", from, sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(3)))
	mock.ExpectQuery(`SELECT id, clock_id, reason, start_date, end_date`).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "clock_id", "reason", "start_date", "end_date"}).
			AddRow(int64(3), int64(7), "interlocutory appeal", from, to))
	mock.ExpectQuery(`UPDATE speedy_trial_clocks`).
		WithArgs(models.CourtID("sdny"), int64(7), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), false, false).
		WillReturnRows(clockRow(models.SpeedyTrialClock{
			ID: 7, CourtID: "sdny", CaseID: 1, IndictmentDate: &indictment,
			ElapsedDays: 89, RemainingDays: 0, Tolled: false, Waived: false,
		}))
	mock.ExpectCommit()

	result, err := svc.Toll(context.Background(), models.CourtID("sdny"), 1, "interlocutory appeal", from, &to)
	require.NoError(t, err)
	require.Equal(t, int64(7), result.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestWaiveSetsWaivedFlagWithoutRecomputing(t *testing.T) {
	db, mock := newMockDB(t)
	svc := NewService(db)

	existing := models.SpeedyTrialClock{ID: 7, CourtID: "sdny", CaseID: 1, ElapsedDays: 40, RemainingDays: 30}

	mock.ExpectQuery(`SELECT id, court_id, case_id, arrest_date, indictment_date, arraignment_date`).
		WithArgs(models.CourtID("sdny"), int64(1)).
		WillReturnRows(clockRow(existing))
	mock.ExpectQuery(`UPDATE speedy_trial_clocks`).
		WithArgs(models.CourtID("sdny"), int64(7), sqlmock.AnyArg(), int64(40), int64(30), false, true).
		WillReturnRows(clockRow(models.SpeedyTrialClock{
			ID: 7, CourtID: "sdny", CaseID: 1, ElapsedDays: 40, RemainingDays: 30, Waived: true,
		}))

	result, err := svc.Waive(context.Background(), models.CourtID("sdny"), 1)
	require.NoError(t, err)
	require.True(t, result.Waived)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestWaivePropagatesNotFound(t *testing.T) {
	db, mock := newMockDB(t)
	svc := NewService(db)

	mock.ExpectQuery(`SELECT id, court_id, case_id, arrest_date, indictment_date, arraignment_date`).
		WithArgs(models.CourtID("sdny"), int64(99)).
		WillReturnError(apperr.NotFound("speedy trial clock"))

	_, err := svc.Waive(context.Background(), models.CourtID("sdny"), 99)
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRecomputeTollsOnOpenDelay(t *testing.T) {
	indictment := time.Now().Add(-30 * 24 * time.Hour)
	clock := models.SpeedyTrialClock{IndictmentDate: &indictment}
	delays := []models.ExcludableDelay{
		{StartDate: time.Now().Add(-10 * 24 * time.Hour), EndDate: nil},
	}

	result := recompute(clock, delays)
	require.True(t, result.Tolled)
	require.Equal(t, 30, result.ElapsedDays)
	require.Equal(t, statutoryDays-30, result.RemainingDays)
}

func TestRecomputeExcludesClosedDelaySpan(t *testing.T) {
	indictment := time.Now().Add(-100 * 24 * time.Hour)
	clock := models.SpeedyTrialClock{IndictmentDate: &indictment}
	start := time.Now().Add(-50 * 24 * time.Hour)
	end := start.Add(9 * 24 * time.Hour)
	delays := []models.ExcludableDelay{
		{StartDate: start, EndDate: &end},
	}

	result := recompute(clock, delays)
	require.False(t, result.Tolled)
	require.Equal(t, 90, result.ElapsedDays)
}

func TestRecomputeClampsRemainingDaysToZero(t *testing.T) {
	indictment := time.Now().Add(-200 * 24 * time.Hour)
	clock := models.SpeedyTrialClock{IndictmentDate: &indictment}

	result := recompute(clock, nil)
	require.Equal(t, 0, result.RemainingDays)
	require.Equal(t, 200, result.ElapsedDays)
}

func TestRecomputeFallsBackToArrestDate(t *testing.T) {
	arrest := time.Now().Add(-20 * 24 * time.Hour)
	clock := models.SpeedyTrialClock{ArrestDate: &arrest}

	result := recompute(clock, nil)
	require.Equal(t, 20, result.ElapsedDays)
}

func TestRecomputeWithoutAnyTriggerDateIsNoop(t *testing.T) {
	clock := models.SpeedyTrialClock{ElapsedDays: 5, RemainingDays: 65}

	result := recompute(clock, nil)
	require.Equal(t, clock, result)
}
