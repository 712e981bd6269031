package queue

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

func TestFirstStepPerQueueType(t *testing.T) {
	require.Equal(t, "review", FirstStep(models.QueueFiling))
	require.Equal(t, "review", FirstStep(models.QueueMotion))
	require.Equal(t, "docket", FirstStep(models.QueueOrder))
	require.Equal(t, "review", FirstStep(models.QueueDeadlineAlert))
	require.Equal(t, "review", FirstStep(models.QueueGeneral))
}

func TestNextStepWalksFilingPipeline(t *testing.T) {
	require.Equal(t, "docket", NextStep(models.QueueFiling, "review"))
	require.Equal(t, "nef", NextStep(models.QueueFiling, "docket"))
	require.Equal(t, "serve", NextStep(models.QueueFiling, "nef"))
	require.Equal(t, "", NextStep(models.QueueFiling, "serve"))
}

func TestNextStepWalksMotionPipelineThroughRouteJudge(t *testing.T) {
	require.Equal(t, "route_judge", NextStep(models.QueueMotion, "nef"))
	require.Equal(t, "serve", NextStep(models.QueueMotion, "route_judge"))
	require.Equal(t, "", NextStep(models.QueueMotion, "serve"))
}

func TestNextStepOnSingleStepPipelinesReachesCompletion(t *testing.T) {
	require.Equal(t, "", NextStep(models.QueueDeadlineAlert, "review"))
	require.Equal(t, "", NextStep(models.QueueGeneral, "review"))
}

func queueItemRow(id int64, status models.QueueStatus, currentStep string) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "court_id", "queue_type", "priority", "status", "title", "source_type", "source_id",
		"case_id", "assigned_to", "submitted_by", "current_step", "metadata", "created_at", "updated_at", "completed_at",
	}).AddRow(id, models.CourtID("sdny"), models.QueueOrder, 1, status, "Order to show cause", "order", int64(10),
		nil, nil, nil, currentStep, []byte(`{}`), time.Now(), time.Now(), nil)
}

func TestAdvanceMovesToNextStep(t *testing.T) {
	db, mock := newMockDB(t)
	svc := NewService(db)

	mock.ExpectQuery(`SELECT id, court_id, queue_type, priority, status, title`).
		WithArgs(models.CourtID("sdny"), int64(4)).
		WillReturnRows(queueItemRow(4, models.QueueStatusProcessing, "docket"))
	mock.ExpectQuery(`UPDATE queue_items`).
		WillReturnRows(queueItemRow(4, models.QueueStatusProcessing, "nef"))

	item, err := svc.Advance(context.Background(), "sdny", 4)
	require.NoError(t, err)
	require.Equal(t, "nef", item.CurrentStep)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAdvancePastLastStepCompletesItem(t *testing.T) {
	db, mock := newMockDB(t)
	svc := NewService(db)

	mock.ExpectQuery(`SELECT id, court_id, queue_type, priority, status, title`).
		WithArgs(models.CourtID("sdny"), int64(4)).
		WillReturnRows(queueItemRow(4, models.QueueStatusProcessing, "serve"))
	mock.ExpectQuery(`UPDATE queue_items`).
		WillReturnRows(queueItemRow(4, models.QueueStatusCompleted, ""))

	item, err := svc.Advance(context.Background(), "sdny", 4)
	require.NoError(t, err)
	require.Equal(t, models.QueueStatusCompleted, item.Status)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRejectRequiresReason(t *testing.T) {
	db, _ := newMockDB(t)
	svc := NewService(db)

	_, err := svc.Reject(context.Background(), "sdny", 4, "")
	require.Error(t, err)
	require.Equal(t, apperr.KindValidationError, apperr.As(err).Kind)
}
