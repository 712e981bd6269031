package documents

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

func documentRow(id int64, createdAt time.Time, stricken bool, replacedBy *int64) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "court_id", "case_id", "title", "document_type", "storage_key", "file_size",
		"content_type", "checksum", "created_at", "is_stricken", "replaced_by_document_id", "source_attachment_id",
	}).AddRow(id, models.CourtID("sdny"), int64(1), "Motion to Dismiss", "motion", "key/v1", int64(100),
		"application/pdf", "abc123", createdAt, stricken, replacedBy, nil)
}

func TestReplaceWithinGracePeriodUpdatesInPlace(t *testing.T) {
	db, mock := newMockDB(t)
	svc := NewService(db, 10*time.Minute)

	mock.ExpectQuery(`SELECT id, court_id, case_id, title`).
		WithArgs(models.CourtID("sdny"), int64(5)).
		WillReturnRows(documentRow(5, time.Now().Add(-2*time.Minute), false, nil))
	mock.ExpectQuery(`UPDATE documents`).
		WithArgs(models.CourtID("sdny"), int64(5), "key/v2", int64(200), "application/pdf", "def456").
		WillReturnRows(documentRow(5, time.Now().Add(-2*time.Minute), false, nil))

	doc, err := svc.Replace(context.Background(), "sdny", models.RoleClerk, 5, ReplaceInput{
		StorageKey: "key/v2", FileSize: 200, ContentType: "application/pdf", Checksum: "def456",
	})
	require.NoError(t, err)
	require.Equal(t, int64(5), doc.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReplacePastGracePeriodStrikesAndCreates(t *testing.T) {
	db, mock := newMockDB(t)
	svc := NewService(db, 10*time.Minute)

	mock.ExpectQuery(`SELECT id, court_id, case_id, title`).
		WithArgs(models.CourtID("sdny"), int64(5)).
		WillReturnRows(documentRow(5, time.Now().Add(-1*time.Hour), false, nil))

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE documents SET is_stricken = true`).
		WithArgs(models.CourtID("sdny"), int64(5)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`INSERT INTO documents`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(int64(6), time.Now()))
	mock.ExpectExec(`UPDATE documents SET replaced_by_document_id`).
		WithArgs(models.CourtID("sdny"), int64(5), int64(6)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE docket_entries SET document_id`).
		WithArgs(models.CourtID("sdny"), int64(3), int64(6)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	doc, err := svc.Replace(context.Background(), "sdny", models.RoleClerk, 5, ReplaceInput{
		StorageKey: "key/v2", FileSize: 200, ContentType: "application/pdf", Checksum: "def456",
		DocketEntryID: 3,
	})
	require.NoError(t, err)
	require.Equal(t, int64(6), doc.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReplaceAlreadyStrickenIsBadRequest(t *testing.T) {
	db, mock := newMockDB(t)
	svc := NewService(db, 10*time.Minute)

	mock.ExpectQuery(`SELECT id, court_id, case_id, title`).
		WithArgs(models.CourtID("sdny"), int64(5)).
		WillReturnRows(documentRow(5, time.Now().Add(-1*time.Hour), true, nil))

	_, err := svc.Replace(context.Background(), "sdny", models.RoleClerk, 5, ReplaceInput{})
	require.Error(t, err)
	require.Equal(t, apperr.KindBadRequest, apperr.As(err).Kind)
}

func TestReplaceRejectsAttorney(t *testing.T) {
	db, _ := newMockDB(t)
	svc := NewService(db, 10*time.Minute)

	_, err := svc.Replace(context.Background(), "sdny", models.RoleAttorney, 5, ReplaceInput{})
	require.Error(t, err)
	require.Equal(t, apperr.KindForbidden, apperr.As(err).Kind)
}
