package events

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/districtcms/backend/internal/apperr"
	"github.com/districtcms/backend/internal/documents"
	"github.com/districtcms/backend/pkg/models"
)

func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return sqlx.NewDb(db, "postgres"), mock
}

func TestSubmitTextEntryRejectsEmptyDescription(t *testing.T) {
	db, _ := newMockDB(t)
	svc := NewService(db, documents.NewService(db, 10*time.Minute))

	_, err := svc.Submit(context.Background(), "sdny", models.RoleClerk, Request{
		Kind: KindTextEntry, CaseID: 1, EntryType: "note", Description: "   ",
	})
	require.Error(t, err)
	require.Equal(t, apperr.KindValidationError, apperr.As(err).Kind)
}

func TestSubmitTextEntryCreatesDocketEntryOnly(t *testing.T) {
	db, mock := newMockDB(t)
	svc := NewService(db, documents.NewService(db, 10*time.Minute))

	mock.ExpectBegin()
	mock.ExpectExec(`SELECT pg_advisory_xact_lock\(hashtext\(\$1\)\)`).
		WithArgs("sdny:case:1").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT COALESCE\(MAX\(entry_number\)`).
		WithArgs(models.CourtID("sdny"), int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"next"}).AddRow(3))
	mock.ExpectQuery(`INSERT INTO docket_entries`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(55)))
	mock.ExpectCommit()

	res, err := svc.Submit(context.Background(), "sdny", models.RoleClerk, Request{
		Kind: KindTextEntry, CaseID: 1, EntryType: "note", Description: "clerk note",
	})
	require.NoError(t, err)
	require.Equal(t, int64(55), res.DocketEntryID)
	require.Equal(t, 3, res.EntryNumber)
	require.Nil(t, res.DocumentID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSubmitTextEntryRejectsAttorneyRole(t *testing.T) {
	db, _ := newMockDB(t)
	svc := NewService(db, documents.NewService(db, 10*time.Minute))

	_, err := svc.Submit(context.Background(), "sdny", models.RoleAttorney, Request{
		Kind: KindTextEntry, CaseID: 1, EntryType: "note", Description: "x",
	})
	require.Error(t, err)
	require.Equal(t, apperr.KindForbidden, apperr.As(err).Kind)
}

func TestSubmitFilingRequiresDocumentTypeTitleAndFiledBy(t *testing.T) {
	db, _ := newMockDB(t)
	svc := NewService(db, documents.NewService(db, 10*time.Minute))

	_, err := svc.Submit(context.Background(), "sdny", models.RoleAttorney, Request{Kind: KindFiling, CaseID: 1})
	require.Error(t, err)
	require.Equal(t, apperr.KindValidationError, apperr.As(err).Kind)
}

func TestSubmitPromoteAttachmentRejectsInvalidDocumentType(t *testing.T) {
	db, _ := newMockDB(t)
	svc := NewService(db, documents.NewService(db, 10*time.Minute))

	_, err := svc.Submit(context.Background(), "sdny", models.RoleClerk, Request{
		Kind: KindPromoteAttachment, AttachmentID: 9, PromoteDocumentType: "Nonsense",
	})
	require.Error(t, err)
	require.Equal(t, apperr.KindBadRequest, apperr.As(err).Kind)
}

func TestSubmitUnknownKindIsBadRequest(t *testing.T) {
	db, _ := newMockDB(t)
	svc := NewService(db, documents.NewService(db, 10*time.Minute))

	_, err := svc.Submit(context.Background(), "sdny", models.RoleAdmin, Request{Kind: Kind("bogus")})
	require.Error(t, err)
	require.Equal(t, apperr.KindBadRequest, apperr.As(err).Kind)
}
