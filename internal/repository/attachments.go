package repository

import (
	"context"
	"database/sql"

	"github.com/districtcms/backend/internal/apperr"
	"github.com/districtcms/backend/pkg/models"
)

// CreateAttachment stages an upload slot under a docket entry before the
// client has actually uploaded to the presigned URL; UploadedAt stays nil.
func CreateAttachment(ctx context.Context, db DBTX, a models.DocketAttachment) (models.DocketAttachment, error) {
	row := db.QueryRowContext(ctx, `
		INSERT INTO docket_attachments (court_id, docket_entry_id, filename, storage_key, content_type, file_size, sha256)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`, a.CourtID, a.DocketEntryID, a.Filename, a.StorageKey, a.ContentType, a.FileSize, a.SHA256)
	if err := row.Scan(&a.ID); err != nil {
		return models.DocketAttachment{}, wrapDBErr(err)
	}
	return a, nil
}

// MarkUploaded records that the client finished the presigned upload.
func MarkUploaded(ctx context.Context, db DBTX, courtID models.CourtID, id int64, fileSize int64, sha256 string) (models.DocketAttachment, error) {
	row := db.QueryRowContext(ctx, `
		UPDATE docket_attachments SET uploaded_at = now(), file_size = $3, sha256 = $4
		WHERE court_id = $1 AND id = $2
		RETURNING id, court_id, docket_entry_id, filename, storage_key, content_type, file_size, sha256, uploaded_at
	`, courtID, id, fileSize, sha256)
	a, err := scanAttachment(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return models.DocketAttachment{}, apperr.NotFound("attachment")
		}
		return models.DocketAttachment{}, err
	}
	return a, nil
}

// GetAttachment fetches an attachment by id, scoped to courtID.
func GetAttachment(ctx context.Context, db DBTX, courtID models.CourtID, id int64) (models.DocketAttachment, error) {
	row := db.QueryRowContext(ctx, `
		SELECT id, court_id, docket_entry_id, filename, storage_key, content_type, file_size, sha256, uploaded_at
		FROM docket_attachments WHERE court_id = $1 AND id = $2
	`, courtID, id)
	a, err := scanAttachment(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return models.DocketAttachment{}, apperr.NotFound("attachment")
		}
		return models.DocketAttachment{}, err
	}
	return a, nil
}

func scanAttachment(row scanner) (models.DocketAttachment, error) {
	var (
		a          models.DocketAttachment
		uploadedAt sqlNullTime
	)
	err := row.Scan(&a.ID, &a.CourtID, &a.DocketEntryID, &a.Filename, &a.StorageKey, &a.ContentType, &a.FileSize, &a.SHA256, &uploadedAt)
	if err != nil {
		return models.DocketAttachment{}, wrapDBErr(err)
	}
	a.UploadedAt = uploadedAt.ptr()
	return a, nil
}
