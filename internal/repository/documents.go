package repository

import (
	"context"
	"database/sql"

	"github.com/districtcms/backend/internal/apperr"
	"github.com/districtcms/backend/pkg/models"
)

// CreateDocument inserts a new active document.
func CreateDocument(ctx context.Context, db DBTX, d models.Document) (models.Document, error) {
	row := db.QueryRowContext(ctx, `
		INSERT INTO documents (
			court_id, case_id, title, document_type, storage_key, file_size,
			content_type, checksum, created_at, is_stricken, source_attachment_id
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now(), false, $9)
		RETURNING id, created_at
	`, d.CourtID, d.CaseID, d.Title, d.DocumentType, d.StorageKey, d.FileSize,
		d.ContentType, d.Checksum, nullInt64(d.SourceAttachmentID))
	if err := row.Scan(&d.ID, &d.CreatedAt); err != nil {
		return models.Document{}, wrapDBErr(err)
	}
	return d, nil
}

// GetDocument fetches a document by id, scoped to courtID.
func GetDocument(ctx context.Context, db DBTX, courtID models.CourtID, id int64) (models.Document, error) {
	row := db.QueryRowContext(ctx, `
		SELECT id, court_id, case_id, title, document_type, storage_key, file_size,
		       content_type, checksum, created_at, is_stricken, replaced_by_document_id, source_attachment_id
		FROM documents WHERE court_id = $1 AND id = $2
	`, courtID, id)
	d, err := scanDocument(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return models.Document{}, apperr.NotFound("document")
		}
		return models.Document{}, err
	}
	return d, nil
}

// GetDocumentByAttachment finds the document, if any, created from a given
// source attachment — used to make promote_attachment idempotent.
func GetDocumentByAttachment(ctx context.Context, db DBTX, courtID models.CourtID, attachmentID int64) (*models.Document, error) {
	row := db.QueryRowContext(ctx, `
		SELECT id, court_id, case_id, title, document_type, storage_key, file_size,
		       content_type, checksum, created_at, is_stricken, replaced_by_document_id, source_attachment_id
		FROM documents WHERE court_id = $1 AND source_attachment_id = $2
	`, courtID, attachmentID)
	d, err := scanDocument(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &d, nil
}

// UpdateDocumentInPlace overwrites storage fields on an existing document —
// used by Replace during the grace period, when no new document row or
// docket entry is created.
func UpdateDocumentInPlace(ctx context.Context, db DBTX, courtID models.CourtID, id int64, storageKey string, fileSize int64, contentType, checksum string) (models.Document, error) {
	row := db.QueryRowContext(ctx, `
		UPDATE documents
		SET storage_key = $3, file_size = $4, content_type = $5, checksum = $6
		WHERE court_id = $1 AND id = $2 AND is_stricken = false AND replaced_by_document_id IS NULL
		RETURNING id, court_id, case_id, title, document_type, storage_key, file_size,
		          content_type, checksum, created_at, is_stricken, replaced_by_document_id, source_attachment_id
	`, courtID, id, storageKey, fileSize, contentType, checksum)
	d, err := scanDocument(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return models.Document{}, apperr.NotFound("document")
		}
		return models.Document{}, err
	}
	return d, nil
}

// StrikeDocument marks a document as withdrawn without deleting it.
func StrikeDocument(ctx context.Context, db DBTX, courtID models.CourtID, id int64) error {
	res, err := db.ExecContext(ctx, `
		UPDATE documents SET is_stricken = true WHERE court_id = $1 AND id = $2 AND is_stricken = false
	`, courtID, id)
	if err != nil {
		return wrapDBErr(err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return apperr.NotFound("document")
	}
	return nil
}

// ReplaceWithNewDocument strikes an existing document and inserts a new one
// in its place (past the grace period), returning the new document. A
// document is never both active and pointing at a replacement, so the
// strike and the insert happen in one transaction.
func ReplaceWithNewDocument(ctx context.Context, db DBTX, courtID models.CourtID, oldID int64, replacement models.Document) (models.Document, error) {
	res, err := db.ExecContext(ctx, `
		UPDATE documents SET is_stricken = true WHERE court_id = $1 AND id = $2 AND is_stricken = false AND replaced_by_document_id IS NULL
	`, courtID, oldID)
	if err != nil {
		return models.Document{}, wrapDBErr(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return models.Document{}, apperr.New(apperr.KindBadRequest, "document already replaced or stricken")
	}

	created, err := CreateDocument(ctx, db, replacement)
	if err != nil {
		return models.Document{}, err
	}

	if _, err := db.ExecContext(ctx, `
		UPDATE documents SET replaced_by_document_id = $3 WHERE court_id = $1 AND id = $2
	`, courtID, oldID, created.ID); err != nil {
		return models.Document{}, wrapDBErr(err)
	}
	return created, nil
}

// ListDocumentsForCase returns every document on a case, newest first, for
// timeline assembly.
func ListDocumentsForCase(ctx context.Context, db DBTX, courtID models.CourtID, caseID int64) ([]models.Document, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, court_id, case_id, title, document_type, storage_key, file_size,
		       content_type, checksum, created_at, is_stricken, replaced_by_document_id, source_attachment_id
		FROM documents WHERE court_id = $1 AND case_id = $2
		ORDER BY created_at DESC
	`, courtID, caseID)
	if err != nil {
		return nil, wrapDBErr(err)
	}
	defer rows.Close()

	var items []models.Document
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, d)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapDBErr(err)
	}
	return items, nil
}

func scanDocument(row scanner) (models.Document, error) {
	var (
		d             models.Document
		replacedBy    sql.NullInt64
		sourceAttach  sql.NullInt64
	)
	err := row.Scan(&d.ID, &d.CourtID, &d.CaseID, &d.Title, &d.DocumentType, &d.StorageKey, &d.FileSize,
		&d.ContentType, &d.Checksum, &d.CreatedAt, &d.IsStricken, &replacedBy, &sourceAttach)
	if err != nil {
		return models.Document{}, wrapDBErr(err)
	}
	if replacedBy.Valid {
		d.ReplacedByDocumentID = &replacedBy.Int64
	}
	if sourceAttach.Valid {
		d.SourceAttachmentID = &sourceAttach.Int64
	}
	return d, nil
}
