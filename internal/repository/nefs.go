package repository

import (
	"context"
	"database/sql"

	"github.com/districtcms/backend/internal/apperr"
	"github.com/districtcms/backend/pkg/models"
)

// CreateNEF inserts an immutable Notice of Electronic Filing.
func CreateNEF(ctx context.Context, db DBTX, n models.NEF) (models.NEF, error) {
	row := db.QueryRowContext(ctx, `
		INSERT INTO nefs (court_id, filing_id, docket_entry_id, document_id, created_at)
		VALUES ($1, $2, $3, $4, now())
		RETURNING id, created_at
	`, n.CourtID, n.FilingID, n.DocketEntryID, n.DocumentID)
	if err := row.Scan(&n.ID, &n.CreatedAt); err != nil {
		return models.NEF{}, wrapDBErr(err)
	}
	return n, nil
}

// ListNEFsForCase returns every NEF issued against a case's docket entries,
// for timeline assembly.
func ListNEFsForCase(ctx context.Context, db DBTX, courtID models.CourtID, caseID int64) ([]models.NEF, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT n.id, n.court_id, n.filing_id, n.docket_entry_id, n.document_id, n.created_at
		FROM nefs n
		JOIN docket_entries e ON e.court_id = n.court_id AND e.id = n.docket_entry_id
		WHERE n.court_id = $1 AND e.case_id = $2
		ORDER BY n.created_at DESC
	`, courtID, caseID)
	if err != nil {
		return nil, wrapDBErr(err)
	}
	defer rows.Close()

	var items []models.NEF
	for rows.Next() {
		var n models.NEF
		if err := rows.Scan(&n.ID, &n.CourtID, &n.FilingID, &n.DocketEntryID, &n.DocumentID, &n.CreatedAt); err != nil {
			return nil, wrapDBErr(err)
		}
		items = append(items, n)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapDBErr(err)
	}
	return items, nil
}

// GetNEF fetches an NEF by id, scoped to courtID.
func GetNEF(ctx context.Context, db DBTX, courtID models.CourtID, id int64) (models.NEF, error) {
	row := db.QueryRowContext(ctx, `
		SELECT id, court_id, filing_id, docket_entry_id, document_id, created_at
		FROM nefs WHERE court_id = $1 AND id = $2
	`, courtID, id)
	var n models.NEF
	if err := row.Scan(&n.ID, &n.CourtID, &n.FilingID, &n.DocketEntryID, &n.DocumentID, &n.CreatedAt); err != nil {
		if err == sql.ErrNoRows {
			return models.NEF{}, apperr.NotFound("nef")
		}
		return models.NEF{}, wrapDBErr(err)
	}
	return n, nil
}
