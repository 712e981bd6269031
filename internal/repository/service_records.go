package repository

import (
	"context"

	"github.com/districtcms/backend/pkg/models"
)

// CreateServiceRecord inserts a per-party service record for a document.
func CreateServiceRecord(ctx context.Context, db DBTX, r models.ServiceRecord) (models.ServiceRecord, error) {
	row := db.QueryRowContext(ctx, `
		INSERT INTO service_records (court_id, document_id, party_id, service_method, sent_at)
		VALUES ($1, $2, $3, $4, now())
		RETURNING id, sent_at
	`, r.CourtID, r.DocumentID, r.PartyID, r.ServiceMethod)
	if err := row.Scan(&r.ID, &r.SentAt); err != nil {
		return models.ServiceRecord{}, wrapDBErr(err)
	}
	return r, nil
}

// ListServiceRecordsForDocument returns every service record for a document.
func ListServiceRecordsForDocument(ctx context.Context, db DBTX, courtID models.CourtID, documentID int64) ([]models.ServiceRecord, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, court_id, document_id, party_id, service_method, sent_at, completed_at
		FROM service_records WHERE court_id = $1 AND document_id = $2
		ORDER BY sent_at
	`, courtID, documentID)
	if err != nil {
		return nil, wrapDBErr(err)
	}
	defer rows.Close()

	var items []models.ServiceRecord
	for rows.Next() {
		var (
			r           models.ServiceRecord
			completedAt sqlNullTime
		)
		if err := rows.Scan(&r.ID, &r.CourtID, &r.DocumentID, &r.PartyID, &r.ServiceMethod, &r.SentAt, &completedAt); err != nil {
			return nil, wrapDBErr(err)
		}
		r.CompletedAt = completedAt.ptr()
		items = append(items, r)
	}
	return items, wrapDBErr(rows.Err())
}
