package repository

import (
	"context"
	"database/sql"

	"github.com/lib/pq"

	"github.com/districtcms/backend/internal/apperr"
	"github.com/districtcms/backend/pkg/models"
)

// NextEntryNumber returns the next gapless entry number for a case. Callers
// must hold a row lock on the case (e.g. SELECT ... FOR UPDATE,
// or run inside the same advisory-locked transaction as the parent write) to
// avoid a concurrent duplicate the way cases.go does for case numbers.
func NextEntryNumber(ctx context.Context, db DBTX, courtID models.CourtID, caseID int64) (int, error) {
	var next int
	err := db.QueryRowContext(ctx, `
		SELECT COALESCE(MAX(entry_number), 0) + 1 FROM docket_entries WHERE court_id = $1 AND case_id = $2
	`, courtID, caseID).Scan(&next)
	if err != nil {
		return 0, wrapDBErr(err)
	}
	return next, nil
}

// CreateDocketEntry inserts a docket entry at the given (already-reserved)
// entry number.
func CreateDocketEntry(ctx context.Context, db DBTX, e models.DocketEntry) (models.DocketEntry, error) {
	row := db.QueryRowContext(ctx, `
		INSERT INTO docket_entries (
			court_id, case_id, entry_number, date_filed, entry_type, description,
			filed_by, document_id, is_sealed, is_ex_parte, page_count, related_entries, service_list
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id
	`, e.CourtID, e.CaseID, e.EntryNumber, e.DateFiled, e.EntryType, e.Description,
		nullInt64(e.FiledBy), nullInt64(e.DocumentID), e.IsSealed, e.IsExParte, nullInt(e.PageCount),
		pq.Array(e.RelatedEntries), pq.Array(e.ServiceList))
	if err := row.Scan(&e.ID); err != nil {
		return models.DocketEntry{}, wrapDBErr(err)
	}
	return e, nil
}

// GetDocketEntry fetches a docket entry by id, scoped to courtID.
func GetDocketEntry(ctx context.Context, db DBTX, courtID models.CourtID, id int64) (models.DocketEntry, error) {
	row := db.QueryRowContext(ctx, `
		SELECT id, court_id, case_id, entry_number, date_filed, entry_type, description,
		       filed_by, document_id, is_sealed, is_ex_parte, page_count, related_entries, service_list
		FROM docket_entries WHERE court_id = $1 AND id = $2
	`, courtID, id)
	e, err := scanDocketEntry(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return models.DocketEntry{}, apperr.NotFound("docket entry")
		}
		return models.DocketEntry{}, err
	}
	return e, nil
}

// LinkDocument attaches a canonical document to a docket entry (used when
// promoting an attachment).
func LinkDocument(ctx context.Context, db DBTX, courtID models.CourtID, entryID, documentID int64) error {
	res, err := db.ExecContext(ctx, `
		UPDATE docket_entries SET document_id = $3 WHERE court_id = $1 AND id = $2
	`, courtID, entryID, documentID)
	if err != nil {
		return wrapDBErr(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return wrapDBErr(err)
	}
	if n == 0 {
		return apperr.NotFound("docket entry")
	}
	return nil
}

// ListDocketEntries returns a case's docket, paginated, oldest first.
func ListDocketEntries(ctx context.Context, db DBTX, courtID models.CourtID, caseID int64, page Page) (Result[models.DocketEntry], error) {
	var total int
	if err := db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM docket_entries WHERE court_id = $1 AND case_id = $2
	`, courtID, caseID).Scan(&total); err != nil {
		return Result[models.DocketEntry]{}, wrapDBErr(err)
	}

	rows, err := db.QueryContext(ctx, `
		SELECT id, court_id, case_id, entry_number, date_filed, entry_type, description,
		       filed_by, document_id, is_sealed, is_ex_parte, page_count, related_entries, service_list
		FROM docket_entries
		WHERE court_id = $1 AND case_id = $2
		ORDER BY entry_number
		LIMIT $3 OFFSET $4
	`, courtID, caseID, page.Limit, page.Offset())
	if err != nil {
		return Result[models.DocketEntry]{}, wrapDBErr(err)
	}
	defer rows.Close()

	var items []models.DocketEntry
	for rows.Next() {
		e, err := scanDocketEntryRows(rows)
		if err != nil {
			return Result[models.DocketEntry]{}, err
		}
		items = append(items, e)
	}
	if err := rows.Err(); err != nil {
		return Result[models.DocketEntry]{}, wrapDBErr(err)
	}
	return Result[models.DocketEntry]{Items: items, Total: total, Page: page.Number, Limit: page.Limit}, nil
}

func scanDocketEntry(row scanner) (models.DocketEntry, error) {
	return scanDocketEntryRows(row)
}

func scanDocketEntryRows(s scanner) (models.DocketEntry, error) {
	var (
		e          models.DocketEntry
		filedBy    sql.NullInt64
		documentID sql.NullInt64
		pageCount  sql.NullInt32
		related    pq.Int64Array
		serviceLst pq.Int64Array
	)
	err := s.Scan(&e.ID, &e.CourtID, &e.CaseID, &e.EntryNumber, &e.DateFiled, &e.EntryType, &e.Description,
		&filedBy, &documentID, &e.IsSealed, &e.IsExParte, &pageCount, &related, &serviceLst)
	if err != nil {
		return models.DocketEntry{}, wrapDBErr(err)
	}
	if filedBy.Valid {
		e.FiledBy = &filedBy.Int64
	}
	if documentID.Valid {
		e.DocumentID = &documentID.Int64
	}
	if pageCount.Valid {
		v := int(pageCount.Int32)
		e.PageCount = &v
	}
	e.RelatedEntries = []int64(related)
	e.ServiceList = []int64(serviceLst)
	return e, nil
}
