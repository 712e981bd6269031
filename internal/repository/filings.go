package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/districtcms/backend/pkg/models"
)

// CreateFilingParams is the input to the filing event's atomic write.
type CreateFilingParams struct {
	Document      models.Document
	EntryType     string
	Description   string
	FiledByUserID int64
	Recipients    []int64
	ServiceMethod models.ServiceMethod
}

// FilingResult bundles every row the filing event creates.
type FilingResult struct {
	Document       models.Document
	DocketEntry    models.DocketEntry
	Filing         models.Filing
	ServiceRecords []models.ServiceRecord
	NEF            models.NEF
}

// CreateFiling atomically creates a Document, an auto-numbered DocketEntry,
// a Filing, one ServiceRecord per recipient, and an NEF. Any failure rolls
// back all five writes. An advisory lock keyed on (court, case) serializes
// entry-number assignment the same way cases.go serializes case-number
// assignment.
func CreateFiling(ctx context.Context, db *sqlx.DB, courtID models.CourtID, caseID int64, p CreateFilingParams) (FilingResult, error) {
	var result FilingResult
	err := WithTx(ctx, db, func(tx *sqlx.Tx) error {
		lockKey := fmt.Sprintf("%s:case:%d", courtID, caseID)
		if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, lockKey); err != nil {
			return wrapDBErr(err)
		}

		p.Document.CourtID = courtID
		p.Document.CaseID = caseID
		doc, err := CreateDocument(ctx, tx, p.Document)
		if err != nil {
			return err
		}

		entryNumber, err := NextEntryNumber(ctx, tx, courtID, caseID)
		if err != nil {
			return err
		}
		entry, err := CreateDocketEntry(ctx, tx, models.DocketEntry{
			CourtID:     courtID,
			CaseID:      caseID,
			EntryNumber: entryNumber,
			EntryType:   p.EntryType,
			Description: p.Description,
			FiledBy:     &p.FiledByUserID,
			DocumentID:  &doc.ID,
			ServiceList: p.Recipients,
		})
		if err != nil {
			return err
		}

		filing, err := insertFiling(ctx, tx, models.Filing{
			CourtID:       courtID,
			CaseID:        caseID,
			DocumentID:    doc.ID,
			DocketEntryID: entry.ID,
			FiledByUserID: p.FiledByUserID,
		})
		if err != nil {
			return err
		}

		var records []models.ServiceRecord
		for _, partyID := range p.Recipients {
			r, err := CreateServiceRecord(ctx, tx, models.ServiceRecord{
				CourtID:       courtID,
				DocumentID:    doc.ID,
				PartyID:       partyID,
				ServiceMethod: p.ServiceMethod,
			})
			if err != nil {
				return err
			}
			records = append(records, r)
		}

		nef, err := CreateNEF(ctx, tx, models.NEF{
			CourtID:       courtID,
			FilingID:      filing.ID,
			DocketEntryID: entry.ID,
			DocumentID:    doc.ID,
		})
		if err != nil {
			return err
		}

		result = FilingResult{Document: doc, DocketEntry: entry, Filing: filing, ServiceRecords: records, NEF: nef}
		return nil
	})
	if err != nil {
		return FilingResult{}, err
	}
	return result, nil
}

func insertFiling(ctx context.Context, db DBTX, f models.Filing) (models.Filing, error) {
	row := db.QueryRowContext(ctx, `
		INSERT INTO filings (court_id, case_id, document_id, docket_entry_id, filed_by_user_id, created_at)
		VALUES ($1, $2, $3, $4, $5, now())
		RETURNING id, created_at
	`, f.CourtID, f.CaseID, f.DocumentID, f.DocketEntryID, f.FiledByUserID)
	if err := row.Scan(&f.ID, &f.CreatedAt); err != nil {
		return models.Filing{}, wrapDBErr(err)
	}
	return f, nil
}
