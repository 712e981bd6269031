package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/districtcms/backend/internal/apperr"
	"github.com/districtcms/backend/pkg/models"
)

// CreateCase generates a case number and inserts the case inside a single
// transaction. The number format is {division}:{yy}-{cr|cv}-{count+1:05}.
// A Postgres advisory lock keyed on hashtext(court_id || kind) is held for
// the duration of the count-then-insert so concurrent filings in the same
// court and case kind cannot race to the same number, since a plain
// read-count-then-insert is racy on its own.
func CreateCase(ctx context.Context, db *sqlx.DB, c models.Case) (models.Case, error) {
	var result models.Case
	err := WithTx(ctx, db, func(tx *sqlx.Tx) error {
		lockKey := fmt.Sprintf("%s:%s", c.CourtID, c.Kind)
		if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, lockKey); err != nil {
			return wrapDBErr(err)
		}

		var count int
		if err := tx.QueryRowContext(ctx, `
			SELECT COUNT(*) FROM cases WHERE court_id = $1 AND kind = $2
		`, c.CourtID, c.Kind).Scan(&count); err != nil {
			return wrapDBErr(err)
		}

		yy := c.OpenedAt.Format("06")
		if c.OpenedAt.IsZero() {
			yy = time.Now().UTC().Format("06")
		}
		c.CaseNumber = fmt.Sprintf("%s:%s-%s-%05d", c.Division, yy, c.Kind, count+1)
		if c.OpenedAt.IsZero() {
			c.OpenedAt = time.Now().UTC()
		}
		if c.Status == "" {
			c.Status = models.CaseStatusOpen
		}

		row := tx.QueryRowContext(ctx, `
			INSERT INTO cases (
				court_id, kind, case_number, division, title, status, priority, opened_at,
				arrest_date, indictment_date, arraignment_date
			)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
			RETURNING id
		`, c.CourtID, c.Kind, c.CaseNumber, c.Division, c.Title, c.Status, c.Priority, c.OpenedAt,
			nullTime(c.ArrestDate), nullTime(c.IndictmentDate), nullTime(c.ArraignmentDate))
		if err := row.Scan(&c.ID); err != nil {
			return wrapDBErr(err)
		}
		result = c
		return nil
	})
	if err != nil {
		return models.Case{}, err
	}
	return result, nil
}

// GetCase fetches a case by id, scoped to courtID.
func GetCase(ctx context.Context, db DBTX, courtID models.CourtID, id int64) (models.Case, error) {
	row := db.QueryRowContext(ctx, `
		SELECT id, court_id, kind, case_number, division, title, status, priority, opened_at,
		       arrest_date, indictment_date, arraignment_date
		FROM cases WHERE court_id = $1 AND id = $2
	`, courtID, id)
	c, err := scanCase(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return models.Case{}, apperr.NotFound("case")
		}
		return models.Case{}, err
	}
	return c, nil
}

// ListCases returns a court's cases, optionally filtered by status, paginated.
func ListCases(ctx context.Context, db DBTX, courtID models.CourtID, status models.CaseStatus, page Page) (Result[models.Case], error) {
	var total int
	if err := db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM cases WHERE court_id = $1 AND ($2 = '' OR status = $2)
	`, courtID, status).Scan(&total); err != nil {
		return Result[models.Case]{}, wrapDBErr(err)
	}

	rows, err := db.QueryContext(ctx, `
		SELECT id, court_id, kind, case_number, division, title, status, priority, opened_at,
		       arrest_date, indictment_date, arraignment_date
		FROM cases
		WHERE court_id = $1 AND ($2 = '' OR status = $2)
		ORDER BY opened_at DESC
		LIMIT $3 OFFSET $4
	`, courtID, status, page.Limit, page.Offset())
	if err != nil {
		return Result[models.Case]{}, wrapDBErr(err)
	}
	defer rows.Close()

	var items []models.Case
	for rows.Next() {
		c, err := scanCaseRows(rows)
		if err != nil {
			return Result[models.Case]{}, err
		}
		items = append(items, c)
	}
	if err := rows.Err(); err != nil {
		return Result[models.Case]{}, wrapDBErr(err)
	}
	return Result[models.Case]{Items: items, Total: total, Page: page.Number, Limit: page.Limit}, nil
}

// UpdateCaseStatus transitions a case's status and returns the updated row.
func UpdateCaseStatus(ctx context.Context, db DBTX, courtID models.CourtID, id int64, status models.CaseStatus) (models.Case, error) {
	row := db.QueryRowContext(ctx, `
		UPDATE cases SET status = $3
		WHERE court_id = $1 AND id = $2
		RETURNING id, court_id, kind, case_number, division, title, status, priority, opened_at,
		          arrest_date, indictment_date, arraignment_date
	`, courtID, id, status)
	c, err := scanCase(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return models.Case{}, apperr.NotFound("case")
		}
		return models.Case{}, err
	}
	return c, nil
}

func scanCase(row scanner) (models.Case, error) {
	return scanCaseRows(row)
}

func scanCaseRows(s scanner) (models.Case, error) {
	var (
		c               models.Case
		arrestDate      sqlNullTime
		indictmentDate  sqlNullTime
		arraignmentDate sqlNullTime
	)
	err := s.Scan(&c.ID, &c.CourtID, &c.Kind, &c.CaseNumber, &c.Division, &c.Title, &c.Status, &c.Priority, &c.OpenedAt,
		&arrestDate, &indictmentDate, &arraignmentDate)
	if err != nil {
		return models.Case{}, wrapDBErr(err)
	}
	c.ArrestDate = arrestDate.ptr()
	c.IndictmentDate = indictmentDate.ptr()
	c.ArraignmentDate = arraignmentDate.ptr()
	return c, nil
}
