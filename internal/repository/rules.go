package repository

import (
	"context"
	"database/sql"

	"github.com/lib/pq"

	"github.com/districtcms/backend/internal/apperr"
	"github.com/districtcms/backend/pkg/models"
)

// CreateRule inserts a compliance/workflow rule.
func CreateRule(ctx context.Context, db DBTX, r models.Rule) (models.Rule, error) {
	row := db.QueryRowContext(ctx, `
		INSERT INTO rules (
			court_id, name, source, category, priority, status, jurisdiction_id,
			citation, effective_date, conditions, actions, triggers
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id
	`, r.CourtID, r.Name, r.Source, r.Category, r.Priority, r.Status, r.JurisdictionID,
		r.Citation, nullTime(r.EffectiveDate), r.Conditions, r.Actions, pq.Array(r.Triggers))
	if err := row.Scan(&r.ID); err != nil {
		return models.Rule{}, wrapDBErr(err)
	}
	return r, nil
}

// GetRule fetches a rule by id, scoped to courtID.
func GetRule(ctx context.Context, db DBTX, courtID models.CourtID, id int64) (models.Rule, error) {
	row := db.QueryRowContext(ctx, `
		SELECT id, court_id, name, source, category, priority, status, jurisdiction_id,
		       citation, effective_date, conditions, actions, triggers
		FROM rules WHERE court_id = $1 AND id = $2
	`, courtID, id)
	r, err := scanRule(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return models.Rule{}, apperr.NotFound("rule")
		}
		return models.Rule{}, err
	}
	return r, nil
}

// ListActiveRules returns every active rule for a court, the input to the
// rule engine's Select step. Jurisdiction and trigger filtering happen in
// internal/rules, not here, since they depend on the event being evaluated.
func ListActiveRules(ctx context.Context, db DBTX, courtID models.CourtID) ([]models.Rule, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, court_id, name, source, category, priority, status, jurisdiction_id,
		       citation, effective_date, conditions, actions, triggers
		FROM rules WHERE court_id = $1 AND status = $2
	`, courtID, models.RuleStatusActive)
	if err != nil {
		return nil, wrapDBErr(err)
	}
	defer rows.Close()

	var items []models.Rule
	for rows.Next() {
		r, err := scanRuleRows(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, r)
	}
	return items, wrapDBErr(rows.Err())
}

func scanRule(row scanner) (models.Rule, error) {
	return scanRuleRows(row)
}

func scanRuleRows(s scanner) (models.Rule, error) {
	var (
		r             models.Rule
		effectiveDate sqlNullTime
		triggers      pq.StringArray
	)
	err := s.Scan(&r.ID, &r.CourtID, &r.Name, &r.Source, &r.Category, &r.Priority, &r.Status, &r.JurisdictionID,
		&r.Citation, &effectiveDate, &r.Conditions, &r.Actions, &triggers)
	if err != nil {
		return models.Rule{}, wrapDBErr(err)
	}
	r.EffectiveDate = effectiveDate.ptr()
	r.Triggers = []string(triggers)
	return r, nil
}
