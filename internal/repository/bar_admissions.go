package repository

import (
	"context"
	"database/sql"

	"github.com/districtcms/backend/internal/apperr"
	"github.com/districtcms/backend/pkg/models"
)

// CreateBarAdmission links a user to a bar number within a court.
func CreateBarAdmission(ctx context.Context, db DBTX, a models.CourtBarAdmission) (models.CourtBarAdmission, error) {
	row := db.QueryRowContext(ctx, `
		INSERT INTO court_bar_admissions (user_id, court_id, bar_number, admitted_at)
		VALUES ($1, $2, $3, now())
		RETURNING admitted_at
	`, a.UserID, a.CourtID, a.BarNumber)
	if err := row.Scan(&a.AdmittedAt); err != nil {
		return models.CourtBarAdmission{}, wrapDBErr(err)
	}
	return a, nil
}

// GetBarAdmission fetches a user's bar admission for a court, if any,
// consulted optionally when granting the attorney role.
func GetBarAdmission(ctx context.Context, db DBTX, userID int64, courtID models.CourtID) (models.CourtBarAdmission, error) {
	row := db.QueryRowContext(ctx, `
		SELECT user_id, court_id, bar_number, admitted_at
		FROM court_bar_admissions WHERE user_id = $1 AND court_id = $2
	`, userID, courtID)
	var a models.CourtBarAdmission
	if err := row.Scan(&a.UserID, &a.CourtID, &a.BarNumber, &a.AdmittedAt); err != nil {
		if err == sql.ErrNoRows {
			return models.CourtBarAdmission{}, apperr.NotFound("bar admission")
		}
		return models.CourtBarAdmission{}, wrapDBErr(err)
	}
	return a, nil
}
