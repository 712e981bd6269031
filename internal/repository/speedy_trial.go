package repository

import (
	"context"
	"database/sql"

	"github.com/districtcms/backend/internal/apperr"
	"github.com/districtcms/backend/pkg/models"
)

// CreateSpeedyTrialClock inserts the §3161 clock for a criminal case.
func CreateSpeedyTrialClock(ctx context.Context, db DBTX, c models.SpeedyTrialClock) (models.SpeedyTrialClock, error) {
	row := db.QueryRowContext(ctx, `
		INSERT INTO speedy_trial_clocks (
			court_id, case_id, arrest_date, indictment_date, arraignment_date,
			deadline, elapsed_days, remaining_days, tolled, waived
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id
	`, c.CourtID, c.CaseID, nullTime(c.ArrestDate), nullTime(c.IndictmentDate), nullTime(c.ArraignmentDate),
		nullTime(c.Deadline), c.ElapsedDays, c.RemainingDays, c.Tolled, c.Waived)
	if err := row.Scan(&c.ID); err != nil {
		return models.SpeedyTrialClock{}, wrapDBErr(err)
	}
	return c, nil
}

// GetSpeedyTrialClockByCase fetches the clock for a case, scoped to courtID.
func GetSpeedyTrialClockByCase(ctx context.Context, db DBTX, courtID models.CourtID, caseID int64) (models.SpeedyTrialClock, error) {
	row := db.QueryRowContext(ctx, `
		SELECT id, court_id, case_id, arrest_date, indictment_date, arraignment_date,
		       deadline, elapsed_days, remaining_days, tolled, waived
		FROM speedy_trial_clocks WHERE court_id = $1 AND case_id = $2
	`, courtID, caseID)
	c, err := scanClock(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return models.SpeedyTrialClock{}, apperr.NotFound("speedy trial clock")
		}
		return models.SpeedyTrialClock{}, err
	}
	return c, nil
}

// UpdateSpeedyTrialClock persists recomputed elapsed/remaining days and
// tolled state after a new excludable delay is recorded or a deadline is
// recomputed.
func UpdateSpeedyTrialClock(ctx context.Context, db DBTX, c models.SpeedyTrialClock) (models.SpeedyTrialClock, error) {
	row := db.QueryRowContext(ctx, `
		UPDATE speedy_trial_clocks
		SET deadline = $3, elapsed_days = $4, remaining_days = $5, tolled = $6, waived = $7
		WHERE court_id = $1 AND id = $2
		RETURNING id, court_id, case_id, arrest_date, indictment_date, arraignment_date,
		          deadline, elapsed_days, remaining_days, tolled, waived
	`, c.CourtID, c.ID, nullTime(c.Deadline), c.ElapsedDays, c.RemainingDays, c.Tolled, c.Waived)
	updated, err := scanClock(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return models.SpeedyTrialClock{}, apperr.NotFound("speedy trial clock")
		}
		return models.SpeedyTrialClock{}, err
	}
	return updated, nil
}

// CreateExcludableDelay records a tolling period linked to a clock.
func CreateExcludableDelay(ctx context.Context, db DBTX, d models.ExcludableDelay) (models.ExcludableDelay, error) {
	row := db.QueryRowContext(ctx, `
		INSERT INTO excludable_delays (clock_id, reason, start_date, end_date)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`, d.ClockID, d.Reason, d.StartDate, nullTime(d.EndDate))
	if err := row.Scan(&d.ID); err != nil {
		return models.ExcludableDelay{}, wrapDBErr(err)
	}
	return d, nil
}

// ListExcludableDelays returns every tolling period for a clock, oldest first.
func ListExcludableDelays(ctx context.Context, db DBTX, clockID int64) ([]models.ExcludableDelay, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, clock_id, reason, start_date, end_date
		FROM excludable_delays WHERE clock_id = $1
		ORDER BY start_date
	`, clockID)
	if err != nil {
		return nil, wrapDBErr(err)
	}
	defer rows.Close()

	var items []models.ExcludableDelay
	for rows.Next() {
		var (
			d       models.ExcludableDelay
			endDate sqlNullTime
		)
		if err := rows.Scan(&d.ID, &d.ClockID, &d.Reason, &d.StartDate, &endDate); err != nil {
			return nil, wrapDBErr(err)
		}
		d.EndDate = endDate.ptr()
		items = append(items, d)
	}
	return items, wrapDBErr(rows.Err())
}

func scanClock(row scanner) (models.SpeedyTrialClock, error) {
	var (
		c               models.SpeedyTrialClock
		arrestDate      sqlNullTime
		indictmentDate  sqlNullTime
		arraignmentDate sqlNullTime
		deadline        sqlNullTime
	)
	err := row.Scan(&c.ID, &c.CourtID, &c.CaseID, &arrestDate, &indictmentDate, &arraignmentDate,
		&deadline, &c.ElapsedDays, &c.RemainingDays, &c.Tolled, &c.Waived)
	if err != nil {
		return models.SpeedyTrialClock{}, wrapDBErr(err)
	}
	c.ArrestDate = arrestDate.ptr()
	c.IndictmentDate = indictmentDate.ptr()
	c.ArraignmentDate = arraignmentDate.ptr()
	c.Deadline = deadline.ptr()
	return c, nil
}
