// Package speedytrial wraps the §3161 clock's mutations — recording an
// excludable delay (Toll) and marking the clock Waived — over the raw
// repository CRUD. Toll recomputes elapsed/remaining days; Waive leaves
// them as last computed.
package speedytrial

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/districtcms/backend/internal/apperr"
	"github.com/districtcms/backend/internal/repository"
	"github.com/districtcms/backend/pkg/models"
)

// statutoryDays is the default 18 U.S.C. §3161(c)(1) speedy-trial period.
const statutoryDays = 70

// Service wires clock mutations to their repository.
type Service struct {
	db *sqlx.DB
}

// NewService builds a Service.
func NewService(db *sqlx.DB) *Service {
	return &Service{db: db}
}

// Toll records an excludable delay against the case's clock and recomputes
// elapsed/remaining days and the tolled flag. to may be nil for a delay that
// is still open (e.g. a pending interlocutory appeal); the clock reads as
// tolled for as long as any delay remains open.
func (s *Service) Toll(ctx context.Context, courtID models.CourtID, caseID int64, reason string, from time.Time, to *time.Time) (models.SpeedyTrialClock, error) {
	if reason == "" {
		return models.SpeedyTrialClock{}, apperr.Validation(map[string]string{"reason": "required"})
	}
	if to != nil && to.Before(from) {
		return models.SpeedyTrialClock{}, apperr.New(apperr.KindBadRequest, "end date precedes start date")
	}

	var result models.SpeedyTrialClock
	err := repository.WithTx(ctx, s.db, func(tx *sqlx.Tx) error {
		clock, err := repository.GetSpeedyTrialClockByCase(ctx, tx, courtID, caseID)
		if err != nil {
			return err
		}

		if _, err := repository.CreateExcludableDelay(ctx, tx, models.ExcludableDelay{
			ClockID:   clock.ID,
			Reason:    reason,
			StartDate: from,
			EndDate:   to,
		}); err != nil {
			return err
		}

		delays, err := repository.ListExcludableDelays(ctx, tx, clock.ID)
		if err != nil {
			return err
		}
		recomputed := recompute(clock, delays)

		updated, err := repository.UpdateSpeedyTrialClock(ctx, tx, recomputed)
		if err != nil {
			return err
		}
		result = updated
		return nil
	})
	if err != nil {
		return models.SpeedyTrialClock{}, err
	}
	return result, nil
}

// Waive marks the clock as waived by the defendant; elapsed/remaining days
// are left as last computed since a waived clock no longer drives a
// dismissal deadline.
func (s *Service) Waive(ctx context.Context, courtID models.CourtID, caseID int64) (models.SpeedyTrialClock, error) {
	clock, err := repository.GetSpeedyTrialClockByCase(ctx, s.db, courtID, caseID)
	if err != nil {
		return models.SpeedyTrialClock{}, err
	}
	clock.Waived = true
	return repository.UpdateSpeedyTrialClock(ctx, s.db, clock)
}

// recompute derives elapsed/remaining days and the tolled flag from the
// clock's trigger date (indictment, falling back to arrest) and its
// excludable delays. Closed delays subtract their inclusive day span from
// the elapsed count; an open delay (no end date) tolls the clock and
// contributes no excluded days yet.
func recompute(clock models.SpeedyTrialClock, delays []models.ExcludableDelay) models.SpeedyTrialClock {
	trigger := clock.IndictmentDate
	if trigger == nil {
		trigger = clock.ArrestDate
	}
	if trigger == nil {
		return clock
	}

	now := time.Now().UTC()
	totalDays := int(now.Sub(*trigger).Hours() / 24)

	excluded := 0
	tolled := false
	for _, d := range delays {
		if d.EndDate == nil {
			tolled = true
			continue
		}
		span := int(d.EndDate.Sub(d.StartDate).Hours()/24) + 1
		if span > 0 {
			excluded += span
		}
	}

	clock.ElapsedDays = totalDays - excluded
	if clock.ElapsedDays < 0 {
		clock.ElapsedDays = 0
	}
	clock.RemainingDays = statutoryDays - clock.ElapsedDays
	if clock.RemainingDays < 0 {
		clock.RemainingDays = 0
	}
	clock.Tolled = tolled
	return clock
}
