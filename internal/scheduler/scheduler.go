// Package scheduler runs the backend's one background job: sweeping expired
// device-authorization rows on a fixed interval, independent of any inbound
// request.
package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/districtcms/backend/internal/repository"
)

// sweepInterval is fixed, not environment-configurable.
const sweepInterval = "@every 15m"

// Scheduler owns a single cron runner for the device-authorization sweep.
type Scheduler struct {
	cron   *cron.Cron
	db     repository.DBTX
	logger zerolog.Logger
}

// New builds a Scheduler. It does not start the cron runner; call Start.
func New(db repository.DBTX, logger zerolog.Logger) *Scheduler {
	return &Scheduler{
		cron:   cron.New(),
		db:     db,
		logger: logger,
	}
}

// Start registers the device-authorization sweep and runs it in the
// background until ctx is canceled.
func (s *Scheduler) Start(ctx context.Context) error {
	_, err := s.cron.AddFunc(sweepInterval, func() {
		s.sweepDeviceAuthorizations(ctx)
	})
	if err != nil {
		return err
	}
	s.cron.Start()
	go func() {
		<-ctx.Done()
		s.cron.Stop()
	}()
	return nil
}

func (s *Scheduler) sweepDeviceAuthorizations(ctx context.Context) {
	sweepCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	n, err := repository.DeleteExpiredDeviceAuthorizations(sweepCtx, s.db)
	if err != nil {
		s.logger.Warn().Err(err).Msg("device authorization sweep failed")
		return
	}
	if n > 0 {
		s.logger.Info().Int64("removed", n).Msg("swept expired device authorizations")
	}
}
