// Package queue defines the per-queue-type step pipelines and wraps
// internal/repository's CAS primitives with next-step lookup so callers
// never have to know a queue type's step order themselves.
package queue

import (
	"context"

	"github.com/districtcms/backend/internal/apperr"
	"github.com/districtcms/backend/internal/repository"
	"github.com/districtcms/backend/pkg/models"
)

// pipelines maps each queue type to its ordered intermediate steps; the
// terminal "completed" status is implicit once the last step is passed.
var pipelines = map[models.QueueType][]string{
	models.QueueFiling:        {"review", "docket", "nef", "serve"},
	models.QueueMotion:        {"review", "docket", "nef", "route_judge", "serve"},
	models.QueueOrder:         {"docket", "nef", "serve"},
	models.QueueDeadlineAlert: {"review"},
	models.QueueGeneral:       {"review"},
}

// FirstStep returns the entry step of queueType's pipeline.
func FirstStep(queueType models.QueueType) string {
	steps := pipelines[queueType]
	if len(steps) == 0 {
		return "review"
	}
	return steps[0]
}

// NextStep returns the step after current in queueType's pipeline, or ""
// when current is the last step (the caller should then mark the item
// completed).
func NextStep(queueType models.QueueType, current string) string {
	steps := pipelines[queueType]
	for i, step := range steps {
		if step == current && i+1 < len(steps) {
			return steps[i+1]
		}
	}
	return ""
}

// Service wraps internal/repository's queue primitives with pipeline-aware
// creation and advancement.
type Service struct {
	db repository.DBTX
}

// NewService builds a Service.
func NewService(db repository.DBTX) *Service {
	return &Service{db: db}
}

// Create inserts a new item at its queue type's first step.
func (s *Service) Create(ctx context.Context, q models.QueueItem) (models.QueueItem, error) {
	return repository.CreateQueueItem(ctx, s.db, q, FirstStep(q.QueueType))
}

// List returns a court's queue items, optionally filtered by status and
// queue type.
func (s *Service) List(ctx context.Context, courtID models.CourtID, status models.QueueStatus, queueType models.QueueType, page repository.Page) (repository.Result[models.QueueItem], error) {
	return repository.ListQueueItems(ctx, s.db, courtID, status, queueType, page)
}

// Claim assigns an unassigned, pending item to userID.
func (s *Service) Claim(ctx context.Context, courtID models.CourtID, id, userID int64) (models.QueueItem, error) {
	return repository.ClaimQueueItem(ctx, s.db, courtID, id, userID)
}

// Release unassigns an item userID currently holds.
func (s *Service) Release(ctx context.Context, courtID models.CourtID, id, userID int64) (models.QueueItem, error) {
	return repository.ReleaseQueueItem(ctx, s.db, courtID, id, userID)
}

// Advance moves an item to the next step in its queue type's pipeline. When
// the item is already at its last step, it's marked completed instead.
func (s *Service) Advance(ctx context.Context, courtID models.CourtID, id int64) (models.QueueItem, error) {
	item, err := repository.GetQueueItem(ctx, s.db, courtID, id)
	if err != nil {
		return models.QueueItem{}, err
	}
	return repository.AdvanceQueueItem(ctx, s.db, courtID, id, NextStep(item.QueueType, item.CurrentStep))
}

// Reject marks an item rejected, recording reason in its metadata. An empty
// reason is a caller bug, validated here rather than in the repository.
func (s *Service) Reject(ctx context.Context, courtID models.CourtID, id int64, reason string) (models.QueueItem, error) {
	if reason == "" {
		return models.QueueItem{}, apperr.Validation(map[string]string{"reason": "required"})
	}
	return repository.RejectQueueItem(ctx, s.db, courtID, id, reason)
}

// Stats computes the queue dashboard numbers for a court.
func (s *Service) Stats(ctx context.Context, courtID models.CourtID, userID int64) (repository.QueueStats, error) {
	return repository.Stats(ctx, s.db, courtID, userID)
}
