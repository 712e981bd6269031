package repository

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/districtcms/backend/internal/apperr"
	"github.com/districtcms/backend/pkg/models"
)

// CreateQueueItem inserts a new item at the first step of its pipeline.
// Callers (internal/queue) supply currentStep, the first entry of the
// queue type's step pipeline.
func CreateQueueItem(ctx context.Context, db DBTX, q models.QueueItem, currentStep string) (models.QueueItem, error) {
	metaJSON, err := json.Marshal(metadataOrEmpty(q.Metadata))
	if err != nil {
		return models.QueueItem{}, apperr.Wrap(apperr.KindInternalError, "failed to marshal metadata", err)
	}

	row := db.QueryRowContext(ctx, `
		INSERT INTO queue_items (
			court_id, queue_type, priority, status, title, source_type, source_id,
			case_id, assigned_to, submitted_by, current_step, metadata, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NULL, $9, $10, $11, now(), now())
		RETURNING id, created_at, updated_at
	`, q.CourtID, q.QueueType, q.Priority, models.QueueStatusPending, q.Title, q.SourceType, q.SourceID,
		nullInt64(q.CaseID), nullInt64(q.SubmittedBy), currentStep, metaJSON)
	if err := row.Scan(&q.ID, &q.CreatedAt, &q.UpdatedAt); err != nil {
		return models.QueueItem{}, wrapDBErr(err)
	}
	q.Status = models.QueueStatusPending
	q.CurrentStep = currentStep
	q.AssignedTo = nil
	return q, nil
}

// GetQueueItem fetches a queue item by id, scoped to courtID.
func GetQueueItem(ctx context.Context, db DBTX, courtID models.CourtID, id int64) (models.QueueItem, error) {
	row := db.QueryRowContext(ctx, `
		SELECT id, court_id, queue_type, priority, status, title, source_type, source_id,
		       case_id, assigned_to, submitted_by, current_step, metadata, created_at, updated_at, completed_at
		FROM queue_items WHERE court_id = $1 AND id = $2
	`, courtID, id)
	item, err := scanQueueItem(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return models.QueueItem{}, apperr.NotFound("queue item")
		}
		return models.QueueItem{}, err
	}
	return item, nil
}

// ListQueueItems returns a court's queue items, optionally filtered by
// status and/or queue type, newest first, paginated.
func ListQueueItems(ctx context.Context, db DBTX, courtID models.CourtID, status models.QueueStatus, queueType models.QueueType, page Page) (Result[models.QueueItem], error) {
	var total int
	if err := db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM queue_items
		WHERE court_id = $1 AND ($2 = '' OR status = $2) AND ($3 = '' OR queue_type = $3)
	`, courtID, status, queueType).Scan(&total); err != nil {
		return Result[models.QueueItem]{}, wrapDBErr(err)
	}

	rows, err := db.QueryContext(ctx, `
		SELECT id, court_id, queue_type, priority, status, title, source_type, source_id,
		       case_id, assigned_to, submitted_by, current_step, metadata, created_at, updated_at, completed_at
		FROM queue_items
		WHERE court_id = $1 AND ($2 = '' OR status = $2) AND ($3 = '' OR queue_type = $3)
		ORDER BY created_at DESC
		LIMIT $4 OFFSET $5
	`, courtID, status, queueType, page.Limit, page.Offset())
	if err != nil {
		return Result[models.QueueItem]{}, wrapDBErr(err)
	}
	defer rows.Close()

	var items []models.QueueItem
	for rows.Next() {
		item, err := scanQueueItem(rows)
		if err != nil {
			return Result[models.QueueItem]{}, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return Result[models.QueueItem]{}, wrapDBErr(err)
	}
	return Result[models.QueueItem]{Items: items, Total: total, Page: page.Number, Limit: page.Limit}, nil
}

// ClaimQueueItem assigns an unassigned, pending item to userID with a
// single conditional UPDATE — the only concurrency control claim needs.
// A zero rows-affected result means another clerk won the race.
func ClaimQueueItem(ctx context.Context, db DBTX, courtID models.CourtID, id, userID int64) (models.QueueItem, error) {
	row := db.QueryRowContext(ctx, `
		UPDATE queue_items
		SET assigned_to = $3, status = $4, updated_at = now()
		WHERE court_id = $1 AND id = $2 AND assigned_to IS NULL AND status = $5
		RETURNING id, court_id, queue_type, priority, status, title, source_type, source_id,
		          case_id, assigned_to, submitted_by, current_step, metadata, created_at, updated_at, completed_at
	`, courtID, id, userID, models.QueueStatusInReview, models.QueueStatusPending)
	item, err := scanQueueItem(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return models.QueueItem{}, apperr.Conflict("queue item already claimed")
		}
		return models.QueueItem{}, err
	}
	return item, nil
}

// ReleaseQueueItem unassigns an item, valid only if userID currently holds
// it; a foreign user is treated as NotFound per the membership access rule's
// "never reveal why" convention.
func ReleaseQueueItem(ctx context.Context, db DBTX, courtID models.CourtID, id, userID int64) (models.QueueItem, error) {
	row := db.QueryRowContext(ctx, `
		UPDATE queue_items
		SET assigned_to = NULL, status = $4, updated_at = now()
		WHERE court_id = $1 AND id = $2 AND assigned_to = $3
		RETURNING id, court_id, queue_type, priority, status, title, source_type, source_id,
		          case_id, assigned_to, submitted_by, current_step, metadata, created_at, updated_at, completed_at
	`, courtID, id, userID, models.QueueStatusPending)
	item, err := scanQueueItem(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return models.QueueItem{}, apperr.NotFound("queue item")
		}
		return models.QueueItem{}, err
	}
	return item, nil
}

// AdvanceQueueItem moves an item to step (intermediate: status=processing;
// terminal, when nextStep == "", status=completed with completed_at=now).
func AdvanceQueueItem(ctx context.Context, db DBTX, courtID models.CourtID, id int64, nextStep string) (models.QueueItem, error) {
	var row *sql.Row
	if nextStep == "" {
		row = db.QueryRowContext(ctx, `
			UPDATE queue_items
			SET status = $3, current_step = '', completed_at = now(), updated_at = now()
			WHERE court_id = $1 AND id = $2
			RETURNING id, court_id, queue_type, priority, status, title, source_type, source_id,
			          case_id, assigned_to, submitted_by, current_step, metadata, created_at, updated_at, completed_at
		`, courtID, id, models.QueueStatusCompleted)
	} else {
		row = db.QueryRowContext(ctx, `
			UPDATE queue_items
			SET status = $3, current_step = $4, updated_at = now()
			WHERE court_id = $1 AND id = $2
			RETURNING id, court_id, queue_type, priority, status, title, source_type, source_id,
			          case_id, assigned_to, submitted_by, current_step, metadata, created_at, updated_at, completed_at
		`, courtID, id, models.QueueStatusProcessing, nextStep)
	}
	item, err := scanQueueItem(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return models.QueueItem{}, apperr.NotFound("queue item")
		}
		return models.QueueItem{}, err
	}
	return item, nil
}

// RejectQueueItem marks an item rejected and merges reject_reason into
// metadata. An empty reason is a caller bug, not a repository concern, so
// callers (internal/queue) validate it before calling this.
func RejectQueueItem(ctx context.Context, db DBTX, courtID models.CourtID, id int64, reason string) (models.QueueItem, error) {
	existing, err := GetQueueItem(ctx, db, courtID, id)
	if err != nil {
		return models.QueueItem{}, err
	}
	if existing.Metadata == nil {
		existing.Metadata = map[string]interface{}{}
	}
	existing.Metadata["reject_reason"] = reason
	metaJSON, err := json.Marshal(existing.Metadata)
	if err != nil {
		return models.QueueItem{}, apperr.Wrap(apperr.KindInternalError, "failed to marshal metadata", err)
	}

	row := db.QueryRowContext(ctx, `
		UPDATE queue_items
		SET status = $3, metadata = $4, completed_at = now(), updated_at = now()
		WHERE court_id = $1 AND id = $2
		RETURNING id, court_id, queue_type, priority, status, title, source_type, source_id,
		          case_id, assigned_to, submitted_by, current_step, metadata, created_at, updated_at, completed_at
	`, courtID, id, models.QueueStatusRejected, metaJSON)
	item, err := scanQueueItem(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return models.QueueItem{}, apperr.NotFound("queue item")
		}
		return models.QueueItem{}, err
	}
	return item, nil
}

// QueueStats summarizes a court's queue for dashboard display.
type QueueStats struct {
	Pending               int
	Mine                  int
	Today                 int
	Urgent                int
	MeanProcessingMinutes float64
}

// Stats computes the queue dashboard numbers for one court and (for "mine")
// one user.
func Stats(ctx context.Context, db DBTX, courtID models.CourtID, userID int64) (QueueStats, error) {
	var s QueueStats
	if err := db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM queue_items WHERE court_id = $1 AND status = $2
	`, courtID, models.QueueStatusPending).Scan(&s.Pending); err != nil {
		return QueueStats{}, wrapDBErr(err)
	}

	if err := db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM queue_items
		WHERE court_id = $1 AND assigned_to = $2 AND status IN ($3, $4)
	`, courtID, userID, models.QueueStatusInReview, models.QueueStatusProcessing).Scan(&s.Mine); err != nil {
		return QueueStats{}, wrapDBErr(err)
	}

	if err := db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM queue_items
		WHERE court_id = $1 AND created_at >= date_trunc('day', now())
		AND status NOT IN ($2, $3)
	`, courtID, models.QueueStatusCompleted, models.QueueStatusRejected).Scan(&s.Today); err != nil {
		return QueueStats{}, wrapDBErr(err)
	}

	if err := db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM queue_items
		WHERE court_id = $1 AND priority <= 2 AND status NOT IN ($2, $3)
	`, courtID, models.QueueStatusCompleted, models.QueueStatusRejected).Scan(&s.Urgent); err != nil {
		return QueueStats{}, wrapDBErr(err)
	}

	var meanMinutes sql.NullFloat64
	if err := db.QueryRowContext(ctx, `
		SELECT AVG(EXTRACT(EPOCH FROM (completed_at - created_at)) / 60)
		FROM queue_items WHERE court_id = $1 AND status = $2
	`, courtID, models.QueueStatusCompleted).Scan(&meanMinutes); err != nil {
		return QueueStats{}, wrapDBErr(err)
	}
	s.MeanProcessingMinutes = meanMinutes.Float64
	return s, nil
}

func metadataOrEmpty(m map[string]interface{}) map[string]interface{} {
	if m == nil {
		return map[string]interface{}{}
	}
	return m
}

func scanQueueItem(row scanner) (models.QueueItem, error) {
	var (
		q           models.QueueItem
		caseID      sql.NullInt64
		assignedTo  sql.NullInt64
		submittedBy sql.NullInt64
		metaJSON    []byte
		completedAt sqlNullTime
	)
	err := row.Scan(&q.ID, &q.CourtID, &q.QueueType, &q.Priority, &q.Status, &q.Title, &q.SourceType, &q.SourceID,
		&caseID, &assignedTo, &submittedBy, &q.CurrentStep, &metaJSON, &q.CreatedAt, &q.UpdatedAt, &completedAt)
	if err != nil {
		return models.QueueItem{}, wrapDBErr(err)
	}
	if caseID.Valid {
		q.CaseID = &caseID.Int64
	}
	if assignedTo.Valid {
		q.AssignedTo = &assignedTo.Int64
	}
	if submittedBy.Valid {
		q.SubmittedBy = &submittedBy.Int64
	}
	if len(metaJSON) > 0 {
		_ = json.Unmarshal(metaJSON, &q.Metadata)
	}
	q.CompletedAt = completedAt.ptr()
	return q, nil
}
