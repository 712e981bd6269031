package repository

import (
	"context"
	"database/sql"

	"github.com/districtcms/backend/internal/apperr"
	"github.com/districtcms/backend/pkg/models"
)

// CreateRoleRequest inserts a pending court role request. At most one
// pending request may exist per user/court, enforced by a partial unique
// index in the migration; a violation surfaces here as a Conflict.
func CreateRoleRequest(ctx context.Context, db DBTX, r models.CourtRoleRequest) (models.CourtRoleRequest, error) {
	row := db.QueryRowContext(ctx, `
		INSERT INTO court_role_requests (user_id, court_id, requested_role, status, notes, created_at)
		VALUES ($1, $2, $3, $4, $5, now())
		RETURNING id, created_at
	`, r.UserID, r.CourtID, r.RequestedRole, models.RoleRequestPending, r.Notes)
	if err := row.Scan(&r.ID, &r.CreatedAt); err != nil {
		return models.CourtRoleRequest{}, wrapDBErr(err)
	}
	r.Status = models.RoleRequestPending
	return r, nil
}

// GetRoleRequest fetches a single role request by id.
func GetRoleRequest(ctx context.Context, db DBTX, id int64) (models.CourtRoleRequest, error) {
	row := db.QueryRowContext(ctx, `
		SELECT id, user_id, court_id, requested_role, status, reviewer_id, notes, created_at, decided_at
		FROM court_role_requests WHERE id = $1
	`, id)
	r, err := scanRoleRequest(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return models.CourtRoleRequest{}, apperr.NotFound("role request")
		}
		return models.CourtRoleRequest{}, err
	}
	return r, nil
}

// HasPendingRequest reports whether user already has a pending request for
// court — used to pre-empt the unique-index violation with a friendlier
// Conflict message.
func HasPendingRequest(ctx context.Context, db DBTX, userID int64, courtID models.CourtID) (bool, error) {
	var exists bool
	err := db.QueryRowContext(ctx, `
		SELECT EXISTS(
			SELECT 1 FROM court_role_requests
			WHERE user_id = $1 AND court_id = $2 AND status = $3
		)
	`, userID, courtID, models.RoleRequestPending).Scan(&exists)
	if err != nil {
		return false, wrapDBErr(err)
	}
	return exists, nil
}

// ListPendingRoleRequests returns a court's open requests, paginated.
func ListPendingRoleRequests(ctx context.Context, db DBTX, courtID models.CourtID, page Page) (Result[models.CourtRoleRequest], error) {
	var total int
	if err := db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM court_role_requests WHERE court_id = $1 AND status = $2
	`, courtID, models.RoleRequestPending).Scan(&total); err != nil {
		return Result[models.CourtRoleRequest]{}, wrapDBErr(err)
	}

	rows, err := db.QueryContext(ctx, `
		SELECT id, user_id, court_id, requested_role, status, reviewer_id, notes, created_at, decided_at
		FROM court_role_requests
		WHERE court_id = $1 AND status = $2
		ORDER BY created_at
		LIMIT $3 OFFSET $4
	`, courtID, models.RoleRequestPending, page.Limit, page.Offset())
	if err != nil {
		return Result[models.CourtRoleRequest]{}, wrapDBErr(err)
	}
	defer rows.Close()

	var items []models.CourtRoleRequest
	for rows.Next() {
		r, err := scanRoleRequestRows(rows)
		if err != nil {
			return Result[models.CourtRoleRequest]{}, err
		}
		items = append(items, r)
	}
	if err := rows.Err(); err != nil {
		return Result[models.CourtRoleRequest]{}, wrapDBErr(err)
	}
	return Result[models.CourtRoleRequest]{Items: items, Total: total, Page: page.Number, Limit: page.Limit}, nil
}

// DecideRoleRequest approves or denies a pending request and returns the
// updated row.
func DecideRoleRequest(ctx context.Context, db DBTX, id int64, status models.RoleRequestStatus, reviewerID int64) (models.CourtRoleRequest, error) {
	row := db.QueryRowContext(ctx, `
		UPDATE court_role_requests
		SET status = $2, reviewer_id = $3, decided_at = now()
		WHERE id = $1 AND status = $4
		RETURNING id, user_id, court_id, requested_role, status, reviewer_id, notes, created_at, decided_at
	`, id, status, reviewerID, models.RoleRequestPending)
	r, err := scanRoleRequest(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return models.CourtRoleRequest{}, apperr.Conflict("role request already decided")
		}
		return models.CourtRoleRequest{}, err
	}
	return r, nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRoleRequest(row scanner) (models.CourtRoleRequest, error) {
	return scanRoleRequestRows(row)
}

func scanRoleRequestRows(s scanner) (models.CourtRoleRequest, error) {
	var (
		r          models.CourtRoleRequest
		reviewerID sql.NullInt64
		notes      sql.NullString
		decidedAt  sql.NullTime
	)
	err := s.Scan(&r.ID, &r.UserID, &r.CourtID, &r.RequestedRole, &r.Status, &reviewerID, &notes, &r.CreatedAt, &decidedAt)
	if err != nil {
		return models.CourtRoleRequest{}, wrapDBErr(err)
	}
	if reviewerID.Valid {
		r.ReviewerID = &reviewerID.Int64
	}
	r.Notes = notes.String
	if decidedAt.Valid {
		t := decidedAt.Time.UTC()
		r.DecidedAt = &t
	}
	return r, nil
}
