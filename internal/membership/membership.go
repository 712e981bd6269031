// Package membership implements the role-request lifecycle: a user asks to
// hold a role in a court, a clerk or admin decides it, and an email-domain
// match against the court's uscourts.gov subdomain can fast-path the
// decision to approved.
package membership

import (
	"context"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/districtcms/backend/internal/apperr"
	"github.com/districtcms/backend/internal/repository"
	"github.com/districtcms/backend/pkg/models"
)

// Service wires the role-request lifecycle to its repository.
type Service struct {
	db *sqlx.DB
}

// NewService builds a Service.
func NewService(db *sqlx.DB) *Service {
	return &Service{db: db}
}

// Request creates a pending role request, or — when the requester's email
// matches the court's uscourts.gov subdomain — creates it already approved
// and grants the role, all inside one transaction. At most one pending
// request may exist per user/court; that's pre-empted with a friendly
// Conflict before the insert can hit the partial unique index.
func (s *Service) Request(ctx context.Context, userID int64, email string, courtID models.CourtID, role models.Role) (models.CourtRoleRequest, error) {
	if !role.Valid() {
		return models.CourtRoleRequest{}, apperr.Validation(map[string]string{"requested_role": "not a recognized role"})
	}

	var result models.CourtRoleRequest
	err := repository.WithTx(ctx, s.db, func(tx *sqlx.Tx) error {
		pending, err := repository.HasPendingRequest(ctx, tx, userID, courtID)
		if err != nil {
			return err
		}
		if pending {
			return apperr.Conflict("a role request is already pending for this court")
		}

		req, err := repository.CreateRoleRequest(ctx, tx, models.CourtRoleRequest{
			UserID:        userID,
			CourtID:       courtID,
			RequestedRole: role,
		})
		if err != nil {
			return err
		}

		if !emailMatchesCourt(email, courtID) {
			result = req
			return nil
		}

		decided, err := decide(ctx, tx, req.ID, models.RoleRequestApproved, userID, courtID, role)
		if err != nil {
			return err
		}
		result = decided
		return nil
	})
	if err != nil {
		return models.CourtRoleRequest{}, err
	}
	return result, nil
}

// Decide approves or denies a pending request as reviewerID. Approval grants
// the requested role; denial leaves the user's court roles untouched. Both
// the decision and the grant happen in one transaction.
func (s *Service) Decide(ctx context.Context, requestID int64, approve bool, reviewerID int64) (models.CourtRoleRequest, error) {
	var result models.CourtRoleRequest
	err := repository.WithTx(ctx, s.db, func(tx *sqlx.Tx) error {
		req, err := repository.GetRoleRequest(ctx, tx, requestID)
		if err != nil {
			return err
		}
		status := models.RoleRequestDenied
		if approve {
			status = models.RoleRequestApproved
		}
		decided, err := decide(ctx, tx, req.ID, status, reviewerID, req.CourtID, req.RequestedRole)
		if err != nil {
			return err
		}
		result = decided
		return nil
	})
	if err != nil {
		return models.CourtRoleRequest{}, err
	}
	return result, nil
}

// decide performs the status transition and, on approval, the role grant.
// The status transition's CAS UPDATE (status must still be pending) ensures
// a request cannot be decided twice.
func decide(ctx context.Context, tx repository.DBTX, requestID int64, status models.RoleRequestStatus, reviewerID int64, courtID models.CourtID, role models.Role) (models.CourtRoleRequest, error) {
	decided, err := repository.DecideRoleRequest(ctx, tx, requestID, status, reviewerID)
	if err != nil {
		return models.CourtRoleRequest{}, err
	}
	if status == models.RoleRequestApproved {
		if _, err := repository.UpdateCourtRole(ctx, tx, decided.UserID, courtID, role); err != nil {
			return models.CourtRoleRequest{}, err
		}
	}
	return decided, nil
}

// ListPending returns a court's open requests for the admin/clerk review
// queue, paginated.
func (s *Service) ListPending(ctx context.Context, courtID models.CourtID, page repository.Page) (repository.Result[models.CourtRoleRequest], error) {
	return repository.ListPendingRoleRequests(ctx, s.db, courtID, page)
}

// GrantRole is the admin-only direct mutation: set (role != "") or remove
// (role == "") a user's role in a court without a request/decision cycle.
func GrantRole(ctx context.Context, db repository.DBTX, userID int64, courtID models.CourtID, role models.Role) (models.User, error) {
	if role != "" && !role.Valid() {
		return models.User{}, apperr.Validation(map[string]string{"role": "not a recognized role"})
	}
	return repository.UpdateCourtRole(ctx, db, userID, courtID, role)
}

// emailMatchesCourt reports whether email ends in "{court}.uscourts.gov",
// the auto-approval rule. Matching is case-insensitive since email domains
// are conventionally lowercased but uscourts.gov addresses are sometimes
// issued with mixed case.
func emailMatchesCourt(email string, courtID models.CourtID) bool {
	suffix := "@" + strings.ToLower(string(courtID)) + ".uscourts.gov"
	return strings.HasSuffix(strings.ToLower(email), suffix)
}
