package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/districtcms/backend/internal/apperr"
	"github.com/districtcms/backend/pkg/models"
)

// CreateDeviceAuthorization inserts a new pending device grant.
func CreateDeviceAuthorization(ctx context.Context, db DBTX, deviceCode, userCode string, expiresAt time.Time) (models.DeviceAuthorization, error) {
	d := models.DeviceAuthorization{
		DeviceCode: deviceCode,
		UserCode:   userCode,
		Status:     models.DeviceAuthorizationPending,
		ExpiresAt:  expiresAt,
	}
	row := db.QueryRowContext(ctx, `
		INSERT INTO device_authorizations (device_code, user_code, status, expires_at, created_at)
		VALUES ($1, $2, $3, $4, now())
		RETURNING id, created_at
	`, deviceCode, userCode, models.DeviceAuthorizationPending, expiresAt)
	if err := row.Scan(&d.ID, &d.CreatedAt); err != nil {
		return models.DeviceAuthorization{}, wrapDBErr(err)
	}
	return d, nil
}

// GetDeviceAuthorizationByCode fetches a grant by its device_code, used by
// the poll endpoint.
func GetDeviceAuthorizationByCode(ctx context.Context, db DBTX, deviceCode string) (models.DeviceAuthorization, error) {
	row := db.QueryRowContext(ctx, `
		SELECT id, device_code, user_code, status, user_id, expires_at, created_at
		FROM device_authorizations WHERE device_code = $1
	`, deviceCode)
	d, err := scanDeviceAuthorization(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return models.DeviceAuthorization{}, apperr.NotFound("device authorization")
		}
		return models.DeviceAuthorization{}, err
	}
	return d, nil
}

// ApproveDeviceAuthorization grants a pending, unexpired authorization
// identified by its user_code (typed by a signed-in user in a browser) to
// userID. A zero-row result means the code is unknown, already decided, or
// expired — reported identically as Conflict so the browser flow can't
// distinguish "wrong code" from "already used".
func ApproveDeviceAuthorization(ctx context.Context, db DBTX, userCode string, userID int64) (models.DeviceAuthorization, error) {
	row := db.QueryRowContext(ctx, `
		UPDATE device_authorizations
		SET status = $3, user_id = $4
		WHERE user_code = $1 AND status = $2 AND expires_at > now()
		RETURNING id, device_code, user_code, status, user_id, expires_at, created_at
	`, userCode, models.DeviceAuthorizationPending, models.DeviceAuthorizationApproved, userID)
	d, err := scanDeviceAuthorization(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return models.DeviceAuthorization{}, apperr.Conflict("device code is unknown, already used, or expired")
		}
		return models.DeviceAuthorization{}, err
	}
	return d, nil
}

// DenyDeviceAuthorization is ApproveDeviceAuthorization's rejection twin.
func DenyDeviceAuthorization(ctx context.Context, db DBTX, userCode string) (models.DeviceAuthorization, error) {
	row := db.QueryRowContext(ctx, `
		UPDATE device_authorizations
		SET status = $3
		WHERE user_code = $1 AND status = $2 AND expires_at > now()
		RETURNING id, device_code, user_code, status, user_id, expires_at, created_at
	`, userCode, models.DeviceAuthorizationPending, models.DeviceAuthorizationDenied)
	d, err := scanDeviceAuthorization(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return models.DeviceAuthorization{}, apperr.Conflict("device code is unknown, already used, or expired")
		}
		return models.DeviceAuthorization{}, err
	}
	return d, nil
}

// DeleteExpiredDeviceAuthorizations removes grants past expiry, run every 15
// minutes by internal/scheduler. Returns the number of rows removed.
func DeleteExpiredDeviceAuthorizations(ctx context.Context, db DBTX) (int64, error) {
	res, err := db.ExecContext(ctx, `DELETE FROM device_authorizations WHERE expires_at <= now()`)
	if err != nil {
		return 0, wrapDBErr(err)
	}
	return res.RowsAffected()
}

func scanDeviceAuthorization(row scanner) (models.DeviceAuthorization, error) {
	var (
		d      models.DeviceAuthorization
		userID sql.NullInt64
	)
	err := row.Scan(&d.ID, &d.DeviceCode, &d.UserCode, &d.Status, &userID, &d.ExpiresAt, &d.CreatedAt)
	if err != nil {
		return models.DeviceAuthorization{}, wrapDBErr(err)
	}
	if userID.Valid {
		d.UserID = &userID.Int64
	}
	return d, nil
}
