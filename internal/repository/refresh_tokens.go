package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/districtcms/backend/internal/apperr"
	"github.com/districtcms/backend/pkg/models"
)

// CreateRefreshToken persists a refresh token by its SHA-256 hash; the raw
// token itself is never passed to this layer.
func CreateRefreshToken(ctx context.Context, db DBTX, userID int64, tokenHash string, expiresAt time.Time) (models.RefreshToken, error) {
	t := models.RefreshToken{UserID: userID, TokenHash: tokenHash, ExpiresAt: expiresAt}
	row := db.QueryRowContext(ctx, `
		INSERT INTO refresh_tokens (user_id, token_hash, expires_at, revoked, created_at)
		VALUES ($1, $2, $3, false, now())
		RETURNING id, created_at
	`, userID, tokenHash, expiresAt)
	if err := row.Scan(&t.ID, &t.CreatedAt); err != nil {
		return models.RefreshToken{}, wrapDBErr(err)
	}
	return t, nil
}

// GetValidRefreshToken fetches a refresh token by hash, but only one that is
// unrevoked and unexpired — any other state reads as NotFound, matching the
// package's "presence implies validity" convention.
func GetValidRefreshToken(ctx context.Context, db DBTX, tokenHash string) (models.RefreshToken, error) {
	row := db.QueryRowContext(ctx, `
		SELECT id, user_id, token_hash, expires_at, revoked, created_at
		FROM refresh_tokens
		WHERE token_hash = $1 AND revoked = false AND expires_at > now()
	`, tokenHash)
	var t models.RefreshToken
	err := row.Scan(&t.ID, &t.UserID, &t.TokenHash, &t.ExpiresAt, &t.Revoked, &t.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return models.RefreshToken{}, apperr.NotFound("refresh token")
		}
		return models.RefreshToken{}, wrapDBErr(err)
	}
	return t, nil
}

// RevokeRefreshToken flips the revoked flag. Revoking an already-revoked or
// unknown hash is not an error — logout is idempotent.
func RevokeRefreshToken(ctx context.Context, db DBTX, tokenHash string) error {
	_, err := db.ExecContext(ctx, `
		UPDATE refresh_tokens SET revoked = true WHERE token_hash = $1
	`, tokenHash)
	if err != nil {
		return wrapDBErr(err)
	}
	return nil
}
