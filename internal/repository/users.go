package repository

import (
	"context"
	"database/sql"
	"encoding/json"

	"golang.org/x/crypto/bcrypt"

	"github.com/districtcms/backend/internal/apperr"
	"github.com/districtcms/backend/pkg/models"
)

// HashPassword bcrypt-hashes a plaintext password for at-rest storage.
func HashPassword(plain string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	if err != nil {
		return "", apperr.Wrap(apperr.KindInternalError, "failed to hash password", err)
	}
	return string(hash), nil
}

// CheckPassword reports whether plain matches hash.
func CheckPassword(hash, plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}

// CreateUser inserts a new user and returns it with its assigned id.
func CreateUser(ctx context.Context, db DBTX, u models.User) (models.User, error) {
	rolesJSON, err := json.Marshal(u.CourtRoles)
	if err != nil {
		return models.User{}, apperr.Wrap(apperr.KindInternalError, "failed to marshal court roles", err)
	}

	row := db.QueryRowContext(ctx, `
		INSERT INTO users (
			username, email, password_hash, oauth_provider, oauth_provider_id,
			display_name, avatar_url, email_verified, phone_verified,
			court_roles, global_role, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, now(), now())
		RETURNING id, created_at, updated_at
	`, u.Username, u.Email, nullString(u.PasswordHash), nullString(u.OAuthProvider), nullString(u.OAuthProviderID),
		nullString(u.DisplayName), nullString(u.AvatarURL), u.EmailVerified, u.PhoneVerified,
		rolesJSON, u.GlobalRole)

	if err := row.Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return models.User{}, wrapDBErr(err)
	}
	return u, nil
}

// GetUser fetches a user by id.
func GetUser(ctx context.Context, db DBTX, id int64) (models.User, error) {
	row := db.QueryRowContext(ctx, `
		SELECT id, username, email, password_hash, oauth_provider, oauth_provider_id,
		       display_name, avatar_url, email_verified, phone_verified,
		       court_roles, global_role, created_at, updated_at
		FROM users WHERE id = $1
	`, id)
	return userOrNotFound(scanUser(row))
}

// GetUserByEmail fetches a user by email, used during password login.
func GetUserByEmail(ctx context.Context, db DBTX, email string) (models.User, error) {
	row := db.QueryRowContext(ctx, `
		SELECT id, username, email, password_hash, oauth_provider, oauth_provider_id,
		       display_name, avatar_url, email_verified, phone_verified,
		       court_roles, global_role, created_at, updated_at
		FROM users WHERE email = $1
	`, email)
	return userOrNotFound(scanUser(row))
}

// GetUserByOAuth fetches a user by (provider, provider_id), used on OAuth
// callback to find an already-linked account.
func GetUserByOAuth(ctx context.Context, db DBTX, provider, providerID string) (models.User, error) {
	row := db.QueryRowContext(ctx, `
		SELECT id, username, email, password_hash, oauth_provider, oauth_provider_id,
		       display_name, avatar_url, email_verified, phone_verified,
		       court_roles, global_role, created_at, updated_at
		FROM users WHERE oauth_provider = $1 AND oauth_provider_id = $2
	`, provider, providerID)
	return userOrNotFound(scanUser(row))
}

// userOrNotFound translates a bare sql.ErrNoRows from scanUser into the
// package's usual NotFound error, matching every other Get* function.
func userOrNotFound(u models.User, err error) (models.User, error) {
	if err == sql.ErrNoRows {
		return models.User{}, apperr.NotFound("user")
	}
	return u, err
}

// LinkOAuth attaches a provider+providerID binding and profile fields to an
// existing user, used when a login's email already matches an account that
// was created some other way (password signup, or a different provider).
func LinkOAuth(ctx context.Context, db DBTX, userID int64, provider, providerID, displayName, avatarURL string) (models.User, error) {
	u, err := GetUser(ctx, db, userID)
	if err != nil {
		return models.User{}, err
	}
	row := db.QueryRowContext(ctx, `
		UPDATE users
		SET oauth_provider = $2, oauth_provider_id = $3,
		    display_name = COALESCE(NULLIF($4, ''), display_name),
		    avatar_url = COALESCE(NULLIF($5, ''), avatar_url),
		    updated_at = now()
		WHERE id = $1
		RETURNING updated_at
	`, userID, provider, providerID, displayName, avatarURL)
	if err := row.Scan(&u.UpdatedAt); err != nil {
		return models.User{}, wrapDBErr(err)
	}
	u.OAuthProvider, u.OAuthProviderID = provider, providerID
	if displayName != "" {
		u.DisplayName = displayName
	}
	if avatarURL != "" {
		u.AvatarURL = avatarURL
	}
	return u, nil
}

// PromoteToAdmin sets a user's GlobalRole to admin if it isn't already, used
// when a login's email matches the uscourts.gov domain.
func PromoteToAdmin(ctx context.Context, db DBTX, userID int64) error {
	_, err := db.ExecContext(ctx, `
		UPDATE users SET global_role = $2, updated_at = now()
		WHERE id = $1 AND global_role != $2
	`, userID, models.RoleAdmin)
	if err != nil {
		return wrapDBErr(err)
	}
	return nil
}

// UserExists reports whether a user row still exists for id. Satisfies
// middleware.UserExistsChecker, consulted on every authenticated request so
// a token for a deleted user is rejected rather than trusted.
func UserExists(ctx context.Context, db DBTX, userID int64) (bool, error) {
	var exists bool
	err := db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE id = $1)`, userID).Scan(&exists)
	if err != nil {
		return false, wrapDBErr(err)
	}
	return exists, nil
}

// UpdateCourtRole sets (or removes, when role is "") a user's role within a
// single court and returns the updated user.
func UpdateCourtRole(ctx context.Context, db DBTX, userID int64, courtID models.CourtID, role models.Role) (models.User, error) {
	u, err := GetUser(ctx, db, userID)
	if err != nil {
		return models.User{}, err
	}
	if u.CourtRoles == nil {
		u.CourtRoles = map[models.CourtID]models.Role{}
	}
	if role == "" {
		delete(u.CourtRoles, courtID)
	} else {
		u.CourtRoles[courtID] = role
	}
	rolesJSON, err := json.Marshal(u.CourtRoles)
	if err != nil {
		return models.User{}, apperr.Wrap(apperr.KindInternalError, "failed to marshal court roles", err)
	}

	row := db.QueryRowContext(ctx, `
		UPDATE users SET court_roles = $2, updated_at = now()
		WHERE id = $1
		RETURNING updated_at
	`, userID, rolesJSON)
	if err := row.Scan(&u.UpdatedAt); err != nil {
		return models.User{}, wrapDBErr(err)
	}
	return u, nil
}

func scanUser(row *sql.Row) (models.User, error) {
	var (
		u               models.User
		passwordHash    sql.NullString
		oauthProvider   sql.NullString
		oauthProviderID sql.NullString
		displayName     sql.NullString
		avatarURL       sql.NullString
		rolesJSON       []byte
	)
	err := row.Scan(&u.ID, &u.Username, &u.Email, &passwordHash, &oauthProvider, &oauthProviderID,
		&displayName, &avatarURL, &u.EmailVerified, &u.PhoneVerified,
		&rolesJSON, &u.GlobalRole, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return models.User{}, wrapDBErr(err)
	}
	u.PasswordHash = passwordHash.String
	u.OAuthProvider = oauthProvider.String
	u.OAuthProviderID = oauthProviderID.String
	u.DisplayName = displayName.String
	u.AvatarURL = avatarURL.String
	if len(rolesJSON) > 0 {
		_ = json.Unmarshal(rolesJSON, &u.CourtRoles)
	}
	return u, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
