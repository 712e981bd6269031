// Package token issues and validates the backend's typed access and refresh
// JWTs, and hashes refresh tokens for at-rest storage.
package token

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/districtcms/backend/internal/apperr"
	"github.com/districtcms/backend/pkg/models"
)

// Type distinguishes access tokens from refresh tokens so one cannot be
// presented in place of the other (prevents token-confusion attacks).
type Type string

const (
	TypeAccess  Type = "access"
	TypeRefresh Type = "refresh"
)

// Claims is the JWT payload carried by both token types.
type Claims struct {
	Subject    int64                      `json:"sub"`
	Email      string                     `json:"email"`
	Role       models.Role                `json:"role"`
	Tier       models.CourtTier           `json:"tier"`
	CourtRoles map[models.CourtID]models.Role `json:"court_roles"`
	Type       Type                       `json:"typ"`
	jwt.RegisteredClaims
}

// Service issues and validates access/refresh tokens for a single signing
// secret.
type Service struct {
	secret          []byte
	accessTTL       time.Duration
	refreshTTL      time.Duration
}

// NewService builds a Service. accessTTL/refreshTTL come from
// internal/config (JWT_ACCESS_TOKEN_EXPIRY_MINUTES / JWT_REFRESH_TOKEN_EXPIRY_DAYS).
func NewService(secret string, accessTTL, refreshTTL time.Duration) *Service {
	return &Service{secret: []byte(secret), accessTTL: accessTTL, refreshTTL: refreshTTL}
}

func (s *Service) issue(u *models.User, tier models.CourtTier, typ Type, jti string, ttlDur time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		Subject:    u.ID,
		Email:      u.Email,
		Role:       u.GlobalRole,
		Tier:       tier,
		CourtRoles: u.CourtRoles,
		Type:       typ,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttlDur)),
			ID:        jti,
		},
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := tok.SignedString(s.secret)
	if err != nil {
		return "", apperr.Wrap(apperr.KindInternalError, "failed to sign token", err)
	}
	return signed, nil
}

// IssueAccess issues a short-lived access token. tier is embedded as given;
// the caller resolves it from the user's court memberships
// (models.TierFree if the user belongs to no court yet).
func (s *Service) IssueAccess(u *models.User, tier models.CourtTier, jti string) (string, time.Duration, error) {
	tok, err := s.issue(u, tier, TypeAccess, jti, s.accessTTL)
	return tok, s.accessTTL, err
}

// IssueRefresh issues a refresh token. Callers must store the SHA-256 hash
// of the returned raw token via Hash, never the raw token itself.
func (s *Service) IssueRefresh(u *models.User, tier models.CourtTier, jti string) (string, time.Duration, error) {
	tok, err := s.issue(u, tier, TypeRefresh, jti, s.refreshTTL)
	return tok, s.refreshTTL, err
}

func (s *Service) parse(raw string) (*Claims, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil || !parsed.Valid {
		return nil, apperr.New(apperr.KindUnauthorized, "invalid token")
	}
	return claims, nil
}

// ValidateAccess parses raw and rejects anything but an access token.
func (s *Service) ValidateAccess(raw string) (*Claims, error) {
	claims, err := s.parse(raw)
	if err != nil {
		return nil, err
	}
	if claims.Type != TypeAccess {
		return nil, apperr.New(apperr.KindUnauthorized, "token is not an access token")
	}
	return claims, nil
}

// ValidateRefresh parses raw and rejects anything but a refresh token.
func (s *Service) ValidateRefresh(raw string) (*Claims, error) {
	claims, err := s.parse(raw)
	if err != nil {
		return nil, err
	}
	if claims.Type != TypeRefresh {
		return nil, apperr.New(apperr.KindUnauthorized, "token is not a refresh token")
	}
	return claims, nil
}

// Hash returns the lowercase hex SHA-256 digest of a raw refresh token, the
// only form ever persisted (invariant: raw tokens never stored).
func Hash(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
