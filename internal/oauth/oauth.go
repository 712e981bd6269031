// Package oauth implements the Google/GitHub authorize+callback flow and an
// RFC 8628-shaped device authorization flow, upserting backend users the
// same way whichever path a login takes.
package oauth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/districtcms/backend/internal/apperr"
	"github.com/districtcms/backend/internal/repository"
	"github.com/districtcms/backend/pkg/models"
)

// Provider names. These are also the path segment and the value stored in
// users.oauth_provider.
const (
	ProviderGoogle = "google"
	ProviderGitHub = "github"
)

const maxUserInfoBytes = 256 << 10

type providerConfig struct {
	clientID     string
	clientSecret string
	authURL      string
	tokenURL     string
	scope        string
}

// Config holds both providers' OAuth application credentials, loaded from
// internal/config.OAuthConfig.
type Config struct {
	GoogleClientID     string
	GoogleClientSecret string
	GitHubClientID     string
	GitHubClientSecret string
	RedirectBaseURL    string
}

// Service exchanges authorization codes and upserts the resulting identity
// into the users table.
type Service struct {
	cfg    Config
	db     *sqlx.DB
	states *StateStore
	client *http.Client
}

// NewService builds a Service. states holds the CSRF/PKCE entries of the
// authorize round-trip; whether they live in Redis or in process is a
// detail of StateStore, not this Service.
func NewService(cfg Config, db *sqlx.DB, states *StateStore) *Service {
	return &Service{cfg: cfg, db: db, states: states, client: &http.Client{Timeout: 15 * time.Second}}
}

func (s *Service) provider(name string) (providerConfig, error) {
	switch name {
	case ProviderGoogle:
		if s.cfg.GoogleClientID == "" {
			return providerConfig{}, apperr.New(apperr.KindInternalError, "google oauth is not configured")
		}
		return providerConfig{
			clientID: s.cfg.GoogleClientID, clientSecret: s.cfg.GoogleClientSecret,
			authURL: "https://accounts.google.com/o/oauth2/v2/auth", tokenURL: "https://oauth2.googleapis.com/token",
			scope: "openid email profile",
		}, nil
	case ProviderGitHub:
		if s.cfg.GitHubClientID == "" {
			return providerConfig{}, apperr.New(apperr.KindInternalError, "github oauth is not configured")
		}
		return providerConfig{
			clientID: s.cfg.GitHubClientID, clientSecret: s.cfg.GitHubClientSecret,
			authURL: "https://github.com/login/oauth/authorize", tokenURL: "https://github.com/login/oauth/access_token",
			scope: "read:user user:email",
		}, nil
	default:
		return providerConfig{}, apperr.New(apperr.KindBadRequest, "unknown oauth provider '"+name+"'")
	}
}

// AuthorizeURL builds the provider's authorize URL, registering a fresh
// CSRF token + PKCE verifier pair in the state store. redirectPath is the
// post-login destination carried across the round-trip (see also the
// post_oauth_redirect cookie, set by the caller).
func (s *Service) AuthorizeURL(ctx context.Context, providerName, redirectPath string) (string, error) {
	pc, err := s.provider(providerName)
	if err != nil {
		return "", err
	}

	csrf := uuid.NewString()
	verifier, err := randomToken(32)
	if err != nil {
		return "", apperr.Wrap(apperr.KindInternalError, "failed to generate pkce verifier", err)
	}
	if err := s.states.Put(ctx, csrf, verifier, redirectPath); err != nil {
		return "", apperr.Wrap(apperr.KindInternalError, "failed to persist oauth state", err)
	}

	state := csrf
	if redirectPath != "" {
		state = csrf + "|" + redirectPath
	}
	challenge := pkceChallenge(verifier)
	redirectURI := s.cfg.RedirectBaseURL + "/api/v1/auth/" + providerName + "/callback"

	values := url.Values{
		"client_id":             {pc.clientID},
		"redirect_uri":          {redirectURI},
		"scope":                 {pc.scope},
		"state":                 {state},
		"code_challenge":        {challenge},
		"code_challenge_method": {"S256"},
	}
	if providerName == ProviderGoogle {
		values.Set("response_type", "code")
	}
	return pc.authURL + "?" + values.Encode(), nil
}

// CallbackResult is what HandleCallback resolves to: the upserted user and
// the redirect path state.Take carried through the round-trip.
type CallbackResult struct {
	User         models.User
	RedirectPath string
}

// HandleCallback validates the CSRF state, exchanges code for a token,
// fetches the provider's user-info endpoint, and upserts the backend user.
func (s *Service) HandleCallback(ctx context.Context, providerName, state, code string) (CallbackResult, error) {
	pc, err := s.provider(providerName)
	if err != nil {
		return CallbackResult{}, err
	}
	if code == "" {
		return CallbackResult{}, apperr.New(apperr.KindBadRequest, "missing code")
	}

	csrf, redirectPath, _ := strings.Cut(state, "|")
	verifier, storedRedirectPath, ok := s.states.Take(ctx, csrf)
	if !ok {
		return CallbackResult{}, apperr.New(apperr.KindBadRequest, "invalid or expired oauth state")
	}
	if storedRedirectPath != "" {
		redirectPath = storedRedirectPath
	}

	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	redirectURI := s.cfg.RedirectBaseURL + "/api/v1/auth/" + providerName + "/callback"
	accessToken, err := s.exchangeCode(ctx, pc, code, redirectURI, verifier)
	if err != nil {
		return CallbackResult{}, err
	}

	providerID, email, displayName, avatarURL, err := s.fetchUserInfo(ctx, providerName, accessToken)
	if err != nil {
		return CallbackResult{}, err
	}

	u, err := s.upsertUser(ctx, providerName, providerID, email, displayName, avatarURL)
	if err != nil {
		return CallbackResult{}, err
	}
	return CallbackResult{User: u, RedirectPath: redirectPath}, nil
}

func (s *Service) exchangeCode(ctx context.Context, pc providerConfig, code, redirectURI, verifier string) (string, error) {
	form := url.Values{
		"client_id":     {pc.clientID},
		"client_secret": {pc.clientSecret},
		"code":          {code},
		"redirect_uri":  {redirectURI},
		"code_verifier": {verifier},
	}
	if pc.tokenURL == "https://oauth2.googleapis.com/token" {
		form.Set("grant_type", "authorization_code")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, pc.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", apperr.Wrap(apperr.KindInternalError, "failed to build token request", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", apperr.Wrap(apperr.KindInternalError, "oauth token exchange failed", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", apperr.New(apperr.KindInternalError, "oauth token exchange failed")
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxUserInfoBytes))
	if err != nil {
		return "", apperr.Wrap(apperr.KindInternalError, "failed to read token response", err)
	}
	var tok struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.Unmarshal(body, &tok); err != nil || tok.AccessToken == "" {
		return "", apperr.New(apperr.KindInternalError, "oauth token response was malformed")
	}
	return tok.AccessToken, nil
}

func (s *Service) fetchUserInfo(ctx context.Context, providerName, accessToken string) (providerID, email, displayName, avatarURL string, err error) {
	switch providerName {
	case ProviderGoogle:
		var info struct {
			ID      string `json:"id"`
			Email   string `json:"email"`
			Name    string `json:"name"`
			Picture string `json:"picture"`
		}
		if err := s.getJSON(ctx, "https://www.googleapis.com/oauth2/v2/userinfo", accessToken, &info); err != nil {
			return "", "", "", "", err
		}
		return info.ID, info.Email, info.Name, info.Picture, nil
	case ProviderGitHub:
		var info struct {
			ID        int64  `json:"id"`
			Login     string `json:"login"`
			Name      string `json:"name"`
			Email     string `json:"email"`
			AvatarURL string `json:"avatar_url"`
		}
		if err := s.getJSON(ctx, "https://api.github.com/user", accessToken, &info); err != nil {
			return "", "", "", "", err
		}
		email := info.Email
		if email == "" {
			email = s.fetchGitHubPrimaryEmail(ctx, accessToken)
		}
		name := info.Name
		if name == "" {
			name = info.Login
		}
		return fmt.Sprintf("%d", info.ID), email, name, info.AvatarURL, nil
	default:
		return "", "", "", "", apperr.New(apperr.KindBadRequest, "unknown oauth provider '"+providerName+"'")
	}
}

// fetchGitHubPrimaryEmail covers accounts whose email is private: GitHub
// omits it from /user but exposes the verified primary on /user/emails.
func (s *Service) fetchGitHubPrimaryEmail(ctx context.Context, accessToken string) string {
	var emails []struct {
		Email    string `json:"email"`
		Primary  bool   `json:"primary"`
		Verified bool   `json:"verified"`
	}
	if err := s.getJSON(ctx, "https://api.github.com/user/emails", accessToken, &emails); err != nil {
		return ""
	}
	for _, e := range emails {
		if e.Primary && e.Verified {
			return e.Email
		}
	}
	return ""
}

func (s *Service) getJSON(ctx context.Context, endpoint, accessToken string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, http.NoBody)
	if err != nil {
		return apperr.Wrap(apperr.KindInternalError, "failed to build userinfo request", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	resp, err := s.client.Do(req)
	if err != nil {
		return apperr.Wrap(apperr.KindInternalError, "failed to fetch userinfo", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return apperr.New(apperr.KindInternalError, "failed to fetch userinfo")
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxUserInfoBytes))
	if err != nil {
		return apperr.Wrap(apperr.KindInternalError, "failed to read userinfo", err)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return apperr.New(apperr.KindInternalError, "userinfo response was malformed")
	}
	return nil
}

// upsertUser links by provider+id if an account is already bound, else
// links by email if one matches, else creates fresh. A uscourts.gov email
// promotes to admin.
func (s *Service) upsertUser(ctx context.Context, providerName, providerID, email, displayName, avatarURL string) (models.User, error) {
	existing, err := repository.GetUserByOAuth(ctx, s.db, providerName, providerID)
	if err == nil {
		return s.maybePromote(ctx, existing, email)
	}
	if apperr.As(err).Kind != apperr.KindNotFound {
		return models.User{}, err
	}

	if email != "" {
		byEmail, err := repository.GetUserByEmail(ctx, s.db, email)
		if err == nil {
			linked, err := repository.LinkOAuth(ctx, s.db, byEmail.ID, providerName, providerID, displayName, avatarURL)
			if err != nil {
				return models.User{}, err
			}
			return s.maybePromote(ctx, linked, email)
		}
		if apperr.As(err).Kind != apperr.KindNotFound {
			return models.User{}, err
		}
	}

	globalRole := models.Role("")
	if isUSCourtsEmail(email) {
		globalRole = models.RoleAdmin
	}
	created, err := repository.CreateUser(ctx, s.db, models.User{
		Username:        providerName + ":" + providerID,
		Email:           email,
		OAuthProvider:   providerName,
		OAuthProviderID: providerID,
		DisplayName:     displayName,
		AvatarURL:       avatarURL,
		EmailVerified:   email != "",
		GlobalRole:      globalRole,
	})
	if err != nil {
		return models.User{}, err
	}
	return created, nil
}

func (s *Service) maybePromote(ctx context.Context, u models.User, email string) (models.User, error) {
	if u.GlobalRole == models.RoleAdmin || !isUSCourtsEmail(email) {
		return u, nil
	}
	if err := repository.PromoteToAdmin(ctx, s.db, u.ID); err != nil {
		return models.User{}, err
	}
	u.GlobalRole = models.RoleAdmin
	return u, nil
}

func isUSCourtsEmail(email string) bool {
	return strings.HasSuffix(strings.ToLower(email), ".uscourts.gov")
}

func randomToken(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

func pkceChallenge(verifier string) string {
	sum := sha256.Sum256([]byte(verifier))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}
