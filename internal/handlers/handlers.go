// Package handlers implements the fiber.Ctx-facing routes: thin request
// parsing and role gating wrapped around internal/repository and the
// domain services (documents, events, queue, membership, speedytrial).
package handlers

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"

	"github.com/districtcms/backend/internal/config"
	"github.com/districtcms/backend/internal/documents"
	"github.com/districtcms/backend/internal/events"
	"github.com/districtcms/backend/internal/membership"
	"github.com/districtcms/backend/internal/oauth"
	"github.com/districtcms/backend/internal/queue"
	"github.com/districtcms/backend/internal/repository"
	"github.com/districtcms/backend/internal/speedytrial"
	"github.com/districtcms/backend/internal/token"
	"github.com/districtcms/backend/pkg/search"
	"github.com/districtcms/backend/pkg/storage"
)

// Handlers aggregates every domain handler plus the shared infrastructure
// clients they're built from, so cmd/server/main.go has a single
// construction and a single close path.
type Handlers struct {
	DB *sqlx.DB

	Health    *HealthHandler
	Auth      *AuthHandler
	Cases     *CaseHandler
	Docket    *DocketHandler
	Documents *DocumentHandler
	Events    *EventHandler
	Queue     *QueueHandler
	Admin     *AdminHandler

	OAuthStates *oauth.StateStore
}

// New wires every handler and its dependencies from cfg.
func New(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*Handlers, error) {
	db, err := repository.Open(ctx, cfg.Database.URL)
	if err != nil {
		return nil, err
	}

	tokens := token.NewService(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTL, cfg.Auth.RefreshTokenTTL)

	states, err := oauth.NewStateStore(cfg.Redis.URL)
	if err != nil {
		return nil, err
	}
	oauthSvc := oauth.NewService(oauth.Config{
		GoogleClientID:     cfg.OAuth.GoogleClientID,
		GoogleClientSecret: cfg.OAuth.GoogleClientSecret,
		GitHubClientID:     cfg.OAuth.GitHubClientID,
		GitHubClientSecret: cfg.OAuth.GitHubClientSecret,
		RedirectBaseURL:    cfg.OAuth.RedirectBaseURL,
	}, db, states)
	deviceSvc := oauth.NewDeviceService(db)

	storageProvider, err := storage.NewProvider(ctx, cfg.Storage)
	if err != nil {
		return nil, err
	}

	var searchClient *search.Client
	if cfg.Search.Host != "" {
		searchClient, err = search.NewClient(ctx, cfg.Search)
		if err != nil {
			return nil, err
		}
	}

	docsSvc := documents.NewService(db, cfg.DocumentGracePeriod)
	eventsSvc := events.NewService(db, docsSvc)
	queueSvc := queue.NewService(db)
	membershipSvc := membership.NewService(db)
	speedyTrialSvc := speedytrial.NewService(db)

	return &Handlers{
		DB: db,

		Health:    NewHealthHandler(db, searchClient),
		Auth:      NewAuthHandler(db, tokens, oauthSvc, deviceSvc, cfg.Cookie.Secure, cfg.Cookie.Domain),
		Cases:     NewCaseHandler(db, speedyTrialSvc),
		Docket:    NewDocketHandler(db, storageProvider),
		Documents: NewDocumentHandler(db, docsSvc, searchClient, logger),
		Events:    NewEventHandler(db, eventsSvc),
		Queue:     NewQueueHandler(queueSvc),
		Admin:     NewAdminHandler(db, membershipSvc),

		OAuthStates: states,
	}, nil
}
