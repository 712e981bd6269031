package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/districtcms/backend/internal/config"
	"github.com/districtcms/backend/internal/handlers"
	"github.com/districtcms/backend/internal/middleware"
	"github.com/districtcms/backend/internal/repository"
	"github.com/districtcms/backend/internal/scheduler"
	"github.com/districtcms/backend/internal/token"
)

// dbUserChecker adapts repository.UserExists to middleware.UserExistsChecker.
type dbUserChecker struct {
	db repository.DBTX
}

func (d dbUserChecker) UserExists(ctx context.Context, userID int64) (bool, error) {
	return repository.UserExists(ctx, d.db, userID)
}

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("warning: .env file not found or could not be loaded: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := newLogger(cfg.Logging)

	if err := runMigrations(cfg.Database.URL, logger); err != nil {
		logger.Fatal().Err(err).Msg("failed to run migrations")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	h, err := handlers.New(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize handlers")
	}

	sched := scheduler.New(h.DB, logger)
	if err := sched.Start(ctx); err != nil {
		logger.Fatal().Err(err).Msg("failed to start scheduler")
	}

	app := fiber.New(fiber.Config{
		ServerHeader: "districtcms",
		AppName:      "districtcms backend",
		ErrorHandler: middleware.ErrorHandler(logger),
	})

	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(middleware.RequestLogger(logger))
	app.Use(middleware.Metrics())
	app.Use(helmet.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.Server.AllowedOrigins,
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS,PATCH",
		AllowHeaders:     "Origin,Content-Type,Accept,Authorization,X-Requested-With,X-Court-District",
		AllowCredentials: true,
	}))

	authCfg := middleware.AuthConfig{
		Tokens:       token.NewService(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTL, cfg.Auth.RefreshTokenTTL),
		Users:        dbUserChecker{db: h.DB},
		Logger:       logger,
		CookieSecure: cfg.Cookie.Secure,
		CookieDomain: cfg.Cookie.Domain,
	}
	app.Use(middleware.Auth(authCfg))

	app.Get("/healthz/live", h.Health.Live)
	app.Get("/healthz/ready", h.Health.Ready)
	app.Get("/healthz/status", h.Health.Status)

	api := app.Group("/api/v1")

	auth := api.Group("/auth")
	auth.Post("/register", h.Auth.Register)
	auth.Post("/login", h.Auth.Login)
	auth.Post("/refresh", h.Auth.Refresh)
	auth.Post("/logout", h.Auth.Logout)
	auth.Get("/:provider/authorize", h.Auth.OAuthAuthorize)
	auth.Get("/:provider/callback", h.Auth.OAuthCallback)
	auth.Post("/device/initiate", h.Auth.DeviceInitiate)
	auth.Post("/device/poll", h.Auth.DevicePoll)
	auth.Post("/device/approve", h.Auth.DeviceApprove)
	auth.Post("/device/deny", h.Auth.DeviceDeny)

	tenant := api.Group("", middleware.Tenant())

	cases := tenant.Group("/cases")
	cases.Post("/", h.Cases.Create)
	cases.Get("/", h.Cases.List)
	cases.Get("/:id", h.Cases.Get)
	cases.Get("/:id/timeline", h.Cases.Timeline)
	cases.Post("/:id/speedy-trial/toll", h.Cases.TollSpeedyTrial)
	cases.Post("/:id/speedy-trial/waive", h.Cases.WaiveSpeedyTrial)

	docket := tenant.Group("/docket")
	docket.Get("/:id", h.Docket.Get)
	docket.Post("/:id/attachments", h.Docket.PresignUpload)
	docket.Post("/attachments/:attachmentId/confirm", h.Docket.ConfirmUpload)
	docket.Get("/attachments/:attachmentId/download", h.Docket.DownloadURL)

	docs := tenant.Group("/documents")
	docs.Get("/:id", h.Documents.Get)
	docs.Post("/:id/replace", h.Documents.Replace)
	docs.Post("/:id/strike", h.Documents.Strike)
	docs.Post("/promote-attachment", h.Documents.PromoteAttachment)

	tenant.Post("/events", h.Events.Submit)

	q := tenant.Group("/queue")
	q.Post("/", h.Queue.Create)
	q.Get("/", h.Queue.List)
	q.Get("/stats", h.Queue.Stats)
	q.Post("/:id/claim", h.Queue.Claim)
	q.Post("/:id/release", h.Queue.Release)
	q.Post("/:id/advance", h.Queue.Advance)
	q.Post("/:id/reject", h.Queue.Reject)

	courts := api.Group("/courts")
	courts.Post("/", h.Admin.CreateCourt)
	courts.Get("/", h.Admin.ListCourts)

	tenantCourts := tenant.Group("/court")
	tenantCourts.Get("/", h.Admin.GetCourt)
	tenantCourts.Post("/role-requests", h.Admin.RequestRole)
	tenantCourts.Get("/role-requests", h.Admin.ListPendingRoleRequests)
	tenantCourts.Post("/role-requests/:id/decide", h.Admin.DecideRoleRequest)
	tenantCourts.Post("/roles/grant", h.Admin.GrantRole)
	tenantCourts.Post("/bar-admissions", h.Admin.CreateBarAdmission)

	port := fmt.Sprintf(":%s", cfg.Server.Port)
	go func() {
		logger.Info().Str("port", cfg.Server.Port).Msg("starting server")
		if err := app.Listen(port); err != nil {
			logger.Fatal().Err(err).Msg("server startup failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("server forced to shutdown")
	}
	cancel()
}

// runMigrations applies every pending migration under migrations/ before
// the server starts accepting traffic. A dirty-free no-change result
// (migrate.ErrNoChange) is not an error.
func runMigrations(databaseURL string, logger zerolog.Logger) error {
	if databaseURL == "" {
		logger.Warn().Msg("DATABASE_URL not set, skipping migrations")
		return nil
	}
	m, err := migrate.New("file://migrations", databaseURL)
	if err != nil {
		return err
	}
	defer m.Close()

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return err
	}
	logger.Info().Msg("migrations applied")
	return nil
}

func newLogger(cfg config.LoggingConfig) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.Format == "console" {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).With().Timestamp().Logger()
	}
	return zerolog.New(os.Stdout).With().Timestamp().Logger()
}
