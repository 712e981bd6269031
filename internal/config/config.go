// Package config loads the backend's environment-driven configuration,
// following the same getEnv/validate shape the rest of this corpus uses.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config is the fully assembled, validated process configuration.
type Config struct {
	Environment         string
	Server              ServerConfig
	Database            DatabaseConfig
	Auth                AuthConfig
	Cookie              CookieConfig
	Storage             StorageConfig
	Search              SearchConfig
	Redis               RedisConfig
	OAuth               OAuthConfig
	Gateways            GatewayConfig
	Logging             LoggingConfig
	DocumentGracePeriod time.Duration
}

type ServerConfig struct {
	Port            string
	MaxUploadBytes  int64
	AllowedOrigins  string
	ShutdownTimeout time.Duration
}

type DatabaseConfig struct {
	URL string
}

type AuthConfig struct {
	JWTSecret           string
	AccessTokenTTL      time.Duration
	RefreshTokenTTL     time.Duration
}

type CookieConfig struct {
	Secure bool
	Domain string
}

type StorageConfig struct {
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
	Bucket    string
}

type SearchConfig struct {
	Host     string
	Username string
	Password string
	UseSSL   bool
	Index    string
}

type RedisConfig struct {
	URL string
}

type OAuthConfig struct {
	GoogleClientID     string
	GoogleClientSecret string
	GitHubClientID     string
	GitHubClientSecret string
	RedirectBaseURL    string
}

// GatewayConfig holds credentials for external collaborators that are
// out-of-scope here (SMTP/SMS gateways, Stripe billing) but still surface
// as plain configuration, kept around the same way an unused API key often
// rides along in a service's config for a feature owned elsewhere.
type GatewayConfig struct {
	SMTPURL    string
	SMSAPIKey  string
	StripeKey  string
}

type LoggingConfig struct {
	Level  string
	Format string
}

// Load assembles Config from the process environment and validates it.
func Load() (*Config, error) {
	environment := getEnv("ENVIRONMENT", "local")

	accessTTL := time.Duration(getEnvInt("JWT_ACCESS_TOKEN_EXPIRY_MINUTES", 15)) * time.Minute
	refreshTTL := time.Duration(getEnvInt("JWT_REFRESH_TOKEN_EXPIRY_DAYS", 7)) * 24 * time.Hour

	graceDuration, err := parseEnvDuration("DOCUMENT_GRACE_PERIOD", "10m")
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Environment: environment,
		Server: ServerConfig{
			Port:            getEnv("PORT", "8080"),
			MaxUploadBytes:  getEnvInt64("MAX_UPLOAD_BYTES", 50*1024*1024),
			AllowedOrigins:  getEnv("ALLOWED_ORIGINS", "*"),
			ShutdownTimeout: 30 * time.Second,
		},
		Database: DatabaseConfig{
			URL: getEnv("DATABASE_URL", ""),
		},
		Auth: AuthConfig{
			JWTSecret:       getEnv("JWT_SECRET", ""),
			AccessTokenTTL:  accessTTL,
			RefreshTokenTTL: refreshTTL,
		},
		Cookie: CookieConfig{
			Secure: getEnvBool("COOKIE_SECURE", environment != "local"),
			Domain: getEnv("COOKIE_DOMAIN", ""),
		},
		Storage: StorageConfig{
			Endpoint:  getEnv("STORAGE_ENDPOINT", ""),
			Region:    getEnv("STORAGE_REGION", "us-east-1"),
			AccessKey: getEnv("STORAGE_ACCESS_KEY", ""),
			SecretKey: getEnv("STORAGE_SECRET_KEY", ""),
			Bucket:    getEnv("ATTACHMENTS_BUCKET", "court-attachments"),
		},
		Search: SearchConfig{
			Host:     getEnv("OPENSEARCH_HOST", ""),
			Username: getEnv("OPENSEARCH_USERNAME", ""),
			Password: getEnv("OPENSEARCH_PASSWORD", ""),
			UseSSL:   getEnvBool("OPENSEARCH_USE_SSL", environment != "local"),
			Index:    getEnv("OPENSEARCH_INDEX", "case_documents"),
		},
		Redis: RedisConfig{
			URL: getEnv("REDIS_URL", ""),
		},
		OAuth: OAuthConfig{
			GoogleClientID:     getEnv("GOOGLE_CLIENT_ID", ""),
			GoogleClientSecret: getEnv("GOOGLE_CLIENT_SECRET", ""),
			GitHubClientID:     getEnv("GITHUB_CLIENT_ID", ""),
			GitHubClientSecret: getEnv("GITHUB_CLIENT_SECRET", ""),
			RedirectBaseURL:    getEnv("OAUTH_REDIRECT_BASE", "http://localhost:8080"),
		},
		Gateways: GatewayConfig{
			SMTPURL:   getEnv("SMTP_URL", ""),
			SMSAPIKey: getEnv("SMS_API_KEY", ""),
			StripeKey: getEnv("STRIPE_SECRET_KEY", ""),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		DocumentGracePeriod: graceDuration,
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if c.Database.URL == "" && c.Environment != "local" {
		return fmt.Errorf("DATABASE_URL is required outside local environment")
	}
	port, err := strconv.Atoi(c.Server.Port)
	if err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("PORT must be a valid number between 1 and 65535")
	}
	if c.Server.MaxUploadBytes <= 0 {
		return fmt.Errorf("MAX_UPLOAD_BYTES must be positive")
	}
	if c.Auth.AccessTokenTTL <= 0 {
		return fmt.Errorf("JWT_ACCESS_TOKEN_EXPIRY_MINUTES must be positive")
	}
	if c.Auth.RefreshTokenTTL <= 0 {
		return fmt.Errorf("JWT_REFRESH_TOKEN_EXPIRY_DAYS must be positive")
	}
	return nil
}

// IsLocal reports whether the process is running in the local environment.
func (c *Config) IsLocal() bool {
	return c.Environment == "local"
}

func getEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.ParseInt(v, 10, 64); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return defaultValue
}

func parseEnvDuration(key, defaultValue string) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		v = defaultValue
	}
	if v == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be a valid duration: %w", key, err)
	}
	return d, nil
}
