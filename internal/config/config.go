package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	// Database
	DatabaseURL string

	// Server
	APIPort int

	// Storage
	UploadPath string

	// Logging
	LogLevel string

	// Security
	JWTSecret      string
	JWTExpiration  time.Duration
	JWTRefreshExp  time.Duration
	AllowedOrigins string
	AppEnv         string

	// Rate limiting
	RateLimitRequests float64
	RateLimitBurst    int

	// Extraction service
	GeminiAPIKey   string
	GeminiModel    string
	ExtractTimeout time.Duration

	// Notifications: process-wide fallback endpoint
	NotifyURL string

	// Legacy process-wide mailbox. Ingestion runs against it when all four
	// values are set and the owner email resolves to an account.
	IMAPServer     string
	IMAPUser       string
	IMAPPassword   string
	IMAPOwnerEmail string

	// Scheduler specs (robfig/cron syntax)
	IngestSchedule   string
	ReminderSchedule string
}

// Load reads configuration from environment variables. A .env file in the
// working directory is honored when present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}

	// Required: DATABASE_URL
	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required but not set")
	}

	// API_PORT (default: 8080)
	apiPort := os.Getenv("API_PORT")
	if apiPort == "" {
		cfg.APIPort = 8080
	} else {
		port, err := strconv.Atoi(apiPort)
		if err != nil {
			return nil, fmt.Errorf("API_PORT must be a valid integer: %w", err)
		}
		cfg.APIPort = port
	}

	// UPLOAD_PATH (default: ./data/uploads)
	cfg.UploadPath = os.Getenv("UPLOAD_PATH")
	if cfg.UploadPath == "" {
		cfg.UploadPath = "./data/uploads"
	}

	// LOG_LEVEL (default: info)
	cfg.LogLevel = os.Getenv("LOG_LEVEL")
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}

	// Security configuration
	cfg.JWTSecret = os.Getenv("JWT_SECRET")
	cfg.AllowedOrigins = os.Getenv("ALLOWED_ORIGINS")
	cfg.AppEnv = os.Getenv("APP_ENV")
	if cfg.AppEnv == "" {
		cfg.AppEnv = "development"
	}

	jwtExpHours := 24
	if v := os.Getenv("JWT_EXPIRATION_HOURS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			jwtExpHours = n
		}
	}
	cfg.JWTExpiration = time.Duration(jwtExpHours) * time.Hour

	refreshExpHours := 168
	if v := os.Getenv("JWT_REFRESH_EXPIRATION_HOURS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			refreshExpHours = n
		}
	}
	cfg.JWTRefreshExp = time.Duration(refreshExpHours) * time.Hour

	// Rate limiting configuration
	if rps := os.Getenv("RATE_LIMIT_REQUESTS"); rps != "" {
		if v, err := strconv.ParseFloat(rps, 64); err == nil {
			cfg.RateLimitRequests = v
		}
	} else {
		cfg.RateLimitRequests = 10.0
	}

	if burst := os.Getenv("RATE_LIMIT_BURST"); burst != "" {
		if v, err := strconv.Atoi(burst); err == nil {
			cfg.RateLimitBurst = v
		}
	} else {
		cfg.RateLimitBurst = 20
	}

	// Extraction service (optional; unset disables extraction)
	cfg.GeminiAPIKey = os.Getenv("GEMINI_API_KEY")
	cfg.GeminiModel = os.Getenv("GEMINI_MODEL")
	if cfg.GeminiModel == "" {
		cfg.GeminiModel = "gemini-2.0-flash"
	}

	extractTimeout := 60
	if v := os.Getenv("EXTRACT_TIMEOUT_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			extractTimeout = n
		}
	}
	cfg.ExtractTimeout = time.Duration(extractTimeout) * time.Second

	// Notifications (optional)
	cfg.NotifyURL = os.Getenv("NOTIFY_URL")

	// Legacy mailbox (optional)
	cfg.IMAPServer = os.Getenv("IMAP_SERVER")
	cfg.IMAPUser = os.Getenv("IMAP_USER")
	cfg.IMAPPassword = os.Getenv("IMAP_PW")
	cfg.IMAPOwnerEmail = os.Getenv("IMAP_OWNER_EMAIL")

	// Scheduler specs
	cfg.IngestSchedule = os.Getenv("INGEST_SCHEDULE")
	if cfg.IngestSchedule == "" {
		cfg.IngestSchedule = "@every 2m"
	}
	cfg.ReminderSchedule = os.Getenv("REMINDER_SCHEDULE")
	if cfg.ReminderSchedule == "" {
		cfg.ReminderSchedule = "0 8 * * *"
	}

	return cfg, nil
}

// LoadWithValidation loads and validates configuration, failing fast on errors
func LoadWithValidation() (*Config, error) {
	cfg, err := Load()
	if err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if cfg.AppEnv == "production" {
		if err := cfg.ValidateProduction(); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DatabaseURL cannot be empty")
	}
	if c.APIPort <= 0 || c.APIPort > 65535 {
		return fmt.Errorf("APIPort must be between 1 and 65535")
	}
	if c.UploadPath == "" {
		return fmt.Errorf("UploadPath cannot be empty")
	}
	return nil
}

// ValidateProduction performs additional validation for production environment
func (c *Config) ValidateProduction() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required in production")
	}

	if c.AllowedOrigins == "" {
		return fmt.Errorf("ALLOWED_ORIGINS is required in production")
	}

	if strings.Contains(c.AllowedOrigins, "*") {
		return fmt.Errorf("wildcard (*) origins are not allowed in production")
	}

	if strings.Contains(c.DatabaseURL, "sslmode=disable") {
		return fmt.Errorf("sslmode=disable is not allowed in production")
	}

	return nil
}

// HasLegacyMailbox reports whether the process-wide mailbox is fully configured
func (c *Config) HasLegacyMailbox() bool {
	return c.IMAPServer != "" && c.IMAPUser != "" && c.IMAPPassword != "" && c.IMAPOwnerEmail != ""
}

// LogConfig logs configuration values (excluding secrets)
func (c *Config) LogConfig(logger *slog.Logger) {
	logger.Info("configuration loaded",
		slog.Int("api_port", c.APIPort),
		slog.String("upload_path", c.UploadPath),
		slog.String("log_level", c.LogLevel),
		slog.String("app_env", c.AppEnv),
		slog.Bool("jwt_secret_set", c.JWTSecret != ""),
		slog.Bool("gemini_api_key_set", c.GeminiAPIKey != ""),
		slog.String("gemini_model", c.GeminiModel),
		slog.Bool("notify_url_set", c.NotifyURL != ""),
		slog.Bool("legacy_mailbox_set", c.HasLegacyMailbox()),
		slog.String("ingest_schedule", c.IngestSchedule),
		slog.String("reminder_schedule", c.ReminderSchedule),
		slog.Float64("rate_limit_rps", c.RateLimitRequests),
		slog.Int("rate_limit_burst", c.RateLimitBurst),
	)
}
