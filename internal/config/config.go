// Package config provides configuration management for the complaint service.
// It loads configuration from environment variables (optionally seeded from a
// .env file) with sensible defaults and validates it before the service starts.
//
// Environment Variables:
//
// Application Settings:
//   - PORT: Server port (default: 8080)
//   - LOG_LEVEL: Logging level (default: info)
//   - LOG_FILE: Optional file that receives a copy of the log output
//   - TLS_CERT_FILE, TLS_KEY_FILE: Serve HTTPS when both are set
//
// Database Configuration:
//   - DATABASE_TYPE: Database type - "sqlite" or "postgres" (default: sqlite)
//   - DATABASE_PATH: SQLite database file path (default: ./complaints.db)
//   - POSTGRES_HOST: PostgreSQL host (default: localhost)
//   - POSTGRES_PORT: PostgreSQL port (default: 5432)
//   - POSTGRES_DB: PostgreSQL database name (default: complaints)
//   - POSTGRES_USER: PostgreSQL username (default: postgres)
//   - POSTGRES_PASSWORD: PostgreSQL password
//   - POSTGRES_SSL_MODE: PostgreSQL SSL mode (default: disable)
//
// Redis Configuration:
//   - REDIS_ADDRESS: Redis server address; empty disables Redis
//   - REDIS_PASSWORD: Redis password
//   - REDIS_DB: Redis database number 0-15 (default: 0)
//   - REDIS_POOL_SIZE: Redis connection pool size (default: 10)
//
// Rate Limiting:
//   - RATE_LIMIT_ENABLED: Limit complaint submissions per client IP (default: true)
//   - RATE_LIMIT_DEFAULT: Submissions allowed per window (default: 100)
//   - RATE_LIMIT_WINDOW: Rate limit time window (default: 60s)
//
// Provider calls:
//   - HTTP_CONNECTION_TIMEOUT: Per-request timeout (default: 5s)
//   - HTTP_CONNECTION_RETRY_DELAY: Base retry delay; attempt k waits k times this (default: 5s)
//   - HTTP_CONNECTION_RETRIES: Attempts per provider call (default: 5)
//
// Classification:
//   - YA_CLOUD_OAUTH_TOKEN: Long-lived secret exchanged for IAM tokens
//   - YA_CLOUD_CATALOG_ID: Catalog that owns the classifier model
//   - YA_CLOUD_MODEL: Model path (default: yandexgpt-lite/latest)
//   - YA_CLOUD_IAM_URL, YA_CLOUD_CLASSIFY_URL: Endpoint overrides
//   - IAM_TOKEN_GRACE: Refresh tokens this long before expiry (default: 1m)
//   - SPAM_CHECK_TIMEOUT: Budget of the spam check on submission; when it runs
//     out the complaint is accepted (default: 10s, below the 30s write timeout)
//   - AI_COMPLAINT_SENTIMENT_PROMPT, AI_COMPLAINT_CATEGORY_PROMPT, AI_SPAM_PROMPT:
//     Task descriptions sent with each classification
//
// Geolocation:
//   - DADATA_API_KEY: API key for the IP geolocation service
//   - DADATA_URL: Endpoint override
//   - GEO_LANGUAGE: Language of returned place names (default: ru)
//
// Shutdown:
//   - ENRICHMENT_SHUTDOWN_TIMEOUT: How long shutdown waits for enrichment in flight (default: 30s)
//
// Durations accept Go syntax ("5s", "1m") or a bare number of seconds ("5", "0.5").
//
// Example usage:
//
//	cfg := config.Load()
//	if err := cfg.Validate(); err != nil {
//		log.Fatalf("Invalid configuration: %v", err)
//	}
//	for _, warning := range cfg.Warnings() {
//		log.Println(warning)
//	}
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"complaint-service/internal/common/utils"
)

const (
	defaultSentimentPrompt = "Определи тональность жалобы"
	defaultCategoryPrompt  = "Определи категорию жалобы"
	defaultSpamPrompt      = "Это сервис для приёма жалоб. Определи наличие спама в тексте"

	// the submission must be answered within the server's 30s write timeout
	maxSpamCheckTimeout = 20 * time.Second
)

// Config holds all configuration values for the complaint service.
//
// Numeric and duration variables are parsed by Load; values that fail to
// parse keep their default and are reported by Validate.
type Config struct {
	// Application settings
	Port     string // Server port number
	LogLevel string // Logging level (debug, info, warn, error)
	LogFile  string // Optional log file path

	TLSCertFile string
	TLSKeyFile  string

	// Database configuration
	DatabaseType     string // Database type: "sqlite" or "postgres"
	DatabasePath     string // Path to SQLite database file
	PostgresHost     string
	PostgresPort     int
	PostgresDB       string
	PostgresUser     string
	PostgresPassword string
	PostgresSSLMode  string

	// Redis configuration for the shared rate limit counter
	RedisAddress  string
	RedisPassword string
	RedisDB       int
	RedisPoolSize int

	// Rate limiting configuration
	RateLimitEnabled bool
	RateLimitDefault int
	RateLimitWindow  time.Duration

	// Provider call policy shared by classification and geolocation
	HTTPTimeout    time.Duration
	HTTPRetryDelay time.Duration
	HTTPRetries    int

	// Classification provider
	YandexOAuthToken  string
	YandexCatalogID   string
	YandexModel       string
	YandexIAMURL      string
	YandexClassifyURL string
	IAMTokenGrace     time.Duration
	SentimentPrompt   string
	CategoryPrompt    string
	SpamPrompt        string
	SpamCheckTimeout  time.Duration

	// Geolocation provider
	DadataAPIKey string
	DadataURL    string
	GeoLanguage  string

	EnrichmentShutdownTimeout time.Duration

	problems []string
}

// Load creates a new Config instance with values loaded from environment variables.
// If an environment variable is not set, the corresponding default value is used.
//
// This function does not validate the configuration - call Validate() on the
// returned Config before use.
func Load() *Config {
	c := &Config{
		Port:     getEnv("PORT", "8080"),
		LogLevel: getEnv("LOG_LEVEL", "info"),
		LogFile:  getEnv("LOG_FILE", ""),

		TLSCertFile: getEnv("TLS_CERT_FILE", ""),
		TLSKeyFile:  getEnv("TLS_KEY_FILE", ""),

		DatabaseType:     getEnv("DATABASE_TYPE", "sqlite"),
		DatabasePath:     getEnv("DATABASE_PATH", "./complaints.db"),
		PostgresHost:     getEnv("POSTGRES_HOST", "localhost"),
		PostgresDB:       getEnv("POSTGRES_DB", "complaints"),
		PostgresUser:     getEnv("POSTGRES_USER", "postgres"),
		PostgresPassword: getEnv("POSTGRES_PASSWORD", ""),
		PostgresSSLMode:  getEnv("POSTGRES_SSL_MODE", "disable"),

		RedisAddress:  getEnv("REDIS_ADDRESS", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),

		RateLimitEnabled: getBoolEnv("RATE_LIMIT_ENABLED", true),

		YandexOAuthToken:  getEnv("YA_CLOUD_OAUTH_TOKEN", ""),
		YandexCatalogID:   getEnv("YA_CLOUD_CATALOG_ID", ""),
		YandexModel:       getEnv("YA_CLOUD_MODEL", "yandexgpt-lite/latest"),
		YandexIAMURL:      getEnv("YA_CLOUD_IAM_URL", ""),
		YandexClassifyURL: getEnv("YA_CLOUD_CLASSIFY_URL", ""),
		SentimentPrompt:   getEnv("AI_COMPLAINT_SENTIMENT_PROMPT", defaultSentimentPrompt),
		CategoryPrompt:    getEnv("AI_COMPLAINT_CATEGORY_PROMPT", defaultCategoryPrompt),
		SpamPrompt:        getEnv("AI_SPAM_PROMPT", defaultSpamPrompt),

		DadataAPIKey: getEnv("DADATA_API_KEY", ""),
		DadataURL:    getEnv("DADATA_URL", ""),
		GeoLanguage:  getEnv("GEO_LANGUAGE", "ru"),
	}

	c.PostgresPort = c.intEnv("POSTGRES_PORT", 5432)
	c.RedisDB = c.intEnv("REDIS_DB", 0)
	c.RedisPoolSize = c.intEnv("REDIS_POOL_SIZE", 10)
	c.RateLimitDefault = c.intEnv("RATE_LIMIT_DEFAULT", 100)
	c.RateLimitWindow = c.durationEnv("RATE_LIMIT_WINDOW", 60*time.Second)

	c.HTTPTimeout = c.durationEnv("HTTP_CONNECTION_TIMEOUT", 5*time.Second)
	c.HTTPRetryDelay = c.durationEnv("HTTP_CONNECTION_RETRY_DELAY", 5*time.Second)
	c.HTTPRetries = c.intEnv("HTTP_CONNECTION_RETRIES", 5)
	c.IAMTokenGrace = c.durationEnv("IAM_TOKEN_GRACE", time.Minute)
	c.SpamCheckTimeout = c.durationEnv("SPAM_CHECK_TIMEOUT", 10*time.Second)
	c.EnrichmentShutdownTimeout = c.durationEnv("ENRICHMENT_SHUTDOWN_TIMEOUT", 30*time.Second)

	return c
}

// getEnv retrieves an environment variable value or returns a default value if not set.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getBoolEnv accepts anything strconv.ParseBool does and falls back to
// defaultValue otherwise.
func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func (c *Config) intEnv(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		c.problems = append(c.problems, fmt.Sprintf("%s must be an integer, got %q", key, value))
		return defaultValue
	}
	return parsed
}

func (c *Config) durationEnv(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := utils.ParseDuration(value)
	if err != nil {
		c.problems = append(c.problems, fmt.Sprintf("%s must be a duration (e.g. '5s' or '5'), got %q", key, value))
		return defaultValue
	}
	return parsed
}

// Validate checks that every value is well formed. Missing provider secrets
// are not errors; see Warnings.
func (c *Config) Validate() error {
	if len(c.problems) > 0 {
		return fmt.Errorf("%s", c.problems[0])
	}

	if port, err := strconv.Atoi(c.Port); err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("PORT must be a valid port number between 1 and 65535")
	}

	if (c.TLSCertFile == "") != (c.TLSKeyFile == "") {
		return fmt.Errorf("TLS_CERT_FILE and TLS_KEY_FILE must be set together")
	}

	switch c.DatabaseType {
	case "sqlite":
		if c.DatabasePath == "" {
			return fmt.Errorf("DATABASE_PATH is required when using SQLite")
		}
	case "postgres":
		if c.PostgresHost == "" {
			return fmt.Errorf("POSTGRES_HOST is required when using PostgreSQL")
		}
		if c.PostgresDB == "" {
			return fmt.Errorf("POSTGRES_DB is required when using PostgreSQL")
		}
		if c.PostgresUser == "" {
			return fmt.Errorf("POSTGRES_USER is required when using PostgreSQL")
		}
		if c.PostgresPort < 1 || c.PostgresPort > 65535 {
			return fmt.Errorf("POSTGRES_PORT must be a valid port number")
		}
	default:
		return fmt.Errorf("DATABASE_TYPE must be 'sqlite' or 'postgres'")
	}

	if c.RedisAddress != "" {
		if c.RedisDB < 0 || c.RedisDB > 15 {
			return fmt.Errorf("REDIS_DB must be a number between 0 and 15")
		}
		if c.RedisPoolSize < 1 {
			return fmt.Errorf("REDIS_POOL_SIZE must be a positive number")
		}
	}

	if c.RateLimitEnabled {
		if c.RateLimitDefault < 1 {
			return fmt.Errorf("RATE_LIMIT_DEFAULT must be a positive number")
		}
		if c.RateLimitWindow <= 0 {
			return fmt.Errorf("RATE_LIMIT_WINDOW must be positive")
		}
	}

	if c.HTTPTimeout <= 0 {
		return fmt.Errorf("HTTP_CONNECTION_TIMEOUT must be positive")
	}
	if c.HTTPRetryDelay < 0 {
		return fmt.Errorf("HTTP_CONNECTION_RETRY_DELAY must not be negative")
	}
	if c.HTTPRetries < 1 {
		return fmt.Errorf("HTTP_CONNECTION_RETRIES must be at least 1")
	}
	if c.IAMTokenGrace < 0 {
		return fmt.Errorf("IAM_TOKEN_GRACE must not be negative")
	}
	if c.SpamCheckTimeout <= 0 || c.SpamCheckTimeout > maxSpamCheckTimeout {
		return fmt.Errorf("SPAM_CHECK_TIMEOUT must be positive and at most %s", maxSpamCheckTimeout)
	}
	if c.EnrichmentShutdownTimeout <= 0 {
		return fmt.Errorf("ENRICHMENT_SHUTDOWN_TIMEOUT must be positive")
	}

	return nil
}

// Warnings lists settings whose absence makes enrichment fall back to
// default labels or UNKNOWN locations.
func (c *Config) Warnings() []string {
	var warnings []string
	if c.YandexOAuthToken == "" {
		warnings = append(warnings, "YA_CLOUD_OAUTH_TOKEN is not set; classification will use default labels")
	}
	if c.YandexCatalogID == "" {
		warnings = append(warnings, "YA_CLOUD_CATALOG_ID is not set; classification requests will be rejected")
	}
	if c.DadataAPIKey == "" {
		warnings = append(warnings, "DADATA_API_KEY is not set; geolocation will resolve to UNKNOWN")
	}
	return warnings
}
