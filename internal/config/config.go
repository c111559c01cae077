package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config captures all runtime configuration derived from environment variables.
type Config struct {
	Port              string
	AuthToken         string
	DBURL             string
	TMDBAPIKey        string
	TMDBBaseURL       string
	TMDBImageBaseURL  string
	TMDBTimeoutSecs   int
	TMDBRateLimit     float64
	PrimaryLanguage   string
	FallbackLanguage  string
	MediaDir          string
	LogLevel          string
	LogFile           string
	ReadTimeoutSecs   int
	WriteTimeoutSecs  int
	IdleTimeoutSecs   int
	DBMaxConns        int
	DBMinConns        int
	DBMaxIdleSecs     int
	DBMaxLifeSecs     int
	DBConnTimeoutSecs int
	DBStatementCache  int
}

// FromEnv reads configuration from environment variables with defaults and
// no validation.
func FromEnv() Config {
	return Config{
		Port:              getEnv("PORT", "8080"),
		AuthToken:         os.Getenv("AUTH_TOKEN"),
		DBURL:             os.Getenv("DB_URL"),
		TMDBAPIKey:        os.Getenv("TMDB_API_KEY"),
		TMDBBaseURL:       getEnv("TMDB_BASE_URL", "https://api.themoviedb.org/3"),
		TMDBImageBaseURL:  getEnv("TMDB_IMAGE_BASE_URL", "https://image.tmdb.org/t/p"),
		TMDBTimeoutSecs:   getEnvInt("TMDB_TIMEOUT_SECS", 15),
		TMDBRateLimit:     getEnvFloat("TMDB_RATE_LIMIT", 0),
		PrimaryLanguage:   getEnv("PRIMARY_LANGUAGE", "en-US"),
		FallbackLanguage:  getEnv("FALLBACK_LANGUAGE", "en-US"),
		MediaDir:          getEnv("MEDIA_DIR", "./media"),
		LogLevel:          strings.ToLower(getEnv("LOG_LEVEL", "info")),
		LogFile:           os.Getenv("LOG_FILE"),
		ReadTimeoutSecs:   getEnvInt("SERVER_READ_TIMEOUT", 15),
		WriteTimeoutSecs:  getEnvInt("SERVER_WRITE_TIMEOUT", 60),
		IdleTimeoutSecs:   getEnvInt("SERVER_IDLE_TIMEOUT", 60),
		DBMaxConns:        getEnvInt("DB_MAX_CONNS", 20),
		DBMinConns:        getEnvInt("DB_MIN_CONNS", 2),
		DBMaxIdleSecs:     getEnvInt("DB_MAX_CONN_IDLE_SECS", 300),
		DBMaxLifeSecs:     getEnvInt("DB_MAX_CONN_LIFETIME_SECS", 3600),
		DBConnTimeoutSecs: getEnvInt("DB_CONN_TIMEOUT_SECS", 10),
		DBStatementCache:  getEnvInt("DB_STATEMENT_CACHE_CAPACITY", 256),
	}
}

// Load reads configuration from environment variables, applying defaults and validation.
func Load() (Config, error) {
	cfg := FromEnv()

	if cfg.AuthToken == "" {
		return Config{}, fmt.Errorf("AUTH_TOKEN is required")
	}
	if cfg.DBURL == "" {
		return Config{}, fmt.Errorf("DB_URL is required")
	}
	if err := cfg.ValidateProvider(); err != nil {
		return Config{}, err
	}
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return Config{}, fmt.Errorf("LOG_LEVEL must be one of debug, info, warn, error")
	}
	if cfg.DBMaxConns <= 0 {
		return Config{}, fmt.Errorf("DB_MAX_CONNS must be positive")
	}
	if cfg.DBMinConns < 0 {
		return Config{}, fmt.Errorf("DB_MIN_CONNS must be non-negative")
	}
	if cfg.DBMaxConns > 0 && cfg.DBMinConns > cfg.DBMaxConns {
		return Config{}, fmt.Errorf("DB_MIN_CONNS cannot exceed DB_MAX_CONNS")
	}
	if cfg.DBStatementCache < 0 {
		return Config{}, fmt.Errorf("DB_STATEMENT_CACHE_CAPACITY must be non-negative")
	}

	return cfg, nil
}

// ValidateProvider checks the subset of settings the metadata client needs.
func (c Config) ValidateProvider() error {
	if c.TMDBAPIKey == "" {
		return fmt.Errorf("TMDB_API_KEY is required")
	}
	if c.TMDBBaseURL == "" {
		return fmt.Errorf("TMDB_BASE_URL is required")
	}
	if c.TMDBTimeoutSecs <= 0 || c.TMDBTimeoutSecs > 20 {
		return fmt.Errorf("TMDB_TIMEOUT_SECS must be between 1 and 20")
	}
	if c.TMDBRateLimit < 0 {
		return fmt.Errorf("TMDB_RATE_LIMIT must be non-negative")
	}
	if strings.TrimSpace(c.PrimaryLanguage) == "" {
		return fmt.Errorf("PRIMARY_LANGUAGE is required")
	}
	return nil
}

// TMDBTimeout returns the per-call provider timeout.
func (c Config) TMDBTimeout() time.Duration {
	return time.Duration(c.TMDBTimeoutSecs) * time.Second
}

// Languages returns the primary and fallback locales, defaulting the fallback to the primary.
func (c Config) Languages() (primary, fallback string) {
	primary = strings.TrimSpace(c.PrimaryLanguage)
	fallback = strings.TrimSpace(c.FallbackLanguage)
	if fallback == "" {
		fallback = primary
	}
	return primary, fallback
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.ParseFloat(val, 64); err == nil {
			return parsed
		}
	}
	return fallback
}
