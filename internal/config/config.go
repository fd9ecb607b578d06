package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// DefaultRecentReleaseWindowDays is the trailing window used by the recent releases listing.
const DefaultRecentReleaseWindowDays = 3600

// Config captures all runtime configuration derived from environment variables.
type Config struct {
	Port                    string
	DBURL                   string
	AuthToken               string
	JWTSecret               string
	TokenTTLSecs            int
	LoginURL                string
	RecentReleaseWindowDays int
	RatingRateLimit         int
	ReadTimeoutSecs         int
	WriteTimeoutSecs        int
	IdleTimeoutSecs         int
	DBMaxConns              int
	DBMinConns              int
	DBMaxIdleSecs           int
	DBMaxLifeSecs           int
	DBConnTimeoutSecs       int
	DBStatementCache        int
	DBAutoMigrate           bool
	LogLevel                string
	LogFormat               string
}

// Load reads configuration from environment variables, applying defaults and validation.
// Variables from an optional .env file (ENV_FILE, default ".env") are loaded first and never
// override values already present in the environment.
func Load() (Config, error) {
	if err := loadEnvFile(getEnv("ENV_FILE", ".env")); err != nil {
		return Config{}, err
	}

	cfg := Config{
		Port:                    getEnv("PORT", "8080"),
		DBURL:                   os.Getenv("DB_URL"),
		AuthToken:               os.Getenv("AUTH_TOKEN"),
		JWTSecret:               os.Getenv("AUTH_JWT_SECRET"),
		TokenTTLSecs:            getEnvInt("AUTH_TOKEN_TTL_SECS", 86400),
		LoginURL:                getEnv("LOGIN_URL", "/accounts/login/"),
		RecentReleaseWindowDays: getEnvInt("RECENT_RELEASE_WINDOW_DAYS", DefaultRecentReleaseWindowDays),
		RatingRateLimit:         getEnvInt("RATING_RATE_LIMIT", 30),
		ReadTimeoutSecs:         getEnvInt("SERVER_READ_TIMEOUT", 15),
		WriteTimeoutSecs:        getEnvInt("SERVER_WRITE_TIMEOUT", 15),
		IdleTimeoutSecs:         getEnvInt("SERVER_IDLE_TIMEOUT", 60),
		DBMaxConns:              getEnvInt("DB_MAX_CONNS", 20),
		DBMinConns:              getEnvInt("DB_MIN_CONNS", 2),
		DBMaxIdleSecs:           getEnvInt("DB_MAX_CONN_IDLE_SECS", 300),
		DBMaxLifeSecs:           getEnvInt("DB_MAX_CONN_LIFETIME_SECS", 3600),
		DBConnTimeoutSecs:       getEnvInt("DB_CONN_TIMEOUT_SECS", 10),
		DBStatementCache:        getEnvInt("DB_STATEMENT_CACHE_CAPACITY", 256),
		DBAutoMigrate:           getEnvBool("DB_AUTO_MIGRATE", true),
		LogLevel:                getEnv("LOG_LEVEL", "info"),
		LogFormat:               getEnv("LOG_FORMAT", "json"),
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	if c.DBURL == "" {
		return fmt.Errorf("DB_URL is required")
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("AUTH_JWT_SECRET is required")
	}
	if c.TokenTTLSecs <= 0 {
		return fmt.Errorf("AUTH_TOKEN_TTL_SECS must be positive")
	}
	if strings.TrimSpace(c.LoginURL) == "" {
		return fmt.Errorf("LOGIN_URL cannot be empty")
	}
	if c.RecentReleaseWindowDays <= 0 {
		return fmt.Errorf("RECENT_RELEASE_WINDOW_DAYS must be positive")
	}
	if c.RatingRateLimit < 0 {
		return fmt.Errorf("RATING_RATE_LIMIT must be non-negative")
	}
	if c.DBMaxConns <= 0 {
		return fmt.Errorf("DB_MAX_CONNS must be positive")
	}
	if c.DBMinConns < 0 {
		return fmt.Errorf("DB_MIN_CONNS must be non-negative")
	}
	if c.DBMinConns > c.DBMaxConns {
		return fmt.Errorf("DB_MIN_CONNS cannot exceed DB_MAX_CONNS")
	}
	if c.DBStatementCache < 0 {
		return fmt.Errorf("DB_STATEMENT_CACHE_CAPACITY must be non-negative")
	}
	return nil
}

func loadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load env file %s: %w", path, err)
	}
	return nil
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

func getEnvBool(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.ParseBool(val); err == nil {
			return parsed
		}
	}
	return fallback
}
