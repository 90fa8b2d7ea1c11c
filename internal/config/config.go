// Package config handles application configuration and environment loading.
package config

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds everything the server needs. S3 fields are nil when not
// configured, in which case backups go to the local store.
type Config struct {
	DBPath     string // path to the SQLite database file
	ListenAddr string // HTTP listen address (default ":8080")
	LogLevel   string // debug, info, warn, error (default "info")
	Env        string // "development" (default) or "production"

	// Token signing
	JWTSecret     string
	TokenIssuer   string        // default "dynatable"
	TokenAudience string        // default "dynatable"
	AccessTTL     time.Duration // default 1h
	RefreshTTL    time.Duration // default 720h

	// File storage
	StorageDir string // local storage base dir (default "./storage")
	S3KeyID    *string
	S3Secret   *string
	S3Endpoint *string
	S3Region   *string
	S3Bucket   *string

	// Operational extras
	BackupSchedule string // cron spec; empty disables scheduled backups
	PolicyFile     string // optional YAML policy seed file

	// Rate limiting
	RateLimitRPS   float64 // default 100
	RateLimitBurst int     // default 200

	// CORS
	CORSAllowedOrigins []string // default ["*"]
}

// SlogLevel maps the LogLevel string to an slog.Level.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// IsProduction returns true when the server runs in production mode.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}

// HasS3Config returns true if all required S3 fields are set.
func (c *Config) HasS3Config() bool {
	return c.S3KeyID != nil && c.S3Secret != nil &&
		c.S3Endpoint != nil && c.S3Region != nil && c.S3Bucket != nil
}

// LoadFromEnv loads configuration from environment variables and applies
// defaults. Production mode turns insecure defaults into fatal errors.
func LoadFromEnv() (*Config, error) {
	cfg := &Config{
		DBPath:         os.Getenv("DB_PATH"),
		ListenAddr:     os.Getenv("LISTEN_ADDR"),
		LogLevel:       os.Getenv("LOG_LEVEL"),
		Env:            os.Getenv("ENV"),
		JWTSecret:      os.Getenv("JWT_SECRET"),
		TokenIssuer:    os.Getenv("TOKEN_ISSUER"),
		TokenAudience:  os.Getenv("TOKEN_AUDIENCE"),
		StorageDir:     os.Getenv("STORAGE_DIR"),
		BackupSchedule: os.Getenv("BACKUP_SCHEDULE"),
		PolicyFile:     os.Getenv("POLICY_FILE"),
	}

	if v := os.Getenv("ACCESS_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("invalid ACCESS_TTL %q: %w", v, err)
		}
		cfg.AccessTTL = d
	}
	if v := os.Getenv("REFRESH_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("invalid REFRESH_TTL %q: %w", v, err)
		}
		cfg.RefreshTTL = d
	}

	if v := os.Getenv("RATE_LIMIT_RPS"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.RateLimitRPS = f
		}
	}
	if v := os.Getenv("RATE_LIMIT_BURST"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.RateLimitBurst = n
		}
	}

	// S3 fields are only set when present in the environment.
	if v := os.Getenv("S3_KEY_ID"); v != "" {
		cfg.S3KeyID = &v
	}
	if v := os.Getenv("S3_SECRET"); v != "" {
		cfg.S3Secret = &v
	}
	if v := os.Getenv("S3_ENDPOINT"); v != "" {
		cfg.S3Endpoint = &v
	}
	if v := os.Getenv("S3_REGION"); v != "" {
		cfg.S3Region = &v
	}
	if v := os.Getenv("S3_BUCKET"); v != "" {
		cfg.S3Bucket = &v
	}

	if v := os.Getenv("CORS_ALLOWED_ORIGINS"); v != "" {
		origins := strings.Split(v, ",")
		for i := range origins {
			origins[i] = strings.TrimSpace(origins[i])
		}
		cfg.CORSAllowedOrigins = origins
	}

	// Defaults
	if cfg.DBPath == "" {
		cfg.DBPath = "dynatable.sqlite"
	}
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = ":8080"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.TokenIssuer == "" {
		cfg.TokenIssuer = "dynatable"
	}
	if cfg.TokenAudience == "" {
		cfg.TokenAudience = "dynatable"
	}
	if cfg.StorageDir == "" {
		cfg.StorageDir = "./storage"
	}
	if cfg.RateLimitRPS == 0 {
		cfg.RateLimitRPS = 100
	}
	if cfg.RateLimitBurst == 0 {
		cfg.RateLimitBurst = 200
	}
	if len(cfg.CORSAllowedOrigins) == 0 {
		cfg.CORSAllowedOrigins = []string{"*"}
	}
	if cfg.JWTSecret == "" {
		if cfg.IsProduction() {
			return nil, fmt.Errorf("JWT_SECRET must be set in production (ENV=production)")
		}
		cfg.JWTSecret = "insecure-dev-secret"
	}
	if cfg.IsProduction() && len(cfg.CORSAllowedOrigins) == 1 && cfg.CORSAllowedOrigins[0] == "*" {
		return nil, fmt.Errorf("CORS wildcard (*) is not allowed in production (ENV=production)")
	}

	return cfg, nil
}

// LoadDotEnv reads a .env file and sets any variables not already in the
// environment. Lines must be KEY=VALUE; comments (#) and blanks are
// skipped.
func LoadDotEnv(path string) error {
	f, err := os.Open(path) //nolint:gosec // path is caller-controlled
	if err != nil {
		if os.IsNotExist(err) {
			return nil // .env not found is not an error
		}
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close() //nolint:errcheck

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = stripQuotes(strings.TrimSpace(value))
		if os.Getenv(key) == "" {
			if err := os.Setenv(key, value); err != nil {
				return fmt.Errorf("setenv %s: %w", key, err)
			}
		}
	}
	return scanner.Err()
}

func stripQuotes(s string) string {
	if len(s) >= 2 {
		if (s[0] == '"' && s[len(s)-1] == '"') || (s[0] == '\'' && s[len(s)-1] == '\'') {
			return s[1 : len(s)-1]
		}
	}
	return s
}
