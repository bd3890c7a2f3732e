package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

const defaultDSN = "host=localhost user=postgres password=postgres dbname=wms port=5432 sslmode=disable"

type Config struct {
	HTTPPort    string
	DatabaseDSN string
	JWTSecret   string
	CORSOrigins string

	LogLevel    string
	LogEncoding string

	// Sequence locks go through Redis when RedisAddr is set, in-process otherwise
	RedisAddr       string
	RedisPassword   string
	RedisDB         int
	SequenceLockTTL time.Duration

	// Warnings collected while loading, logged once the logger exists
	Warnings []string
}

func Load() (*Config, error) {
	cfg := &Config{
		HTTPPort:        getEnv("HTTP_PORT", "8080"),
		DatabaseDSN:     getEnv("DATABASE_DSN", defaultDSN),
		JWTSecret:       getEnv("JWT_SECRET", ""),
		CORSOrigins:     getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		LogEncoding:     getEnv("LOG_ENCODING", "json"),
		RedisAddr:       getEnv("REDIS_ADDR", ""),
		RedisPassword:   getEnv("REDIS_PASSWORD", ""),
		RedisDB:         getEnvInt("REDIS_DB", 0),
		SequenceLockTTL: time.Duration(getEnvInt("SEQUENCE_LOCK_TTL_SECONDS", 10)) * time.Second,
	}

	if cfg.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET is not set")
	}
	if len(cfg.JWTSecret) < 32 {
		return nil, errors.New("JWT_SECRET must be at least 32 characters")
	}
	if cfg.SequenceLockTTL <= 0 {
		return nil, errors.New("SEQUENCE_LOCK_TTL_SECONDS must be positive")
	}
	if cfg.DatabaseDSN == defaultDSN {
		cfg.Warnings = append(cfg.Warnings, "DATABASE_DSN uses the default value, set your own Postgres connection for production")
	}
	if cfg.CORSOrigins == "http://localhost:5173" {
		cfg.Warnings = append(cfg.Warnings, "CORS_ALLOWED_ORIGINS uses the default value, set your own domain for production")
	}

	return cfg, nil
}

// CORSOriginList splits the comma separated CORS origins.
func (c *Config) CORSOriginList() []string {
	origins := strings.Split(c.CORSOrigins, ",")
	out := origins[:0]
	for _, o := range origins {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}
