// Package config centralizes process configuration, loaded once at
// startup from the environment (and from a local .env file via
// godotenv/autoload in internal/server), following the teacher's
// server.go dependency-injection shape rather than scattered os.Getenv
// calls.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds every environment-derived setting the core needs.
type Config struct {
	Port int

	DatabaseURL string

	JWTSecret string
	JWTIssuer string

	UseRemoteCrews    bool
	FallbackToLocal   bool
	RemoteCrewBaseURL string

	EmbeddingServiceBaseURL string
	EmbeddingModel          string

	WorkerPoolSize int

	RetryMaxAttempts int
	RetryBaseDelay   time.Duration
	RetryMaxDelay    time.Duration
	MaxWallTime      time.Duration

	ArchiveBucket string
	ArchiveRegion string

	SMTPHost string
	SMTPPort int
	SMTPUser string
	SMTPPass string
	SMTPFrom string

	CasbinDSN       string
	CasbinModelPath string
}

// Load populates Config from the environment, applying the same
// defaults the teacher's server.go falls back to for PORT.
func Load() (*Config, error) {
	cfg := &Config{
		Port:                    envInt("PORT", 8080),
		DatabaseURL:             os.Getenv("DATABASE_URL"),
		JWTSecret:               envString("JWT_SECRET", "change-me-in-production"),
		JWTIssuer:               envString("JWT_ISSUER", "crew-orchestrator"),
		UseRemoteCrews:          envBool("USE_REMOTE_CREWS", false),
		FallbackToLocal:         envBool("FALLBACK_TO_LOCAL", true),
		RemoteCrewBaseURL:       os.Getenv("REMOTE_CREW_BASE_URL"),
		EmbeddingServiceBaseURL: os.Getenv("EMBEDDING_SERVICE_BASE_URL"),
		EmbeddingModel:          envString("EMBEDDING_MODEL", "text-embedding-3-small"),
		WorkerPoolSize:          envInt("WORKER_POOL_SIZE", 4),
		RetryMaxAttempts:        envInt("RETRY_MAX_ATTEMPTS", 3),
		RetryBaseDelay:          envDuration("RETRY_BASE_DELAY", time.Second),
		RetryMaxDelay:           envDuration("RETRY_MAX_DELAY", 30*time.Second),
		MaxWallTime:             envDuration("MAX_WALL_TIME", 10*time.Minute),
		ArchiveBucket:           os.Getenv("ARCHIVE_S3_BUCKET"),
		ArchiveRegion:           envString("ARCHIVE_S3_REGION", "us-east-1"),
		SMTPHost:                os.Getenv("SMTP_HOST"),
		SMTPPort:                envInt("SMTP_PORT", 587),
		SMTPUser:                os.Getenv("SMTP_USER"),
		SMTPPass:                os.Getenv("SMTP_PASS"),
		SMTPFrom:                os.Getenv("SMTP_FROM"),
		CasbinDSN:               os.Getenv("CASBIN_DSN"),
		CasbinModelPath:         os.Getenv("CASBIN_MODEL_PATH"),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	return cfg, nil
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func envBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
