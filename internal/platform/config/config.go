// Package config reads service configuration from the environment so main
// stays lean.
package config

import (
	"os"
	"time"
)

// Redis holds connection settings for the profile id cache. An empty URL
// disables caching.
type Redis struct {
	URL          string
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Server captures the full service configuration.
type Server struct {
	Addr            string
	JWTSigningKey   string
	JWTIssuer       string
	JWTAudience     string
	PostgresURL     string
	Redis           Redis
	ShutdownTimeout time.Duration
	AuditBuffer     int
}

// FromEnv builds a Server config from environment variables.
func FromEnv() Server {
	addr := os.Getenv("MEMBER_VAULT_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	jwtSigningKey := os.Getenv("JWT_SIGNING_KEY")
	if jwtSigningKey == "" {
		// Development default; override in production.
		jwtSigningKey = "dev-secret-key-change-in-production"
	}

	return Server{
		Addr:          addr,
		JWTSigningKey: jwtSigningKey,
		JWTIssuer:     envOr("JWT_ISSUER", "member-vault"),
		JWTAudience:   envOr("JWT_AUDIENCE", "member-vault-api"),
		PostgresURL:   os.Getenv("POSTGRES_URL"),
		Redis: Redis{
			URL:          os.Getenv("REDIS_URL"),
			DialTimeout:  durationOr("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  durationOr("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: durationOr("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		ShutdownTimeout: durationOr("SHUTDOWN_TIMEOUT", 10*time.Second),
		AuditBuffer:     256,
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func durationOr(key string, fallback time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}
	return d
}
