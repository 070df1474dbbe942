// Package config loads and validates environment variables at startup.
// Fail-fast: if a required variable is missing, the process exits with an error.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Storage backends.
const (
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
)

// Config holds all runtime configuration for the marketplace service.
type Config struct {
	StorageBackend            string
	Port                      string
	GRPCPort                  string
	DatabaseURL               string
	RedisURL                  string // optional for the memory backend
	JWTSecret                 string // empty: trust gateway headers
	JWTIssuer                 string
	KinkSeedFile              string
	ProfileSeedFile           string // memory backend only
	ReputationIntervalMinutes int
	ReputationCacheTTL        time.Duration
	FeedbackFlagTerms         []string
}

// Load reads environment variables and returns a validated Config.
func Load() (*Config, error) {
	backend := strings.ToLower(os.Getenv("STORAGE_BACKEND"))
	if backend == "" {
		backend = BackendPostgres
	}
	if backend != BackendPostgres && backend != BackendMemory {
		return nil, fmt.Errorf("STORAGE_BACKEND must be %q or %q, got %q", BackendPostgres, BackendMemory, backend)
	}

	dbURL := os.Getenv("DATABASE_URL")
	redisURL := os.Getenv("REDIS_URL")
	if backend == BackendPostgres {
		if dbURL == "" {
			return nil, fmt.Errorf("DATABASE_URL is required")
		}
		if redisURL == "" {
			return nil, fmt.Errorf("REDIS_URL is required")
		}
	}

	// Profiles belong to the user service; fixtures only make sense in memory.
	profileSeed := strings.TrimSpace(os.Getenv("PROFILE_SEED_FILE"))
	if profileSeed != "" && backend != BackendMemory {
		return nil, fmt.Errorf("PROFILE_SEED_FILE requires STORAGE_BACKEND=%s", BackendMemory)
	}

	interval := 60
	if s := os.Getenv("REPUTATION_INTERVAL_MINUTES"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil || v < 1 {
			return nil, fmt.Errorf("REPUTATION_INTERVAL_MINUTES must be a positive integer, got %q", s)
		}
		interval = v
	}

	ttl := 10 * time.Minute
	if s := os.Getenv("REPUTATION_CACHE_TTL"); s != "" {
		v, err := time.ParseDuration(s)
		if err != nil || v <= 0 {
			return nil, fmt.Errorf("REPUTATION_CACHE_TTL must be a positive duration, got %q", s)
		}
		ttl = v
	}

	port := os.Getenv("MARKETPLACE_PORT")
	if port == "" {
		port = "8083"
	}
	grpcPort := os.Getenv("MARKETPLACE_GRPC_PORT")
	if grpcPort == "" {
		grpcPort = "9083"
	}

	return &Config{
		StorageBackend:            backend,
		Port:                      port,
		GRPCPort:                  grpcPort,
		DatabaseURL:               dbURL,
		RedisURL:                  redisURL,
		JWTSecret:                 os.Getenv("JWT_SECRET"),
		JWTIssuer:                 os.Getenv("JWT_ISSUER"),
		KinkSeedFile:              os.Getenv("KINK_SEED_FILE"),
		ProfileSeedFile:           profileSeed,
		ReputationIntervalMinutes: interval,
		ReputationCacheTTL:        ttl,
		FeedbackFlagTerms:         splitList(os.Getenv("FEEDBACK_FLAG_TERMS")),
	}, nil
}

func splitList(s string) []string {
	out := make([]string, 0)
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
