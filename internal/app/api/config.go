package api

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"go.temporal.io/sdk/client"

	recordsapp "github.com/Apurer/go-gin-records-api/internal/domains/records/application"
)

// Config carries environment-driven settings for the API process.
type Config struct {
	Port              string
	PostgresDSN       string
	TemporalAddress   string
	TemporalNamespace string
	TemporalDisabled  bool
	MoveTimeout       time.Duration
	QueryLogDisabled  bool
	AutoMigrate       bool
	MemorySeedRecords int
}

// LoadConfig reads environment variables, applies defaults, and validates basic constraints.
func LoadConfig() (Config, error) {
	cfg := Config{
		Port:              envDefault("PORT", "8080"),
		PostgresDSN:       strings.TrimSpace(os.Getenv("POSTGRES_DSN")),
		TemporalAddress:   envDefault("TEMPORAL_ADDRESS", client.DefaultHostPort),
		TemporalNamespace: envDefault("TEMPORAL_NAMESPACE", client.DefaultNamespace),
		TemporalDisabled:  isTruthy(os.Getenv("TEMPORAL_DISABLED")),
		MoveTimeout:       recordsapp.DefaultMoveTimeout,
		QueryLogDisabled:  isTruthy(os.Getenv("QUERY_LOG_DISABLED")),
		AutoMigrate:       true,
	}
	if raw := strings.TrimSpace(os.Getenv("MOVE_TIMEOUT_MS")); raw != "" {
		ms, err := strconv.Atoi(raw)
		if err != nil || ms <= 0 {
			return Config{}, fmt.Errorf("MOVE_TIMEOUT_MS must be a positive integer")
		}
		cfg.MoveTimeout = time.Duration(ms) * time.Millisecond
	}
	if raw := strings.TrimSpace(os.Getenv("AUTO_MIGRATE")); raw != "" {
		cfg.AutoMigrate = isTruthy(raw)
	}
	if raw := strings.TrimSpace(os.Getenv("MEMORY_SEED_RECORDS")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return Config{}, fmt.Errorf("MEMORY_SEED_RECORDS must be a non-negative integer")
		}
		cfg.MemorySeedRecords = n
	}
	return cfg, nil
}

func envDefault(key, fallback string) string {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		return val
	}
	return fallback
}

func isTruthy(value string) bool {
	value = strings.TrimSpace(strings.ToLower(value))
	return value == "1" || value == "true" || value == "yes"
}
