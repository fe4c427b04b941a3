// Package config loads the trust engine's environment/config surface:
// explicit parameters only, no package-level mutable globals, layering
// os.Getenv reads over typed defaults.
package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config is the full environment/config surface the trust engine reads at startup.
type Config struct {
	EventLogPath     string
	SnapshotDir      string

	WitnessMaxAttempts int
	WitnessBaseDelayMs int
	WitnessMaxDelayMs  int
	WitnessJitterMs    int

	MinVerifiers          int
	ConsensusTieThreshold float64

	PostgresDSN string
	RedisAddr   string
}

func defaults() Config {
	return Config{
		EventLogPath:          "./data/events.jsonl",
		SnapshotDir:           "./data/snapshots",
		WitnessMaxAttempts:    5,
		WitnessBaseDelayMs:    200,
		WitnessMaxDelayMs:     10000,
		WitnessJitterMs:       250,
		MinVerifiers:          3,
		ConsensusTieThreshold: 0.5,
		PostgresDSN:           "postgres://attestia@localhost:5432/attestia?sslmode=disable",
		RedisAddr:             "localhost:6379",
	}
}

// Load reads the environment/config surface from environment variables,
// falling back to explicit defaults for anything unset.
func Load() (Config, error) {
	cfg := defaults()

	if v := os.Getenv("TRUSTENGINE_EVENT_LOG_PATH"); v != "" {
		cfg.EventLogPath = v
	}
	if v := os.Getenv("TRUSTENGINE_SNAPSHOT_DIR"); v != "" {
		cfg.SnapshotDir = v
	}

	var err error
	if cfg.WitnessMaxAttempts, err = intEnv("TRUSTENGINE_WITNESS_MAX_ATTEMPTS", cfg.WitnessMaxAttempts); err != nil {
		return Config{}, err
	}
	if cfg.WitnessBaseDelayMs, err = intEnv("TRUSTENGINE_WITNESS_BASE_DELAY_MS", cfg.WitnessBaseDelayMs); err != nil {
		return Config{}, err
	}
	if cfg.WitnessMaxDelayMs, err = intEnv("TRUSTENGINE_WITNESS_MAX_DELAY_MS", cfg.WitnessMaxDelayMs); err != nil {
		return Config{}, err
	}
	if cfg.WitnessJitterMs, err = intEnv("TRUSTENGINE_WITNESS_JITTER_MS", cfg.WitnessJitterMs); err != nil {
		return Config{}, err
	}
	if cfg.MinVerifiers, err = intEnv("TRUSTENGINE_MIN_VERIFIERS", cfg.MinVerifiers); err != nil {
		return Config{}, err
	}
	if cfg.ConsensusTieThreshold, err = floatEnv("TRUSTENGINE_CONSENSUS_TIE_THRESHOLD", cfg.ConsensusTieThreshold); err != nil {
		return Config{}, err
	}

	if v := os.Getenv("TRUSTENGINE_POSTGRES_DSN"); v != "" {
		cfg.PostgresDSN = v
	}
	if v := os.Getenv("TRUSTENGINE_REDIS_ADDR"); v != "" {
		cfg.RedisAddr = v
	}

	return cfg, nil
}

func intEnv(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("config: %s must be an integer: %w", key, err)
	}
	return n, nil
}

func floatEnv(key string, fallback float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("config: %s must be a float: %w", key, err)
	}
	return f, nil
}
