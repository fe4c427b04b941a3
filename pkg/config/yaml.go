package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// fileOverrides mirrors Config's fields in their YAML form; any field left
// unset in the file keeps the default/env value already in cfg.
type fileOverrides struct {
	EventLogPath          *string  `yaml:"event_log_path"`
	SnapshotDir           *string  `yaml:"snapshot_dir"`
	WitnessMaxAttempts    *int     `yaml:"witness_max_attempts"`
	WitnessBaseDelayMs    *int     `yaml:"witness_base_delay_ms"`
	WitnessMaxDelayMs     *int     `yaml:"witness_max_delay_ms"`
	WitnessJitterMs       *int     `yaml:"witness_jitter_ms"`
	MinVerifiers          *int     `yaml:"min_verifiers"`
	ConsensusTieThreshold *float64 `yaml:"consensus_tie_threshold"`
	PostgresDSN           *string  `yaml:"postgres_dsn"`
	RedisAddr             *string  `yaml:"redis_addr"`
}

// LoadFile reads an optional YAML config file as the base layer, then
// applies Load's environment-variable overrides on top (env always wins),
// for operators who prefer a declarative file over a long export list.
func LoadFile(path string) (Config, error) {
	cfg := defaults()

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return Config{}, fmt.Errorf("config: read %s: %w", path, err)
			}
		} else {
			var overrides fileOverrides
			if err := yaml.Unmarshal(raw, &overrides); err != nil {
				return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
			}
			applyOverrides(&cfg, overrides)
		}
	}

	envCfg, err := Load()
	if err != nil {
		return Config{}, err
	}
	mergeEnv(&cfg, envCfg)

	return cfg, nil
}

func applyOverrides(cfg *Config, o fileOverrides) {
	if o.EventLogPath != nil {
		cfg.EventLogPath = *o.EventLogPath
	}
	if o.SnapshotDir != nil {
		cfg.SnapshotDir = *o.SnapshotDir
	}
	if o.WitnessMaxAttempts != nil {
		cfg.WitnessMaxAttempts = *o.WitnessMaxAttempts
	}
	if o.WitnessBaseDelayMs != nil {
		cfg.WitnessBaseDelayMs = *o.WitnessBaseDelayMs
	}
	if o.WitnessMaxDelayMs != nil {
		cfg.WitnessMaxDelayMs = *o.WitnessMaxDelayMs
	}
	if o.WitnessJitterMs != nil {
		cfg.WitnessJitterMs = *o.WitnessJitterMs
	}
	if o.MinVerifiers != nil {
		cfg.MinVerifiers = *o.MinVerifiers
	}
	if o.ConsensusTieThreshold != nil {
		cfg.ConsensusTieThreshold = *o.ConsensusTieThreshold
	}
	if o.PostgresDSN != nil {
		cfg.PostgresDSN = *o.PostgresDSN
	}
	if o.RedisAddr != nil {
		cfg.RedisAddr = *o.RedisAddr
	}
}

// mergeEnv overlays any field in envCfg that differs from the package
// defaults (i.e. was actually set via an environment variable) onto cfg.
func mergeEnv(cfg *Config, envCfg Config) {
	d := defaults()
	if envCfg.EventLogPath != d.EventLogPath {
		cfg.EventLogPath = envCfg.EventLogPath
	}
	if envCfg.SnapshotDir != d.SnapshotDir {
		cfg.SnapshotDir = envCfg.SnapshotDir
	}
	if envCfg.WitnessMaxAttempts != d.WitnessMaxAttempts {
		cfg.WitnessMaxAttempts = envCfg.WitnessMaxAttempts
	}
	if envCfg.WitnessBaseDelayMs != d.WitnessBaseDelayMs {
		cfg.WitnessBaseDelayMs = envCfg.WitnessBaseDelayMs
	}
	if envCfg.WitnessMaxDelayMs != d.WitnessMaxDelayMs {
		cfg.WitnessMaxDelayMs = envCfg.WitnessMaxDelayMs
	}
	if envCfg.WitnessJitterMs != d.WitnessJitterMs {
		cfg.WitnessJitterMs = envCfg.WitnessJitterMs
	}
	if envCfg.MinVerifiers != d.MinVerifiers {
		cfg.MinVerifiers = envCfg.MinVerifiers
	}
	if envCfg.ConsensusTieThreshold != d.ConsensusTieThreshold {
		cfg.ConsensusTieThreshold = envCfg.ConsensusTieThreshold
	}
	if envCfg.PostgresDSN != d.PostgresDSN {
		cfg.PostgresDSN = envCfg.PostgresDSN
	}
	if envCfg.RedisAddr != d.RedisAddr {
		cfg.RedisAddr = envCfg.RedisAddr
	}
}
