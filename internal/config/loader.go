package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New)
//  2. file (YAML) if CLICKERD_CONFIG is set
//  3. env (prefix CLICKERD_)
func Load(ctx context.Context) (*Config, error) {
	base := New()

	k := koanf.New(".")

	if path := os.Getenv("CLICKERD_CONFIG"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrLoadFile, err)
		}
	}

	// Environment variables: CLICKERD_ADDR, CLICKERD_PROJECTS_DIR, ...
	// Keys map to the koanf tags with underscores preserved.
	envProvider := env.Provider("CLICKERD_", ".", func(s string) string {
		s = strings.ToLower(s)
		return strings.TrimPrefix(s, "clickerd_")
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadEnv, err)
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnmarshal, err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Addr == "" {
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	}
	if c.ProjectsDir == "" {
		return fmt.Errorf("%w: projects_dir must not be empty", ErrInvalidConfig)
	}
	if c.HeartbeatIntervalMS <= 0 {
		return fmt.Errorf("%w: heartbeat_interval_ms must be positive", ErrInvalidConfig)
	}
	if c.ReconnectBackoffMS <= 0 {
		return fmt.Errorf("%w: reconnect_backoff_ms must be positive", ErrInvalidConfig)
	}
	if c.BurstThresholdMS <= 0 {
		return fmt.Errorf("%w: burst_threshold_ms must be positive", ErrInvalidConfig)
	}
	if c.AppendQueueSize <= 0 {
		return fmt.Errorf("%w: append_queue_size must be positive", ErrInvalidConfig)
	}
	return nil
}
