// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/pdiddy/idea-engine/pkg/types"
)

// setDefaults registers every configuration key so that environment
// variables can override keys absent from the config file.
func setDefaults(v *viper.Viper) {
	v.SetDefault("reasoning.fast.model", "gpt-4o-mini")
	v.SetDefault("reasoning.fast.api_key", "")
	v.SetDefault("reasoning.fast.base_url", "")
	v.SetDefault("reasoning.fast.max_tokens", 0)
	v.SetDefault("reasoning.deep.model", "claude-sonnet-4-5-20250929")
	v.SetDefault("reasoning.deep.api_key", "")
	v.SetDefault("reasoning.deep.base_url", "")
	v.SetDefault("reasoning.deep.max_tokens", 0)
	v.SetDefault("reasoning.research.model", "sonar-pro")
	v.SetDefault("reasoning.research.api_key", "")
	v.SetDefault("reasoning.research.base_url", "")
	v.SetDefault("reasoning.research.max_tokens", 0)
	v.SetDefault("reasoning.timeout", 90*time.Second)
	v.SetDefault("reasoning.requests_per_minute", 30)

	v.SetDefault("store.driver", string(types.DriverSQLite))
	v.SetDefault("store.path", "data/ideas.db")
	v.SetDefault("store.dsn", "")

	v.SetDefault("pipeline.feasibility_threshold", 0)
	v.SetDefault("pipeline.advance_retries", 3)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "")
}

// loadConfig decodes v into a Config and checks the values that cannot be
// defaulted.
func loadConfig(v *viper.Viper) (types.Config, error) {
	var cfg types.Config
	if err := v.Unmarshal(&cfg); err != nil {
		return types.Config{}, fmt.Errorf("decoding configuration: %w", err)
	}

	switch cfg.Store.Driver {
	case types.DriverSQLite:
	case types.DriverPostgres:
		if cfg.Store.DSN == "" {
			return types.Config{}, fmt.Errorf("store.dsn is required for the %s driver", cfg.Store.Driver)
		}
	default:
		return types.Config{}, fmt.Errorf("unknown store.driver %q (want sqlite or postgres)", cfg.Store.Driver)
	}

	if t := cfg.Pipeline.FeasibilityThreshold; t < 0 || t > 100 {
		return types.Config{}, fmt.Errorf("pipeline.feasibility_threshold must be within 0-100, got %v", t)
	}
	return cfg, nil
}
