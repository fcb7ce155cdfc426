package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// FromEnv overlays BATTLELOG_* environment variables onto cfg. Fields whose
// variable is unset keep their current value.
func FromEnv(cfg *Config) error {
	if err := env.Parse(cfg); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}
