package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the top-level configuration loaded from file/env.
type Config struct {
	// ParseBatchSize bounds the number of lines handed to one parser call.
	ParseBatchSize int `json:"parseBatchSize" yaml:"parseBatchSize" env:"BATTLELOG_PARSE_BATCH_SIZE"`
	// ParseWorkers bounds concurrent parser calls within one submission.
	ParseWorkers int `json:"parseWorkers" yaml:"parseWorkers" env:"BATTLELOG_PARSE_WORKERS"`
	// Reporters lists the enabled report kinds. Empty enables all of them.
	Reporters []string `json:"reporters,omitempty" yaml:"reporters,omitempty" env:"BATTLELOG_REPORTERS" envSeparator:","`
	// AuditDir is where per-battle mirror files are written. Empty means
	// <data-dir>/audit.
	AuditDir string `json:"auditDir,omitempty" yaml:"auditDir,omitempty" env:"BATTLELOG_AUDIT_DIR"`
	// EventsQueryLimit caps events returned by one query. Zero is unlimited.
	EventsQueryLimit int `json:"eventsQueryLimit" yaml:"eventsQueryLimit" env:"BATTLELOG_EVENTS_QUERY_LIMIT"`
}

// Default returns built-in defaults.
func Default() Config {
	return Config{
		ParseBatchSize: 1000,
		ParseWorkers:   4,
	}
}

// Validate rejects values no component can run with.
func (c Config) Validate() error {
	var errs []error
	if c.ParseBatchSize <= 0 {
		errs = append(errs, fmt.Errorf("parseBatchSize must be positive, got %d", c.ParseBatchSize))
	}
	if c.ParseWorkers <= 0 {
		errs = append(errs, fmt.Errorf("parseWorkers must be positive, got %d", c.ParseWorkers))
	}
	if c.EventsQueryLimit < 0 {
		errs = append(errs, fmt.Errorf("eventsQueryLimit must not be negative, got %d", c.EventsQueryLimit))
	}
	return errors.Join(errs...)
}

// ResolveAuditDir returns AuditDir, defaulting to dataDir/audit.
func (c Config) ResolveAuditDir(dataDir string) string {
	if c.AuditDir != "" {
		return c.AuditDir
	}
	return filepath.Join(dataDir, "audit")
}

// Load reads configuration from a JSON or YAML file (by extension). If path is empty, returns defaults.
func Load(path string) (Config, error) {
	if path == "" {
		return Default(), nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	cfg := Default()
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse %s: %w", path, err)
		}
	default:
		if err := json.Unmarshal(b, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse %s: %w", path, err)
		}
	}
	return cfg, nil
}
