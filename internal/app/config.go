package app

import (
	"errors"
	"fmt"
)

// Config holds everything an App needs to run one invocation.
type Config struct {
	ConfigPath   string // hcl file or directory; empty uses the defaults
	ManifestPath string // invocation manifest
	OutputDir    string
	PipelineName string

	LogFormat   string
	LogLevel    string
	MetricsPort int
}

// NewConfig validates cfg and returns a copy.
func NewConfig(cfg Config) (*Config, error) {
	var errs []error
	if cfg.ManifestPath == "" {
		errs = append(errs, errors.New("ManifestPath is a required configuration field and cannot be empty"))
	}
	if cfg.OutputDir == "" {
		errs = append(errs, errors.New("OutputDir is a required configuration field and cannot be empty"))
	}
	if cfg.LogFormat != "" && cfg.LogFormat != "text" && cfg.LogFormat != "json" {
		errs = append(errs, fmt.Errorf("invalid log format %q: must be 'text' or 'json'", cfg.LogFormat))
	}
	if _, ok := parseLevel(cfg.LogLevel); cfg.LogLevel != "" && !ok {
		errs = append(errs, fmt.Errorf("invalid log level %q: must be 'debug', 'info', 'warn', or 'error'", cfg.LogLevel))
	}
	if cfg.MetricsPort < 0 || cfg.MetricsPort > 65535 {
		errs = append(errs, fmt.Errorf("invalid metrics port %d", cfg.MetricsPort))
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return &cfg, nil
}
