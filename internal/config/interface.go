package config

import "context"

// Loader resolves the configuration of a named pipeline for one build variant.
type Loader interface {
	LoadConfig(ctx context.Context, path, name, variant string) (*Config, error)
}
