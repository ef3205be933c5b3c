package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSkipFor(t *testing.T) {
	t.Parallel()
	cfg := Default()
	cfg.DebugSkip = true
	cfg.SkipVariants = map[string]bool{"staging": true, "debug": false}

	assert.True(t, cfg.SkipFor("debug"), "debug uses debug_skip, not the map")
	assert.False(t, cfg.SkipFor("release"))
	assert.True(t, cfg.SkipFor("staging"))
	assert.False(t, cfg.SkipFor("qa"), "unknown variants are not skipped")
	assert.False(t, cfg.SkipFor(""))
}

func TestValidate(t *testing.T) {
	t.Parallel()
	require.NoError(t, Default().Validate())

	var missing *Config
	require.Error(t, missing.Validate())

	bad := Default()
	bad.Name = ""
	bad.Workers = -1
	err := bad.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "name must not be empty")
	assert.Contains(t, err.Error(), "workers must not be negative")

	safe := Default()
	safe.DuplicatedClassSafeMode = true
	safe.CleanupSiblingName = safe.Name
	require.Error(t, safe.Validate())
}
