package hcl

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/classweave/internal/config"
	"github.com/vk/classweave/internal/testutil"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func newTestLoader(env ...string) *Loader {
	return &Loader{environ: func() []string { return env }}
}

func TestLoadConfig_EmptyPathYieldsDefaults(t *testing.T) {
	t.Parallel()
	ctx, _ := testutil.Context(t)

	cfg, err := newTestLoader().LoadConfig(ctx, "", "", "debug")
	require.NoError(t, err)
	assert.Equal(t, config.Default(), cfg)
}

func TestLoadConfig_OverlaysSetAttributes(t *testing.T) {
	t.Parallel()
	ctx, _ := testutil.Context(t)
	path := writeFile(t, t.TempDir(), "classweave.hcl", `
transform "ClassTransform" {
  log                        = true
  skip_archives              = false
  release_skip               = true
  skip_variants              = { benchmark = true }
  workers                    = 3
  fail_fast                  = true
  duplicated_class_safe_mode = true
}

transform "Other" {
  debug_skip = true
}
`)

	cfg, err := newTestLoader().LoadConfig(ctx, path, "ClassTransform", "debug")
	require.NoError(t, err)

	want := config.Default()
	want.Log = true
	want.ReleaseSkip = true
	want.SkipVariants = map[string]bool{"benchmark": true}
	want.Workers = 3
	want.FailFast = true
	want.DuplicatedClassSafeMode = true
	assert.Equal(t, want, cfg)
}

func TestLoadConfig_EvaluatesVariantAndEnv(t *testing.T) {
	t.Parallel()
	ctx, _ := testutil.Context(t)
	path := writeFile(t, t.TempDir(), "classweave.hcl", `
transform "ClassTransform" {
  use_executor    = variant != "release"
  log             = env.CLASSWEAVE_VERBOSE == "1"
  cleanup_sibling = lower(coalesce(env.SIBLING, "unused"))
}
`)
	loader := newTestLoader("CLASSWEAVE_VERBOSE=1", "SIBLING=DexBuilder")

	debug, err := loader.LoadConfig(ctx, path, "", "debug")
	require.NoError(t, err)
	assert.True(t, debug.UseExecutor)
	assert.True(t, debug.Log)
	assert.Equal(t, "dexbuilder", debug.CleanupSiblingName)

	release, err := loader.LoadConfig(ctx, path, "", "release")
	require.NoError(t, err)
	assert.False(t, release.UseExecutor)
}

func TestLoadConfig_Directory(t *testing.T) {
	t.Parallel()
	ctx, _ := testutil.Context(t)
	dir := t.TempDir()
	writeFile(t, dir, "a.hcl", `transform "Other" {}`)
	writeFile(t, dir, "nested/b.hcl", `transform "ClassTransform" { strict = true }`)
	writeFile(t, dir, "notes.txt", `transform "ClassTransform" { broken`)

	cfg, err := newTestLoader().LoadConfig(ctx, dir, "ClassTransform", "debug")
	require.NoError(t, err)
	assert.True(t, cfg.Strict)
}

func TestLoadConfig_Errors(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	testCases := []struct {
		name    string
		content string
		path    string
		wantIs  error
	}{
		{name: "missing block", content: `transform "Other" {}`, wantIs: ErrPipelineNotFound},
		{name: "syntax error", content: `transform "ClassTransform" {`},
		{name: "wrong type", content: `transform "ClassTransform" { workers = "many" }`},
		{name: "unknown attribute", content: `transform "ClassTransform" { colour = "red" }`},
		{name: "invalid value", content: `transform "ClassTransform" { workers = -1 }`},
		{name: "missing path", path: filepath.Join(dir, "absent.hcl")},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			ctx, _ := testutil.Context(t)
			path := tc.path
			if path == "" {
				path = writeFile(t, t.TempDir(), "c.hcl", tc.content)
			}
			_, err := newTestLoader().LoadConfig(ctx, path, "ClassTransform", "debug")
			require.Error(t, err)
			if tc.wantIs != nil {
				assert.ErrorIs(t, err, tc.wantIs)
			}
		})
	}
}

func TestLoadConfig_DuplicateBlockAcrossFiles(t *testing.T) {
	t.Parallel()
	ctx, _ := testutil.Context(t)
	dir := t.TempDir()
	writeFile(t, dir, "a.hcl", `transform "ClassTransform" {}`)
	writeFile(t, dir, "b.hcl", `transform "ClassTransform" {}`)

	_, err := newTestLoader().LoadConfig(ctx, dir, "ClassTransform", "debug")
	require.ErrorContains(t, err, "defined in both")
}
