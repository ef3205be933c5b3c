package hcl

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/function"
	"github.com/zclconf/go-cty/cty/function/stdlib"

	"github.com/vk/classweave/internal/config"
	"github.com/vk/classweave/internal/ctxlog"
	"github.com/vk/classweave/internal/fsutil"
)

// ErrPipelineNotFound is returned when no transform block matches the name.
var ErrPipelineNotFound = errors.New("transform block not found")

// Loader is the HCL implementation of config.Loader.
type Loader struct {
	// environ supplies the `env` variable. Defaults to os.Environ.
	environ func() []string
}

var _ config.Loader = (*Loader)(nil)

// NewLoader creates a new HCL configuration loader.
func NewLoader() *Loader {
	return &Loader{environ: os.Environ}
}

// LoadConfig resolves the `transform "<name>"` block from path, which may be a
// file or a directory of .hcl files. Expressions see the build variant as
// `variant` and the process environment as `env`. An empty path yields the
// defaults for name.
func (l *Loader) LoadConfig(ctx context.Context, path, name, variant string) (*config.Config, error) {
	logger := ctxlog.FromContext(ctx)
	cfg := config.Default()
	if name != "" {
		cfg.Name = name
	}
	if path == "" {
		logger.Debug("No configuration path given, using defaults.", "name", cfg.Name)
		return cfg, cfg.Validate()
	}

	files, err := findHCLFiles(path)
	if err != nil {
		return nil, err
	}
	logger.Debug("Discovered HCL files.", "count", len(files))

	evalCtx := l.evalContext(variant)
	parser := hclparse.NewParser()
	var found *transformBlock
	var foundIn string

	for _, file := range files {
		hclFile, diags := parser.ParseHCLFile(file)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to parse HCL file %s: %w", file, diags)
		}
		var root configRoot
		if diags := gohcl.DecodeBody(hclFile.Body, evalCtx, &root); diags.HasErrors() {
			return nil, fmt.Errorf("failed to decode HCL file %s: %w", file, diags)
		}
		for _, block := range root.Transforms {
			if block.Name != cfg.Name {
				continue
			}
			if found != nil {
				return nil, fmt.Errorf("transform %q is defined in both %s and %s", cfg.Name, foundIn, file)
			}
			found, foundIn = block, file
		}
	}
	if found == nil {
		return nil, fmt.Errorf("%w: %q in %s", ErrPipelineNotFound, cfg.Name, path)
	}

	apply(cfg, found)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logger.Debug("HCL configuration loaded.", "file", foundIn, "config", cfg.String())
	return cfg, nil
}

// apply overlays the attributes set in b onto cfg.
func apply(cfg *config.Config, b *transformBlock) {
	setBool := func(dst *bool, src *bool) {
		if src != nil {
			*dst = *src
		}
	}
	setBool(&cfg.Log, b.Log)
	setBool(&cfg.SkipArchives, b.SkipArchives)
	setBool(&cfg.DebugSkip, b.DebugSkip)
	setBool(&cfg.ReleaseSkip, b.ReleaseSkip)
	setBool(&cfg.UseExecutor, b.UseExecutor)
	setBool(&cfg.FailFast, b.FailFast)
	setBool(&cfg.Strict, b.Strict)
	setBool(&cfg.DuplicatedClassSafeMode, b.DuplicatedClassSafeMode)
	if b.Workers != nil {
		cfg.Workers = *b.Workers
	}
	if b.CleanupSibling != nil {
		cfg.CleanupSiblingName = *b.CleanupSibling
	}
	if len(b.SkipVariants) > 0 {
		cfg.SkipVariants = b.SkipVariants
	}
}

func (l *Loader) evalContext(variant string) *hcl.EvalContext {
	env := make(map[string]cty.Value)
	environ := l.environ
	if environ == nil {
		environ = os.Environ
	}
	for _, kv := range environ() {
		k, v, ok := strings.Cut(kv, "=")
		if ok && k != "" {
			env[k] = cty.StringVal(v)
		}
	}
	envVal := cty.MapValEmpty(cty.String)
	if len(env) > 0 {
		envVal = cty.MapVal(env)
	}
	return &hcl.EvalContext{
		Variables: map[string]cty.Value{
			"variant": cty.StringVal(variant),
			"env":     envVal,
		},
		Functions: map[string]function.Function{
			"lower":    stdlib.LowerFunc,
			"upper":    stdlib.UpperFunc,
			"coalesce": stdlib.CoalesceFunc,
		},
	}
}

// findHCLFiles returns path itself when it is a file, or every .hcl file
// below it when it is a directory.
func findHCLFiles(path string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("error accessing path %s: %w", path, err)
	}
	if !info.IsDir() {
		return []string{path}, nil
	}
	files, err := fsutil.FindFilesByExtension(path, ".hcl")
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no .hcl files found in %s", path)
	}
	return files, nil
}
