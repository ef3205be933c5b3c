package config

import (
	"errors"
	"fmt"
)

const (
	// DefaultName is the pipeline name used when a configuration does not set one.
	DefaultName = "ClassTransform"
	// DefaultCleanupSibling is the intermediate directory purged by safe mode.
	DefaultCleanupSibling = "dexBuilder"
)

// Config holds the resolved flags for one transform pipeline.
type Config struct {
	// Name identifies the pipeline. It also appears in the output paths,
	// which is what the safe-mode cleanup relies on.
	Name string

	// Log promotes per-artifact tracing from debug to info level.
	Log bool
	// SkipArchives copies every archive verbatim.
	SkipArchives bool
	DebugSkip    bool
	ReleaseSkip  bool
	// SkipVariants extends the debug/release switches to other variant names.
	SkipVariants map[string]bool

	// UseExecutor dispatches units through the worker pool; otherwise they run inline.
	UseExecutor bool
	// Workers bounds the pool. Zero means one per CPU.
	Workers int
	// FailFast makes the barrier return on the first unit failure.
	FailFast bool
	// Strict turns unit failures into an invocation error instead of logging them.
	Strict bool

	// DuplicatedClassSafeMode purges the sibling intermediate directory once
	// per full build.
	DuplicatedClassSafeMode bool
	CleanupSiblingName      string
}

// Default returns the configuration used when a field is not set.
func Default() *Config {
	return &Config{
		Name:               DefaultName,
		UseExecutor:        true,
		CleanupSiblingName: DefaultCleanupSibling,
	}
}

// Validate reports configuration errors. They are fatal to an invocation.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("configuration is missing")
	}
	var errs []error
	if c.Name == "" {
		errs = append(errs, errors.New("name must not be empty"))
	}
	if c.Workers < 0 {
		errs = append(errs, fmt.Errorf("workers must not be negative, got %d", c.Workers))
	}
	if c.DuplicatedClassSafeMode && c.CleanupSiblingName == "" {
		errs = append(errs, errors.New("cleanup_sibling must be set when duplicated_class_safe_mode is enabled"))
	}
	if c.DuplicatedClassSafeMode && c.CleanupSiblingName == c.Name {
		errs = append(errs, fmt.Errorf("cleanup_sibling %q must differ from the pipeline name", c.CleanupSiblingName))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration for %q: %w", c.Name, errors.Join(errs...))
	}
	return nil
}

// SkipFor resolves the skip-everything flag for a build variant. Unknown
// variants are not skipped.
func (c *Config) SkipFor(variant string) bool {
	switch variant {
	case "debug":
		return c.DebugSkip
	case "release":
		return c.ReleaseSkip
	}
	return c.SkipVariants[variant]
}

func (c *Config) String() string {
	return fmt.Sprintf("{name:%s log:%t skip_archives:%t debug_skip:%t release_skip:%t use_executor:%t workers:%d fail_fast:%t strict:%t safe_mode:%t}",
		c.Name, c.Log, c.SkipArchives, c.DebugSkip, c.ReleaseSkip, c.UseExecutor, c.Workers, c.FailFast, c.Strict, c.DuplicatedClassSafeMode)
}
