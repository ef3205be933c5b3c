package hcl

import "github.com/hashicorp/hcl/v2"

// configRoot decodes the top level of a configuration file.
type configRoot struct {
	Transforms []*transformBlock `hcl:"transform,block"`
	Remain     hcl.Body          `hcl:",remain"`
}

// transformBlock is a `transform "<name>"` block. Every attribute is optional;
// unset attributes keep their defaults.
type transformBlock struct {
	Name                    string          `hcl:"name,label"`
	Log                     *bool           `hcl:"log,optional"`
	SkipArchives            *bool           `hcl:"skip_archives,optional"`
	DebugSkip               *bool           `hcl:"debug_skip,optional"`
	ReleaseSkip             *bool           `hcl:"release_skip,optional"`
	SkipVariants            map[string]bool `hcl:"skip_variants,optional"`
	UseExecutor             *bool           `hcl:"use_executor,optional"`
	Workers                 *int            `hcl:"workers,optional"`
	FailFast                *bool           `hcl:"fail_fast,optional"`
	Strict                  *bool           `hcl:"strict,optional"`
	DuplicatedClassSafeMode *bool           `hcl:"duplicated_class_safe_mode,optional"`
	CleanupSibling          *string         `hcl:"cleanup_sibling,optional"`
}

// manifestRoot decodes an invocation manifest file.
type manifestRoot struct {
	Invocation *invocationBlock `hcl:"invocation,block"`
	Remain     hcl.Body         `hcl:",remain"`
}

type invocationBlock struct {
	Incremental bool          `hcl:"incremental,optional"`
	Variant     string        `hcl:"variant,optional"`
	Inputs      []*inputBlock `hcl:"input,block"`
	Referenced  []*inputBlock `hcl:"referenced,block"`
}

type inputBlock struct {
	Archives    []*archiveBlock   `hcl:"archive,block"`
	Directories []*directoryBlock `hcl:"directory,block"`
}

type archiveBlock struct {
	Path         string   `hcl:"path"`
	Status       string   `hcl:"status,optional"`
	ContentTypes []string `hcl:"content_types,optional"`
	Scopes       []string `hcl:"scopes,optional"`
}

type directoryBlock struct {
	Name         string            `hcl:"name,optional"`
	Path         string            `hcl:"path"`
	ContentTypes []string          `hcl:"content_types,optional"`
	Scopes       []string          `hcl:"scopes,optional"`
	ChangedFiles map[string]string `hcl:"changed_files,optional"`
}
