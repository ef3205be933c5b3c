// Package weaver defines the class rewriting collaborator the dispatch
// engine drives and ships a reference implementation of it.
//
// The engine guarantees that Configure and SetClassLoadingContext are called
// once per invocation, before any weave call, and that every weave call
// targets a destination no other concurrent call writes to.
package weaver

import (
	"context"

	"github.com/vk/classweave/internal/config"
)

// Weaver rewrites class files and archives of class files.
type Weaver interface {
	Configure(cfg *config.Config)
	SetClassLoadingContext(cp *ClassPath)
	WeaveSingleClass(ctx context.Context, src, dst, srcBase string) error
	WeaveArchive(ctx context.Context, src, dst string) error
}
