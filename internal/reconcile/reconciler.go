package reconcile

import (
	"context"
	"log/slog"

	"github.com/vk/classweave/internal/artifact"
	"github.com/vk/classweave/internal/ctxlog"
	"github.com/vk/classweave/internal/taskexec"
)

// Weaver is the subset of the weaver the reconcilers drive.
type Weaver interface {
	WeaveSingleClass(ctx context.Context, src, dst, srcBase string) error
	WeaveArchive(ctx context.Context, src, dst string) error
}

// Reconciler dispatches the work for directory and archive artifacts.
type Reconciler struct {
	exec    taskexec.Submitter
	weaver  Weaver
	tally   *artifact.Tally
	verbose bool
}

// New creates a Reconciler. verbose promotes per-file tracing to info level.
func New(exec taskexec.Submitter, w Weaver, tally *artifact.Tally, verbose bool) *Reconciler {
	if tally == nil {
		tally = artifact.NewTally()
	}
	return &Reconciler{exec: exec, weaver: w, tally: tally, verbose: verbose}
}

// Tally returns the dispositions recorded so far.
func (r *Reconciler) Tally() *artifact.Tally { return r.tally }

func (r *Reconciler) trace(ctx context.Context, msg string, args ...any) {
	level := slog.LevelDebug
	if r.verbose {
		level = slog.LevelInfo
	}
	ctxlog.FromContext(ctx).Log(ctx, level, msg, args...)
}

func (r *Reconciler) record(ctx context.Context, path string, d artifact.Disposition) {
	if !r.tally.Record(path, d) {
		ctxlog.FromContext(ctx).Warn("Path received a second disposition.", "path", path, "disposition", d)
	}
}

// apply runs one unit through the weaver.
func (r *Reconciler) apply(ctx context.Context, u artifact.WorkUnit) error {
	if u.Kind == artifact.ArchiveUnit {
		return r.weaver.WeaveArchive(ctx, u.Source, u.Destination)
	}
	return r.weaver.WeaveSingleClass(ctx, u.Source, u.Destination, u.SourceBase)
}
