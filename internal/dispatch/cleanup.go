package dispatch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/vk/classweave/internal/ctxlog"
	"github.com/vk/classweave/internal/reconcile"
)

// errOverlapsOutputs refuses a purge that would reach this run's own outputs.
var errOverlapsOutputs = errors.New("sibling location overlaps the transform output")

// purgeSibling removes the sibling downstream stage's output directory so a
// full build never leaves duplicated classes behind. The sibling location is
// the directory holding dest with the last occurrence of the pipeline name
// swapped for the sibling name. Only the directory is rewritten, never the
// archive's own file name. Failures are reported to the caller to tolerate.
func (o *Orchestrator) purgeSibling(ctx context.Context, dest string) error {
	logger := ctxlog.FromContext(ctx)
	fail := func(err error) error {
		logger.Warn("Duplicated-class cleanup skipped.", "error", err)
		o.metrics.ObserveCleanup(err)
		return err
	}

	root := filepath.Clean(filepath.Dir(dest))
	sibling, err := reconcile.ReplaceLast(root, o.cfg.Name, o.cfg.CleanupSiblingName)
	if err != nil {
		return fail(fmt.Errorf("derive %s location from %s: %w", o.cfg.CleanupSiblingName, root, err))
	}
	target := filepath.Clean(sibling)
	if within(root, target) {
		return fail(fmt.Errorf("%w: %s contains %s", errOverlapsOutputs, target, root))
	}

	logger.Info("Removing sibling stage output.", "sibling", o.cfg.CleanupSiblingName, "path", target)
	if err := os.RemoveAll(target); err != nil {
		err = fmt.Errorf("remove %s: %w", target, err)
		logger.Warn("Duplicated-class cleanup failed.", "error", err)
		o.metrics.ObserveCleanup(err)
		return err
	}
	o.metrics.ObserveCleanup(nil)
	return nil
}

// within reports whether path is dir or lies below it.
func within(path, dir string) bool {
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}
