package reconcile

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/cenkalti/backoff/v4"

	"github.com/vk/classweave/internal/artifact"
	"github.com/vk/classweave/internal/ctxlog"
	"github.com/vk/classweave/internal/fsutil"
)

// CopyDirectory copies dir verbatim into dest. It is used when the whole run
// is skipped for the build variant.
func (r *Reconciler) CopyDirectory(ctx context.Context, dir artifact.DirectoryArtifact, dest string) error {
	r.trace(ctx, "Copying directory without transform.", "src", dir.Path, "dest", dest)
	r.record(ctx, dir.Path, artifact.Copied)
	if err := fsutil.CopyDir(dir.Path, dest); err != nil {
		return fmt.Errorf("copy directory %s: %w", dir.Path, err)
	}
	return nil
}

// Directory reconciles dir into dest. The destination root is created first,
// even when every file turns out to be a no-op.
func (r *Reconciler) Directory(ctx context.Context, dir artifact.DirectoryArtifact, dest string, incremental bool) error {
	if err := fsutil.EnsureDir(dest); err != nil {
		return fmt.Errorf("create destination %s: %w", dest, err)
	}
	if incremental {
		return r.directoryDelta(ctx, dir, dest)
	}
	return r.walk(ctx, dir.Path, dir.Path, dest, make(map[string]struct{}))
}

// walk submits the regular files of one directory level as a single unit and
// recurses into its subdirectories. Symlinked directories are followed. seen
// holds the resolved directories already walked so link cycles end.
func (r *Reconciler) walk(ctx context.Context, dir, srcRoot, dstRoot string, seen map[string]struct{}) error {
	if real, err := filepath.EvalSymlinks(dir); err == nil {
		if _, ok := seen[real]; ok {
			r.trace(ctx, "Skipping directory already walked.", "dir", dir, "resolved", real)
			return nil
		}
		seen[real] = struct{}{}
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("read directory %s: %w", dir, err)
	}

	var units []artifact.WorkUnit
	var errs []error
	for _, e := range entries {
		path := filepath.Join(dir, e.Name())
		isDir := e.IsDir()
		if e.Type()&fs.ModeSymlink != 0 {
			info, err := os.Stat(path)
			if err != nil {
				errs = append(errs, fmt.Errorf("resolve link %s: %w", path, err))
				continue
			}
			isDir = info.IsDir()
		}
		if isDir {
			if err := r.walk(ctx, path, srcRoot, dstRoot, seen); err != nil {
				errs = append(errs, err)
			}
			continue
		}
		dst, err := MirrorPath(path, srcRoot, dstRoot)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		units = append(units, artifact.WorkUnit{
			Kind:        artifact.FileUnit,
			Source:      path,
			Destination: dst,
			SourceBase:  srcRoot,
		})
		r.record(ctx, path, artifact.Transformed)
	}

	if len(units) > 0 {
		r.trace(ctx, "Submitting directory level.", "dir", dir, "files", len(units))
		r.exec.Submit(ctx, "dir:"+dir, func(ctx context.Context) error {
			return r.applyBatch(ctx, units)
		})
	}
	return errors.Join(errs...)
}

// applyBatch weaves every unit of a batch. A failing file does not stop the
// rest of the batch; all failures are returned together.
func (r *Reconciler) applyBatch(ctx context.Context, units []artifact.WorkUnit) error {
	var errs []error
	for _, u := range units {
		r.trace(ctx, "Transforming file.", "src", u.Source, "dst", u.Destination)
		if err := r.apply(ctx, u); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// directoryDelta follows the host's per-file statuses. Each changed file is
// its own unit.
func (r *Reconciler) directoryDelta(ctx context.Context, dir artifact.DirectoryArtifact, dest string) error {
	var errs []error
	for _, path := range dir.SortedChanges() {
		status := dir.ChangedFiles[path]
		dst, err := MirrorPath(path, dir.Path, dest)
		if err != nil {
			ctxlog.FromContext(ctx).Error("Changed file is outside its directory input.", "file", path, "dir", dir.Path)
			errs = append(errs, err)
			continue
		}

		switch artifact.Decide(status, true) {
		case artifact.Noop:
			r.record(ctx, path, artifact.Skipped)
		case artifact.Delete:
			r.record(ctx, path, artifact.Deleted)
			removed, err := fsutil.DeleteIfExists(dst)
			if err != nil {
				errs = append(errs, fmt.Errorf("delete %s: %w", dst, err))
				continue
			}
			r.trace(ctx, "Removed file output.", "dst", dst, "existed", removed)
		case artifact.ProcessFully:
			r.record(ctx, path, artifact.Transformed)
			if err := r.placeholder(ctx, dst); err != nil {
				// The weaver creates parents itself, so the unit still runs.
				ctxlog.FromContext(ctx).Warn("Could not create placeholder.", "dst", dst, "error", err)
			}
			unit := artifact.WorkUnit{Kind: artifact.FileUnit, Source: path, Destination: dst, SourceBase: dir.Path}
			r.trace(ctx, "Submitting changed file.", "src", path, "status", status)
			r.exec.Submit(ctx, "file:"+path, func(ctx context.Context) error {
				return r.apply(ctx, unit)
			})
		}
	}
	return errors.Join(errs...)
}

// placeholder touches dst so the destination tree exists before the unit
// runs. A failed touch creates the parent directories and is retried once.
func (r *Reconciler) placeholder(ctx context.Context, dst string) error {
	op := func() error {
		err := fsutil.Touch(dst)
		if err == nil {
			return nil
		}
		if mkErr := fsutil.EnsureParent(dst); mkErr != nil {
			return backoff.Permanent(errors.Join(err, mkErr))
		}
		return err
	}
	b := backoff.WithMaxRetries(&backoff.ZeroBackOff{}, 1)
	return backoff.Retry(op, backoff.WithContext(b, ctx))
}
