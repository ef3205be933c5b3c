package reconcile

import (
	"context"
	"fmt"

	"github.com/vk/classweave/internal/artifact"
	"github.com/vk/classweave/internal/fsutil"
)

// Archive reconciles one archive into dest and returns the disposition taken.
//
// An excluded archive is copied byte for byte and never reaches the weaver.
// Otherwise the archive is transformed in full whenever it is touched at
// all, through the executor, so several archives can weave in parallel.
func (r *Reconciler) Archive(ctx context.Context, a artifact.ArchiveArtifact, dest string, incremental, excluded bool) (artifact.Disposition, error) {
	if excluded {
		r.trace(ctx, "Copying archive without transform.", "src", a.Path, "dest", dest)
		r.record(ctx, a.Path, artifact.Copied)
		if err := fsutil.CopyFile(a.Path, dest); err != nil {
			return artifact.Copied, fmt.Errorf("copy archive %s: %w", a.Path, err)
		}
		return artifact.Copied, nil
	}

	switch artifact.Decide(a.Status, incremental) {
	case artifact.Noop:
		r.record(ctx, a.Path, artifact.Skipped)
		return artifact.Skipped, nil
	case artifact.Delete:
		r.record(ctx, a.Path, artifact.Deleted)
		removed, err := fsutil.DeleteIfExists(dest)
		if err != nil {
			return artifact.Deleted, fmt.Errorf("delete archive output %s: %w", dest, err)
		}
		r.trace(ctx, "Removed archive output.", "dest", dest, "existed", removed)
		return artifact.Deleted, nil
	default:
		r.record(ctx, a.Path, artifact.Transformed)
		unit := artifact.WorkUnit{Kind: artifact.ArchiveUnit, Source: a.Path, Destination: dest}
		r.trace(ctx, "Submitting archive.", "src", a.Path, "dest", dest)
		r.exec.Submit(ctx, "archive:"+a.Path, func(ctx context.Context) error {
			return r.apply(ctx, unit)
		})
		return artifact.Transformed, nil
	}
}
