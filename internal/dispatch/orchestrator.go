package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/vk/classweave/internal/artifact"
	"github.com/vk/classweave/internal/config"
	"github.com/vk/classweave/internal/ctxlog"
	"github.com/vk/classweave/internal/metrics"
	"github.com/vk/classweave/internal/reconcile"
	"github.com/vk/classweave/internal/taskexec"
	"github.com/vk/classweave/internal/weaver"
)

// ErrInvalidInvocation is returned for an invocation the host built wrongly.
var ErrInvalidInvocation = errors.New("invalid invocation")

// Summary describes a finished invocation.
type Summary struct {
	RunID       string
	Incremental bool
	Variant     string
	// Skipped is set when the variant skipped every transform.
	Skipped      bool
	Dispositions map[artifact.Disposition]int
	Units        taskexec.Report
	// Executor holds the executor's counters once the barrier has passed.
	Executor taskexec.Stats
	// States lists every state the run passed through, in order.
	States []State
	// Errors are the tolerated failures: reconcile, cleanup and unit errors.
	Errors  []error
	Elapsed time.Duration
}

// Final returns the last state reached.
func (s *Summary) Final() State {
	if len(s.States) == 0 {
		return Init
	}
	return s.States[len(s.States)-1]
}

// Orchestrator dispatches invocations for one configured pipeline.
type Orchestrator struct {
	cfg     *config.Config
	weaver  weaver.Weaver
	metrics *metrics.Dispatch
	now     func() time.Time
}

// New validates cfg and returns an orchestrator. m may be nil.
func New(cfg *config.Config, w weaver.Weaver, m *metrics.Dispatch) (*Orchestrator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if w == nil {
		return nil, errors.New("weaver is required")
	}
	return &Orchestrator{cfg: cfg, weaver: w, metrics: m, now: time.Now}, nil
}

// run is the per-invocation state.
type run struct {
	summary *Summary
	logger  *slog.Logger
	exec    *taskexec.Executor
	rec     *reconcile.Reconciler
	cleaned bool
}

func (r *run) enter(s State) {
	r.summary.States = append(r.summary.States, s)
	r.logger.Debug("Entering state.", "state", s)
}

func (r *run) tolerate(err error) {
	if err != nil {
		r.summary.Errors = append(r.summary.Errors, err)
	}
}

// Transform runs inv to completion. It returns an error only for an invalid
// invocation, a failure to clear previous outputs, or unit failures in strict
// mode. Everything else is logged and listed in the Summary.
func (o *Orchestrator) Transform(ctx context.Context, inv *artifact.Invocation) (*Summary, error) {
	start := o.now()
	summary := &Summary{RunID: uuid.NewString()}
	ctx, logger := ctxlog.With(ctx, "run_id", summary.RunID, "pipeline", o.cfg.Name)
	r := &run{summary: summary, logger: logger}

	r.enter(Init)
	if inv == nil || inv.Outputs == nil {
		r.enter(Failed)
		return summary, fmt.Errorf("%w: missing invocation or output provider", ErrInvalidInvocation)
	}
	summary.Incremental = inv.Incremental
	summary.Variant = inv.VariantName
	logger.Info("Transform started.", "variant", inv.VariantName, "incremental", inv.Incremental, "config", o.cfg.String())

	r.enter(Configuring)
	o.weaver.Configure(o.cfg)
	cp := weaver.NewClassPath(inv)
	o.weaver.SetClassLoadingContext(cp)
	logger.Debug("Class-loading context set.", "entries", cp.Len())

	r.exec = taskexec.New(taskexec.Options{Workers: o.cfg.Workers, Inline: !o.cfg.UseExecutor})
	logger.Debug("Executor ready.", "workers", r.exec.Workers(), "inline", r.exec.Inline())
	r.rec = reconcile.New(r.exec, o.weaver, artifact.NewTally(), o.cfg.Log)

	r.enter(SkipDecision)
	summary.Skipped = o.cfg.SkipFor(inv.VariantName)
	logger.Info("Skip decision resolved.", "variant", inv.VariantName, "skip", summary.Skipped)

	if !inv.Incremental {
		if err := inv.Outputs.DeleteAll(); err != nil {
			r.enter(Failed)
			return summary, fmt.Errorf("clear previous outputs: %w", err)
		}
		logger.Debug("Previous outputs cleared for full build.")
	}

	o.dispatch(ctx, r, inv)

	r.enter(Barrier)
	report, err := r.exec.AwaitAll(ctx, o.cfg.FailFast)
	summary.Units = *report
	if err != nil {
		logger.Error("Some transform units failed.", "failed", len(report.Failures), "submitted", report.Submitted, "error", err)
		r.tolerate(err)
	}
	summary.Executor = r.exec.Stats()
	logger.Debug("Barrier passed.", "submitted", summary.Executor.Submitted, "succeeded", summary.Executor.Succeeded, "failed", summary.Executor.Failed, "early", report.Early)
	o.metrics.ObserveUnits(report.Completed-len(report.Failures), len(report.Failures), report.Submitted-report.Completed)

	summary.Dispositions = r.rec.Tally().Counts()
	if conflicts := r.rec.Tally().Conflicts(); len(conflicts) > 0 {
		logger.Warn("Artifacts received conflicting dispositions.", "conflicts", conflicts)
	}
	summary.Elapsed = o.now().Sub(start)
	o.metrics.ObserveInvocation(inv.Incremental, summary.Elapsed)

	if o.cfg.Strict && err != nil {
		r.enter(Failed)
		return summary, fmt.Errorf("transform %s: %w", o.cfg.Name, err)
	}
	r.enter(Done)
	logger.Info("Transform finished.", "cost_ms", summary.Elapsed.Milliseconds(), "dispositions", summary.Dispositions, "errors", len(summary.Errors))
	return summary, nil
}

// dispatch hands every artifact of every input to the reconcilers.
func (o *Orchestrator) dispatch(ctx context.Context, r *run, inv *artifact.Invocation) {
	r.enter(Dispatching)
	skip := r.summary.Skipped
	archives := artifact.NewTally()
	files := 0

	for _, input := range inv.Inputs {
		for _, a := range input.Archives {
			dest, err := inv.Outputs.ContentLocation(a.Path, a.ContentTypes, a.Scopes, artifact.FormatArchive)
			if err != nil {
				r.logger.Error("Could not resolve archive output.", "archive", a.Path, "error", err)
				r.tolerate(err)
				continue
			}
			o.trace(ctx, "Archive input.", "archive", a.Path, "dest", dest, "status", a.Status)

			excluded := skip || o.cfg.SkipArchives
			if !excluded && !inv.Incremental && o.cfg.DuplicatedClassSafeMode && !r.cleaned {
				r.enter(Cleanup)
				r.tolerate(o.purgeSibling(ctx, dest))
				r.cleaned = true
				r.enter(Dispatching)
			}

			d, err := r.rec.Archive(ctx, a, dest, inv.Incremental, excluded)
			archives.Record(a.Path, d)
			if err != nil {
				r.logger.Error("Archive reconcile failed.", "archive", a.Path, "error", err)
				r.tolerate(err)
			}
		}

		for _, dir := range input.Directories {
			dest, err := inv.Outputs.ContentLocation(dir.Identity(), dir.ContentTypes, dir.Scopes, artifact.FormatDirectory)
			if err != nil {
				r.logger.Error("Could not resolve directory output.", "dir", dir.Path, "error", err)
				r.tolerate(err)
				continue
			}
			o.trace(ctx, "Directory input.", "dir", dir.Path, "dest", dest)

			before := r.rec.Tally().Len()
			if skip {
				err = r.rec.CopyDirectory(ctx, dir, dest)
			} else {
				err = r.rec.Directory(ctx, dir, dest, inv.Incremental)
			}
			files += r.rec.Tally().Len() - before
			if err != nil {
				r.logger.Error("Directory reconcile failed.", "dir", dir.Path, "error", err)
				r.tolerate(err)
			}
		}
	}

	archiveCounts := archives.Counts()
	o.metrics.ObserveDispositions("archive", archiveCounts)
	fileCounts := r.rec.Tally().Counts()
	for d, n := range archiveCounts {
		fileCounts[d] -= n
	}
	o.metrics.ObserveDispositions("file", fileCounts)
	r.logger.Debug("Dispatch complete.", "archives", archives.Len(), "files", files)
}

func (o *Orchestrator) trace(ctx context.Context, msg string, args ...any) {
	level := slog.LevelDebug
	if o.cfg.Log {
		level = slog.LevelInfo
	}
	ctxlog.FromContext(ctx).Log(ctx, level, msg, args...)
}
