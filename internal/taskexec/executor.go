package taskexec

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/semaphore"

	"github.com/vk/classweave/internal/ctxlog"
)

// Func is the body of one unit of work.
type Func func(ctx context.Context) error

// Submitter is the part of the executor the reconcilers depend on.
type Submitter interface {
	Submit(ctx context.Context, name string, fn Func)
}

// UnitError is the recorded failure of one submitted unit.
type UnitError struct {
	Name string
	Err  error
}

func (e *UnitError) Error() string {
	return fmt.Sprintf("unit %s: %v", e.Name, e.Err)
}

func (e *UnitError) Unwrap() error { return e.Err }

// Options configures an Executor.
type Options struct {
	// Workers bounds parallelism. Zero or less means runtime.NumCPU().
	Workers int
	// Inline runs each unit synchronously inside Submit.
	Inline bool
}

// Stats are lifetime counters across all batches.
type Stats struct {
	Submitted int64
	Succeeded int64
	Failed    int64
}

// Report describes one AwaitAll barrier.
type Report struct {
	Submitted int
	Completed int
	Failures  []*UnitError
	// Early is set when a fail-fast barrier returned before every unit finished.
	Early bool
}

// Executor is a bounded worker pool with a wait-for-all barrier.
type Executor struct {
	inline  bool
	workers int
	sem     *semaphore.Weighted

	mu  sync.Mutex
	cur *batch

	submitted atomic.Int64
	succeeded atomic.Int64
	failed    atomic.Int64
}

// New creates an executor.
func New(opts Options) *Executor {
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &Executor{
		inline:  opts.Inline,
		workers: workers,
		sem:     semaphore.NewWeighted(int64(workers)),
		cur:     newBatch(),
	}
}

// Inline reports whether units run on the caller's goroutine.
func (e *Executor) Inline() bool { return e.inline }

// Workers reports the parallelism bound.
func (e *Executor) Workers() int { return e.workers }

// Stats returns a snapshot of the lifetime counters.
func (e *Executor) Stats() Stats {
	return Stats{
		Submitted: e.submitted.Load(),
		Succeeded: e.succeeded.Load(),
		Failed:    e.failed.Load(),
	}
}

// Submit enqueues fn and returns immediately. In inline mode fn has already
// run when Submit returns. Failures, including panics, are recorded for the
// next AwaitAll.
func (e *Executor) Submit(ctx context.Context, name string, fn Func) {
	e.mu.Lock()
	b := e.cur
	b.add()
	e.mu.Unlock()
	e.submitted.Add(1)

	if e.inline {
		e.finish(ctx, b, name, e.run(ctx, name, fn))
		return
	}

	go func() {
		// Acquire ignores cancellation so a stalled barrier stays stalled
		// rather than failing units that never started.
		if err := e.sem.Acquire(context.WithoutCancel(ctx), 1); err != nil {
			e.finish(ctx, b, name, err)
			return
		}
		defer e.sem.Release(1)
		e.finish(ctx, b, name, e.run(ctx, name, fn))
	}()
}

// run executes fn, converting a panic into an error.
func (e *Executor) run(ctx context.Context, name string, fn Func) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	ctxlog.FromContext(ctx).Debug("Unit started.", "unit", name)
	return fn(ctx)
}

func (e *Executor) finish(ctx context.Context, b *batch, name string, err error) {
	if err != nil {
		e.failed.Add(1)
		ctxlog.FromContext(ctx).Debug("Unit failed.", "unit", name, "error", err)
		b.fail(&UnitError{Name: name, Err: err})
		return
	}
	e.succeeded.Add(1)
	b.succeed()
}

// AwaitAll blocks until every unit submitted since the previous AwaitAll has
// finished. With failFast it returns as soon as one unit fails; the others
// keep running and their results are dropped. The returned error is the
// first failure in fail-fast mode and the joined failures otherwise.
//
// If ctx is cancelled the barrier returns early with ctx.Err().
func (e *Executor) AwaitAll(ctx context.Context, failFast bool) (*Report, error) {
	e.mu.Lock()
	b := e.cur
	e.cur = newBatch()
	e.mu.Unlock()

	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()

	var failed <-chan struct{}
	if failFast {
		failed = b.firstFailure
	}

	select {
	case <-done:
		report := b.report(false)
		return report, joinFailures(report.Failures)
	case <-failed:
		report := b.report(true)
		return report, report.Failures[0]
	case <-ctx.Done():
		return b.report(true), ctx.Err()
	}
}

func joinFailures(failures []*UnitError) error {
	if len(failures) == 0 {
		return nil
	}
	errs := make([]error, len(failures))
	for i, f := range failures {
		errs[i] = f
	}
	return errors.Join(errs...)
}

// batch collects the outcomes of units submitted between two barriers.
type batch struct {
	wg sync.WaitGroup

	mu           sync.Mutex
	submitted    int
	completed    int
	failures     []*UnitError
	firstFailure chan struct{}
	failOnce     sync.Once
}

func newBatch() *batch {
	return &batch{firstFailure: make(chan struct{})}
}

func (b *batch) add() {
	b.mu.Lock()
	b.submitted++
	b.mu.Unlock()
	b.wg.Add(1)
}

func (b *batch) succeed() {
	b.mu.Lock()
	b.completed++
	b.mu.Unlock()
	b.wg.Done()
}

func (b *batch) fail(err *UnitError) {
	b.mu.Lock()
	b.completed++
	b.failures = append(b.failures, err)
	b.mu.Unlock()
	b.failOnce.Do(func() { close(b.firstFailure) })
	b.wg.Done()
}

func (b *batch) report(early bool) *Report {
	b.mu.Lock()
	defer b.mu.Unlock()
	return &Report{
		Submitted: b.submitted,
		Completed: b.completed,
		Failures:  append([]*UnitError(nil), b.failures...),
		Early:     early && b.completed < b.submitted,
	}
}
