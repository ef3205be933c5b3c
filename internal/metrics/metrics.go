// Package metrics exposes Prometheus collectors for the dispatch engine.
// A nil *Dispatch is valid and records nothing.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/vk/classweave/internal/artifact"
)

const namespace = "classweave"

// Dispatch groups the collectors updated by one orchestrator.
type Dispatch struct {
	Dispositions *prometheus.CounterVec
	Units        *prometheus.CounterVec
	Duration     *prometheus.HistogramVec
	Cleanups     *prometheus.CounterVec
}

// New creates the collectors and registers them with reg. A nil reg creates
// unregistered collectors.
func New(reg prometheus.Registerer) *Dispatch {
	d := &Dispatch{
		Dispositions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dispositions_total",
			Help:      "Artifacts and files by kind and chosen disposition.",
		}, []string{"kind", "disposition"}),
		Units: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "units_total",
			Help:      "Executor units by outcome.",
		}, []string{"outcome"}),
		Duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "invocation_duration_seconds",
			Help:      "Wall-clock time of one transform invocation.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 14),
		}, []string{"mode"}),
		Cleanups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "safe_mode_cleanups_total",
			Help:      "Safe-mode sibling purges by result.",
		}, []string{"result"}),
	}
	if reg != nil {
		reg.MustRegister(d.Dispositions, d.Units, d.Duration, d.Cleanups)
	}
	return d
}

// ObserveDispositions adds a tally's counts under kind.
func (d *Dispatch) ObserveDispositions(kind string, counts map[artifact.Disposition]int) {
	if d == nil {
		return
	}
	for disp, n := range counts {
		d.Dispositions.WithLabelValues(kind, disp.String()).Add(float64(n))
	}
}

// ObserveUnits records unit outcomes from one barrier.
func (d *Dispatch) ObserveUnits(succeeded, failed, pending int) {
	if d == nil {
		return
	}
	d.Units.WithLabelValues("succeeded").Add(float64(succeeded))
	d.Units.WithLabelValues("failed").Add(float64(failed))
	d.Units.WithLabelValues("pending").Add(float64(pending))
}

// ObserveInvocation records the elapsed time of one invocation.
func (d *Dispatch) ObserveInvocation(incremental bool, elapsed time.Duration) {
	if d == nil {
		return
	}
	mode := "full"
	if incremental {
		mode = "incremental"
	}
	d.Duration.WithLabelValues(mode).Observe(elapsed.Seconds())
}

// ObserveCleanup records the result of a safe-mode purge.
func (d *Dispatch) ObserveCleanup(err error) {
	if d == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	d.Cleanups.WithLabelValues(result).Inc()
}
