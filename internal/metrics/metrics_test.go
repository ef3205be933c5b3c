package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/classweave/internal/artifact"
)

func TestDispatch_Observe(t *testing.T) {
	t.Parallel()
	reg := prometheus.NewRegistry()
	d := New(reg)

	d.ObserveDispositions("archive", map[artifact.Disposition]int{artifact.Transformed: 2, artifact.Copied: 1})
	d.ObserveUnits(3, 1, 0)
	d.ObserveInvocation(true, 250*time.Millisecond)
	d.ObserveCleanup(nil)
	d.ObserveCleanup(errors.New("denied"))

	assert.Equal(t, 2.0, testutil.ToFloat64(d.Dispositions.WithLabelValues("archive", "transformed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(d.Dispositions.WithLabelValues("archive", "copied")))
	assert.Equal(t, 3.0, testutil.ToFloat64(d.Units.WithLabelValues("succeeded")))
	assert.Equal(t, 1.0, testutil.ToFloat64(d.Cleanups.WithLabelValues("error")))

	count, err := testutil.GatherAndCount(reg, "classweave_invocation_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestDispatch_NilIsNoop(t *testing.T) {
	t.Parallel()
	var d *Dispatch
	assert.NotPanics(t, func() {
		d.ObserveUnits(1, 1, 1)
		d.ObserveInvocation(false, time.Second)
		d.ObserveCleanup(nil)
		d.ObserveDispositions("file", map[artifact.Disposition]int{artifact.Deleted: 1})
	})
}
