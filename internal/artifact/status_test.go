package artifact

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecide(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		status      Status
		incremental bool
		want        Action
	}{
		{NotChanged, true, Noop},
		{Added, true, ProcessFully},
		{Changed, true, ProcessFully},
		{Removed, true, Delete},
		{NotChanged, false, ProcessFully},
		{Added, false, ProcessFully},
		{Changed, false, ProcessFully},
		{Removed, false, ProcessFully},
	}

	for _, tc := range testCases {
		t.Run(tc.status.String(), func(t *testing.T) {
			assert.Equal(t, tc.want, Decide(tc.status, tc.incremental), "incremental=%v", tc.incremental)
		})
	}
}

func TestParseStatus(t *testing.T) {
	t.Parallel()

	for in, want := range map[string]Status{
		"":            NotChanged,
		"NOTCHANGED":  NotChanged,
		"not_changed": NotChanged,
		"added":       Added,
		" Changed ":   Changed,
		"REMOVED":     Removed,
	} {
		got, err := ParseStatus(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseStatus("moved")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "moved")
}

func TestTally_RecordsConflicts(t *testing.T) {
	t.Parallel()
	tally := NewTally()

	require.True(t, tally.Record("/a.jar", Transformed))
	require.True(t, tally.Record("/b.jar", Copied))
	require.False(t, tally.Record("/a.jar", Deleted))

	d, ok := tally.Of("/a.jar")
	require.True(t, ok)
	assert.Equal(t, Transformed, d)
	assert.Equal(t, 2, tally.Len())
	assert.Equal(t, map[Disposition]int{Transformed: 1, Copied: 1}, tally.Counts())
	assert.Equal(t, []string{"/a.jar: transformed then deleted"}, tally.Conflicts())
}

func TestDirectoryArtifact_Identity(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "classes", DirectoryArtifact{Name: "classes", Path: "/p"}.Identity())
	assert.Equal(t, "/p", DirectoryArtifact{Path: "/p"}.Identity())

	d := DirectoryArtifact{ChangedFiles: map[string]Status{"/p/b": Added, "/p/a": Removed}}
	assert.Equal(t, []string{"/p/a", "/p/b"}, d.SortedChanges())
}
