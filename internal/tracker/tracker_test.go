package tracker_test

import (
	"testing"

	"github.com/lockstep-rebase/lockstep-rebase/internal/tracker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTracker_AdvanceAndLookup(t *testing.T) {
	tr := tracker.New([]string{"old1", "old2", "old3"})

	require.NoError(t, tr.Advance("new1"))
	require.NoError(t, tr.Advance("new2"))

	newSha, ok := tr.Lookup("old1")
	assert.True(t, ok)
	assert.Equal(t, "new1", newSha)

	_, ok = tr.Lookup("old3")
	assert.False(t, ok, "old3 hasn't been replayed yet")

	assert.Equal(t, 2, tr.Len())
	assert.Equal(t, 3, tr.Expected())
}

func TestTracker_AdvancePastEnd(t *testing.T) {
	tr := tracker.New([]string{"old1"})
	require.NoError(t, tr.Advance("new1"))
	require.Error(t, tr.Advance("new2"))
}

func TestTracker_FrozenRejectsAdvance(t *testing.T) {
	tr := tracker.New([]string{"old1"})
	tr.Freeze()
	assert.True(t, tr.Frozen())
	assert.Error(t, tr.Advance("new1"))
}

func TestSet_PutGet(t *testing.T) {
	s := tracker.NewSet()
	tr := tracker.New(nil)
	s.Put("services/api", tr)

	got, ok := s.Get("services/api")
	assert.True(t, ok)
	assert.Same(t, tr, got)

	_, ok = s.Get("services/missing")
	assert.False(t, ok)
}
