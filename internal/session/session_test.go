package session_test

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/lockstep-rebase/lockstep-rebase/internal/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewID_Format(t *testing.T) {
	now := time.Date(2026, 7, 30, 12, 34, 56, 0, time.UTC)
	id, err := session.NewID(now)
	require.NoError(t, err)
	assert.Regexp(t, `^20260730T123456-[a-z0-9]{6}$`, id)
}

func TestNewID_Unique(t *testing.T) {
	now := time.Date(2026, 7, 30, 12, 34, 56, 0, time.UTC)
	a, err := session.NewID(now)
	require.NoError(t, err)
	b, err := session.NewID(now)
	require.NoError(t, err)
	assert.NotEqual(t, a, b, "random suffix should differ even for the same timestamp")
}

func TestSaveLoadClear_RoundTrip(t *testing.T) {
	gitDir := t.TempDir()

	got, err := session.Load(gitDir)
	require.NoError(t, err)
	assert.Nil(t, got, "no state file yet")

	st := &session.State{
		SessionID:      "20260730T123456-abcdef",
		GlobalSource:   "feature",
		GlobalTarget:   "main",
		Phase:          "EXECUTING",
		CompletedRepos: []string{"vendor/child"},
	}
	require.NoError(t, session.Save(gitDir, st))

	loaded, err := session.Load(gitDir)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, st.SessionID, loaded.SessionID)
	assert.Equal(t, st.CompletedRepos, loaded.CompletedRepos)

	assert.FileExists(t, filepath.Join(gitDir, "lockstep-rebase", "session.json"))

	require.NoError(t, session.Clear(gitDir))
	got, err = session.Load(gitDir)
	require.NoError(t, err)
	assert.Nil(t, got)

	// Clearing twice is a no-op, not an error.
	require.NoError(t, session.Clear(gitDir))
}
