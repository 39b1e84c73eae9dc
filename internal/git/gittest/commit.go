package gittest

import (
	"fmt"
	"os"
	"path"
	"testing"

	lsgit "github.com/lockstep-rebase/lockstep-rebase/internal/git"
	"github.com/stretchr/testify/require"
)

func CommitFile(t *testing.T, repo *lsgit.Repo, filename string, body []byte) {
	t.Helper()
	filepath := path.Join(repo.Dir(), filename)
	err := os.WriteFile(filepath, body, 0o644)
	require.NoError(t, err, "failed to write file: %s", filename)

	_, err = repo.Git(t.Context(), "add", filepath)
	require.NoError(t, err, "failed to add file: %s", filename)

	msg := fmt.Sprintf("write file %s", filename)
	_, err = repo.Git(t.Context(), "commit", "-m", msg)
	require.NoError(t, err, "failed to commit file: %s", filename)
}
