package gittest

import (
	"os"
	"path"
	"testing"

	lsgit "github.com/lockstep-rebase/lockstep-rebase/internal/git"
	"github.com/stretchr/testify/require"
)

func CreateFile(
	t *testing.T,
	repo *lsgit.Repo,
	filename string,
	body []byte,
) string {
	t.Helper()
	filepath := path.Join(repo.Dir(), filename)
	err := os.WriteFile(filepath, body, 0o644)
	require.NoError(t, err, "failed to write file: %s", filename)
	return filepath
}

func AddFile(
	t *testing.T,
	repo *lsgit.Repo,
	filepath string,
) {
	t.Helper()
	_, err := repo.Git(t.Context(), "add", filepath)
	require.NoError(t, err, "failed to add file: %s", filepath)
}
