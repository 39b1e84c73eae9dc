package gittest

import (
	"testing"

	lsgit "github.com/lockstep-rebase/lockstep-rebase/internal/git"
	"github.com/stretchr/testify/require"
)

// WithCheckoutBranch runs f after checking out branch on repo, restoring the
// original branch afterward.
func WithCheckoutBranch(t *testing.T, repo *lsgit.Repo, branch string, f func()) {
	t.Helper()
	original, err := repo.CurrentBranchName(t.Context())
	require.NoError(t, err)
	require.NoError(t, repo.Checkout(t.Context(), branch))
	defer func() {
		require.NoError(t, repo.Checkout(t.Context(), original))
	}()
	f()
}
