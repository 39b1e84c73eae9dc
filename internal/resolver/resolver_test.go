package resolver_test

import (
	"os"
	"testing"

	"github.com/lockstep-rebase/lockstep-rebase/internal/git"
	"github.com/lockstep-rebase/lockstep-rebase/internal/git/gittest"
	"github.com/lockstep-rebase/lockstep-rebase/internal/resolver"
	"github.com/lockstep-rebase/lockstep-rebase/internal/tracker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolver_FileConflict_ResolvedByHuman(t *testing.T) {
	tr := gittest.NewTempRepo(t)
	tr.CommitFile(t, "conflict.txt", "line1\n", gittest.WithMessage("common ancestor"))

	tr.Git(t, "branch", "target")
	tr.Git(t, "branch", "source")

	tr.CheckoutBranch(t, "refs/heads/target")
	tr.CommitFile(t, "conflict.txt", "line1 target\n", gittest.WithMessage("target changes conflict.txt"))

	tr.CheckoutBranch(t, "refs/heads/source")
	tr.CommitFile(t, "conflict.txt", "line1 source\n", gittest.WithMessage("source changes conflict.txt"))

	gw := tr.AsGitRepo(t)
	outcome, _, err := gw.RebaseStart(t.Context(), git.RebaseOpts{
		Branch:   "source",
		Upstream: "target",
		Onto:     "target",
	})
	require.NoError(t, err)
	require.Equal(t, git.RebaseStopped, outcome)

	r := resolver.New(gw, "root", nil, tracker.NewSet())
	out, err := r.Resolve(t.Context())
	require.NoError(t, err)
	require.False(t, out.Continued)
	require.Equal(t, []string{"conflict.txt"}, out.FilePaths)

	// The human resolves the conflict by hand and stages it.
	require.NoError(t, os.WriteFile(tr.RepoDir+"/conflict.txt", []byte("line1 resolved\n"), 0o644))
	require.NoError(t, gw.StagePath(t.Context(), "conflict.txt"))

	out, err = r.ResumeAfterHumanResolution(t.Context(), out.FilePaths)
	require.NoError(t, err)
	assert.True(t, out.Continued)
	assert.Equal(t, git.RebaseCompleted, out.Result)
	assert.False(t, gw.InProgress())
}

func TestResolver_ResumeAfterHumanResolution_StillConflicted(t *testing.T) {
	tr := gittest.NewTempRepo(t)
	tr.CommitFile(t, "conflict.txt", "line1\n", gittest.WithMessage("common ancestor"))

	tr.Git(t, "branch", "target")
	tr.Git(t, "branch", "source")

	tr.CheckoutBranch(t, "refs/heads/target")
	tr.CommitFile(t, "conflict.txt", "line1 target\n", gittest.WithMessage("target changes conflict.txt"))

	tr.CheckoutBranch(t, "refs/heads/source")
	tr.CommitFile(t, "conflict.txt", "line1 source\n", gittest.WithMessage("source changes conflict.txt"))

	gw := tr.AsGitRepo(t)
	_, _, err := gw.RebaseStart(t.Context(), git.RebaseOpts{Branch: "source", Upstream: "target", Onto: "target"})
	require.NoError(t, err)

	r := resolver.New(gw, "root", nil, tracker.NewSet())
	out, err := r.Resolve(t.Context())
	require.NoError(t, err)

	// The human hasn't staged anything yet; resuming should re-surface the
	// same pending paths rather than attempt to continue.
	again, err := r.ResumeAfterHumanResolution(t.Context(), out.FilePaths)
	require.NoError(t, err)
	assert.False(t, again.Continued)
	assert.Equal(t, out.FilePaths, again.FilePaths)
}
