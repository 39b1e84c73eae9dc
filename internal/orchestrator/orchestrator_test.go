package orchestrator_test

import (
	"testing"

	"github.com/lockstep-rebase/lockstep-rebase/internal/git/gittest"
	"github.com/lockstep-rebase/lockstep-rebase/internal/hierarchy"
	"github.com/lockstep-rebase/lockstep-rebase/internal/lockstep/userio"
	"github.com/lockstep-rebase/lockstep-rebase/internal/orchestrator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupDivergedBranches gives repo two branches that have each moved past
// "main": "target" gets one commit, "source" gets two, so rebasing source
// onto target is a clean fast-forward-free replay with no conflicts.
func setupDivergedBranches(t *testing.T, repo *gittest.GitTestRepo) {
	t.Helper()
	repo.Git(t, "branch", "target")
	repo.Git(t, "branch", "source")

	repo.CheckoutBranch(t, "refs/heads/target")
	repo.CommitFile(t, "target-only.txt", "target change\n")

	repo.CheckoutBranch(t, "refs/heads/source")
	repo.CommitFile(t, "source-a.txt", "source change a\n")
	repo.CommitFile(t, "source-b.txt", "source change b\n")
}

func TestOrchestrator_CleanSingleRepoRebase(t *testing.T) {
	repo := gittest.NewTempRepo(t)
	setupDivergedBranches(t, repo)

	h, err := hierarchy.Discover(t.Context(), repo.RepoDir)
	require.NoError(t, err)

	o, err := orchestrator.New(h, "origin", &userio.Scripted{})
	require.NoError(t, err)

	plan, err := o.BuildPlan(t.Context(), orchestrator.PlanOptions{
		GlobalSource: "source",
		GlobalTarget: "target",
	})
	require.NoError(t, err)
	require.NoError(t, o.Validate(t.Context(), plan))

	_, err = o.Backup(t.Context(), plan)
	require.NoError(t, err)

	results, err := o.Execute(t.Context(), plan)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, 2, results[0].CommitsMapped)
	assert.Equal(t, orchestrator.PhaseCompleted, o.Phase())

	assert.True(t, repo.IsWorkdirClean(t))

	commits := repo.GetCommits(t, repo.CurrentBranch(t), "refs/heads/target")
	assert.Len(t, commits, 2, "source should now carry exactly its 2 replayed commits atop target")
}

func TestOrchestrator_Restore(t *testing.T) {
	repo := gittest.NewTempRepo(t)
	setupDivergedBranches(t, repo)
	originalSourceTip := repo.GetCommitAtRef(t, "refs/heads/source")

	h, err := hierarchy.Discover(t.Context(), repo.RepoDir)
	require.NoError(t, err)
	o, err := orchestrator.New(h, "origin", &userio.Scripted{})
	require.NoError(t, err)

	plan, err := o.BuildPlan(t.Context(), orchestrator.PlanOptions{
		GlobalSource: "source",
		GlobalTarget: "target",
	})
	require.NoError(t, err)

	_, err = o.Backup(t.Context(), plan)
	require.NoError(t, err)

	_, err = o.Execute(t.Context(), plan)
	require.NoError(t, err)

	restoreResults, err := o.Restore(t.Context(), plan.SessionID)
	require.NoError(t, err)
	require.Len(t, restoreResults, 1)
	assert.True(t, restoreResults[0].Applied)
	assert.Equal(t, originalSourceTip, repo.GetCommitAtRef(t, "refs/heads/source"))
}

func TestOrchestrator_NestedHierarchy_SubmodulePointerAutoResolved(t *testing.T) {
	repos := gittest.NewTempHierarchy(t, gittest.HierarchyShape{
		Name: "root",
		Children: []gittest.HierarchyShape{
			{Name: "child", Path: "vendor/child"},
		},
	})
	child := repos["child"]
	root := repos["root"]

	setupDivergedBranches(t, child)
	childSourceTip := child.GetCommitAtRef(t, "refs/heads/source")

	root.Git(t, "branch", "target")
	root.Git(t, "branch", "source")

	root.CheckoutBranch(t, "refs/heads/target")
	root.CommitFile(t, "root-target.txt", "root target change\n")

	root.CheckoutBranch(t, "refs/heads/source")
	root.Git(t, "-C", "vendor/child", "checkout", childSourceTip.String())
	root.Git(t, "add", "vendor/child")
	root.Git(t, "commit", "-m", "bump child submodule to source tip")

	h, err := hierarchy.Discover(t.Context(), root.RepoDir)
	require.NoError(t, err)
	o, err := orchestrator.New(h, "origin", &userio.Scripted{})
	require.NoError(t, err)

	plan, err := o.BuildPlan(t.Context(), orchestrator.PlanOptions{
		GlobalSource: "source",
		GlobalTarget: "target",
	})
	require.NoError(t, err)
	require.NoError(t, o.Validate(t.Context(), plan))

	_, err = o.Backup(t.Context(), plan)
	require.NoError(t, err)

	results, err := o.Execute(t.Context(), plan)
	require.NoError(t, err)
	require.Len(t, results, 2, "both child and root should be rebased")

	assert.True(t, root.IsWorkdirClean(t))
	assert.Equal(t, orchestrator.PhaseCompleted, o.Phase())
}

func TestOrchestrator_OfferForcePush(t *testing.T) {
	repo := gittest.NewTempRepo(t)
	repo.Git(t, "checkout", "-b", "source")
	repo.Git(t, "push", "-u", "origin", "source")

	gw := repo.AsGitRepo(t)
	fp := gittest.CreateFile(t, gw, "extra.txt", []byte("local-only change\n"))
	gittest.AddFile(t, gw, fp)
	gittest.CommitFile(t, gw, "extra2.txt", []byte("another local-only change\n"))

	gittest.WithCheckoutBranch(t, gw, "main", func() {
		assert.NoFileExists(t, repo.RepoDir+"/extra.txt", "source's commits shouldn't be visible from main")
	})

	h, err := hierarchy.Discover(t.Context(), repo.RepoDir)
	require.NoError(t, err)
	o, err := orchestrator.New(h, "origin", &userio.Scripted{ForcePush: []bool{true}})
	require.NoError(t, err)

	plan := &orchestrator.Plan{
		SessionID: "test-session",
		Tasks:     []orchestrator.RepoTask{{RepoRel: "", Source: "source", Target: "main", Enabled: true}},
	}

	results, err := o.OfferForcePush(t.Context(), plan)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.True(t, results[0].Pushed)
}
