package orchestrator

import (
	"context"

	"emperror.dev/errors"
	"github.com/lockstep-rebase/lockstep-rebase/internal/lockstep/errs"
)

// Validate checks every enabled task's repo for the preconditions §4.E
// requires before any write happens: a clean worktree, both branches
// resolvable locally (creating a local tracking branch from origin when the
// user agrees to), and no in-progress rebase.
//
// plan.Force downgrades exactly one of those checks: a stray rebase left in
// progress by an earlier, abandoned run is aborted instead of failing the
// session outright. It does not touch the dirty-worktree or branch-missing
// checks, which guard against discarding uncommitted or nonexistent work.
func (o *Orchestrator) Validate(ctx context.Context, plan *Plan) error {
	for _, task := range plan.Tasks {
		if !task.Enabled {
			continue
		}
		gw := o.gateway(task.RepoRel)

		if gw.InProgress() {
			if !plan.Force {
				return &errs.PreconditionError{Kind: "RebaseInProgress", Repo: task.RepoRel}
			}
			if err := gw.RebaseAbort(ctx); err != nil {
				return errors.WrapIff(err, "force: failed to abort stray rebase in %q", task.RepoRel)
			}
		}
		clean, err := gw.IsClean(ctx)
		if err != nil {
			return err
		}
		if !clean {
			return &errs.PreconditionError{Kind: "DirtyWorktree", Repo: task.RepoRel}
		}

		for _, branch := range []string{task.Source, task.Target} {
			if err := o.ensureLocalBranch(ctx, task.RepoRel, branch); err != nil {
				return err
			}
		}
	}
	return nil
}

// ensureLocalBranch resolves branch locally, offering to create a local
// tracking branch from o.Remote when it exists only remotely (§4.E
// "Remote-only branches"). Declining is fatal for that repo.
func (o *Orchestrator) ensureLocalBranch(ctx context.Context, repoRel, branch string) error {
	gw := o.gateway(repoRel)

	local, err := gw.BranchExistsLocal(ctx, branch)
	if err != nil {
		return err
	}
	if local {
		return nil
	}

	remote, err := gw.BranchExistsRemote(ctx, branch, o.Remote)
	if err != nil {
		return err
	}
	if !remote {
		return &errs.PreconditionError{Kind: "BranchMissing", Repo: repoRel, Detail: branch}
	}

	create, err := o.UserAgent.PromptRemoteBranchCreate(repoRel, branch, o.Remote)
	if err != nil {
		return err
	}
	if !create {
		return &errs.PreconditionError{Kind: "BranchMissing", Repo: repoRel, Detail: branch + " (declined remote-tracking creation)"}
	}
	return gw.CreateLocalFromRemote(ctx, branch, o.Remote)
}
