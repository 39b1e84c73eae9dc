package orchestrator

import (
	"context"

	"emperror.dev/errors"
	"github.com/google/shlex"
	"github.com/lockstep-rebase/lockstep-rebase/internal/config"
	"github.com/lockstep-rebase/lockstep-rebase/internal/git"
	"github.com/lockstep-rebase/lockstep-rebase/internal/hierarchy"
	"github.com/lockstep-rebase/lockstep-rebase/internal/lockstep/errs"
	"github.com/lockstep-rebase/lockstep-rebase/internal/resolver"
	"github.com/lockstep-rebase/lockstep-rebase/internal/session"
	"github.com/lockstep-rebase/lockstep-rebase/internal/tracker"
	"github.com/lockstep-rebase/lockstep-rebase/internal/utils/logutils"
)

// TaskResult records the outcome of one task for the session report.
type TaskResult struct {
	RepoRel       string
	CommitsMapped int
}

// trackerHandle pairs a Tracker with the task's target branch, so the
// commits the rebase has created so far can be listed as target..HEAD.
type trackerHandle struct {
	*tracker.Tracker
	target string
}

func newTrackerHandle(expected []string, target string) *trackerHandle {
	return &trackerHandle{Tracker: tracker.New(expected), target: target}
}

// Execute runs every enabled task in plan order (leaves first, per
// Hierarchy.Order), auto-resolving submodule conflicts via child Trackers
// and delegating file conflicts to the UserAgent (§4.E "Execution"). The
// session's progress is checkpointed to disk after each task so a crashed
// process can resume with Resume instead of restarting from scratch.
//
// On a non-conflict failure, or an unresolvable submodule conflict, the
// session transitions FAILED: the current repo's rebase is aborted, earlier
// completed tasks are left as-is, and their backups remain available for
// manual restore (§4.E step 6).
func (o *Orchestrator) Execute(ctx context.Context, plan *Plan) ([]TaskResult, error) {
	return o.drivePlan(ctx, plan, nil)
}

// Resume continues a session whose process exited mid-execution. Tasks
// already in completedRepos are skipped; the task whose repo still has a
// rebase in progress resumes via `rebase --continue` instead of starting a
// fresh rebase; every other enabled task runs as in Execute.
func (o *Orchestrator) Resume(ctx context.Context, plan *Plan, completedRepos []string) ([]TaskResult, error) {
	done := map[string]bool{}
	for _, r := range completedRepos {
		done[r] = true
	}
	return o.drivePlan(ctx, plan, done)
}

func (o *Orchestrator) drivePlan(ctx context.Context, plan *Plan, skip map[string]bool) ([]TaskResult, error) {
	o.phase = PhaseExecuting

	var results []TaskResult
	for _, task := range plan.Tasks {
		if !task.Enabled || skip[task.RepoRel] {
			continue
		}
		if err := ctxCheck(ctx); err != nil {
			o.phase = PhaseAborted
			return results, err
		}

		gw := o.gateway(task.RepoRel)
		o.Log.WithField("task", logutils.Format("%+v", task)).Debug("starting task")
		var result TaskResult
		var err error
		if gw.InProgress() {
			result, err = o.continueTask(ctx, task)
		} else {
			result, err = o.runTask(ctx, task)
		}
		if err != nil {
			o.phase = PhaseFailed
			_ = gw.RebaseAbort(ctx)
			return results, err
		}
		if saveErr := session.Save(gw.GitDir(), &session.State{
			SessionID:         plan.SessionID,
			CurrentTaskRepo:   task.RepoRel,
			CompletedRepos:    append(completedReposOf(results), task.RepoRel),
			HierarchySnapshot: enabledRepoRels(plan),
		}); saveErr != nil {
			o.Log.WithError(saveErr).Warn("failed to checkpoint session state")
		}
		results = append(results, result)
	}

	o.phase = PhaseCompleted
	return results, nil
}

func completedReposOf(results []TaskResult) []string {
	repos := make([]string, 0, len(results))
	for _, r := range results {
		repos = append(repos, r.RepoRel)
	}
	return repos
}

// enabledRepoRels lists the repo-relative paths of plan's enabled tasks, in
// task order, for the session checkpoint's hierarchy snapshot.
func enabledRepoRels(plan *Plan) []string {
	repos := make([]string, 0, len(plan.Tasks))
	for _, t := range plan.Tasks {
		if t.Enabled {
			repos = append(repos, t.RepoRel)
		}
	}
	return repos
}

func (o *Orchestrator) runTask(ctx context.Context, task RepoTask) (TaskResult, error) {
	gw := o.gateway(task.RepoRel)

	if err := gw.Checkout(ctx, task.Source); err != nil {
		return TaskResult{}, errors.WrapIff(err, "failed to checkout %q in %q", task.Source, task.RepoRel)
	}

	expected, err := gw.CommitsBetween(ctx, task.Target, task.Source)
	if err != nil {
		return TaskResult{}, err
	}
	th := newTrackerHandle(expected, task.Target)
	o.trackers.Put(task.RepoRel, th.Tracker)

	extraArgs, err := extraRebaseArgs()
	if err != nil {
		return TaskResult{}, err
	}
	outcome, output, err := gw.RebaseStart(ctx, git.RebaseOpts{
		Branch:    task.Source,
		Upstream:  task.Target,
		Onto:      task.Target,
		ExtraArgs: extraArgs,
	})
	if err != nil {
		return TaskResult{}, &errs.InvocationError{Repo: task.RepoRel, Args: []string{"rebase"}, Stderr: err.Error()}
	}
	if outcome == git.RebaseFailed {
		return TaskResult{}, &errs.InvocationError{Repo: task.RepoRel, Args: []string{"rebase"}, Stderr: string(output.Stderr)}
	}
	if err := o.recordStepIfCommitted(ctx, gw, th); err != nil {
		return TaskResult{}, err
	}

	return o.driveRebase(ctx, task, gw, th, outcome)
}

// continueTask resumes a task whose repo already has a rebase in progress
// (the process was interrupted after RebaseStart but before the rebase
// finished), picking up with `git rebase --continue`.
func (o *Orchestrator) continueTask(ctx context.Context, task RepoTask) (TaskResult, error) {
	gw := o.gateway(task.RepoRel)

	expected, err := gw.CommitsBetween(ctx, task.Target, task.Source)
	if err != nil {
		return TaskResult{}, err
	}
	th := newTrackerHandle(expected, task.Target)
	o.trackers.Put(task.RepoRel, th.Tracker)

	outcome, output, err := gw.RebaseContinue(ctx)
	if err != nil {
		return TaskResult{}, &errs.InvocationError{Repo: task.RepoRel, Args: []string{"rebase", "--continue"}, Stderr: err.Error()}
	}
	if outcome == git.RebaseFailed {
		return TaskResult{}, &errs.InvocationError{Repo: task.RepoRel, Args: []string{"rebase", "--continue"}, Stderr: string(output.Stderr)}
	}
	if err := o.recordStepIfCommitted(ctx, gw, th); err != nil {
		return TaskResult{}, err
	}

	return o.driveRebase(ctx, task, gw, th, outcome)
}

// maxFileConflictRounds bounds how many times driveRebase will re-prompt for
// the same file conflict before giving up: a UserAgent that keeps
// acknowledging without the index actually clearing (a broken script, or a
// human who mistyped "done") would otherwise spin forever.
const maxFileConflictRounds = 5

func (o *Orchestrator) driveRebase(ctx context.Context, task RepoTask, gw *git.Repo, th *trackerHandle, outcome git.RebaseOutcome) (TaskResult, error) {
	res := resolver.New(gw, task.RepoRel, childLinks(o.nodeByRelPath(task.RepoRel)), o.trackers)

	for outcome == git.RebaseStopped {
		out, err := res.Resolve(ctx)
		if err != nil {
			return TaskResult{}, err
		}

		for round := 0; len(out.FilePaths) > 0; round++ {
			if round >= maxFileConflictRounds {
				return TaskResult{}, &errs.RebaseConflict{Kind: errs.FileConflict, Repo: task.RepoRel, Paths: out.FilePaths}
			}
			if err := o.UserAgent.AwaitFileConflictResolution(task.RepoRel, out.FilePaths); err != nil {
				return TaskResult{}, err
			}
			out, err = res.ResumeAfterHumanResolution(ctx, out.FilePaths)
			if err != nil {
				return TaskResult{}, err
			}
		}

		if err := o.recordStepIfCommitted(ctx, gw, th); err != nil {
			return TaskResult{}, err
		}

		switch out.Result {
		case git.RebaseCompleted:
			outcome = git.RebaseCompleted
		case git.RebaseStopped:
			outcome = git.RebaseStopped
		default:
			return TaskResult{}, &errs.InvocationError{Repo: task.RepoRel, Args: []string{"rebase", "--continue"}}
		}
	}

	th.Freeze()
	return TaskResult{RepoRel: task.RepoRel, CommitsMapped: th.Len()}, nil
}

// recordStepIfCommitted advances the Tracker over every commit the rebase
// has created since the last observation (§4.C): target..HEAD lists the
// replayed commits in replay order, and the ones past th.Len() are new.
func (o *Orchestrator) recordStepIfCommitted(ctx context.Context, gw *git.Repo, th *trackerHandle) error {
	replayed, err := gw.CommitsBetween(ctx, th.target, "HEAD")
	if err != nil {
		return err
	}
	for i := th.Len(); i < len(replayed) && th.Len() < th.Expected(); i++ {
		if err := th.Advance(replayed[i]); err != nil {
			return err
		}
	}
	return nil
}

// extraRebaseArgs splits the configured extra rebase flags with shell
// quoting rules, so a value like `-X theirs` or `--rebase-merges` can be set
// once in config and applied to every repo's rebase invocation.
func extraRebaseArgs() ([]string, error) {
	if config.Config.Rebase.ExtraGitRebaseArgs == "" {
		return nil, nil
	}
	args, err := shlex.Split(config.Config.Rebase.ExtraGitRebaseArgs)
	if err != nil {
		return nil, errors.WrapIff(err, "failed to parse rebase.extra_git_rebase_args %q", config.Config.Rebase.ExtraGitRebaseArgs)
	}
	return args, nil
}

func childLinks(info *hierarchy.RepoInfo) []hierarchy.SubmoduleLink {
	if info == nil {
		return nil
	}
	return info.Submodules
}
