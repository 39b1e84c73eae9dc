package git

import (
	"context"
	"os"
	"path/filepath"
)

// RebaseOutcome is the result of a rebase_start/rebase_continue invocation
// (§4.A).
type RebaseOutcome int

const (
	// RebaseCompleted means the rebase finished and there is no rebase in
	// progress anymore.
	RebaseCompleted RebaseOutcome = iota
	// RebaseStopped means git paused for a conflict (or an empty commit);
	// REBASE_HEAD is set and the index has unmerged entries.
	RebaseStopped
	// RebaseFailed means git exited non-zero for a reason other than a
	// conflict stop (e.g. the upstream ref doesn't exist).
	RebaseFailed
)

type RebaseOpts struct {
	// The branch to replay (defaults to the current branch if empty).
	Branch string
	// The upstream commits already shared with Onto; commits reachable from
	// Branch but not Upstream are replayed.
	Upstream string
	// The new base to replay onto.
	Onto string
	// ExtraArgs are appended ahead of Branch (e.g. "-X", "theirs"), letting
	// callers configure merge strategy options without the Repo Gateway
	// knowing about them.
	ExtraArgs []string
}

// InProgress reports whether a rebase is currently paused in this
// repository (REBASE_HEAD exists).
func (r *Repo) InProgress() bool {
	_, err := os.Stat(filepath.Join(r.GitDir(), "REBASE_HEAD"))
	return err == nil
}

func (r *Repo) outcomeFromExit(output *Output) RebaseOutcome {
	if output.ExitCode == 0 {
		return RebaseCompleted
	}
	if r.InProgress() {
		return RebaseStopped
	}
	return RebaseFailed
}

// RebaseStart begins replaying opts.Branch (or the current branch) onto
// opts.Onto, treating opts.Upstream as already-shared history.
func (r *Repo) RebaseStart(ctx context.Context, opts RebaseOpts) (RebaseOutcome, *Output, error) {
	args := []string{"rebase", "--onto", opts.Onto, opts.Upstream}
	args = append(args, opts.ExtraArgs...)
	if opts.Branch != "" {
		args = append(args, opts.Branch)
	}
	output, err := r.Run(ctx, &RunOpts{Args: args})
	if err != nil {
		return RebaseFailed, output, err
	}
	return r.outcomeFromExit(output), output, nil
}

// RebaseContinue resumes a paused rebase after conflicts have been staged.
func (r *Repo) RebaseContinue(ctx context.Context) (RebaseOutcome, *Output, error) {
	output, err := r.Run(ctx, &RunOpts{
		Args: []string{"rebase", "--continue"},
		Env:  []string{"GIT_EDITOR=true"},
	})
	if err != nil {
		return RebaseFailed, output, err
	}
	return r.outcomeFromExit(output), output, nil
}

// RebaseAbort discards the in-progress rebase and restores the original
// branch tip.
func (r *Repo) RebaseAbort(ctx context.Context) error {
	if !r.InProgress() {
		return nil
	}
	_, err := r.Run(ctx, &RunOpts{Args: []string{"rebase", "--abort"}, ExitError: true})
	return err
}

// CommitsBetween returns, in replay order (oldest first), the commits that
// `rebase_start(source, onto=target)` will replay: those reachable from
// source but not target.
func (r *Repo) CommitsBetween(ctx context.Context, target, source string) ([]string, error) {
	out, err := r.Run(ctx, &RunOpts{
		Args:      []string{"rev-list", "--reverse", target + ".." + source},
		ExitError: true,
	})
	if err != nil {
		return nil, err
	}
	return out.Lines(), nil
}
