package git

import (
	"strings"

	"emperror.dev/errors"
)

// Sentinel errors surfaced by the Repo Gateway (§4.A, §7 EnvironmentError /
// PreconditionError). Callers use errors.Is/errors.As to branch on kind; the
// higher-level taxonomy in internal/lockstep/errs wraps these with the repo
// and command context needed to report them to a human.
var (
	ErrNotAGitRepo      = errors.Sentinel("not a git repository")
	ErrGitBinaryMissing = errors.Sentinel("git binary not found on PATH")
	ErrDirtyWorktree     = errors.Sentinel("worktree is not clean")
	ErrBranchMissing     = errors.Sentinel("branch does not exist")
	ErrRebaseInProgress  = errors.Sentinel("a rebase is already in progress in this repository")
	ErrDetachedHead      = errors.Sentinel("repository is in a detached HEAD state")
	ErrRemoteNotFound    = errors.Sentinel("remote not found")
)

// RunError wraps a non-zero git exit with its arguments and stderr, so
// callers can match on the stderr text (the only way to distinguish most
// git failure modes) without losing the original error for logging.
type RunError struct {
	Args   []string
	Stderr string
	cause  error
}

func newRunError(args []string, cause error, stderr string) *RunError {
	return &RunError{Args: append([]string{}, args...), Stderr: stderr, cause: cause}
}

func (e *RunError) Error() string {
	return "git " + strings.Join(e.Args, " ") + ": " + e.cause.Error()
}

func (e *RunError) Unwrap() error { return e.cause }

func (e *RunError) StderrContains(s string) bool {
	return strings.Contains(e.Stderr, s)
}

// StderrMatches reports whether err is a *RunError (or wraps one) whose
// stderr contains target.
func StderrMatches(err error, target string) bool {
	var runErr *RunError
	if errors.As(err, &runErr) {
		return runErr.StderrContains(target)
	}
	return false
}
