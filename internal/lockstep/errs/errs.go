// Package errs is the error taxonomy shared by every lockstep-rebase
// component. Only the outermost CLI layer (cmd/lockstep-rebase) converts
// these into exit codes and user-facing messages; everything below returns
// them as plain Go errors, wrapped with emperror.dev/errors where extra
// context helps.
package errs

import (
	"context"
	"errors"
	"fmt"

	"github.com/lockstep-rebase/lockstep-rebase/internal/utils/executils"
)

// EnvironmentError covers failures detected before any plan exists: the
// working directory isn't usable at all.
type EnvironmentError struct {
	Kind string // "NotAGitRepo" | "GitBinaryMissing"
	Detail string
}

func (e *EnvironmentError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
}

// PreconditionError covers fatal failures found during plan validation,
// before any state has been mutated.
type PreconditionError struct {
	Kind string // "DirtyWorktree" | "RebaseInProgress" | "BranchMissing" | "AmbiguousRepoRef"
	Repo   string
	Detail string
}

func (e *PreconditionError) Error() string {
	if e.Repo == "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
	}
	return fmt.Sprintf("%s (%s): %s", e.Kind, e.Repo, e.Detail)
}

// PlanError covers fatal failures while constructing a Plan from a
// Hierarchy.
type PlanError struct {
	Kind   string // "NoEnabledTasks" | "SubmoduleNotInitialized" | "CycleDetected"
	Detail string
}

func (e *PlanError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
}

// RebaseConflictKind distinguishes the three ways a rebase stop can be
// handled.
type RebaseConflictKind int

const (
	// SubmodulePointerConflict is auto-resolvable iff the needed child
	// commit map entry exists.
	SubmodulePointerConflict RebaseConflictKind = iota
	// FileConflict is always surfaced to the human.
	FileConflict
	// UnresolvableSubmoduleConflict is fatal for the session.
	UnresolvableSubmoduleConflict
)

func (k RebaseConflictKind) String() string {
	switch k {
	case SubmodulePointerConflict:
		return "SubmodulePointerConflict"
	case FileConflict:
		return "FileConflict"
	case UnresolvableSubmoduleConflict:
		return "UnresolvableSubmoduleConflict"
	default:
		return "unknown"
	}
}

// RebaseConflict is recoverable (FileConflict, SubmodulePointerConflict) or
// fatal for the session (UnresolvableSubmoduleConflict).
type RebaseConflict struct {
	Kind RebaseConflictKind
	Repo string
	// Path is set for submodule-kind conflicts.
	Path string
	OursSha, TheirsSha string
	// Paths is set for FileConflict.
	Paths []string
}

func (e *RebaseConflict) Error() string {
	switch e.Kind {
	case UnresolvableSubmoduleConflict:
		return fmt.Sprintf(
			"unresolvable submodule conflict in %s at %s (ours=%s theirs=%s): no child commit map entry for either side",
			e.Repo, e.Path, e.OursSha, e.TheirsSha,
		)
	case FileConflict:
		return fmt.Sprintf("file conflicts pending in %s: %v", e.Repo, e.Paths)
	default:
		return fmt.Sprintf("submodule pointer conflict in %s at %s", e.Repo, e.Path)
	}
}

// InvocationError wraps a non-zero git exit whose stderr is attached
// verbatim. Fatal for the current task; the session transitions FAILED.
type InvocationError struct {
	Repo   string
	Args   []string
	Stderr string
}

func (e *InvocationError) Error() string {
	return fmt.Sprintf("git %s failed in %s: %s", executils.FormatCommandLine(e.Args), e.Repo, e.Stderr)
}

// RestoreError is reported per-repo during a restore; other repos continue.
type RestoreError struct {
	Repo   string
	Branch string
	Detail string
}

func (e *RestoreError) Error() string {
	return fmt.Sprintf("restore failed for %s (%s): %s", e.Repo, e.Branch, e.Detail)
}

// ExitCode maps an error returned from the orchestrator to the process exit
// code defined in §6: 0 success, 1 plan/validation failure before any write,
// 2 rebase failed after writes began, 130 user interrupt.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	if errors.Is(err, context.Canceled) {
		return 130
	}
	var (
		conflict   *RebaseConflict
		invocation *InvocationError
		restore    *RestoreError
	)
	if errors.As(err, &conflict) || errors.As(err, &invocation) || errors.As(err, &restore) {
		return 2
	}
	return 1
}
