package errs_test

import (
	"context"
	"testing"

	"github.com/lockstep-rebase/lockstep-rebase/internal/lockstep/errs"
	"github.com/stretchr/testify/assert"
)

func TestExitCode(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, 0},
		{"cancelled", context.Canceled, 130},
		{"environment", &errs.EnvironmentError{Kind: "NotAGitRepo"}, 1},
		{"precondition", &errs.PreconditionError{Kind: "DirtyWorktree"}, 1},
		{"plan", &errs.PlanError{Kind: "NoEnabledTasks"}, 1},
		{"rebase conflict", &errs.RebaseConflict{Kind: errs.FileConflict}, 2},
		{"invocation", &errs.InvocationError{Repo: "root"}, 2},
		{"restore", &errs.RestoreError{Repo: "root"}, 2},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, errs.ExitCode(tc.err))
		})
	}
}

func TestRebaseConflict_Error(t *testing.T) {
	fc := &errs.RebaseConflict{Kind: errs.FileConflict, Repo: "root", Paths: []string{"a.txt", "b.txt"}}
	assert.Contains(t, fc.Error(), "root")
	assert.Contains(t, fc.Error(), "a.txt")

	us := &errs.RebaseConflict{
		Kind: errs.UnresolvableSubmoduleConflict, Repo: "root", Path: "vendor/child",
		OursSha: "aaa", TheirsSha: "bbb",
	}
	assert.Contains(t, us.Error(), "vendor/child")
	assert.Contains(t, us.Error(), "aaa")
}

func TestInvocationError_FormatsCommandLine(t *testing.T) {
	e := &errs.InvocationError{Repo: "root", Args: []string{"rebase", "--continue"}, Stderr: "conflict"}
	assert.Contains(t, e.Error(), "rebase --continue")
	assert.Contains(t, e.Error(), "root")
	assert.Contains(t, e.Error(), "conflict")
}
