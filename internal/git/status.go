package git

import (
	"context"
	"regexp"
	"strings"
)

// Status is the status of the git repository.
//
// This uses the same format as the `git status --porcelain=v2` command. See
// https://git-scm.com/docs/git-status#_porcelain_format_version_2 for the
// details.
type Status struct {
	// CurrentBranch is the name of the current branch, without
	// 'refs/heads/'. Empty if the repository is in detached HEAD state.
	CurrentBranch string

	UnstagedTrackedFiles []string
	StagedTrackedFiles   []string
	UnmergedFiles        []string
	UntrackedFiles       []string
}

// IsCleanIgnoringUntracked reports whether there are no staged, unstaged,
// or unmerged changes (untracked files are allowed).
func (st Status) IsCleanIgnoringUntracked() bool {
	return len(st.UnstagedTrackedFiles) == 0 && len(st.StagedTrackedFiles) == 0 &&
		len(st.UnmergedFiles) == 0
}

var (
	patternBranchHead = regexp.MustCompile(`# branch\.head (.+)`)
	patternFile1      = regexp.MustCompile(
		`1 (..) .... ...... ...... ...... [0-9a-f]+ [0-9a-f]+ (.+)`,
	)
	patternFile2 = regexp.MustCompile(
		`2 (..) .... ...... ...... ...... [0-9a-f]+ [0-9a-f]+ .+ (.+)\t.+`,
	)
	patternFileUnmerged  = regexp.MustCompile(`u .. .... ...... ...... ...... .... [0-9a-f]+ [0-9a-f]+ [0-9a-f]+ (.+)`)
	patternFileUntracked = regexp.MustCompile(`\? (.+)`)
)

// Status reads the current index/worktree state of the repository. This
// backs is_clean(); the unmerged paths of a rebase stop are read instead by
// IndexConflicts, which uses `ls-files --unmerged` directly for the mode
// information porcelain v2 doesn't expose compactly (see conflicts.go).
func (r *Repo) Status(ctx context.Context) (Status, error) {
	body, err := r.Git(ctx, "status", "--porcelain=v2", "--branch", "--untracked-files")
	if err != nil {
		return Status{}, err
	}
	var st Status
	for _, line := range strings.Split(body, "\n") {
		parseStatusLine(line, &st)
	}
	return st, nil
}

// IsClean reports whether the worktree has no unstaged changes, no
// untracked-but-unignored blocking files, and no in-progress rebase/merge
// (§4.A).
func (r *Repo) IsClean(ctx context.Context) (bool, error) {
	if r.InProgress() {
		return false, nil
	}
	st, err := r.Status(ctx)
	if err != nil {
		return false, err
	}
	return st.IsCleanIgnoringUntracked() && len(st.UntrackedFiles) == 0, nil
}

func parseStatusLine(line string, st *Status) {
	if matches := patternBranchHead.FindStringSubmatch(line); len(matches) > 0 {
		if matches[1] != "(detached)" {
			st.CurrentBranch = matches[1]
		}
		return
	}
	if matches := patternFile1.FindStringSubmatch(line); len(matches) > 0 {
		recordFileXY(matches[1], matches[2], st)
		return
	}
	if matches := patternFile2.FindStringSubmatch(line); len(matches) > 0 {
		recordFileXY(matches[1], matches[2], st)
		return
	}
	if matches := patternFileUnmerged.FindStringSubmatch(line); len(matches) > 0 {
		st.UnmergedFiles = append(st.UnmergedFiles, matches[1])
		return
	}
	if matches := patternFileUntracked.FindStringSubmatch(line); len(matches) > 0 {
		st.UntrackedFiles = append(st.UntrackedFiles, matches[1])
		return
	}
}

func recordFileXY(xy, path string, st *Status) {
	if xy[0] != '.' {
		st.StagedTrackedFiles = append(st.StagedTrackedFiles, path)
	}
	if xy[1] != '.' {
		st.UnstagedTrackedFiles = append(st.UnstagedTrackedFiles, path)
	}
}
