package git

import (
	"context"
	"strconv"
	"strings"

	"emperror.dev/errors"
)

const submoduleMode = "160000"

// SubmoduleConflict is one `path` where both sides of a rebase stop
// disagree on the submodule pointer (§3 ConflictSet).
type SubmoduleConflict struct {
	Path string
	// OursSha is the pointer from the target side (stage 2: HEAD, the
	// commit the rebase is replaying on top of).
	OursSha string
	// TheirsSha is the pointer from the source side (stage 3: the feature
	// commit being replayed).
	TheirsSha string
}

// ConflictSet is the classified content of an in-progress rebase's
// unmerged index entries (§3, §4.D).
type ConflictSet struct {
	SubmoduleEntries []SubmoduleConflict
	FileEntries      []string
}

func (c ConflictSet) SubmoduleOnly() bool { return len(c.FileEntries) == 0 }

// unmergedEntry is one line of `git ls-files --unmerged`:
// "<mode> <object> <stage>\t<path>"
type unmergedEntry struct {
	mode  string
	oid   string
	stage int
	path  string
}

// IndexConflicts reads the unmerged index entries of a paused rebase and
// classifies each conflicted path by git mode: 160000 (a submodule gitlink)
// is a submodule conflict, anything else is a file conflict (§6: "Conflict
// detection reads unmerged index entries; submodule conflicts are
// recognized by mode 160000").
func (r *Repo) IndexConflicts(ctx context.Context) (ConflictSet, error) {
	out, err := r.Run(ctx, &RunOpts{Args: []string{"ls-files", "--unmerged"}, ExitError: true})
	if err != nil {
		return ConflictSet{}, err
	}

	byPath := map[string][]unmergedEntry{}
	var order []string
	for _, line := range out.Lines() {
		e, err := parseUnmergedLine(line)
		if err != nil {
			return ConflictSet{}, err
		}
		if _, ok := byPath[e.path]; !ok {
			order = append(order, e.path)
		}
		byPath[e.path] = append(byPath[e.path], e)
	}

	var cs ConflictSet
	for _, path := range order {
		entries := byPath[path]
		if entries[0].mode == submoduleMode {
			sc := SubmoduleConflict{Path: path}
			for _, e := range entries {
				switch e.stage {
				case 2:
					sc.OursSha = e.oid
				case 3:
					sc.TheirsSha = e.oid
				}
			}
			cs.SubmoduleEntries = append(cs.SubmoduleEntries, sc)
			continue
		}
		cs.FileEntries = append(cs.FileEntries, path)
	}
	return cs, nil
}

func parseUnmergedLine(line string) (unmergedEntry, error) {
	head, path, ok := strings.Cut(line, "\t")
	if !ok {
		return unmergedEntry{}, errors.Errorf("failed to parse ls-files --unmerged line: %q", line)
	}
	fields := strings.Fields(head)
	if len(fields) != 3 {
		return unmergedEntry{}, errors.Errorf("failed to parse ls-files --unmerged line: %q", line)
	}
	stage, err := strconv.Atoi(fields[2])
	if err != nil {
		return unmergedEntry{}, errors.Errorf("failed to parse ls-files --unmerged stage: %q", line)
	}
	return unmergedEntry{mode: fields[0], oid: fields[1], stage: stage, path: path}, nil
}

// StagePath runs `git add <path>` to mark a conflicted path resolved.
func (r *Repo) StagePath(ctx context.Context, path string) error {
	_, err := r.Git(ctx, "add", "--", path)
	return err
}

// WriteSubmodulePointer sets the worktree's submodule gitlink entry at path
// to sha and stages it (§4.A: "set the worktree's submodule gitlink entry
// at `path` to `sha`, then stage").
func (r *Repo) WriteSubmodulePointer(ctx context.Context, path, sha string) error {
	_, err := r.Git(ctx, "update-index", "--cacheinfo", submoduleMode+","+sha+","+path)
	return err
}
