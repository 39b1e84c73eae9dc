package git

import (
	"context"
	"strings"

	"emperror.dev/errors"
	gogitconfig "github.com/go-git/go-git/v5/plumbing/format/config"
)

// SubmoduleEntry is one gitlink recorded in the committed tree at HEAD
// (§3 SubmoduleLink.recorded_sha, §4.A submodule_entries()).
type SubmoduleEntry struct {
	Path         string
	RecordedSha  string
	// Initialized reports whether the submodule's worktree is present on
	// disk (§4.B step 2: "check it is initialized").
	Initialized bool
}

// SubmoduleEntries reads the committed tree at ref (typically HEAD) and
// returns every path with git mode 160000. Only those gitlinks are returned:
// a path declared in .gitmodules without a gitlink at ref is not included.
func (r *Repo) SubmoduleEntries(ctx context.Context, ref string) ([]SubmoduleEntry, error) {
	out, err := r.Run(ctx, &RunOpts{
		Args:      []string{"ls-tree", "-r", ref},
		ExitError: true,
	})
	if err != nil {
		return nil, err
	}

	declared, err := r.declaredSubmodulePaths(ctx, ref)
	if err != nil {
		// .gitmodules may legitimately not exist; that's not fatal, we
		// still trust the gitlinks found in the tree.
		declared = nil
	}
	declaredSet := map[string]bool{}
	for _, p := range declared {
		declaredSet[p] = true
	}

	var entries []SubmoduleEntry
	for _, line := range out.Lines() {
		// "<mode> <type> <sha>\t<path>"
		meta, path, ok := strings.Cut(line, "\t")
		if !ok {
			continue
		}
		fields := strings.Fields(meta)
		if len(fields) != 3 || fields[0] != submoduleMode {
			continue
		}
		delete(declaredSet, path)
		initialized := r.submoduleWorktreeInitialized(path)
		entries = append(entries, SubmoduleEntry{
			Path:        path,
			RecordedSha: fields[2],
			Initialized: initialized,
		})
	}
	// Anything still in declaredSet is declared in .gitmodules but has no
	// gitlink entry at ref (e.g. added to .gitmodules but never `git add`ed)
	// -- not a submodule_entries() result, so it is dropped here and no
	// caller sees it.
	return entries, nil
}

func (r *Repo) declaredSubmodulePaths(ctx context.Context, ref string) ([]string, error) {
	blob, err := r.Git(ctx, "cat-file", "blob", ref+":.gitmodules")
	if err != nil {
		return nil, err
	}
	dec := gogitconfig.NewDecoder(strings.NewReader(blob))
	cfg := gogitconfig.New()
	if err := dec.Decode(cfg); err != nil {
		return nil, errors.WrapIf(err, "failed to parse .gitmodules")
	}
	var paths []string
	for _, s := range cfg.Sections {
		if s.Name != "submodule" {
			continue
		}
		for _, sub := range s.Subsections {
			if p := sub.Option("path"); p != "" {
				paths = append(paths, p)
			}
		}
	}
	return paths, nil
}

func (r *Repo) submoduleWorktreeInitialized(path string) bool {
	_, err := OpenRepo(r.repoDir + "/" + path)
	return err == nil
}
