// Package hierarchy implements the Hierarchy Mapper: starting from a working
// directory, it locates the root of a tree of repositories linked by
// submodule pointers and builds an execution-ordered Hierarchy.
package hierarchy

import (
	"context"
	"path/filepath"
	"sort"
	"strings"

	"github.com/lockstep-rebase/lockstep-rebase/internal/git"
	"github.com/lockstep-rebase/lockstep-rebase/internal/lockstep/errs"
	"github.com/lockstep-rebase/lockstep-rebase/internal/utils/sliceutils"
)

// RepoId identifies one repository node in a Hierarchy.
type RepoId struct {
	// AbsPath is the repository's working tree root.
	AbsPath string
	// RelPath is its path relative to the hierarchy root ("" for root).
	RelPath string
}

func (id RepoId) String() string { return id.RelPath }

// SubmoduleLink is one gitlink connecting a parent repo to a child.
type SubmoduleLink struct {
	Parent       RepoId
	Child        RepoId
	PathInParent string
	RecordedSha  string
}

// RepoInfo is one node of the Hierarchy, snapshotted at discovery time.
type RepoInfo struct {
	Id            RepoId
	Parent        *RepoId
	Submodules    []SubmoduleLink
	HeadBefore    string
	CurrentBranch string // empty if detached
	// Warnings records non-fatal discovery issues (e.g. an uninitialized
	// submodule worktree), logged as warnings by orchestrator.New but not
	// fatal for discovery itself (§4.B step 2, §9 open question b).
	Warnings []string
}

// Hierarchy is the rooted tree of repositories discovered from a starting
// directory, with a total order produced by post-order traversal.
type Hierarchy struct {
	Root  RepoId
	Nodes map[RepoId]*RepoInfo
	// Order lists every RepoId in execution order: deepest repos first,
	// ties broken lexicographically by RelPath.
	Order []RepoId
}

// Discover walks upward from startDir to find the hierarchy root, then
// recursively enumerates submodules to build the full Hierarchy (§4.B).
func Discover(ctx context.Context, startDir string) (*Hierarchy, error) {
	rootDir, err := findRoot(ctx, startDir)
	if err != nil {
		return nil, err
	}

	h := &Hierarchy{Nodes: map[RepoId]*RepoInfo{}}
	rootId := RepoId{AbsPath: rootDir, RelPath: ""}
	h.Root = rootId
	visiting := map[string]bool{}
	if err := discoverNode(ctx, h, rootId, nil, visiting); err != nil {
		return nil, err
	}
	h.Order = postOrder(h)
	return h, nil
}

// findRoot walks upward from startDir until it finds a directory with a git
// marker whose own parent does not record it as a submodule; that highest
// ancestor is the hierarchy root (§4.B step 1).
func findRoot(ctx context.Context, startDir string) (string, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", err
	}
	repo, err := git.OpenRepo(dir)
	if err != nil {
		return "", &errs.EnvironmentError{Kind: "NotAGitRepo", Detail: err.Error()}
	}
	current := repo.Dir()
	for {
		parentDir := filepath.Dir(current)
		if parentDir == current {
			return current, nil
		}
		parentRepo, err := git.OpenRepo(parentDir)
		if err != nil {
			// No enclosing repo: current is the root.
			return current, nil
		}
		rel, err := filepath.Rel(parentRepo.Dir(), current)
		if err != nil {
			return current, nil
		}
		rel = filepath.ToSlash(rel)
		entries, err := parentRepo.SubmoduleEntries(ctx, "HEAD")
		if err != nil {
			return current, nil
		}
		paths := make([]string, len(entries))
		for i, e := range entries {
			paths[i] = e.Path
		}
		if !sliceutils.Contains(paths, rel) {
			return current, nil
		}
		current = parentRepo.Dir()
	}
}

func discoverNode(
	ctx context.Context,
	h *Hierarchy,
	id RepoId,
	parent *RepoId,
	visiting map[string]bool,
) error {
	if visiting[id.AbsPath] {
		return &errs.PlanError{Kind: "CycleDetected", Detail: id.RelPath}
	}
	visiting[id.AbsPath] = true
	defer delete(visiting, id.AbsPath)

	repo, err := git.OpenRepo(id.AbsPath)
	if err != nil {
		return &errs.EnvironmentError{Kind: "NotAGitRepo", Detail: err.Error()}
	}

	head, err := repo.RevParse(ctx, "HEAD")
	if err != nil {
		return err
	}
	branch, err := repo.CurrentBranchName(ctx)
	if err != nil {
		branch = ""
	}

	info := &RepoInfo{Id: id, Parent: parent, HeadBefore: head, CurrentBranch: branch}
	h.Nodes[id] = info

	entries, err := repo.SubmoduleEntries(ctx, "HEAD")
	if err != nil {
		return err
	}
	for _, e := range entries {
		childId := RepoId{
			AbsPath: filepath.Join(id.AbsPath, filepath.FromSlash(e.Path)),
			RelPath: joinRel(id.RelPath, e.Path),
		}
		link := SubmoduleLink{
			Parent:       id,
			Child:        childId,
			PathInParent: e.Path,
			RecordedSha:  e.RecordedSha,
		}
		info.Submodules = append(info.Submodules, link)

		if !e.Initialized {
			info.Warnings = append(
				info.Warnings,
				"submodule "+e.Path+" is not initialized; skipping discovery below it",
			)
			continue
		}
		if err := discoverNode(ctx, h, childId, &id, visiting); err != nil {
			return err
		}
	}
	return nil
}

func joinRel(parentRel, path string) string {
	if parentRel == "" {
		return path
	}
	return parentRel + "/" + path
}

// postOrder computes the deepest-first, lexicographically-tiebroken
// execution order required by §4.B step 3 and §8 property 3: no repo
// appears before any of its enabled descendants.
func postOrder(h *Hierarchy) []RepoId {
	var order []RepoId
	var visit func(id RepoId)
	visit = func(id RepoId) {
		info := h.Nodes[id]
		children := make([]SubmoduleLink, len(info.Submodules))
		copy(children, info.Submodules)
		sort.Slice(children, func(i, j int) bool {
			return children[i].PathInParent < children[j].PathInParent
		})
		for _, link := range children {
			if _, ok := h.Nodes[link.Child]; ok {
				visit(link.Child)
			}
		}
		order = append(order, id)
	}
	visit(h.Root)
	return order
}

// Node looks up a RepoId by a user-supplied reference: its RelPath, its
// AbsPath, or the base name of its AbsPath. Ambiguity between two distinct
// nodes sharing a base name is reported to the caller so it can raise
// AmbiguousRepoRef.
func (h *Hierarchy) Node(ref string) (*RepoInfo, []RepoId) {
	ref = strings.TrimSuffix(filepath.ToSlash(ref), "/")
	var matches []RepoId
	for id := range h.Nodes {
		if id.RelPath == ref || id.AbsPath == ref || filepath.Base(id.AbsPath) == ref {
			matches = append(matches, id)
		}
	}
	if len(matches) != 1 {
		return nil, matches
	}
	return h.Nodes[matches[0]], matches
}
