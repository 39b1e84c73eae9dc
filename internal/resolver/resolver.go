// Package resolver implements the Conflict Resolver: on a rebase stop, it
// classifies the index conflict and auto-resolves submodule pointer
// conflicts by consulting child repos' Commit Trackers (§4.D).
package resolver

import (
	"context"

	"github.com/lockstep-rebase/lockstep-rebase/internal/git"
	"github.com/lockstep-rebase/lockstep-rebase/internal/hierarchy"
	"github.com/lockstep-rebase/lockstep-rebase/internal/lockstep/errs"
	"github.com/lockstep-rebase/lockstep-rebase/internal/tracker"
)

// Resolver resolves conflicts for one repo's in-progress rebase, consulting
// the Commit Trackers of that repo's submodule children.
type Resolver struct {
	repo       *git.Repo
	repoRel    string
	links      []hierarchy.SubmoduleLink
	trackers   *tracker.Set
}

// New builds a Resolver for repo, whose submodule links (to identify which
// child Tracker backs each conflicted path) are given by links.
func New(repo *git.Repo, repoRel string, links []hierarchy.SubmoduleLink, trackers *tracker.Set) *Resolver {
	return &Resolver{repo: repo, repoRel: repoRel, links: links, trackers: trackers}
}

func (r *Resolver) childPath(path string) (hierarchy.SubmoduleLink, bool) {
	for _, l := range r.links {
		if l.PathInParent == path {
			return l, true
		}
	}
	return hierarchy.SubmoduleLink{}, false
}

// Outcome is what the Resolver decided to do after inspecting one stop.
type Outcome struct {
	// Continued is true if rebase_continue was issued and Result carries
	// its outcome.
	Continued bool
	Result    git.RebaseOutcome
	// FilePaths is non-empty when file conflicts remain and the human must
	// be consulted (§4.D "FileConflictsPending").
	FilePaths []string
}

// Resolve handles one rebase stop: auto-resolves every submodule conflict
// it can, and either continues the rebase (no file conflicts remain) or
// reports the pending file paths.
func (r *Resolver) Resolve(ctx context.Context) (Outcome, error) {
	cs, err := r.repo.IndexConflicts(ctx)
	if err != nil {
		return Outcome{}, err
	}

	for _, sc := range cs.SubmoduleEntries {
		link, ok := r.childPath(sc.Path)
		if !ok {
			return Outcome{}, &errs.RebaseConflict{
				Kind: errs.UnresolvableSubmoduleConflict,
				Repo: r.repoRel, Path: sc.Path,
				OursSha: sc.OursSha, TheirsSha: sc.TheirsSha,
			}
		}
		childTracker, _ := r.trackers.Get(link.Child.RelPath)

		var resolved string
		if childTracker != nil {
			if newSha, ok := childTracker.Lookup(sc.TheirsSha); ok {
				resolved = newSha
			}
		}
		if resolved == "" && sc.OursSha != "" {
			// The submodule wasn't actually touched on the feature side;
			// keep the target's pointer (§4.D step 3).
			resolved = sc.OursSha
		}
		if resolved == "" {
			return Outcome{}, &errs.RebaseConflict{
				Kind: errs.UnresolvableSubmoduleConflict,
				Repo: r.repoRel, Path: sc.Path,
				OursSha: sc.OursSha, TheirsSha: sc.TheirsSha,
			}
		}
		if err := r.repo.WriteSubmodulePointer(ctx, sc.Path, resolved); err != nil {
			return Outcome{}, err
		}
	}

	if len(cs.FileEntries) > 0 {
		return Outcome{FilePaths: cs.FileEntries}, nil
	}

	outcome, _, err := r.repo.RebaseContinue(ctx)
	if err != nil {
		return Outcome{}, err
	}
	return Outcome{Continued: true, Result: outcome}, nil
}

// ResumeAfterHumanResolution is called once the human signals they have
// finished resolving the outstanding file conflicts. It refuses to continue
// if any of paths remain unstaged or unmerged, re-surfacing the list
// instead (§4.D: Resolver is re-entrant on the same task).
func (r *Resolver) ResumeAfterHumanResolution(ctx context.Context, paths []string) (Outcome, error) {
	cs, err := r.repo.IndexConflicts(ctx)
	if err != nil {
		return Outcome{}, err
	}
	if len(cs.FileEntries) > 0 {
		return Outcome{FilePaths: cs.FileEntries}, nil
	}
	outcome, _, err := r.repo.RebaseContinue(ctx)
	if err != nil {
		return Outcome{}, err
	}
	return Outcome{Continued: true, Result: outcome}, nil
}
