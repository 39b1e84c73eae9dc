package orchestrator

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/lockstep-rebase/lockstep-rebase/internal/hierarchy"
	"github.com/lockstep-rebase/lockstep-rebase/internal/lockstep/errs"
	"github.com/lockstep-rebase/lockstep-rebase/internal/session"
	"github.com/lockstep-rebase/lockstep-rebase/internal/utils/timeutils"
)

// RepoTask is the effective rebase to perform in one repo (§3).
type RepoTask struct {
	RepoRel string
	Source  string
	Target  string
	Enabled bool
}

// Plan is an ordered, immutable set of RepoTasks for one session (§3).
type Plan struct {
	SessionID      string
	Tasks          []RepoTask
	AutoDiscovered bool
	// Force carries the --force decision through to Validate: a stray
	// rebase left in progress from an earlier, abandoned run is aborted
	// automatically instead of failing precondition checks.
	Force bool
}

// BranchOverride is one --branch-map repo=SRC[:TGT] entry.
type BranchOverride struct {
	Source, Target string
}

// PlanOptions carries every user-facing plan input (§6 "Plan inputs").
type PlanOptions struct {
	GlobalSource string
	GlobalTarget string
	Include      []string
	Exclude      []string
	BranchMap    map[string]BranchOverride
	AutoSelectSubmodules bool
	// Force bypasses the RebaseInProgress precondition: instead of failing
	// validation, a stray in-progress rebase is aborted before continuing,
	// the same way the teacher's CLI uses --force to step past one named
	// blocking check rather than skip preconditions wholesale.
	Force bool
}

func (o *Orchestrator) taskIndex(tasks []RepoTask, repoRel string) int {
	for i, t := range tasks {
		if t.RepoRel == repoRel {
			return i
		}
	}
	return -1
}

// BuildPlan constructs a Plan from the Hierarchy and opts (§4.E "Plan
// construction").
func (o *Orchestrator) BuildPlan(ctx context.Context, opts PlanOptions) (*Plan, error) {
	o.phase = PhaseDiscovered

	tasks := make([]RepoTask, 0, len(o.Hierarchy.Order))
	for _, id := range o.Hierarchy.Order {
		tasks = append(tasks, RepoTask{
			RepoRel: id.RelPath,
			Source:  opts.GlobalSource,
			Target:  opts.GlobalTarget,
			Enabled: true,
		})
	}

	for ref, override := range opts.BranchMap {
		info, matches := o.Hierarchy.Node(ref)
		if info == nil {
			return nil, &errs.PreconditionError{Kind: "AmbiguousRepoRef", Detail: refDetail(ref, matches)}
		}
		i := o.taskIndex(tasks, info.Id.RelPath)
		if override.Source != "" {
			tasks[i].Source = override.Source
		}
		if override.Target != "" {
			tasks[i].Target = override.Target
		}
	}

	if len(opts.Include) > 0 {
		included := map[string]bool{}
		for _, ref := range opts.Include {
			info, matches := o.Hierarchy.Node(ref)
			if info == nil {
				return nil, &errs.PreconditionError{Kind: "AmbiguousRepoRef", Detail: refDetail(ref, matches)}
			}
			included[info.Id.RelPath] = true
			// A parent must be rebased if any of its descendants is.
			for p := info.Parent; p != nil; {
				included[p.RelPath] = true
				parentInfo := o.Hierarchy.Nodes[*p]
				p = parentInfo.Parent
			}
		}
		for i := range tasks {
			tasks[i].Enabled = included[tasks[i].RepoRel]
		}
	}

	for _, ref := range opts.Exclude {
		info, matches := o.Hierarchy.Node(ref)
		if info == nil {
			return nil, &errs.PreconditionError{Kind: "AmbiguousRepoRef", Detail: refDetail(ref, matches)}
		}
		i := o.taskIndex(tasks, info.Id.RelPath)
		tasks[i].Enabled = false
	}

	autoDiscovered := false
	if opts.AutoSelectSubmodules {
		var err error
		tasks, autoDiscovered, err = o.autoDiscoverSubmodules(ctx, tasks)
		if err != nil {
			return nil, err
		}
	}

	if !anyEnabled(tasks) {
		return nil, &errs.PlanError{Kind: "NoEnabledTasks", Detail: "no repository has an enabled task"}
	}

	now := time.Now()
	sessionID, err := session.NewID(now)
	if err != nil {
		return nil, err
	}
	o.Log.WithField("started_at", timeutils.FormatLocal(now)).
		Infof("built plan for session %s (%d task(s))", sessionID, len(tasks))

	o.phase = PhasePlanned
	return &Plan{SessionID: sessionID, Tasks: tasks, AutoDiscovered: autoDiscovered, Force: opts.Force}, nil
}

func anyEnabled(tasks []RepoTask) bool {
	for _, t := range tasks {
		if t.Enabled {
			return true
		}
	}
	return false
}

func refDetail(ref string, matches []hierarchy.RepoId) string {
	paths := make([]string, len(matches))
	for i, m := range matches {
		paths[i] = m.RelPath
	}
	sort.Strings(paths)
	return ref + " matches " + strings.Join(paths, ", ")
}

// autoDiscoverSubmodules proposes including submodules with a changed
// pointer between task.Target and task.Source for every enabled parent
// task, asking the user per-submodule (§4.E "Auto-discovery").
func (o *Orchestrator) autoDiscoverSubmodules(
	ctx context.Context,
	tasks []RepoTask,
) ([]RepoTask, bool, error) {
	discoveredAny := false
	for _, parentTask := range append([]RepoTask(nil), tasks...) {
		if !parentTask.Enabled {
			continue
		}
		info := o.nodeByRelPath(parentTask.RepoRel)
		if info == nil {
			continue
		}
		gw := o.gateway(parentTask.RepoRel)
		for _, link := range info.Submodules {
			i := o.taskIndex(tasks, link.Child.RelPath)
			if i < 0 || tasks[i].Enabled {
				continue
			}
			changed, err := submodulePointerChanged(ctx, gw, parentTask.Target, parentTask.Source, link.PathInParent)
			if err != nil {
				return nil, false, err
			}
			if !changed {
				continue
			}
			suggestedSrc, suggestedTgt := parentTask.Source, parentTask.Target
			decision, err := o.UserAgent.PromptAutoDiscoveredSubmodule(link.PathInParent, suggestedSrc, suggestedTgt)
			if err != nil {
				return nil, false, err
			}
			if !decision.Include {
				continue
			}
			tasks[i].Enabled = true
			tasks[i].Source = decision.Source
			tasks[i].Target = decision.Target
			discoveredAny = true
		}
	}
	return tasks, discoveredAny, nil
}

func submodulePointerChanged(
	ctx context.Context,
	gw interface {
		Git(ctx context.Context, args ...string) (string, error)
	},
	target, source, path string,
) (bool, error) {
	out, err := gw.Git(ctx, "diff", "--submodule=short", target+".."+source, "--", path)
	if err != nil {
		return false, err
	}
	return strings.TrimSpace(out) != "", nil
}

func (o *Orchestrator) nodeByRelPath(relPath string) *hierarchy.RepoInfo {
	for id, info := range o.Hierarchy.Nodes {
		if id.RelPath == relPath {
			return info
		}
	}
	return nil
}
