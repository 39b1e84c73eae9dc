package orchestrator

import (
	"sort"

	"github.com/lockstep-rebase/lockstep-rebase/internal/session"
)

// DriftReport is the result of diffing the hierarchy snapshot recorded for
// an in-flight session against the hierarchy re-derived right now.
type DriftReport struct {
	Added   []string
	Removed []string
}

// Empty reports whether no drift was found.
func (r *DriftReport) Empty() bool {
	return r == nil || (len(r.Added) == 0 && len(r.Removed) == 0)
}

// DetectDrift re-derives which repos plan currently touches and diffs that
// against the hierarchy snapshot recorded when sessionID started executing,
// so `validate` can report a submodule added or removed mid-session. It
// returns (nil, nil) if sessionID is empty or no in-flight session with a
// recorded snapshot is found anywhere in the hierarchy.
func (o *Orchestrator) DetectDrift(plan *Plan, sessionID string) (*DriftReport, error) {
	if sessionID == "" {
		return nil, nil
	}

	var snapshot []string
	found := false
	for _, gw := range o.gateways {
		st, err := session.Load(gw.GitDir())
		if err != nil {
			return nil, err
		}
		if st != nil && st.SessionID == sessionID && len(st.HierarchySnapshot) > 0 {
			snapshot = st.HierarchySnapshot
			found = true
			break
		}
	}
	if !found {
		return nil, nil
	}

	current := map[string]bool{}
	for _, t := range plan.Tasks {
		if t.Enabled {
			current[t.RepoRel] = true
		}
	}
	before := map[string]bool{}
	for _, r := range snapshot {
		before[r] = true
	}

	var report DriftReport
	for r := range current {
		if !before[r] {
			report.Added = append(report.Added, r)
		}
	}
	for r := range before {
		if !current[r] {
			report.Removed = append(report.Removed, r)
		}
	}
	sort.Strings(report.Added)
	sort.Strings(report.Removed)
	return &report, nil
}
