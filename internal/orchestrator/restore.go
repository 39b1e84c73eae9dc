package orchestrator

import (
	"context"

	"github.com/lockstep-rebase/lockstep-rebase/internal/lockstep/errs"
)

// RestoreResult reports, per repo, whether its backup ref for a session was
// applied.
type RestoreResult struct {
	RepoRel string
	Branch  string
	Applied bool
	Err     error
}

// Restore locates every BackupRef with the given session id across the
// hierarchy and force-updates the original branch back to its backed-up
// tip. A repo with no backup ref for the session yields no result, so a
// missing backup is not reported; a failed update is recorded on that
// repo's result and restore continues best-effort (§4.E "Restore").
func (o *Orchestrator) Restore(ctx context.Context, sessionID string) ([]RestoreResult, error) {
	var results []RestoreResult
	for repoRel, gw := range o.gateways {
		backups, err := gw.ListBackupBranches(ctx)
		if err != nil {
			return nil, err
		}
		for _, b := range backups {
			if b.SessionID != sessionID {
				continue
			}
			err := gw.ForceUpdateBranch(ctx, b.OriginalBranch, b.Tip)
			res := RestoreResult{RepoRel: repoRel, Branch: b.OriginalBranch}
			if err != nil {
				res.Err = &errs.RestoreError{Repo: repoRel, Branch: b.OriginalBranch, Detail: err.Error()}
			} else {
				res.Applied = true
			}
			results = append(results, res)
		}
	}
	o.phase = PhaseRestored
	return results, nil
}

// ListBackupSessions returns every distinct session id with at least one
// backup branch across the hierarchy, for `backups list`.
func (o *Orchestrator) ListBackupSessions(ctx context.Context) (map[string][]string, error) {
	bySession := map[string][]string{}
	for repoRel, gw := range o.gateways {
		backups, err := gw.ListBackupBranches(ctx)
		if err != nil {
			return nil, err
		}
		for _, b := range backups {
			bySession[b.SessionID] = append(bySession[b.SessionID], repoRel+":"+b.OriginalBranch)
		}
	}
	return bySession, nil
}

// DeleteBackups force-deletes every backup branch for sessionID across the
// hierarchy.
func (o *Orchestrator) DeleteBackups(ctx context.Context, sessionID string) error {
	for _, gw := range o.gateways {
		backups, err := gw.ListBackupBranches(ctx)
		if err != nil {
			return err
		}
		for _, b := range backups {
			if b.SessionID != sessionID {
				continue
			}
			if err := gw.DeleteBranch(ctx, b.Name, true); err != nil {
				return err
			}
		}
	}
	return nil
}
