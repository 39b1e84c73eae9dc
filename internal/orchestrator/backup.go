package orchestrator

import (
	"context"
	"fmt"

	"emperror.dev/errors"
	"github.com/lockstep-rebase/lockstep-rebase/internal/git"
	"github.com/lockstep-rebase/lockstep-rebase/internal/utils/cleanup"
)

// BackupSet is every backup branch created for a session, enough to drive a
// later restore without re-deriving which (repo, branch) pairs were backed
// up.
type BackupSet struct {
	SessionID string
	Refs      []BackedUpRef
}

type BackedUpRef struct {
	RepoRel       string
	OriginalBranch string
	BackupBranch  string
	TipAtBackup   string
}

// Backup creates `lockstep/backup/<branch>/<session_id>` at the current tip
// of every enabled task's source branch, before any rebase runs. Failure to
// create any backup aborts the session with no state changes (§4.E
// "Backup").
func (o *Orchestrator) Backup(ctx context.Context, plan *Plan) (*BackupSet, error) {
	o.phase = PhaseBackingUp

	// If backup creation fails partway through, delete whatever backup
	// branches this call already created rather than leaving a half
	// complete set that `backups list` would misreport as covering the
	// whole plan.
	var rollback cleanup.Cleanup
	defer rollback.Cleanup()

	set := &BackupSet{SessionID: plan.SessionID}
	for _, task := range plan.Tasks {
		if !task.Enabled {
			continue
		}
		gw := o.gateway(task.RepoRel)

		tip, err := gw.RevParse(ctx, task.Source)
		if err != nil {
			return nil, errors.WrapIff(err, "failed to resolve %q in %q for backup", task.Source, task.RepoRel)
		}
		backupName := BackupBranchName(task.Source, plan.SessionID)
		if err := gw.CreateBackupBranch(ctx, backupName, tip); err != nil {
			return nil, errors.WrapIff(err, "failed to create backup branch for %q in %q", task.Source, task.RepoRel)
		}
		rollback.Add(func() { _ = gw.DeleteBranch(ctx, backupName, true) })
		set.Refs = append(set.Refs, BackedUpRef{
			RepoRel:        task.RepoRel,
			OriginalBranch: task.Source,
			BackupBranch:   backupName,
			TipAtBackup:    tip,
		})
	}
	rollback.Cancel()
	return set, nil
}

// BackupBranchName computes the backup ref name Backup will create for
// branch under sessionID, so callers (e.g. `plan`'s preview) can show it
// before any backup actually exists.
func BackupBranchName(branch, sessionID string) string {
	return fmt.Sprintf("%s%s/%s", git.BackupBranchPrefix, branch, sessionID)
}
