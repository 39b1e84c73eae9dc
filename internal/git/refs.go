package git

import (
	"context"
	"strings"

	"emperror.dev/errors"
)

// BackupBranchPrefix is the namespace all session backup refs live under
// (§6: "lockstep/backup/<original-branch>/<session-id>").
const BackupBranchPrefix = "lockstep/backup/"

// BackupBranch is one backup ref discovered under BackupBranchPrefix.
type BackupBranch struct {
	Name             string
	OriginalBranch   string
	SessionID        string
	Tip              string
}

// ListBackupBranches lists every ref under BackupBranchPrefix, parsed into
// its original branch and session components. Listing is a deterministic
// function of the set of refs (§8 property 7).
func (r *Repo) ListBackupBranches(ctx context.Context) ([]BackupBranch, error) {
	out, err := r.Run(ctx, &RunOpts{
		Args: []string{
			"for-each-ref",
			"--format=%(refname:short)%00%(objectname)",
			"refs/heads/" + BackupBranchPrefix,
		},
		ExitError: true,
	})
	if err != nil {
		return nil, err
	}
	var result []BackupBranch
	for _, line := range out.Lines() {
		parts := strings.SplitN(line, "\x00", 2)
		if len(parts) != 2 {
			return nil, errors.Errorf("failed to parse for-each-ref output: %q", line)
		}
		name, tip := parts[0], parts[1]
		rest := strings.TrimPrefix(name, BackupBranchPrefix)
		idx := strings.LastIndex(rest, "/")
		if idx < 0 {
			continue
		}
		result = append(result, BackupBranch{
			Name:           name,
			OriginalBranch: rest[:idx],
			SessionID:      rest[idx+1:],
			Tip:            tip,
		})
	}
	return result, nil
}
