package orchestrator

import (
	"context"
	"fmt"

	"emperror.dev/errors"
	"github.com/lockstep-rebase/lockstep-rebase/internal/git"
)

// ForcePushResult is one branch's outcome from OfferForcePush.
type ForcePushResult struct {
	RepoRel string
	Branch  string
	Pushed  bool
}

// OfferForcePush compares each rewritten branch's local tip to its upstream
// and, after an exact confirmation phrase, force-with-lease pushes it
// (§4.E "Force-push offer").
func (o *Orchestrator) OfferForcePush(ctx context.Context, plan *Plan) ([]ForcePushResult, error) {
	var results []ForcePushResult
	for _, task := range plan.Tasks {
		if !task.Enabled {
			continue
		}
		gw := o.gateway(task.RepoRel)

		ahead, behind, err := aheadBehind(ctx, gw, task.Source, o.Remote)
		if err != nil {
			return nil, err
		}
		if ahead == 0 && behind == 0 {
			continue
		}

		confirmed, err := o.UserAgent.ConfirmForcePush(task.Source, ahead, behind)
		if err != nil {
			return nil, err
		}
		res := ForcePushResult{RepoRel: task.RepoRel, Branch: task.Source}
		if confirmed {
			if _, err := gw.Git(ctx, "push", "--force-with-lease", o.Remote, task.Source); err != nil {
				return nil, errors.WrapIff(err, "force-push of %q in %q failed", task.Source, task.RepoRel)
			}
			res.Pushed = true
		}
		results = append(results, res)
	}
	return results, nil
}

// aheadBehind returns how many commits branch is ahead/behind of
// remote/branch using `rev-list --left-right --count`.
func aheadBehind(ctx context.Context, gw *git.Repo, branch, remote string) (ahead, behind int, err error) {
	out, err := gw.Git(ctx, "rev-list", "--left-right", "--count", branch+"..."+remote+"/"+branch)
	if err != nil {
		return 0, 0, err
	}
	if _, err := fmt.Sscanf(out, "%d\t%d", &ahead, &behind); err != nil {
		return 0, 0, errors.WrapIff(err, "failed to parse rev-list output %q", out)
	}
	return ahead, behind, nil
}
