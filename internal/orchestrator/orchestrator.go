// Package orchestrator implements the Rebase Orchestrator: plan
// construction, session backup, bottom-up execution with conflict
// auto-resolution, and restore (§4.E).
package orchestrator

import (
	"context"

	"emperror.dev/errors"
	"github.com/lockstep-rebase/lockstep-rebase/internal/git"
	"github.com/lockstep-rebase/lockstep-rebase/internal/hierarchy"
	"github.com/lockstep-rebase/lockstep-rebase/internal/lockstep/userio"
	"github.com/lockstep-rebase/lockstep-rebase/internal/tracker"
	"github.com/sirupsen/logrus"
)

// Phase names the orchestrator's state machine position (§4.E).
type Phase string

const (
	PhaseIdle       Phase = "IDLE"
	PhaseDiscovered Phase = "DISCOVERING"
	PhasePlanned    Phase = "PLANNED"
	PhaseBackingUp  Phase = "BACKING_UP"
	PhaseExecuting  Phase = "EXECUTING"
	PhaseCompleted  Phase = "COMPLETED"
	PhaseFailed     Phase = "FAILED"
	PhaseAborted    Phase = "ABORTED"
	PhaseRestored   Phase = "RESTORED"
)

// Orchestrator drives one session against a discovered Hierarchy.
type Orchestrator struct {
	Hierarchy *hierarchy.Hierarchy
	Remote    string
	UserAgent userio.UserAgent
	Log       logrus.FieldLogger

	gateways map[string]*git.Repo
	trackers *tracker.Set
	phase    Phase
}

// New builds an Orchestrator with one Repo Gateway opened per hierarchy
// node, keyed by RepoId.RelPath (§9 "the Orchestrator owns a mapping
// RepoId -> Gateway; do not attach the Gateway to the data node").
func New(h *hierarchy.Hierarchy, remote string, agent userio.UserAgent) (*Orchestrator, error) {
	gateways := map[string]*git.Repo{}
	for id := range h.Nodes {
		repo, err := git.OpenRepo(id.AbsPath)
		if err != nil {
			return nil, errors.WrapIff(err, "failed to open gateway for %q", id.RelPath)
		}
		gateways[id.RelPath] = repo
	}
	log := logrus.WithField("component", "orchestrator")
	for _, id := range h.Order {
		for _, w := range h.Nodes[id].Warnings {
			log.WithField("repo", id.RelPath).Warn(w)
		}
	}
	return &Orchestrator{
		Hierarchy: h,
		Remote:    remote,
		UserAgent: agent,
		Log:       log,
		gateways:  gateways,
		trackers:  tracker.NewSet(),
		phase:     PhaseIdle,
	}, nil
}

func (o *Orchestrator) Phase() Phase { return o.phase }

func (o *Orchestrator) gateway(repoRel string) *git.Repo {
	return o.gateways[repoRel]
}

// GatewayGitDir exposes a task's .git directory so callers outside this
// package can look up its session checkpoint (see internal/session).
func (o *Orchestrator) GatewayGitDir(repoRel string) string {
	return o.gateway(repoRel).GitDir()
}

// ctxCheck is a small hook kept separate so every orchestrator entry point
// can bail out immediately on a cancelled context rather than starting a
// blocking git invocation it can't clean up after.
func ctxCheck(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return nil
	}
}
