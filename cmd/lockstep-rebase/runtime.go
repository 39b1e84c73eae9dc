package main

import (
	"context"
	"os"
	"os/signal"

	"emperror.dev/errors"
	"github.com/lockstep-rebase/lockstep-rebase/internal/config"
	"github.com/lockstep-rebase/lockstep-rebase/internal/hierarchy"
	"github.com/lockstep-rebase/lockstep-rebase/internal/lockstep/userio"
	"github.com/lockstep-rebase/lockstep-rebase/internal/orchestrator"
)

// interruptible returns a context cancelled on SIGINT (os.Interrupt), so a
// mid-rebase Ctrl-C surfaces as context.Canceled (mapped to exit code 130 by
// errs.ExitCode) instead of leaving the process in an undefined state.
func interruptible() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt)
}

// startDir resolves the directory hierarchy discovery should start walking
// upward from: --repo/-C if given, else the current working directory.
func startDir() (string, error) {
	if rootFlags.Directory != "" {
		return rootFlags.Directory, nil
	}
	return os.Getwd()
}

// newOrchestrator discovers the repo hierarchy rooted above startDir and
// opens an Orchestrator against it, using the Terminal UserAgent for any
// prompts (§6).
func newOrchestrator(ctx context.Context) (*orchestrator.Orchestrator, error) {
	dir, err := startDir()
	if err != nil {
		return nil, errors.Wrap(err, "failed to determine starting directory")
	}
	h, err := hierarchy.Discover(ctx, dir)
	if err != nil {
		return nil, err
	}
	return orchestrator.New(h, config.Config.Rebase.Remote, userio.Terminal{})
}
