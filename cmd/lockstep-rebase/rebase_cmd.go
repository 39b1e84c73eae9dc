package main

import (
	"context"
	"fmt"

	"emperror.dev/errors"
	"github.com/lockstep-rebase/lockstep-rebase/internal/config"
	"github.com/lockstep-rebase/lockstep-rebase/internal/git"
	"github.com/lockstep-rebase/lockstep-rebase/internal/orchestrator"
	"github.com/lockstep-rebase/lockstep-rebase/internal/session"
	"github.com/lockstep-rebase/lockstep-rebase/internal/utils/colors"
	"github.com/lockstep-rebase/lockstep-rebase/internal/utils/sliceutils"
	"github.com/spf13/cobra"
)

var rebaseFlags struct {
	Continue bool
	Abort    bool
	Session  string
}

func newRebaseCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rebase",
		Short: "Validate, back up, and execute the rebase plan across the hierarchy",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := interruptible()
			defer cancel()

			o, err := newOrchestrator(ctx)
			if err != nil {
				return err
			}

			switch {
			case rebaseFlags.Abort:
				return runAbort(ctx, o)
			case rebaseFlags.Continue:
				return runContinue(ctx, o)
			default:
				return runFresh(ctx, o)
			}
		},
	}

	cmd.Flags().StringVar(&planFlags.Source, "source", "", "feature branch to rebase, applied to every repo unless overridden by --branch-map")
	cmd.Flags().StringVar(&planFlags.Target, "target", "", "branch to rebase onto, applied to every repo unless overridden by --branch-map")
	cmd.Flags().StringSliceVar(&planFlags.Include, "include", nil, "restrict the plan to these repos (and their ancestors); repeatable")
	cmd.Flags().StringSliceVar(&planFlags.Exclude, "exclude", nil, "drop these repos from the plan; repeatable")
	cmd.Flags().StringSliceVar(&planFlags.BranchMap, "branch-map", nil, "override branches for one repo: REPO=SOURCE[:TARGET]; repeatable")
	cmd.Flags().BoolVar(&planFlags.AutoSelectSubmodules, "auto-submodules", true, "fold in repos whose submodule pointer actually changed between target and source")
	cmd.Flags().BoolVar(&planFlags.Force, "force", false, "abort a stray in-progress rebase left by an earlier run instead of failing validation")
	cmd.Flags().BoolVar(&rebaseFlags.Continue, "continue", false, "resume a session that was interrupted mid-execution")
	cmd.Flags().BoolVar(&rebaseFlags.Abort, "abort", false, "abort the in-progress rebase in every affected repo and restore from backup")
	cmd.Flags().StringVar(&rebaseFlags.Session, "session", "", "session id to resume or abort (required with --continue/--abort)")

	return cmd
}

func runFresh(ctx context.Context, o *orchestrator.Orchestrator) error {
	opts, err := buildPlanOptions()
	if err != nil {
		return err
	}

	plan, err := o.BuildPlan(ctx, opts)
	if err != nil {
		return err
	}
	printPlan(plan)

	if err := o.Validate(ctx, plan); err != nil {
		return err
	}

	backups, err := o.Backup(ctx, plan)
	if err != nil {
		return err
	}
	fmt.Printf("backed up %d branch(es) under session %s\n", len(backups.Refs), backups.SessionID)

	results, err := o.Execute(ctx, plan)
	if err != nil {
		return errors.WrapIff(err, "rebase failed; backups remain under session %s, restore with 'backups restore %s' or 'rebase --abort --session %s'", plan.SessionID, plan.SessionID, plan.SessionID)
	}
	printResults(results)

	if config.Config.Rebase.PromptBeforeForcePush && !config.UserState.AcknowledgedForcePushWarning {
		pushed, err := o.OfferForcePush(ctx, plan)
		if err != nil {
			return err
		}
		printForcePushResults(pushed)
	}

	return nil
}

func runContinue(ctx context.Context, o *orchestrator.Orchestrator) error {
	if rebaseFlags.Session == "" {
		return errors.New("--continue requires --session <id>")
	}

	opts, err := buildPlanOptions()
	if err != nil {
		return err
	}
	plan, err := o.BuildPlan(ctx, opts)
	if err != nil {
		return err
	}
	plan.SessionID = rebaseFlags.Session

	completed, err := loadCompletedRepos(o, plan, rebaseFlags.Session)
	if err != nil {
		return err
	}

	results, err := o.Resume(ctx, plan, completed)
	if err != nil {
		return errors.WrapIff(err, "resume failed; backups remain under session %s", plan.SessionID)
	}
	printResults(results)
	return nil
}

func runAbort(ctx context.Context, o *orchestrator.Orchestrator) error {
	if rebaseFlags.Session == "" {
		return errors.New("--abort requires --session <id>")
	}
	for _, id := range o.Hierarchy.Order {
		gw, err := git.OpenRepo(id.AbsPath)
		if err != nil {
			return err
		}
		if gw.InProgress() {
			if err := gw.RebaseAbort(ctx); err != nil {
				return errors.WrapIff(err, "failed to abort the in-progress rebase in %q", id.RelPath)
			}
			fmt.Printf("  aborted in-progress rebase in %s\n", id.RelPath)
		}
	}
	results, err := o.Restore(ctx, rebaseFlags.Session)
	if err != nil {
		return err
	}
	for _, r := range results {
		if r.Err != nil {
			fmt.Printf("  %s %s: %s\n", colors.Failure("FAILED"), r.RepoRel, r.Err)
			continue
		}
		if r.Applied {
			fmt.Printf("  %s %s restored to %s\n", colors.Success("OK"), r.RepoRel, r.Branch)
		}
	}
	return nil
}

// loadCompletedRepos reads every gateway's session checkpoint matching
// sessionID and returns the union of the repos they record as finished, so
// Resume doesn't redo completed work.
func loadCompletedRepos(o *orchestrator.Orchestrator, plan *orchestrator.Plan, sessionID string) ([]string, error) {
	var completed []string
	for _, task := range plan.Tasks {
		st, err := session.Load(o.GatewayGitDir(task.RepoRel))
		if err != nil {
			return nil, err
		}
		if st != nil && st.SessionID == sessionID {
			for _, r := range st.CompletedRepos {
				completed = sliceutils.AppendIfNotContains(completed, r)
			}
		}
	}
	return completed, nil
}

func printResults(results []orchestrator.TaskResult) {
	for _, r := range results {
		fmt.Printf("  %s %s: %d commit(s) replayed\n", colors.Success("OK"), r.RepoRel, r.CommitsMapped)
	}
}

func printForcePushResults(results []orchestrator.ForcePushResult) {
	for _, r := range results {
		if r.Pushed {
			fmt.Printf("  %s pushed %s\n", colors.Success("OK"), r.Branch)
		} else {
			fmt.Printf("  skipped %s\n", r.Branch)
		}
	}
}
