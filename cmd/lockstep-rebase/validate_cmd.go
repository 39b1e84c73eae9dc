package main

import (
	"fmt"

	"github.com/lockstep-rebase/lockstep-rebase/internal/orchestrator"
	"github.com/lockstep-rebase/lockstep-rebase/internal/utils/colors"
	"github.com/spf13/cobra"
)

var validateFlags struct {
	Session string
}

func newValidateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check every repo's preconditions for the plan without backing up or rebasing",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := interruptible()
			defer cancel()

			o, err := newOrchestrator(ctx)
			if err != nil {
				return err
			}

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

			if validateFlags.Session != "" {
				drift, err := o.DetectDrift(plan, validateFlags.Session)
				if err != nil {
					return err
				}
				printDrift(drift)
			}

			fmt.Println(colors.Success("all repos are ready"))
			return nil
		},
	}

	cmd.Flags().StringVar(&planFlags.Source, "source", "", "feature branch to rebase, applied to every repo unless overridden by --branch-map")
	cmd.Flags().StringVar(&planFlags.Target, "target", "", "branch to rebase onto, applied to every repo unless overridden by --branch-map")
	cmd.Flags().StringSliceVar(&planFlags.Include, "include", nil, "restrict the plan to these repos (and their ancestors); repeatable")
	cmd.Flags().StringSliceVar(&planFlags.Exclude, "exclude", nil, "drop these repos from the plan; repeatable")
	cmd.Flags().StringSliceVar(&planFlags.BranchMap, "branch-map", nil, "override branches for one repo: REPO=SOURCE[:TARGET]; repeatable")
	cmd.Flags().BoolVar(&planFlags.AutoSelectSubmodules, "auto-submodules", true, "fold in repos whose submodule pointer actually changed between target and source")
	cmd.Flags().BoolVar(&planFlags.Force, "force", false, "abort a stray in-progress rebase left by an earlier run instead of failing validation")
	cmd.Flags().StringVar(&validateFlags.Session, "session", "", "diff the current hierarchy against an in-flight session's recorded one and report drift")

	return cmd
}

// printDrift reports any submodules added or removed since drift's session
// started, or nothing at all if the hierarchy hasn't moved.
func printDrift(drift *orchestrator.DriftReport) {
	if drift.Empty() {
		return
	}
	fmt.Println(colors.Failure("hierarchy drift detected since the session started:"))
	for _, r := range drift.Added {
		fmt.Printf("  + %s (not part of the original session)\n", r)
	}
	for _, r := range drift.Removed {
		fmt.Printf("  - %s (was part of the original session, no longer discovered)\n", r)
	}
}
