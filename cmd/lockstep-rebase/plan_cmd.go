package main

import (
	"fmt"
	"strings"

	"emperror.dev/errors"
	"github.com/lockstep-rebase/lockstep-rebase/internal/orchestrator"
	"github.com/spf13/cobra"
)

var planFlags struct {
	Source               string
	Target                string
	Include               []string
	Exclude               []string
	BranchMap             []string
	AutoSelectSubmodules  bool
	Force                 bool
}

func newPlanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Show the rebase plan across the hierarchy without changing anything",
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

	return cmd
}

func buildPlanOptions() (orchestrator.PlanOptions, error) {
	branchMap := map[string]orchestrator.BranchOverride{}
	for _, entry := range planFlags.BranchMap {
		repo, rest, ok := strings.Cut(entry, "=")
		if !ok {
			return orchestrator.PlanOptions{}, errors.Errorf("invalid --branch-map entry %q, expected REPO=SOURCE[:TARGET]", entry)
		}
		source, target, _ := strings.Cut(rest, ":")
		branchMap[repo] = orchestrator.BranchOverride{Source: source, Target: target}
	}

	return orchestrator.PlanOptions{
		GlobalSource:         planFlags.Source,
		GlobalTarget:         planFlags.Target,
		Include:              planFlags.Include,
		Exclude:              planFlags.Exclude,
		BranchMap:            branchMap,
		AutoSelectSubmodules: planFlags.AutoSelectSubmodules,
		Force:                planFlags.Force,
	}, nil
}

func printPlan(plan *orchestrator.Plan) {
	fmt.Printf("session %s\n", plan.SessionID)
	if plan.AutoDiscovered {
		fmt.Println("(includes auto-discovered submodules)")
	}
	for _, task := range plan.Tasks {
		status := "skip"
		if task.Enabled {
			status = "rebase"
		}
		fmt.Printf("  [%s] %-30s %s -> %s", status, task.RepoRel, task.Source, task.Target)
		if task.Enabled {
			fmt.Printf("  (backup: %s)", orchestrator.BackupBranchName(task.Source, plan.SessionID))
		}
		fmt.Println()
	}
}
