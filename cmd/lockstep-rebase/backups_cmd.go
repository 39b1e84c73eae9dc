package main

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"emperror.dev/errors"
	"github.com/dustin/go-humanize"
	"github.com/lockstep-rebase/lockstep-rebase/internal/utils/colors"
	"github.com/spf13/cobra"
)

func newBackupsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backups",
		Short: "Inspect and manage session backup branches",
	}
	cmd.AddCommand(newBackupsListCmd(), newBackupsRestoreCmd(), newBackupsDeleteCmd())
	return cmd
}

func newBackupsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List every session with a live backup branch somewhere in the hierarchy",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := interruptible()
			defer cancel()

			o, err := newOrchestrator(ctx)
			if err != nil {
				return err
			}

			bySession, err := o.ListBackupSessions(ctx)
			if err != nil {
				return err
			}
			if len(bySession) == 0 {
				fmt.Println("no backups found")
				return nil
			}

			sessionIDs := make([]string, 0, len(bySession))
			for id := range bySession {
				sessionIDs = append(sessionIDs, id)
			}
			sort.Strings(sessionIDs)
			for _, id := range sessionIDs {
				fmt.Println(colors.CliCmd(id) + sessionAge(id))
				for _, ref := range bySession[id] {
					fmt.Printf("  %s\n", ref)
				}
			}
			return nil
		},
	}
}

// sessionAge renders how long ago a session id's embedded timestamp was,
// e.g. " (3 hours ago)", or "" if the id doesn't parse (a hand-typed
// --session value, say).
func sessionAge(sessionID string) string {
	stamp, _, ok := strings.Cut(sessionID, "-")
	if !ok {
		return ""
	}
	t, err := time.Parse("20060102T150405", stamp)
	if err != nil {
		return ""
	}
	return fmt.Sprintf(" (%s)", humanize.Time(t.UTC()))
}

// newBackupsRestoreCmd wraps orchestrator.Restore directly; `rebase --abort
// --session <id>` calls the same method after also reporting on the
// in-progress rebase it's abandoning, so this is the bare equivalent for a
// session that already finished (successfully or not) and just needs its
// branches put back.
func newBackupsRestoreCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "restore <session-id>",
		Short: "Force-update every backed-up branch for a session back to its backup tip",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := interruptible()
			defer cancel()

			o, err := newOrchestrator(ctx)
			if err != nil {
				return err
			}
			results, err := o.Restore(ctx, args[0])
			if err != nil {
				return err
			}
			restored := false
			for _, r := range results {
				if r.Err != nil {
					fmt.Printf("  %s %s: %s\n", colors.Failure("FAILED"), r.RepoRel, r.Err)
					continue
				}
				if r.Applied {
					restored = true
					fmt.Printf("  %s %s restored to %s\n", colors.Success("OK"), r.RepoRel, r.Branch)
				}
			}
			if !restored {
				fmt.Println("no backups found for session " + args[0])
			}
			return nil
		},
	}
}

func newBackupsDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <session-id>",
		Short: "Delete every backup branch for a session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := interruptible()
			defer cancel()

			o, err := newOrchestrator(ctx)
			if err != nil {
				return err
			}
			if err := o.DeleteBackups(ctx, args[0]); err != nil {
				return errors.WrapIff(err, "failed to delete backups for session %s", args[0])
			}
			fmt.Println(colors.Success("deleted"))
			return nil
		},
	}
}
