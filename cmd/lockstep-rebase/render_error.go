package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/lockstep-rebase/lockstep-rebase/internal/lockstep/errs"
	"github.com/lockstep-rebase/lockstep-rebase/internal/utils/colors"
	"github.com/lockstep-rebase/lockstep-rebase/internal/utils/errutils"
	"github.com/lockstep-rebase/lockstep-rebase/internal/utils/stringutils"
)

// renderError formats err for stderr. Debug mode prints the wrapped chain;
// otherwise just the message, colored by severity, with a RebaseConflict's
// file list broken out and indented for readability.
func renderError(err error) string {
	if errors.Is(err, context.Canceled) {
		return colors.Faint("aborted\n")
	}
	if rootFlags.Debug {
		return fmt.Sprintf("error: %+v\n", err)
	}
	if conflict, ok := errutils.As[*errs.RebaseConflict](err); ok && len(conflict.Paths) > 0 {
		list := ""
		for _, p := range conflict.Paths {
			list += p + "\n"
		}
		return fmt.Sprintf(
			"%s conflicts pending in %s:\n%s",
			colors.Failure("error:"), conflict.Repo, stringutils.Indent(list, "  "),
		)
	}
	return fmt.Sprintf("%s %s\n", colors.Failure("error:"), err)
}
