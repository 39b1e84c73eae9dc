// Command lockstep-rebase coordinates a rebase across a tree of git
// repositories linked by submodule pointers.
package main

import (
	"fmt"
	"os"

	"github.com/lockstep-rebase/lockstep-rebase/internal/config"
	"github.com/lockstep-rebase/lockstep-rebase/internal/lockstep/errs"
)

func main() {
	if _, err := config.Load(nil); err != nil {
		fmt.Fprintln(os.Stderr, "lockstep-rebase: failed to load config:", err)
	}
	if err := config.LoadUserState(); err != nil {
		fmt.Fprintln(os.Stderr, "lockstep-rebase: failed to load user state:", err)
	}

	rootCmd := newRootCmd()
	err := rootCmd.Execute()
	if saveErr := config.SaveUserState(); saveErr != nil {
		fmt.Fprintln(os.Stderr, "lockstep-rebase: failed to save user state:", saveErr)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, renderError(err))
		os.Exit(errs.ExitCode(err))
	}
}
