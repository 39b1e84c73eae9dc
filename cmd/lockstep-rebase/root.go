package main

import (
	"github.com/lockstep-rebase/lockstep-rebase/internal/config"
	"github.com/lockstep-rebase/lockstep-rebase/internal/logging"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var rootFlags struct {
	Debug     bool
	Directory string
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "lockstep-rebase",
		Short: "Coordinate a rebase across a tree of repos linked by submodule pointers",

		// We render errors ourselves in main, with our own exit-code mapping.
		SilenceErrors: true,
		SilenceUsage:  true,

		CompletionOptions: cobra.CompletionOptions{
			HiddenDefaultCmd: true,
		},

		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if rootFlags.Debug {
				logrus.SetLevel(logrus.DebugLevel)
			}
			if err := logging.Init(parseLevel(), config.Config.Logging.FilePath); err != nil {
				logrus.WithError(err).Warning("failed to initialize file logging")
			}
			return nil
		},
	}

	rootCmd.PersistentFlags().BoolVar(
		&rootFlags.Debug, "debug", false,
		"enable verbose debug logging",
	)
	rootCmd.PersistentFlags().StringVarP(
		&rootFlags.Directory, "repo", "C", "",
		"directory to use as the starting point for hierarchy discovery",
	)

	rootCmd.AddCommand(
		newPlanCmd(),
		newRebaseCmd(),
		newValidateCmd(),
		newBackupsCmd(),
		newVersionCmd(),
	)

	return rootCmd
}

func parseLevel() logrus.Level {
	if rootFlags.Debug {
		return logrus.DebugLevel
	}
	level, err := logrus.ParseLevel(config.Config.Logging.Level)
	if err != nil {
		return logrus.InfoLevel
	}
	return level
}
