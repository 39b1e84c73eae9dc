package config

import (
	"os"

	"emperror.dev/errors"
	"github.com/spf13/viper"
)

// Rebase holds defaults for how a lockstep rebase session behaves absent an
// explicit CLI flag.
type Rebase struct {
	// Remote is the git remote session branches are resolved against
	// (e.g. "origin").
	Remote string
	// AutoDiscoverSubmodules is loaded from config but not read by the CLI:
	// whether repos reachable only via submodule pointers are folded into the
	// plan comes from the --auto-submodules flag, which defaults to true.
	AutoDiscoverSubmodules bool
	// PromptBeforeForcePush, when true, makes `rebase` offer to force-push
	// the rewritten branches, asking for confirmation before each push; when
	// false, no force-push is offered.
	PromptBeforeForcePush bool
	// ExtraGitRebaseArgs is a shell-quoted string of extra flags appended to
	// every `git rebase` invocation (e.g. "-X theirs" or "--rebase-merges"),
	// split with the same quoting rules as a shell would apply.
	ExtraGitRebaseArgs string
}

// Logging controls the rotating file logger (see internal/logging).
type Logging struct {
	Level    string
	FilePath string
}

var Config = struct {
	Rebase  Rebase
	Logging Logging
}{
	Rebase: Rebase{
		Remote:                 "origin",
		AutoDiscoverSubmodules: true,
		PromptBeforeForcePush:  true,
	},
	Logging: Logging{
		Level: "info",
	},
}

// Load initializes the configuration values, optionally checking extra
// paths for a config file (e.g. a repository-local override) ahead of the
// usual XDG locations.
func Load(paths []string) (bool, error) {
	loaded, err := loadFromFile(paths)
	loadFromEnv()
	return loaded, err
}

func loadFromFile(paths []string) (bool, error) {
	v := viper.New()
	v.SetConfigName("config")

	v.AddConfigPath("$XDG_CONFIG_HOME/lockstep-rebase")
	v.AddConfigPath("$HOME/.config/lockstep-rebase")
	v.AddConfigPath("$HOME/.lockstep-rebase")
	v.AddConfigPath("$LOCKSTEP_REBASE_HOME")
	for _, path := range paths {
		v.AddConfigPath(path)
	}

	if err := v.ReadInConfig(); err != nil {
		if errors.As(err, &viper.ConfigFileNotFoundError{}) {
			return false, nil
		}
		return false, err
	}

	if err := v.Unmarshal(&Config); err != nil {
		return true, errors.Wrap(err, "failed to read lockstep-rebase config")
	}
	return true, nil
}

func loadFromEnv() {
	if remote := os.Getenv("LOCKSTEP_REBASE_REMOTE"); remote != "" {
		Config.Rebase.Remote = remote
	}
	if logPath := os.Getenv("LOCKSTEP_REBASE_LOG"); logPath != "" {
		Config.Logging.FilePath = logPath
	}
	if extra := os.Getenv("LOCKSTEP_REBASE_GIT_ARGS"); extra != "" {
		Config.Rebase.ExtraGitRebaseArgs = extra
	}
}
