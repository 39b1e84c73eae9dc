package userio

import (
	"fmt"

	"github.com/AlecAivazis/survey/v2"
	"github.com/lockstep-rebase/lockstep-rebase/internal/utils/colors"
)

// Terminal is the interactive, survey-backed UserAgent used by the CLI.
type Terminal struct{}

func (Terminal) PromptRemoteBranchCreate(repo, branch, remote string) (bool, error) {
	var ok bool
	prompt := &survey.Confirm{
		Message: fmt.Sprintf(
			"%s: branch %q only exists on %q; create a local branch tracking it?",
			colors.CliCmd(repo), branch, remote,
		),
		Default: true,
	}
	if err := survey.AskOne(prompt, &ok); err != nil {
		return false, fmt.Errorf("canceled")
	}
	return ok, nil
}

func (Terminal) PromptAutoDiscoveredSubmodule(
	submodulePath, suggestedSrc, suggestedTgt string,
) (SubmoduleDecision, error) {
	const (
		optInclude  = "include"
		optExclude  = "exclude"
		optOverride = "include with different branches"
	)
	var choice string
	prompt := &survey.Select{
		Message: fmt.Sprintf(
			"submodule %q changed pointer between %q and %q; include it in the rebase?",
			submodulePath, suggestedTgt, suggestedSrc,
		),
		Options: []string{optInclude, optExclude, optOverride},
		Default: optInclude,
	}
	if err := survey.AskOne(prompt, &choice); err != nil {
		return SubmoduleDecision{}, fmt.Errorf("canceled")
	}

	switch choice {
	case optExclude:
		return SubmoduleDecision{Include: false}, nil
	case optOverride:
		src, tgt := suggestedSrc, suggestedTgt
		if err := survey.AskOne(&survey.Input{Message: "source branch", Default: src}, &src); err != nil {
			return SubmoduleDecision{}, fmt.Errorf("canceled")
		}
		if err := survey.AskOne(&survey.Input{Message: "target branch", Default: tgt}, &tgt); err != nil {
			return SubmoduleDecision{}, fmt.Errorf("canceled")
		}
		return SubmoduleDecision{Include: true, Source: src, Target: tgt}, nil
	default:
		return SubmoduleDecision{Include: true, Source: suggestedSrc, Target: suggestedTgt}, nil
	}
}

func (Terminal) AwaitFileConflictResolution(repo string, paths []string) error {
	fmt.Println(colors.Failure(fmt.Sprintf("%s: file conflicts need manual resolution:", repo)))
	for _, p := range paths {
		fmt.Println("  " + p)
	}
	var ack string
	prompt := &survey.Input{
		Message: `resolve and stage the files above, then type "done" to continue`,
	}
	for ack != "done" {
		if err := survey.AskOne(prompt, &ack); err != nil {
			return fmt.Errorf("canceled")
		}
	}
	return nil
}

func (Terminal) ConfirmForcePush(branch string, ahead, behind int) (bool, error) {
	var phrase string
	prompt := &survey.Input{
		Message: fmt.Sprintf(
			"%s is %d ahead, %d behind its upstream; type the branch name to force-push with lease",
			colors.CliCmd(branch), ahead, behind,
		),
	}
	if err := survey.AskOne(prompt, &phrase); err != nil {
		return false, fmt.Errorf("canceled")
	}
	return phrase == branch, nil
}
