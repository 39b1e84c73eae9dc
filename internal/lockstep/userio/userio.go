// Package userio abstracts the human-in-the-loop contract the Rebase
// Orchestrator consumes (§6): prompting for remote-branch creation,
// confirming auto-discovered submodules, and awaiting file conflict
// resolution. Tests supply a scripted UserAgent instead of the terminal one.
package userio

// SubmoduleDecision is the user's response to PromptAutoDiscoveredSubmodule.
type SubmoduleDecision struct {
	Include bool
	// Source/Target override the suggested branches when set.
	Source, Target string
}

// UserAgent is the capability the orchestrator needs from whatever drives
// it; the CLI supplies a terminal-backed implementation, tests supply a
// scripted one.
type UserAgent interface {
	// PromptRemoteBranchCreate asks whether to create a local branch named
	// branch tracking remote, because it does not exist locally.
	PromptRemoteBranchCreate(repo, branch, remote string) (bool, error)

	// PromptAutoDiscoveredSubmodule asks whether to include a submodule
	// whose pointer changed between source and target in the plan.
	PromptAutoDiscoveredSubmodule(submodulePath, suggestedSrc, suggestedTgt string) (SubmoduleDecision, error)

	// AwaitFileConflictResolution blocks until the user signals they have
	// finished resolving the listed paths. The orchestrator never trusts
	// the signal alone; it re-inspects the index afterward.
	AwaitFileConflictResolution(repo string, paths []string) error

	// ConfirmForcePush requires the user to type an exact phrase before a
	// force-with-lease push proceeds.
	ConfirmForcePush(branch string, ahead, behind int) (bool, error)
}
