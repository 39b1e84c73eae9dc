package userio

import "emperror.dev/errors"

// Scripted is a deterministic UserAgent for tests: each method pops the
// next queued response, failing the test-visible call with an error if the
// script runs dry instead of blocking.
type Scripted struct {
	RemoteBranchCreate      []bool
	AutoDiscoveredSubmodule []SubmoduleDecision
	ForcePush               []bool
	// FileConflictCallback, if set, is called by AwaitFileConflictResolution
	// and its error returned; leave nil to always succeed immediately (the common case: tests stage conflicts before
	// calling the resolver again).
	FileConflictCallback func(repo string, paths []string) error
}

func (s *Scripted) PromptRemoteBranchCreate(repo, branch, remote string) (bool, error) {
	if len(s.RemoteBranchCreate) == 0 {
		return false, errors.New("scripted user agent: no more PromptRemoteBranchCreate answers queued")
	}
	v := s.RemoteBranchCreate[0]
	s.RemoteBranchCreate = s.RemoteBranchCreate[1:]
	return v, nil
}

func (s *Scripted) PromptAutoDiscoveredSubmodule(
	submodulePath, suggestedSrc, suggestedTgt string,
) (SubmoduleDecision, error) {
	if len(s.AutoDiscoveredSubmodule) == 0 {
		return SubmoduleDecision{}, errors.New("scripted user agent: no more PromptAutoDiscoveredSubmodule answers queued")
	}
	v := s.AutoDiscoveredSubmodule[0]
	s.AutoDiscoveredSubmodule = s.AutoDiscoveredSubmodule[1:]
	if v.Source == "" {
		v.Source = suggestedSrc
	}
	if v.Target == "" {
		v.Target = suggestedTgt
	}
	return v, nil
}

func (s *Scripted) AwaitFileConflictResolution(repo string, paths []string) error {
	if s.FileConflictCallback != nil {
		return s.FileConflictCallback(repo, paths)
	}
	return nil
}

func (s *Scripted) ConfirmForcePush(branch string, ahead, behind int) (bool, error) {
	if len(s.ForcePush) == 0 {
		return false, errors.New("scripted user agent: no more ConfirmForcePush answers queued")
	}
	v := s.ForcePush[0]
	s.ForcePush = s.ForcePush[1:]
	return v, nil
}
