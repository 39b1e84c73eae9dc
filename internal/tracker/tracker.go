// Package tracker implements the Commit Tracker: a per-repo bidirectional
// map from a pre-rebase commit to its post-rebase replacement, populated in
// replay order as a rebase advances (§4.C).
package tracker

import "emperror.dev/errors"

// Tracker holds one repo's old_sha -> new_sha map for the lifetime of a
// session. It is append-only while the task is running, then frozen.
type Tracker struct {
	// expected is commits_between(target, source) at task start, in
	// replay order; the next unmapped entry is expected[len(oldToNew)].
	expected []string
	oldToNew map[string]string
	newToOld map[string]string
	frozen   bool
}

// New creates a Tracker for a task whose rebase will replay expectedOldShas
// in order.
func New(expectedOldShas []string) *Tracker {
	return &Tracker{
		expected: expectedOldShas,
		oldToNew: map[string]string{},
		newToOld: map[string]string{},
	}
}

// Advance records that the next expected old sha in replay order has been
// rewritten to newSha. It is an error to advance past the end of the
// expected list or to advance a frozen Tracker.
func (t *Tracker) Advance(newSha string) error {
	if t.frozen {
		return errors.New("cannot advance a frozen commit tracker")
	}
	i := len(t.oldToNew)
	if i >= len(t.expected) {
		return errors.Errorf("commit tracker has no more expected commits to advance (got %d, want %d)", i+1, len(t.expected))
	}
	oldSha := t.expected[i]
	t.oldToNew[oldSha] = newSha
	t.newToOld[newSha] = oldSha
	return nil
}

// Lookup returns the new sha a given old sha was rewritten to, if any
// commit in this task's replay range has been mapped that far.
func (t *Tracker) Lookup(oldSha string) (string, bool) {
	newSha, ok := t.oldToNew[oldSha]
	return newSha, ok
}

// Len reports how many commits have been mapped so far.
func (t *Tracker) Len() int { return len(t.oldToNew) }

// Expected reports the total number of commits this task was expected to
// replay, for the §8 property 1 completeness check.
func (t *Tracker) Expected() int { return len(t.expected) }

// Freeze marks the Tracker as complete; Advance returns an error afterward.
// Frozen Trackers are kept for the whole session so parent tasks can query
// them (§3 CommitMap lifecycle).
func (t *Tracker) Freeze() { t.frozen = true }

func (t *Tracker) Frozen() bool { return t.frozen }

// Set is the set of per-repo Trackers accumulated across a session, keyed
// by however the orchestrator identifies a repo (its RepoId.RelPath).
type Set struct {
	byRepo map[string]*Tracker
}

func NewSet() *Set {
	return &Set{byRepo: map[string]*Tracker{}}
}

func (s *Set) Put(repo string, t *Tracker) {
	s.byRepo[repo] = t
}

func (s *Set) Get(repo string) (*Tracker, bool) {
	t, ok := s.byRepo[repo]
	return t, ok
}
