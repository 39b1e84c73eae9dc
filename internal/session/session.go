// Package session generates session identifiers and persists the resumable
// state of an in-progress orchestrator run, so a session interrupted mid
// rebase (e.g. by a process restart) can be resumed (§3 SessionId,
// §4.E state machine).
package session

import (
	"crypto/rand"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"emperror.dev/errors"
)

const idAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

// NewID returns a short, time-ordered, locally unique session token:
// YYYYMMDDThhmmss-<6 random chars>.
func NewID(now time.Time) (string, error) {
	suffix, err := randomSuffix(6)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s-%s", now.UTC().Format("20060102T150405"), suffix), nil
}

func randomSuffix(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", errors.WrapIf(err, "failed to generate random session suffix")
	}
	out := make([]byte, n)
	for i, b := range buf {
		out[i] = idAlphabet[int(b)%len(idAlphabet)]
	}
	return string(out), nil
}

// State is the orchestrator's resumable on-disk record for one session. It
// is written into a task's repo each time that task completes, so an
// interrupted session can be
// inspected or resumed (grounded on the teacher's stackSyncState pattern:
// one JSON file per in-progress operation, overwritten on each step).
type State struct {
	SessionID       string            `json:"session_id"`
	GlobalSource    string            `json:"global_source"`
	GlobalTarget    string            `json:"global_target"`
	Phase           string            `json:"phase"`
	CurrentTaskRepo string            `json:"current_task_repo,omitempty"`
	CompletedRepos  []string          `json:"completed_repos"`
	BranchMap       map[string]string `json:"branch_map,omitempty"`
	// HierarchySnapshot is the list of repo-relative paths, in plan order,
	// that were enabled tasks in this session, so a later `validate` run
	// can tell whether a submodule was added or removed since (drift).
	HierarchySnapshot []string `json:"hierarchy_snapshot,omitempty"`
}

// Path returns the state file location for a repo's .git directory.
func Path(gitDir string) string {
	return filepath.Join(gitDir, "lockstep-rebase", "session.json")
}

// Save writes the state file, creating its parent directory if needed.
func Save(gitDir string, st *State) error {
	pth := Path(gitDir)
	if err := os.MkdirAll(filepath.Dir(pth), 0o755); err != nil {
		return err
	}
	bs, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(pth, bs, 0o644)
}

// Load reads a previously saved state file. It returns (nil, nil) if none
// exists, so callers can distinguish "nothing to resume" from a read error.
func Load(gitDir string) (*State, error) {
	bs, err := os.ReadFile(Path(gitDir))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var st State
	if err := json.Unmarshal(bs, &st); err != nil {
		return nil, errors.WrapIf(err, "failed to parse session state file")
	}
	return &st, nil
}

// Clear removes the state file once a session reaches a terminal state
// (COMPLETED, ABORTED, or RESTORED).
func Clear(gitDir string) error {
	err := os.Remove(Path(gitDir))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
