package config

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
)

// UserState is per-user state persisted across invocations, independent of
// any one session's resumable state file (see internal/session).
var UserState struct {
	// AcknowledgedForcePushWarning, when true in the saved user state, makes
	// `rebase` skip the force-push offer entirely.
	AcknowledgedForcePushWarning bool
}

func userStateRelPath() string {
	return filepath.Join("lockstep-rebase", "user-state.json")
}

// LoadUserState loads the user state, leaving UserState at its zero value if
// no file has been written yet.
func LoadUserState() error {
	pth, err := xdg.SearchStateFile(userStateRelPath())
	if err != nil {
		return nil
	}
	bs, err := os.ReadFile(pth)
	if err != nil {
		return err
	}
	return json.Unmarshal(bs, &UserState)
}

// SaveUserState persists the user state.
func SaveUserState() error {
	bs, err := json.Marshal(UserState)
	if err != nil {
		return err
	}
	pth, err := xdg.StateFile(userStateRelPath())
	if err != nil {
		return err
	}
	return os.WriteFile(pth, bs, 0o644)
}
