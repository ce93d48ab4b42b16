package reducer

import (
	"time"

	"github.com/cogniverse/coach-engine/internal/state"
)

// #region merge

// MergeState reconciles a client-held patch into a base envelope. It is a
// coarser operation than ApplyEvent, used only for snapshot rehydration:
// shallow merge of signals/facts/preferences with the patch winning per key,
// and version = max(base.version+1, patch.version) so a stale snapshot can
// never regress the version.
func MergeState(base state.UserState, patch state.UserState) state.UserState {
	next := base
	next.Signals = mergeShallow(base.Signals, patch.Signals)
	next.Facts = mergeShallow(base.Facts, patch.Facts)
	next.Preferences = mergeShallow(base.Preferences, patch.Preferences)

	next.Version = base.Version + 1
	if patch.Version > next.Version {
		next.Version = patch.Version
	}

	if len(patch.History.RecentEventIDs) > 0 {
		next.History = state.History{RecentEventIDs: patch.History.RecentEventIDs}
	}
	next.UpdatedAt = time.Now().UTC().Format(time.RFC3339Nano)

	return next
}

func mergeShallow(base, patch map[string]any) map[string]any {
	out := make(map[string]any, len(base)+len(patch))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range patch {
		out[k] = v
	}
	return out
}

// #endregion merge
