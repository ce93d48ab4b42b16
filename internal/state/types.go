package state

import "time"

// #region history-cap

// HistoryCap bounds history.recentEventIds. The history is a ring buffer for
// recency checks, not an audit log; the events table is the audit log.
const HistoryCap = 25

// #endregion history-cap

// #region user-state

// History holds the most-recent-first ring of applied event ids.
type History struct {
	RecentEventIDs []string `json:"recentEventIds"`
}

// UserState is the authoritative per-user envelope. It is only ever produced
// by applying one event through the reducer; no other code path mutates
// Signals or Facts directly.
type UserState struct {
	UserID      string         `json:"userId"`
	Version     int            `json:"version"`
	CreatedAt   string         `json:"createdAt"`
	UpdatedAt   string         `json:"updatedAt"`
	Signals     map[string]any `json:"signals"`
	Facts       map[string]any `json:"facts"`
	Preferences map[string]any `json:"preferences"`
	History     History        `json:"history"`
}

// DefaultState returns the empty envelope created on first access.
func DefaultState(userID string) UserState {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	return UserState{
		UserID:      userID,
		Version:     1,
		CreatedAt:   now,
		UpdatedAt:   now,
		Signals:     map[string]any{},
		Facts:       map[string]any{},
		Preferences: map[string]any{},
		History:     History{RecentEventIDs: []string{}},
	}
}

// #endregion user-state

// #region snapshot

// Snapshot is the read-only projection handed to anonymous clients for local
// caching. It is never a direct write path into the store: a submitted
// snapshot is reconciled through the reducer's merge, not trusted as
// authoritative for authenticated users.
type Snapshot struct {
	UserID      string         `json:"userId"`
	Version     int            `json:"version"`
	Signals     map[string]any `json:"signals"`
	Facts       map[string]any `json:"facts"`
	LastUpdated string         `json:"lastUpdated"`
}

// ToSnapshot projects a UserState into its client-cacheable form.
func ToSnapshot(s UserState) Snapshot {
	return Snapshot{
		UserID:      s.UserID,
		Version:     s.Version,
		Signals:     s.Signals,
		Facts:       s.Facts,
		LastUpdated: s.UpdatedAt,
	}
}

// FromSnapshot rebuilds a working envelope from a client-held snapshot.
// fallbackUserID is used when the snapshot carries no id.
func FromSnapshot(snap Snapshot, fallbackUserID string) UserState {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	userID := snap.UserID
	if userID == "" {
		userID = fallbackUserID
	}
	version := snap.Version
	if version < 1 {
		version = 1
	}
	createdAt := snap.LastUpdated
	if createdAt == "" {
		createdAt = now
	}
	signals := snap.Signals
	if signals == nil {
		signals = map[string]any{}
	}
	facts := snap.Facts
	if facts == nil {
		facts = map[string]any{}
	}

	return UserState{
		UserID:      userID,
		Version:     version,
		CreatedAt:   createdAt,
		UpdatedAt:   createdAt,
		Signals:     signals,
		Facts:       facts,
		Preferences: map[string]any{},
		History:     History{RecentEventIDs: []string{}},
	}
}

// #endregion snapshot
