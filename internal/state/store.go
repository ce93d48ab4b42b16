package state

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/cogniverse/coach-engine/internal/events"
	_ "modernc.org/sqlite"
)

// #region schema
const schema = `
CREATE TABLE IF NOT EXISTS user_state (
	user_id     TEXT PRIMARY KEY,
	version     INTEGER NOT NULL,
	envelope    TEXT NOT NULL,
	updated_at  TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS events (
	event_id    TEXT PRIMARY KEY,
	user_id     TEXT NOT NULL,
	type        TEXT NOT NULL,
	ts          TEXT NOT NULL,
	payload     TEXT,
	context     TEXT,
	request_id  TEXT,
	created_at  TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_events_user ON events(user_id, created_at);
`

// #endregion schema

// #region store-struct

// Store is the durable document store for user envelopes and the append-only
// event log. Writes are atomic per key; the store serializes concurrent
// writes for the same user (last write wins, no optimistic versioning).
type Store struct {
	db *sql.DB
}

// NewStore opens a SQLite database and runs migrations.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("pragma: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB for use by other packages (e.g. inspect).
func (s *Store) DB() *sql.DB {
	return s.db
}

// #endregion store-struct

// #region get

// Get reads a user's envelope, returning the empty default when none exists.
func (s *Store) Get(userID string) (UserState, error) {
	var envelope string
	err := s.db.QueryRow(
		`SELECT envelope FROM user_state WHERE user_id = ?`, userID,
	).Scan(&envelope)
	if errors.Is(err, sql.ErrNoRows) {
		return DefaultState(userID), nil
	}
	if err != nil {
		return UserState{}, fmt.Errorf("get state %s: %w", userID, err)
	}

	var st UserState
	if err := json.Unmarshal([]byte(envelope), &st); err != nil {
		return UserState{}, fmt.Errorf("unmarshal state %s: %w", userID, err)
	}
	if st.Signals == nil {
		st.Signals = map[string]any{}
	}
	if st.Facts == nil {
		st.Facts = map[string]any{}
	}
	if st.Preferences == nil {
		st.Preferences = map[string]any{}
	}
	return st, nil
}

// #endregion get

// #region put

// Put upserts a user's envelope. Atomic per key.
func (s *Store) Put(st UserState) error {
	envelope, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}
	_, err = s.db.Exec(
		`INSERT INTO user_state (user_id, version, envelope, updated_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(user_id) DO UPDATE SET
		   version = excluded.version,
		   envelope = excluded.envelope,
		   updated_at = excluded.updated_at`,
		st.UserID, st.Version, string(envelope), st.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("put state %s: %w", st.UserID, err)
	}
	return nil
}

// #endregion put

// #region event-log

// LogEvent appends a normalized event to the event log. Re-logging the same
// event id is a no-op, so best-effort incremental logging can be retried
// without corrupting the log.
func (s *Store) LogEvent(ev events.Record) error {
	payload, err := json.Marshal(ev.Payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	ctx, err := json.Marshal(ev.Context)
	if err != nil {
		return fmt.Errorf("marshal context: %w", err)
	}
	_, err = s.db.Exec(
		`INSERT INTO events (event_id, user_id, type, ts, payload, context, request_id, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(event_id) DO NOTHING`,
		ev.EventID, ev.UserID, string(ev.Type), ev.TS,
		string(payload), string(ctx), nullIfEmpty(ev.RequestID),
		time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("log event: %w", err)
	}
	return nil
}

// ListEvents returns a user's events oldest-first, capped at limit. A
// non-positive limit returns the full log.
func (s *Store) ListEvents(userID string, limit int) ([]events.Record, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.Query(
		`SELECT event_id, user_id, type, ts, payload, context, request_id
		 FROM events WHERE user_id = ? ORDER BY created_at ASC, rowid ASC LIMIT ?`,
		userID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var records []events.Record
	for rows.Next() {
		var rec events.Record
		var typ, payload, ctx string
		var requestID sql.NullString
		if err := rows.Scan(&rec.EventID, &rec.UserID, &typ, &rec.TS, &payload, &ctx, &requestID); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		rec.Type = events.Type(typ)
		if err := json.Unmarshal([]byte(payload), &rec.Payload); err != nil {
			rec.Payload = map[string]any{}
		}
		if err := json.Unmarshal([]byte(ctx), &rec.Context); err != nil {
			rec.Context = map[string]any{}
		}
		if requestID.Valid {
			rec.RequestID = requestID.String
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// #endregion event-log

// #region rebase

// RebaseOwner re-keys all records from an anonymous id to an authenticated
// id inside one transaction. Idempotent: re-running after an interrupt is
// safe. When both users hold an envelope, the authenticated one wins and the
// anonymous row is dropped: snapshot reconciliation has already merged the
// anonymous data by the time login happens.
func (s *Store) RebaseOwner(fromID, toID string) error {
	if fromID == "" || toID == "" || fromID == toID {
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var existing int
	if err := tx.QueryRow(
		`SELECT COUNT(*) FROM user_state WHERE user_id = ?`, toID,
	).Scan(&existing); err != nil {
		return fmt.Errorf("check target: %w", err)
	}

	if existing == 0 {
		var envelope string
		err := tx.QueryRow(
			`SELECT envelope FROM user_state WHERE user_id = ?`, fromID,
		).Scan(&envelope)
		if err == nil {
			var st UserState
			if uerr := json.Unmarshal([]byte(envelope), &st); uerr == nil {
				st.UserID = toID
				if raw, merr := json.Marshal(st); merr == nil {
					envelope = string(raw)
				}
			}
			if _, err := tx.Exec(
				`UPDATE user_state SET user_id = ?, envelope = ? WHERE user_id = ?`,
				toID, envelope, fromID,
			); err != nil {
				return fmt.Errorf("rebase state: %w", err)
			}
		} else if !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("read anon state: %w", err)
		}
	} else {
		if _, err := tx.Exec(
			`DELETE FROM user_state WHERE user_id = ?`, fromID,
		); err != nil {
			return fmt.Errorf("drop anon state: %w", err)
		}
	}

	if _, err := tx.Exec(
		`UPDATE events SET user_id = ? WHERE user_id = ?`, toID, fromID,
	); err != nil {
		return fmt.Errorf("rebase events: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit rebase: %w", err)
	}
	return nil
}

// #endregion rebase

// #region helpers
func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// #endregion helpers
