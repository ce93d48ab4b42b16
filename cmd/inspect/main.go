package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/cogniverse/coach-engine/internal/state"
)

// #region main

func main() {
	dbPath := flag.String("db", "coach.db", "path to coach.db")
	user := flag.String("user", "", "user id to inspect")
	last := flag.Int("last", 20, "show N most recent events")
	jsonOut := flag.Bool("json", false, "output as JSON instead of text")
	flag.Parse()

	if *user == "" {
		fmt.Fprintln(os.Stderr, "usage: inspect --db path/to/coach.db --user <id> [--last N] [--json]")
		os.Exit(2)
	}

	store, err := state.NewStore(*dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open db: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	if err := run(store, *user, *last, *jsonOut); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// #endregion main

func run(store *state.Store, user string, last int, jsonOut bool) error {
	st, err := store.Get(user)
	if err != nil {
		return fmt.Errorf("load state: %w", err)
	}
	evs, err := store.ListEvents(user, last)
	if err != nil {
		return fmt.Errorf("list events: %w", err)
	}

	if jsonOut {
		out := map[string]any{"state": st, "events": evs}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}

	fmt.Printf("user %s  version %d  updated %s\n", st.UserID, st.Version, st.UpdatedAt)
	fmt.Printf("signals: %d  facts: %d  history: %d\n", len(st.Signals), len(st.Facts), len(st.History.RecentEventIDs))
	fmt.Println()
	fmt.Printf("%-40s %-28s %s\n", "event_id", "type", "ts")
	for _, ev := range evs {
		fmt.Printf("%-40s %-28s %s\n", ev.EventID, ev.Type, ev.TS)
	}
	return nil
}
