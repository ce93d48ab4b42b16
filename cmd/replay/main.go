package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"reflect"

	"github.com/cogniverse/coach-engine/internal/reducer"
	"github.com/cogniverse/coach-engine/internal/state"
)

// replay rebuilds a user's state from the event log and reports divergence
// from the stored envelope. A clean run confirms the reducer is a pure
// function of the log.

// #region main

func main() {
	dbPath := flag.String("db", "coach.db", "path to coach.db")
	user := flag.String("user", "", "user id to replay")
	verbose := flag.Bool("v", false, "print state after every event")
	flag.Parse()

	if *user == "" {
		fmt.Fprintln(os.Stderr, "usage: replay --db path/to/coach.db --user <id> [-v]")
		os.Exit(2)
	}

	store, err := state.NewStore(*dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open db: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	if err := run(store, *user, *verbose); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// #endregion main

func run(store *state.Store, user string, verbose bool) error {
	evs, err := store.ListEvents(user, 0)
	if err != nil {
		return fmt.Errorf("list events: %w", err)
	}
	stored, err := store.Get(user)
	if err != nil {
		return fmt.Errorf("load state: %w", err)
	}

	replayed := state.DefaultState(user)
	for i, ev := range evs {
		replayed = reducer.ApplyEvent(replayed, ev)
		if verbose {
			fmt.Printf("[%d] %s -> version %d\n", i+1, ev.Type, replayed.Version)
		}
	}

	fmt.Printf("events replayed: %d\n", len(evs))
	fmt.Printf("replayed version: %d  stored version: %d\n", replayed.Version, stored.Version)

	diverged := false
	if !reflect.DeepEqual(replayed.Signals, stored.Signals) {
		diverged = true
		fmt.Println("DIVERGED: signals differ")
	}
	if !reflect.DeepEqual(replayed.Facts, stored.Facts) {
		diverged = true
		fmt.Println("DIVERGED: facts differ")
	}
	if !reflect.DeepEqual(replayed.History, stored.History) {
		diverged = true
		fmt.Println("DIVERGED: history differs")
	}

	if diverged {
		fmt.Println()
		fmt.Println("replayed envelope:")
		dump(replayed)
		fmt.Println("stored envelope:")
		dump(stored)
		return fmt.Errorf("replay diverged from stored state")
	}

	fmt.Println("OK: replay matches stored envelope")
	return nil
}

func dump(st state.UserState) {
	b, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		fmt.Printf("  (marshal error: %v)\n", err)
		return
	}
	fmt.Println(string(b))
}
