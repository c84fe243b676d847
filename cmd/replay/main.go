package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/patchpilot/governor/internal/logging"
	"github.com/patchpilot/governor/internal/replay"
	"github.com/patchpilot/governor/internal/store"
)

// #region main

func main() {
	fixturePath := flag.String("fixture", "", "path to feedback fixture JSON")
	dbPath := flag.String("db", "", "store path; defaults to a throwaway db next to the fixture")
	flag.Parse()

	if *fixturePath == "" {
		fmt.Fprintln(os.Stderr, "usage: replay --fixture path/to/fixture.json [--db path/to/governor.db]")
		os.Exit(2)
	}

	os.Exit(run(*fixturePath, *dbPath))
}

func run(fixturePath, dbPath string) int {
	fx, err := replay.LoadFixture(fixturePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}

	if dbPath == "" {
		dbPath = filepath.Join(os.TempDir(),
			strings.TrimSuffix(filepath.Base(fixturePath), filepath.Ext(fixturePath))+".replay.db")
		defer os.Remove(dbPath)
	}
	st, err := store.NewStore(dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open db: %v\n", err)
		return 1
	}
	defer st.Close()

	results, summary, err := replay.Replay(fx, st, logging.FromEnv())
	if err != nil {
		fmt.Fprintf(os.Stderr, "replay error: %v\n", err)
		return 1
	}

	if fx.Description != "" {
		fmt.Printf("fixture: %s\n", fx.Description)
	}
	for _, r := range results {
		status := "ok"
		if len(r.Mismatches) > 0 {
			status = "MISMATCH"
		}
		fmt.Printf("%-20s  recommendations=%d applied=%d low=%.2f  %s\n",
			r.SuggestionID, r.Recommendations, len(r.AppliedActions), r.LowThresholdAfter, status)
		for _, m := range r.Mismatches {
			fmt.Printf("    %s\n", m)
		}
	}
	fmt.Printf("\n%d event(s), %d applied change(s), %d mismatch(es), final low threshold %.2f\n",
		summary.TotalEvents, summary.AppliedChanges, summary.Mismatches, summary.FinalLowThreshold)

	if summary.Mismatches > 0 {
		return 1
	}
	return 0
}

// #endregion main
