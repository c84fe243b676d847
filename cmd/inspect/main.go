package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/patchpilot/governor/internal/logging"
	"github.com/patchpilot/governor/internal/store"
)

// #region main

func main() {
	dbPath := flag.String("db", "", "path to governor.db")
	mode := flag.String("mode", "decisions", "what to list: decisions | versions | adaptations")
	last := flag.Int("last", 20, "show N most recent entries")
	status := flag.String("status", "active", "adaptation status filter (adaptations mode)")
	jsonOut := flag.Bool("json", false, "output as JSON instead of table")
	flag.Parse()

	if *dbPath == "" {
		fmt.Fprintln(os.Stderr, "usage: inspect --db path/to/governor.db [--mode decisions|versions|adaptations] [--last N] [--json]")
		os.Exit(2)
	}

	st, err := store.NewStore(*dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open db: %v\n", err)
		os.Exit(1)
	}
	defer st.Close()

	switch *mode {
	case "decisions":
		err = runDecisions(st, *last, *jsonOut)
	case "versions":
		err = runVersions(st, *last, *jsonOut)
	case "adaptations":
		err = runAdaptations(st, *status, *jsonOut)
	default:
		err = fmt.Errorf("unknown mode %q", *mode)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// #endregion main

// #region decisions

func runDecisions(st *store.Store, last int, jsonOut bool) error {
	entries, err := logging.ListDecisions(st.DB(), last)
	if err != nil {
		return err
	}
	if jsonOut {
		return printJSON(entries)
	}
	if len(entries) == 0 {
		fmt.Fprintln(os.Stderr, "no decisions found")
		return nil
	}
	fmt.Printf("%-36s  %-16s  %-10s  %5s  %s\n", "SUGGESTION", "DECISION", "TENANT", "CONF", "REASONING")
	for _, e := range entries {
		fmt.Printf("%-36s  %-16s  %-10s  %1.2f  %s\n",
			e.SuggestionID, e.Decision, e.Tenant, e.Confidence, e.Reasoning)
	}
	return nil
}

// #endregion decisions

// #region versions

func runVersions(st *store.Store, last int, jsonOut bool) error {
	versions, err := st.ListControlsVersions(last)
	if err != nil {
		return err
	}
	if jsonOut {
		return printJSON(versions)
	}
	if len(versions) == 0 {
		fmt.Fprintln(os.Stderr, "no controls versions found")
		return nil
	}
	fmt.Printf("%-36s  %-36s  %-20s  %s\n", "VERSION", "PARENT", "CREATED", "REASON")
	for _, v := range versions {
		parent := v.ParentID
		if parent == "" {
			parent = "-"
		}
		fmt.Printf("%-36s  %-36s  %-20s  %s\n",
			v.VersionID, parent, v.CreatedAt.Format("2006-01-02 15:04:05"), v.Reason)
	}
	return nil
}

// #endregion versions

// #region adaptations

func runAdaptations(st *store.Store, status string, jsonOut bool) error {
	rows, err := st.ListAdaptations(status)
	if err != nil {
		return err
	}
	if jsonOut {
		return printJSON(rows)
	}
	if len(rows) == 0 {
		fmt.Fprintf(os.Stderr, "no %s adaptations found\n", status)
		return nil
	}
	fmt.Printf("%-36s  %-24s  %-20s  %8s  %s\n", "ADAPTATION", "TYPE", "APPLIED", "BASELINE", "STATUS")
	for _, r := range rows {
		fmt.Printf("%-36s  %-24s  %-20s  %8.2f  %s\n",
			r.AdaptationID, r.Type, r.AppliedAt.Format("2006-01-02 15:04:05"), r.Baseline, r.Status)
	}
	return nil
}

// #endregion adaptations

// #region helpers

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// #endregion helpers
