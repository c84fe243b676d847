package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/patchpilot/governor/internal/backend"
	"github.com/patchpilot/governor/internal/config"
	"github.com/patchpilot/governor/internal/learning"
	"github.com/patchpilot/governor/internal/logging"
	"github.com/patchpilot/governor/internal/orchestrator"
	"github.com/patchpilot/governor/internal/store"
)

// #region main

func main() {
	dbPath := config.EnvOr("GOVERNOR_DB", "governor.db")
	policyPath := os.Getenv("GOVERNOR_POLICY")
	logger := logging.FromEnv()

	st, err := store.NewStore(dbPath)
	if err != nil {
		log.Fatalf("failed to open store: %v", err)
	}
	defer st.Close()

	policy := config.DefaultPolicy()
	if policyPath != "" {
		policy, err = config.LoadPolicy(policyPath)
		if err != nil {
			log.Fatalf("failed to load policy: %v", err)
		}
	}

	gen, err := backend.NewOpenAIBackend("code-change", logger)
	if err != nil {
		log.Fatalf("failed to init generation backend: %v", err)
	}

	session, err := orchestrator.NewSession("default", st, gen, policy, logger)
	if err != nil {
		log.Fatalf("failed to create session: %v", err)
	}

	fmt.Println("Governor ready.")
	fmt.Printf("  DB: %s | enabled: %v\n", dbPath, session.Enabled())
	fmt.Println("Type an intent, or: feedback <id> accept|reject [reason] [rating] | monitor | rollback <id> | clear | quit")

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "quit" || line == "exit" {
			break
		}

		switch {
		case strings.HasPrefix(line, "feedback "):
			runFeedback(session, strings.Fields(line)[1:])
		case line == "monitor":
			runMonitor(session)
		case strings.HasPrefix(line, "rollback "):
			if err := session.RollbackAdaptation(strings.TrimSpace(strings.TrimPrefix(line, "rollback"))); err != nil {
				log.Printf("rollback error: %v", err)
			} else {
				fmt.Println("rolled back")
			}
		case line == "clear":
			session.Gate().ClearEmergency()
			fmt.Println("emergency cleared")
		default:
			runIntent(session, line)
		}
	}
}

// #endregion main

// #region intent

func runIntent(session *orchestrator.Session, intent string) {
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	ev, err := session.EvaluateIntent(ctx, intent)
	if err != nil {
		log.Printf("evaluation error: %v", err)
		if ev.Error != nil {
			fmt.Printf("[%s] %s/%s recovery=%s\n",
				ev.Error.Code, ev.Error.Category, ev.Error.Severity, ev.Error.Recovery.Strategy)
		}
		return
	}

	fmt.Printf("\n%s\n", ev.Candidate.Diff)
	verdict := "denied"
	if ev.Decision.Approved {
		verdict = "approved"
	} else if ev.Decision.RequiresReview {
		verdict = "requires review"
	}
	fmt.Printf("[%s] %s confidence=%.2f validation=%.2f\n",
		ev.SuggestionID, verdict, ev.Confidence.Value, ev.Validation.Score)
	for _, r := range ev.Decision.Reasoning {
		fmt.Printf("  - %s\n", r)
	}
}

// #endregion intent

// #region feedback

func runFeedback(session *orchestrator.Session, args []string) {
	if len(args) < 2 {
		fmt.Println("usage: feedback <suggestion-id> accept|reject [reason] [rating]")
		return
	}
	fb := learning.Feedback{SuggestionID: args[0], Accepted: args[1] == "accept"}
	if len(args) > 2 && !fb.Accepted {
		fb.RejectionReason = learning.RejectionReason(args[2])
	}
	if len(args) > 3 {
		if r, err := strconv.Atoi(args[3]); err == nil {
			fb.Rating = r
		}
	}

	insight, result, err := session.SubmitFeedback(fb)
	if err != nil {
		log.Printf("feedback error: %v", err)
		return
	}
	fmt.Printf("effectiveness=%.2f recommendations=%d applied=%d\n",
		insight.Effectiveness, len(insight.Recommendations), len(result.Applied))
	for _, ch := range result.Applied {
		fmt.Printf("  applied %s: %s\n", ch.Action, ch.Detail)
	}
}

// #endregion feedback

// #region monitor

func runMonitor(session *orchestrator.Session) {
	reports, err := session.MonitorAdaptations()
	if err != nil {
		log.Printf("monitor error: %v", err)
		return
	}
	if len(reports) == 0 {
		fmt.Println("no active adaptations")
		return
	}
	for _, r := range reports {
		fmt.Printf("%s %s progress=%.2f effectiveness=%.2f verdict=%s\n",
			r.AdaptationID, r.Type, r.Progress, r.Effectiveness, r.Verdict)
		if r.Recommendation != "" {
			fmt.Printf("  %s\n", r.Recommendation)
		}
	}
}

// #endregion monitor
