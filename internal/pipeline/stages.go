package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/sourcegraph/go-diff/diff"

	"github.com/patchpilot/governor/internal/config"
)

// Stage priorities. The diff stage runs first because it fills
// Candidate.Files for the stages after it.
const (
	PriorityDiffWellFormed = 10
	PriorityChangeBudget   = 20
	PrioritySecretScan     = 30
	PriorityProtectedPath  = 40
)

// #region secret-patterns

// secretPatterns are lowercase substrings that indicate a hardcoded
// credential or an obviously dangerous change.
var secretPatterns = []string{
	"begin rsa private key",
	"begin private key",
	"begin openssh private key",
	"aws_secret_access_key",
	"api_key =",
	"api_key=",
	"apikey =",
	"password =",
	"password=",
	"secret_key =",
	"authorization: bearer ",
	"x-api-key:",
}

// #endregion secret-patterns

// #region default-stages

// DefaultStages returns the built-in stage set configured from policy.
func DefaultStages(p config.PipelinePolicy) []Stage {
	return []Stage{
		DiffWellFormedStage(),
		ChangeBudgetStage(p.MaxFiles, p.MaxChangedLines),
		SecretScanStage(),
		ProtectedPathStage(p.ProtectedPaths),
	}
}

// #endregion default-stages

// #region diff-stage

// DiffWellFormedStage parses the candidate's unified diff and records the
// touched file paths on the candidate for later stages.
func DiffWellFormedStage() Stage {
	return Stage{
		Name:     "diff_well_formed",
		Priority: PriorityDiffWellFormed,
		Run: func(ctx context.Context, c *Candidate) (Result, error) {
			if strings.TrimSpace(c.Diff) == "" {
				return Result{
					Passed:  false,
					Score:   0,
					Message: "diff_well_formed: candidate carries no diff",
				}, nil
			}

			files, err := diff.ParseMultiFileDiff([]byte(c.Diff))
			if err != nil {
				return Result{
					Passed:  false,
					Score:   0,
					Message: "diff_well_formed: unparseable unified diff",
					Details: []string{err.Error()},
				}, nil
			}
			if len(files) == 0 {
				return Result{
					Passed:  false,
					Score:   0,
					Message: "diff_well_formed: diff contains no file changes",
				}, nil
			}

			hunks := 0
			var paths []string
			for _, f := range files {
				hunks += len(f.Hunks)
				paths = append(paths, diffPath(f))
			}
			c.Files = paths

			return Result{
				Passed:  true,
				Score:   1.0,
				Message: fmt.Sprintf("diff_well_formed: %d file(s), %d hunk(s)", len(files), hunks),
			}, nil
		},
	}
}

// diffPath prefers the new name, stripping the conventional a/ b/ prefixes.
func diffPath(f *diff.FileDiff) string {
	name := f.NewName
	if name == "" || name == "/dev/null" {
		name = f.OrigName
	}
	name = strings.TrimPrefix(name, "a/")
	name = strings.TrimPrefix(name, "b/")
	return name
}

// #endregion diff-stage

// #region budget-stage

// ChangeBudgetStage grades the candidate against file and changed-line
// budgets. Overruns fail with a proportionally degraded score.
func ChangeBudgetStage(maxFiles, maxLines int) Stage {
	return Stage{
		Name:     "change_budget",
		Priority: PriorityChangeBudget,
		Skip: func(c *Candidate) bool {
			return strings.TrimSpace(c.Diff) == ""
		},
		Run: func(ctx context.Context, c *Candidate) (Result, error) {
			files, err := diff.ParseMultiFileDiff([]byte(c.Diff))
			if err != nil {
				return Result{}, fmt.Errorf("change_budget: parse diff: %w", err)
			}

			changed := 0
			for _, f := range files {
				for _, h := range f.Hunks {
					for _, line := range strings.Split(string(h.Body), "\n") {
						if strings.HasPrefix(line, "+") || strings.HasPrefix(line, "-") {
							changed++
						}
					}
				}
			}

			fileScore := budgetScore(len(files), maxFiles)
			lineScore := budgetScore(changed, maxLines)
			score := (fileScore + lineScore) / 2
			passed := len(files) <= maxFiles && changed <= maxLines

			msg := fmt.Sprintf("change_budget: %d file(s), %d changed line(s)", len(files), changed)
			var details []string
			if len(files) > maxFiles {
				details = append(details, fmt.Sprintf("file count %d exceeds budget %d", len(files), maxFiles))
			}
			if changed > maxLines {
				details = append(details, fmt.Sprintf("changed lines %d exceed budget %d", changed, maxLines))
			}

			return Result{Passed: passed, Score: score, Message: msg, Details: details}, nil
		},
	}
}

// budgetScore is 1.0 within budget and decays linearly to 0 at twice the
// budget.
func budgetScore(n, budget int) float64 {
	if budget <= 0 || n <= budget {
		return 1.0
	}
	over := float64(n-budget) / float64(budget)
	if over >= 1.0 {
		return 0
	}
	return 1.0 - over
}

// #endregion budget-stage

// #region secret-stage

// SecretScanStage fails the candidate when the added lines contain
// credential-shaped content.
func SecretScanStage() Stage {
	return Stage{
		Name:     "secret_scan",
		Priority: PrioritySecretScan,
		Skip: func(c *Candidate) bool {
			return strings.TrimSpace(c.Diff) == ""
		},
		Run: func(ctx context.Context, c *Candidate) (Result, error) {
			var hits []string
			for _, line := range strings.Split(c.Diff, "\n") {
				if !strings.HasPrefix(line, "+") {
					continue
				}
				lower := strings.ToLower(line)
				for _, pat := range secretPatterns {
					if strings.Contains(lower, pat) {
						hits = append(hits, fmt.Sprintf("pattern %q in added line", pat))
						break
					}
				}
			}

			if len(hits) > 0 {
				return Result{
					Passed:  false,
					Score:   0,
					Message: fmt.Sprintf("secret_scan: %d credential-shaped line(s)", len(hits)),
					Details: hits,
				}, nil
			}
			return Result{Passed: true, Score: 1.0, Message: "secret_scan: clean"}, nil
		},
	}
}

// #endregion secret-stage

// #region protected-path-stage

// ProtectedPathStage fails when the candidate touches paths the policy
// protects. Relies on the diff stage having filled Candidate.Files.
func ProtectedPathStage(protected []string) Stage {
	return Stage{
		Name:     "protected_path",
		Priority: PriorityProtectedPath,
		Skip: func(c *Candidate) bool {
			return len(c.Files) == 0
		},
		Run: func(ctx context.Context, c *Candidate) (Result, error) {
			var hits []string
			for _, file := range c.Files {
				for _, prefix := range protected {
					if file == prefix || strings.HasPrefix(file, prefix+"/") || strings.HasPrefix(file, prefix) {
						hits = append(hits, fmt.Sprintf("%s matches protected path %s", file, prefix))
						break
					}
				}
			}

			if len(hits) > 0 {
				return Result{
					Passed:  false,
					Score:   0,
					Message: fmt.Sprintf("protected_path: %d protected file(s) touched", len(hits)),
					Details: hits,
				}, nil
			}
			return Result{Passed: true, Score: 1.0, Message: "protected_path: clean"}, nil
		},
	}
}

// #endregion protected-path-stage
