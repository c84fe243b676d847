// Package pipeline runs an ordered set of independent checks against a
// candidate change and produces one aggregated pass/fail + score result.
// A stage failure, panic, or timeout never aborts the pipeline; it becomes
// a failing zero-score sub-result and later stages still run.
package pipeline

import (
	"context"
	"fmt"
	"runtime/debug"
	"sort"
	"strings"
	"time"

	"github.com/patchpilot/governor/internal/config"
	"github.com/patchpilot/governor/internal/logging"
)

// #region pipeline-struct

// Pipeline holds registered stages in priority order. Stages run strictly
// sequentially; later stages may rely on side effects of earlier ones (the
// diff stage fills Candidate.Files for the path stage). One Pipeline
// instance belongs to one session.
type Pipeline struct {
	stages       []Stage
	stageTimeout time.Duration
	logger       *logging.Logger
}

// New creates an empty pipeline. A zero stageTimeout falls back to
// config.DefaultStageTimeout.
func New(stageTimeout time.Duration, logger *logging.Logger) *Pipeline {
	if stageTimeout <= 0 {
		stageTimeout = config.DefaultStageTimeout
	}
	return &Pipeline{stageTimeout: stageTimeout, logger: logger}
}

// #endregion pipeline-struct

// #region register

// Register inserts a stage and re-sorts ascending by priority. Stable, so
// equal priorities keep registration order.
func (p *Pipeline) Register(st Stage) {
	p.stages = append(p.stages, st)
	sort.SliceStable(p.stages, func(i, j int) bool {
		return p.stages[i].Priority < p.stages[j].Priority
	})
}

// StageCount returns the number of registered stages.
func (p *Pipeline) StageCount() int {
	return len(p.stages)
}

// #endregion register

// #region validate

// Validate runs every registered stage in priority order. When force is
// false, a stage whose Skip predicate returns true is skipped and does not
// contribute to the aggregate score. The aggregate score is the mean over
// stages actually executed.
func (p *Pipeline) Validate(ctx context.Context, c *Candidate, force bool) Result {
	passed := true
	var scoreSum float64
	executed := 0
	var messages []string
	var details []string

	for _, st := range p.stages {
		if !force && st.Skip != nil && st.Skip(c) {
			p.logger.Debugf("[PIPE] skip stage=%s suggestion=%s", st.Name, c.SuggestionID)
			continue
		}

		res := p.runStage(ctx, st, c)
		executed++
		passed = passed && res.Passed
		scoreSum += res.Score
		if res.Message != "" {
			messages = append(messages, res.Message)
		}
		details = append(details, res.Details...)

		p.logger.Debugf("[PIPE] stage=%s passed=%v score=%.2f", st.Name, res.Passed, res.Score)
	}

	var score float64
	if executed > 0 {
		score = scoreSum / float64(executed)
	}

	message := strings.Join(messages, "; ")
	if executed == 0 {
		message = "no stages executed"
	}

	return Result{
		Passed:  passed,
		Score:   score,
		Message: message,
		Details: details,
	}
}

// #endregion validate

// #region run-stage

// runStage executes one stage under its own deadline, converting errors,
// panics, and expiry into failing zero-score results.
func (p *Pipeline) runStage(ctx context.Context, st Stage, c *Candidate) Result {
	sctx, cancel := context.WithTimeout(ctx, p.stageTimeout)
	defer cancel()

	type outcome struct {
		res Result
		err error
	}
	done := make(chan outcome, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{err: fmt.Errorf("stage panicked: %v\n%s", r, debug.Stack())}
			}
		}()
		res, err := st.Run(sctx, c)
		done <- outcome{res: res, err: err}
	}()

	select {
	case o := <-done:
		if o.err != nil {
			return failStage(st.Name, o.err.Error())
		}
		return o.res
	case <-sctx.Done():
		return failStage(st.Name, sctx.Err().Error())
	}
}

func failStage(name, detail string) Result {
	return Result{
		Passed:  false,
		Score:   0,
		Message: fmt.Sprintf("stage %s failed: %s", name, firstLine(detail)),
		Details: []string{detail},
	}
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

// #endregion run-stage
