package runner

import (
	"context"
	"fmt"
	"io"
	"slices"
	"time"

	"github.com/bartekus/cadence/internal/logging"
)

// FailedError is returned when a step fails. It carries the step's exit code
// so the CLI can exit with it.
type FailedError struct {
	Step string
	Code int
}

func (e *FailedError) Error() string {
	return fmt.Sprintf("step %s failed (exit %d)", e.Step, e.ExitCode())
}

// ExitCode never returns 0.
func (e *FailedError) ExitCode() int {
	if e.Code <= 0 {
		return 1
	}
	return e.Code
}

// Runner manages the execution of steps.
type Runner struct {
	steps []Step
	store *StateStore
	deps  *Deps
	now   func() time.Time
}

// NewRunner creates a new runner with the given steps and dependencies.
func NewRunner(steps []Step, store *StateStore, deps *Deps) *Runner {
	if deps == nil {
		deps = &Deps{}
	}
	return &Runner{
		steps: steps,
		store: store,
		deps:  deps,
		now:   time.Now,
	}
}

// RunAll executes all steps in order and stops at the first failure.
func (r *Runner) RunAll(ctx context.Context) error {
	return r.executeSequence(ctx, r.steps)
}

// RunList executes the given step IDs. Steps always run in pipeline order,
// whatever order the IDs were given in.
func (r *Runner) RunList(ctx context.Context, stepIDs []string) error {
	for _, id := range stepIDs {
		if r.findStep(id) == nil {
			return fmt.Errorf("step not found: %s", id)
		}
	}
	var toRun []Step
	for _, s := range r.steps {
		if slices.Contains(stepIDs, s.ID()) {
			toRun = append(toRun, s)
		}
	}
	return r.executeSequence(ctx, toRun)
}

// Resume re-runs the pipeline from the step that failed in the last run.
// Steps that passed before it are not repeated.
func (r *Runner) Resume(ctx context.Context) error {
	failed, err := r.store.LoadFailedSteps()
	if err != nil {
		return fmt.Errorf("loading failed steps: %w", err)
	}
	if len(failed) == 0 {
		return nil
	}

	from := slices.IndexFunc(r.steps, func(s Step) bool { return s.ID() == failed[0] })
	if from < 0 {
		return fmt.Errorf("step not found: %s", failed[0])
	}
	return r.executeSequence(ctx, r.steps[from:])
}

func (r *Runner) findStep(id string) Step {
	for _, s := range r.steps {
		if s.ID() == id {
			return s
		}
	}
	return nil
}

// executeSequence runs steps in order, updating state. The first failing step
// ends the run and every step after it is recorded as skipped.
func (r *Runner) executeSequence(ctx context.Context, steps []Step) error {
	out := r.deps.Out
	if out == nil {
		out = io.Discard
	}
	logger := logging.OrDiscard(r.deps.Log)

	last := LastRun{
		Status:    string(StatusPass),
		Trigger:   string(r.deps.Trigger),
		StartedAt: r.now().UTC(),
	}
	var runErr error

	for i, step := range steps {
		id := step.ID()
		last.Steps = append(last.Steps, id)

		if runErr == nil && ctx.Err() != nil {
			runErr = fmt.Errorf("run interrupted before %s: %w", id, ctx.Err())
			last.Status = string(StatusFail)
		}
		if runErr != nil {
			if err := r.skip(out, id, skipNote(ctx, last.Failed)); err != nil {
				return err
			}
			last.Skipped = append(last.Skipped, id)
			continue
		}

		banner(out, id)
		start := r.now()
		res := step.Run(ctx, r.deps)
		res.Step = id
		res.DurationMS = r.now().Sub(start).Milliseconds()
		if res.Outcome != "" {
			last.Outcome = res.Outcome
		}

		if err := r.store.WriteStepResult(res); err != nil {
			return fmt.Errorf("writing result for %s: %w", id, err)
		}

		switch res.Status {
		case StatusSkip:
			_, _ = fmt.Fprintf(out, "SKIP: %s\n", id)
		case StatusPass:
			_, _ = fmt.Fprintf(out, "PASS: %s\n", id)
		default:
			_, _ = fmt.Fprintf(out, "FAIL: %s (exit %d)\n", id, res.ExitCode)
			last.Failed = append(last.Failed, id)
			last.Status = string(StatusFail)
			runErr = &FailedError{Step: id, Code: res.ExitCode}
			logger.Error("step failed", "step", id, "exit_code", res.ExitCode, "remaining", len(steps)-i-1)
		}
		if res.Note != "" {
			_, _ = fmt.Fprintln(out, res.Note)
		}
	}

	last.FinishedAt = r.now().UTC()
	if err := r.store.WriteLastRun(last); err != nil {
		return fmt.Errorf("writing last run: %w", err)
	}
	return runErr
}

func (r *Runner) skip(out io.Writer, id, note string) error {
	_, _ = fmt.Fprintf(out, "SKIP: %s\n", id)
	return r.store.WriteStepResult(StepResult{Step: id, Status: StatusSkip, Note: note})
}

func skipNote(ctx context.Context, failed []string) string {
	if len(failed) > 0 {
		return "not run: " + failed[0] + " failed"
	}
	if ctx.Err() != nil {
		return "not run: interrupted"
	}
	return ""
}

func banner(out io.Writer, id string) {
	_, _ = fmt.Fprintln(out, "")
	_, _ = fmt.Fprintln(out, "━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	_, _ = fmt.Fprintf(out, "STEP: %s\n", id)
	_, _ = fmt.Fprintln(out, "━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	_, _ = fmt.Fprintln(out, "")
}
