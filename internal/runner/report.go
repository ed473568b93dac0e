package runner

import (
	"fmt"
	"io"
)

// WriteReport prints a human readable summary of the last run. Step statuses
// come from the per-step results in the store.
func (s *StateStore) WriteReport(w io.Writer) error {
	last, err := s.ReadLastRun()
	if err != nil {
		return err
	}
	if last == nil {
		_, err := fmt.Fprintln(w, "No run state found.")
		return err
	}

	results := make([]*StepResult, 0, len(last.Steps))
	for _, id := range last.Steps {
		res, err := s.ReadStep(id)
		if err != nil {
			return err
		}
		results = append(results, res)
	}
	return FormatReport(w, last, results)
}

// FormatReport writes the summary for last. results is aligned with
// last.Steps; a nil entry is shown as unknown.
func FormatReport(w io.Writer, last *LastRun, results []*StepResult) error {
	p := &printer{w: w}
	p.printf("Status: %s\n", last.Status)
	if last.Trigger != "" {
		p.printf("Trigger: %s\n", last.Trigger)
	}
	if last.Outcome != "" {
		p.printf("Outcome: %s\n", last.Outcome)
	}

	p.printf("Steps:\n")
	for i, id := range last.Steps {
		var res *StepResult
		if i < len(results) {
			res = results[i]
		}
		switch {
		case res == nil:
			p.printf("  - %s: unknown\n", id)
		case res.Status == StatusFail:
			p.printf("  - %s: %s (exit %d)\n", id, res.Status, res.ExitCode)
		default:
			p.printf("  - %s: %s\n", id, res.Status)
		}
	}

	if len(last.Failed) > 0 {
		p.printf("Failed:\n")
		for _, f := range last.Failed {
			p.printf("  - %s\n", f)
		}
	} else {
		p.printf("All passed.\n")
	}
	return p.err
}

type printer struct {
	w   io.Writer
	err error
}

func (p *printer) printf(format string, args ...any) {
	if p.err != nil {
		return
	}
	_, p.err = fmt.Fprintf(p.w, format, args...)
}
