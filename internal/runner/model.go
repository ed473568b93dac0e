package runner

import "time"

// StepStatus represents the outcome of a step execution.
type StepStatus string

const (
	StatusPass StepStatus = "pass"
	StatusFail StepStatus = "fail"
	StatusSkip StepStatus = "skip"
)

// StepResult represents the result of a single step execution.
// Matches .cadence/run/steps/<step>.json schema.
type StepResult struct {
	Step       string     `json:"step"`
	Status     StepStatus `json:"status"`
	ExitCode   int        `json:"exit_code"`
	Note       string     `json:"note,omitempty"`
	DurationMS int64      `json:"duration_ms"`
	// Outcome is set by the publish step only.
	Outcome string `json:"outcome,omitempty"`
}

// LastRun represents the summary of the last execution.
// Matches .cadence/run/last-run.json schema.
type LastRun struct {
	Status     string    `json:"status"`  // "pass" or "fail"
	Trigger    string    `json:"trigger"` // push, schedule or manual
	Steps      []string  `json:"steps"`   // Ordered list of steps run
	Failed     []string  `json:"failed"`  // At most one entry, the run stops there
	Skipped    []string  `json:"skipped"`
	Outcome    string    `json:"outcome,omitempty"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}
