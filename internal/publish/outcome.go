package publish

import "errors"

// Outcome is the terminal state of one publish attempt. Only OutcomeFailed is
// an error; the other three are expected results of a healthy run.
type Outcome string

const (
	OutcomeCommitted       Outcome = "committed"
	OutcomeNothingToCommit Outcome = "nothing_to_commit"
	OutcomePushRejected    Outcome = "push_rejected"
	OutcomeFailed          Outcome = "failed"
)

// PushState records what happened to the push that follows the commit step.
type PushState string

const (
	PushOK           PushState = "ok"
	PushUpToDate     PushState = "up_to_date"
	PushRejected     PushState = "rejected"
	PushNotAttempted PushState = "not_attempted"
)

var (
	ErrUnrelatedStaged = errors.New("changes other than the report are staged")
	ErrDetachedHead    = errors.New("HEAD is not on a branch")
	ErrReportMissing   = errors.New("report file does not exist")
)

// Result describes a publish attempt.
type Result struct {
	Outcome Outcome
	// Committed is true when a new commit was created.
	Committed bool
	Hash      string
	Push      PushState
	DryRun    bool
	// Reason carries the remote's message for a rejected push.
	Reason string
	Err    error
}

// Benign reports whether the run may continue as successful.
func (r Result) Benign() bool {
	return r.Outcome != OutcomeFailed
}

func failed(err error) Result {
	return Result{Outcome: OutcomeFailed, Push: PushNotAttempted, Err: err}
}
