package steps

import (
	"errors"

	"github.com/samber/lo"

	"github.com/bartekus/cadence/internal/execx"
	"github.com/bartekus/cadence/internal/runner"
)

// Step IDs in pipeline order.
const (
	IDProvision = "provision"
	IDSecret    = "secret"
	IDAnalyze   = "analyze"
	IDPublish   = "publish"
)

// Registry defines the canonical order of steps.
var Registry = []runner.Step{
	&Provision{},
	&Secret{},
	&Analyze{},
	&Publish{},
}

// IDs returns the registered step IDs in order.
func IDs() []string {
	return lo.Map(Registry, func(s runner.Step, _ int) string { return s.ID() })
}

func pass(id, note string) runner.StepResult {
	return runner.StepResult{Step: id, Status: runner.StatusPass, Note: note}
}

// fail turns err into a failed result. Process failures keep their exit code
// and the tail of their output.
func fail(id string, err error) runner.StepResult {
	res := runner.StepResult{Step: id, Status: runner.StatusFail, ExitCode: 1, Note: err.Error()}

	var exitErr *execx.ExitError
	if errors.As(err, &exitErr) {
		if exitErr.ExitCode() > 0 {
			res.ExitCode = exitErr.ExitCode()
		}
		if exitErr.Tail != "" {
			res.Note += "\n" + exitErr.Tail
		}
	}
	return res
}
