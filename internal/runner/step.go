package runner

import (
	"context"
	"io"

	"github.com/charmbracelet/log"

	"github.com/bartekus/cadence/internal/config"
	"github.com/bartekus/cadence/internal/scanner"
	"github.com/bartekus/cadence/internal/trigger"
)

// Deps contains dependencies injected into steps.
type Deps struct {
	RepoRoot string
	StateDir string
	Config   *config.Config
	Scanner  *scanner.Scanner
	Log      *log.Logger
	Trigger  trigger.Event
	DryRun   bool
	// Out receives the child process output of the provision and analyze steps.
	Out io.Writer
}

// Step is one stage of the analysis pipeline.
type Step interface {
	// ID returns the unique identifier (e.g. "provision").
	ID() string

	// Run executes the step.
	Run(ctx context.Context, deps *Deps) StepResult
}
