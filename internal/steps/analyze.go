package steps

import (
	"context"

	"github.com/bartekus/cadence/internal/invoke"
	"github.com/bartekus/cadence/internal/runner"
)

// Analyze runs the external analysis procedure once.
type Analyze struct{}

func (s *Analyze) ID() string { return IDAnalyze }

func (s *Analyze) Run(ctx context.Context, deps *runner.Deps) runner.StepResult {
	cfg := deps.Config
	inv := &invoke.Invoker{
		Command: cfg.Analysis.Command,
		Dir:     deps.RepoRoot,
		DotEnv:  cfg.Secret.File,
		Report:  cfg.Publish.Report,
		Timeout: cfg.Analysis.Timeout,
		Out:     deps.Out,
		Log:     deps.Log,
	}
	if _, err := inv.Invoke(ctx); err != nil {
		return fail(s.ID(), err)
	}
	return pass(s.ID(), "wrote "+cfg.Publish.Report)
}
