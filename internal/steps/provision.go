package steps

import (
	"context"

	"github.com/bartekus/cadence/internal/provision"
	"github.com/bartekus/cadence/internal/runner"
)

// Provision checks the runtime version and installs the analysis packages.
type Provision struct{}

func (s *Provision) ID() string { return IDProvision }

func (s *Provision) Run(ctx context.Context, deps *runner.Deps) runner.StepResult {
	cfg := deps.Config.Runtime
	p, err := provision.New(cfg, deps.RepoRoot, deps.Out, deps.Log)
	if err != nil {
		return fail(s.ID(), err)
	}

	v, err := p.CheckRuntime(ctx)
	if err != nil {
		return fail(s.ID(), err)
	}
	if err := p.Install(ctx); err != nil {
		return fail(s.ID(), err)
	}
	return pass(s.ID(), cfg.Binary+" "+v.String())
}
