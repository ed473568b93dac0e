package steps

import (
	"context"
	"os"

	"github.com/bartekus/cadence/internal/publish"
	"github.com/bartekus/cadence/internal/runner"
)

// Publish commits the report when it changed and pushes the branch.
type Publish struct {
	// Getenv reads the push token; os.Getenv when nil.
	Getenv func(string) string
	// Push replaces the network push.
	Push publish.PushFunc
}

func (s *Publish) ID() string { return IDPublish }

func (s *Publish) Run(ctx context.Context, deps *runner.Deps) runner.StepResult {
	cfg := deps.Config.Publish
	getenv := s.Getenv
	if getenv == nil {
		getenv = os.Getenv
	}

	p := publish.New(deps.RepoRoot, publish.Options{
		Report:      cfg.Report,
		Message:     cfg.Message,
		AuthorName:  cfg.AuthorName,
		AuthorEmail: cfg.AuthorEmail,
		Remote:      cfg.Remote,
		Token:       getenv(cfg.TokenEnv),
		DryRun:      deps.DryRun,
	}, deps.Log)
	if s.Push != nil {
		p.WithPush(s.Push)
	}

	res := p.Publish(ctx)
	if !res.Benign() {
		out := fail(s.ID(), res.Err)
		out.Outcome = string(res.Outcome)
		return out
	}

	out := pass(s.ID(), describe(res))
	out.Outcome = string(res.Outcome)
	return out
}

func describe(res publish.Result) string {
	switch {
	case res.DryRun && res.Outcome == publish.OutcomeCommitted:
		return "report changed (dry run)"
	case res.DryRun:
		return "nothing to commit (dry run)"
	case res.Outcome == publish.OutcomePushRejected:
		return "push rejected, left for the next run: " + res.Reason
	case res.Outcome == publish.OutcomeCommitted:
		return "committed " + shortHash(res.Hash) + ", push " + string(res.Push)
	default:
		return "nothing to commit, push " + string(res.Push)
	}
}

func shortHash(h string) string {
	if len(h) > 7 {
		return h[:7]
	}
	return h
}
