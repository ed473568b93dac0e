package steps

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/bartekus/cadence/internal/runner"
	"github.com/bartekus/cadence/internal/secret"
)

// ErrSecretFileTracked stops the run before a credential is written into a
// file that would be committed.
var ErrSecretFileTracked = errors.New("secret file is tracked by git")

// Secret writes the credential into the run-scoped dotenv file.
type Secret struct {
	// Source overrides the configured credential source.
	Source secret.Source
}

func (s *Secret) ID() string { return IDSecret }

func (s *Secret) Run(ctx context.Context, deps *runner.Deps) runner.StepResult {
	cfg := deps.Config.Secret

	if deps.Scanner != nil {
		tracked, err := deps.Scanner.IsTracked(cfg.File)
		if err != nil {
			return fail(s.ID(), err)
		}
		if tracked {
			return fail(s.ID(), fmt.Errorf("%w: %s", ErrSecretFileTracked, cfg.File))
		}
	}

	src := s.Source
	if src == nil {
		var err error
		if src, err = secret.NewSource(ctx, cfg); err != nil {
			return fail(s.ID(), err)
		}
	}

	path := cfg.File
	if !filepath.IsAbs(path) {
		path = filepath.Join(deps.RepoRoot, path)
	}

	m := &secret.Materializer{Name: cfg.Name, Path: path, Source: src, Log: deps.Log}
	present, err := m.Materialize(ctx)
	if err != nil {
		return fail(s.ID(), err)
	}

	if !present {
		return pass(s.ID(), cfg.Name+" is not set; wrote an empty value to "+cfg.File)
	}
	return pass(s.ID(), cfg.Name+" written to "+cfg.File)
}
