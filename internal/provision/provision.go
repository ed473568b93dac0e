package provision

import (
	"context"
	"errors"
	"fmt"
	"io"
	"regexp"

	"github.com/charmbracelet/log"
	"github.com/hashicorp/go-version"

	"github.com/bartekus/cadence/internal/config"
	"github.com/bartekus/cadence/internal/execx"
	"github.com/bartekus/cadence/internal/logging"
)

var (
	ErrRuntimeNotFound  = errors.New("runtime not found")
	ErrRuntimeVersion   = errors.New("runtime version does not satisfy constraint")
	ErrUnparsedVersion  = errors.New("cannot parse runtime version")
	ErrInstallFailed    = errors.New("dependency installation failed")
	ErrNoInstallCommand = errors.New("installer command is empty")
)

var versionPattern = regexp.MustCompile(`\d+\.\d+(\.\d+)?`)

// Provisioner makes the runtime and the named packages available to the
// analysis step. Provisioning twice yields an equivalent environment.
type Provisioner struct {
	binary     string
	constraint version.Constraints
	packages   []string
	installer  []string
	dir        string
	out        io.Writer
	log        *log.Logger
}

// New builds a Provisioner for cfg, running commands in dir and streaming
// their output to out.
func New(cfg config.RuntimeConfig, dir string, out io.Writer, logger *log.Logger) (*Provisioner, error) {
	constraint, err := version.NewConstraint(cfg.Constraint)
	if err != nil {
		return nil, fmt.Errorf("parsing constraint %q: %w", cfg.Constraint, err)
	}
	return &Provisioner{
		binary:     cfg.Binary,
		constraint: constraint,
		packages:   cfg.Packages,
		installer:  cfg.InstallerCommand(),
		dir:        dir,
		out:        out,
		log:        logging.OrDiscard(logger),
	}, nil
}

// Provision checks the runtime and installs the packages, stopping at the
// first failure.
func (p *Provisioner) Provision(ctx context.Context) error {
	if _, err := p.CheckRuntime(ctx); err != nil {
		return err
	}
	return p.Install(ctx)
}

// CheckRuntime runs "<binary> --version" and verifies the reported version.
func (p *Provisioner) CheckRuntime(ctx context.Context) (*version.Version, error) {
	res, err := execx.Run(ctx, execx.Cmd{Dir: p.dir, Args: []string{p.binary, "--version"}})
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrRuntimeNotFound, p.binary, err)
	}

	raw := versionPattern.FindString(res.Output)
	if raw == "" {
		return nil, fmt.Errorf("%w: %q", ErrUnparsedVersion, res.Output)
	}
	v, err := version.NewVersion(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %w", ErrUnparsedVersion, raw, err)
	}

	if !p.constraint.Check(v) {
		return v, fmt.Errorf("%w: %s %s, want %s", ErrRuntimeVersion, p.binary, v, p.constraint)
	}
	p.log.Info("runtime ready", "binary", p.binary, "version", v.String(), "constraint", p.constraint.String())
	return v, nil
}

// Install runs the installer once with every package, in order.
func (p *Provisioner) Install(ctx context.Context) error {
	if len(p.installer) == 0 {
		return ErrNoInstallCommand
	}
	if len(p.packages) == 0 {
		p.log.Info("no packages to install")
		return nil
	}

	args := append(append([]string(nil), p.installer...), p.packages...)
	p.log.Info("installing packages", "packages", p.packages)
	if _, err := execx.Run(ctx, execx.Cmd{Dir: p.dir, Args: args, Stream: p.out}); err != nil {
		return fmt.Errorf("%w: %w", ErrInstallFailed, err)
	}
	return nil
}
