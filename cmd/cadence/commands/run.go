package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/bartekus/cadence/cmd/cadence/internal/clierr"
	"github.com/bartekus/cadence/internal/runner"
	"github.com/bartekus/cadence/internal/scanner"
	"github.com/bartekus/cadence/internal/steps"
	"github.com/bartekus/cadence/internal/trigger"
)

type runOptions struct {
	json     bool
	stateDir string
	trigger  string
	ref      string
	dryRun   bool
}

// NewRunCommand returns the `cadence run` command group.
func NewRunCommand(g *globalOptions) *cobra.Command {
	o := &runOptions{}
	cmd := &cobra.Command{
		Use:   "run [step...]",
		Short: "Run the analysis pipeline",
		Long: `Runs provision, secret, analyze and publish in order and stops at the
first failing step. Naming steps runs only those, still in pipeline order.
State is kept in .cadence/run so a failed run can be resumed.`,
		ValidArgs: steps.IDs(),
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.execute(cmd, g, func(ctx context.Context, r *runner.Runner) error {
				if len(args) == 0 {
					return r.RunAll(ctx)
				}
				return r.RunList(ctx, args)
			})
		},
	}

	cmd.PersistentFlags().BoolVar(&o.json, "json", false, "Output results in JSON")
	cmd.PersistentFlags().StringVar(&o.stateDir, "state-dir", "", "Directory to store run state (default from config: .cadence/run)")
	cmd.PersistentFlags().StringVar(&o.trigger, "trigger", "", "Trigger that started the run: "+strings.Join(trigger.Names(), ", ")+" (default: detected from GITHUB_EVENT_NAME)")
	cmd.PersistentFlags().StringVar(&o.ref, "ref", "", "Ref a push trigger targeted (default: GITHUB_REF)")
	cmd.PersistentFlags().BoolVar(&o.dryRun, "dry-run", false, "Report what publish would do without committing or pushing")

	cmd.AddCommand(newRunListCommand(o))
	cmd.AddCommand(newRunResumeCommand(g, o))
	cmd.AddCommand(newRunReportCommand(g, o))
	cmd.AddCommand(newRunResetCommand(g, o))

	return cmd
}

type runFunc func(ctx context.Context, r *runner.Runner) error

func (o *runOptions) execute(cmd *cobra.Command, g *globalOptions, fn runFunc) error {
	e, err := g.load(cmd)
	if err != nil {
		return err
	}

	ev := trigger.Detect(os.Getenv)
	if o.trigger != "" {
		if ev, err = trigger.Parse(o.trigger); err != nil {
			return clierr.Wrap(1, "invalid --trigger", err)
		}
	}
	ref := o.ref
	if ref == "" {
		ref = os.Getenv("GITHUB_REF")
	}

	out := cmd.OutOrStdout()
	if ok, reason := trigger.ShouldRun(ev, ref, e.cfg.Branch); !ok {
		e.log.Info("run skipped", "trigger", ev, "reason", reason)
		if o.json {
			return writeJSON(out, map[string]any{"status": "skipped", "trigger": ev, "reason": reason})
		}
		_, _ = fmt.Fprintf(out, "Skipped: %s\n", reason)
		return nil
	}

	store := o.store(e)
	progress := out
	if o.json {
		progress = cmd.ErrOrStderr()
	}
	deps := &runner.Deps{
		RepoRoot: e.root,
		StateDir: store.Dir(),
		Config:   e.cfg,
		Scanner:  scanner.New(e.root),
		Log:      e.log,
		Trigger:  ev,
		DryRun:   o.dryRun,
		Out:      progress,
	}

	e.log.Info("run starting", "trigger", ev, "steps", steps.IDs(), "dry_run", o.dryRun)
	runErr := fn(cmd.Context(), runner.NewRunner(steps.Registry, store, deps))

	if o.json {
		last, err := store.ReadLastRun()
		if err != nil {
			return err
		}
		if last != nil {
			if err := writeJSON(out, last); err != nil {
				return err
			}
		}
	}

	var failed *runner.FailedError
	if errors.As(runErr, &failed) {
		return clierr.Wrap(failed.ExitCode(), "analysis run failed", runErr)
	}
	return runErr
}

func (o *runOptions) store(e *env) *runner.StateStore {
	dir := o.stateDir
	if dir == "" {
		dir = e.cfg.StateDir
	}
	return runner.NewStateStore(e.resolve(dir))
}

type stepListItem struct {
	ID string `json:"id"`
}

func newRunListCommand(o *runOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List pipeline steps in order",
		RunE: func(cmd *cobra.Command, args []string) error {
			ids := steps.IDs()
			if o.json {
				return writeJSON(cmd.OutOrStdout(), map[string]any{"steps": ids})
			}
			for _, id := range ids {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), id)
			}
			return nil
		},
	}
}

func newRunResumeCommand(g *globalOptions, o *runOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "resume",
		Short: "Resume from the step that failed in the last run",
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.execute(cmd, g, func(ctx context.Context, r *runner.Runner) error {
				return r.Resume(ctx)
			})
		},
	}
}

func newRunResetCommand(g *globalOptions, o *runOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Clear run state",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := g.load(cmd)
			if err != nil {
				return err
			}
			return o.store(e).Reset()
		},
	}
}

func newRunReportCommand(g *globalOptions, o *runOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "report",
		Short: "Show last run status",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := g.load(cmd)
			if err != nil {
				return err
			}
			store := o.store(e)

			if o.json {
				last, err := store.ReadLastRun()
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), last)
			}
			return store.WriteReport(cmd.OutOrStdout())
		},
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
