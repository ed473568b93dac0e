package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/bartekus/cadence/cmd/cadence/internal/clierr"
	"github.com/bartekus/cadence/internal/runner"
	"github.com/bartekus/cadence/internal/trigger"
)

// NewScheduleCommand returns the `cadence schedule` command.
func NewScheduleCommand(g *globalOptions) *cobra.Command {
	o := &runOptions{trigger: string(trigger.Schedule)}
	var next int

	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Run the pipeline on the configured cron until interrupted",
		Long: `Keeps running in the foreground and starts the full pipeline at every cron
firing (UTC). A firing that arrives while a run is still going is skipped.
With --next it only prints the upcoming firing times.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := g.load(cmd)
			if err != nil {
				return err
			}
			spec := e.cfg.Schedule.Cron

			if next > 0 {
				return printNext(cmd, spec, next, time.Now())
			}

			s := trigger.NewScheduler(spec, e.log)
			// the scheduler hands every run the command's context
			return s.Run(cmd.Context(), func(context.Context) error {
				return o.execute(cmd, g, func(ctx context.Context, r *runner.Runner) error {
					return r.RunAll(ctx)
				})
			})
		},
	}

	cmd.Flags().IntVar(&next, "next", 0, "Print the next N firing times and exit")
	cmd.Flags().BoolVar(&o.dryRun, "dry-run", false, "Report what publish would do without committing or pushing")
	cmd.Flags().StringVar(&o.stateDir, "state-dir", "", "Directory to store run state (default from config: .cadence/run)")

	return cmd
}

func printNext(cmd *cobra.Command, spec string, n int, now time.Time) error {
	t := now
	for range n {
		var err error
		if t, err = trigger.NextScheduled(spec, t); err != nil {
			return clierr.Wrap(1, "invalid schedule", err)
		}
		_, _ = fmt.Fprintln(cmd.OutOrStdout(), t.Format(time.RFC3339))
	}
	return nil
}
