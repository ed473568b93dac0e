package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/bartekus/cadence/cmd/cadence/internal/clierr"
	"github.com/bartekus/cadence/internal/workflow"
)

// NewWorkflowCommand returns the `cadence workflow` command group.
func NewWorkflowCommand(g *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "workflow",
		Short: "Generate or check the hosted CI workflow",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "print",
		Short: "Print the workflow YAML for the current config",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := g.load(cmd)
			if err != nil {
				return err
			}
			data, err := workflow.Render(workflow.FromConfig(e.cfg))
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "check <file>",
		Short: "Verify a workflow file carries the push, schedule and manual triggers",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := g.load(cmd)
			if err != nil {
				return err
			}
			data, err := os.ReadFile(g.path(args[0]))
			if err != nil {
				return err
			}
			if err := workflow.Check(data, workflow.FromConfig(e.cfg)); err != nil {
				return clierr.Wrapf(1, err, "%s", args[0])
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "OK")
			return nil
		},
	})

	return cmd
}
