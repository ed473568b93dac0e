package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/bartekus/cadence/cmd/cadence/internal/clierr"
	"github.com/bartekus/cadence/internal/dispatch"
)

type dispatchOptions struct {
	repo     string
	workflow string
	ref      string
	apiURL   string
}

// NewDispatchCommand returns the `cadence dispatch` command.
func NewDispatchCommand(g *globalOptions) *cobra.Command {
	o := &dispatchOptions{}
	cmd := &cobra.Command{
		Use:   "dispatch",
		Short: "Trigger the hosted workflow manually",
		Long: `Fires the workflow's manual trigger through the GitHub API. The token is
read from the variable named by publish.token_env (GITHUB_TOKEN by default).`,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := g.load(cmd)
			if err != nil {
				return err
			}

			repo := firstNonEmpty(o.repo, e.cfg.Workflow.Repository)
			workflow := firstNonEmpty(o.workflow, e.cfg.Workflow.File)
			ref := firstNonEmpty(o.ref, e.cfg.Branch)
			apiURL := firstNonEmpty(o.apiURL, e.cfg.Workflow.APIBaseURL)

			client, err := dispatch.New(cmd.Context(), os.Getenv(e.cfg.Publish.TokenEnv), apiURL, e.log)
			if err != nil {
				return clierr.Wrapf(1, err, "reading %s", e.cfg.Publish.TokenEnv)
			}
			if err := client.Dispatch(cmd.Context(), repo, workflow, ref); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Dispatched %s on %s@%s\n", workflow, repo, ref)
			return nil
		},
	}

	cmd.Flags().StringVar(&o.repo, "repo", "", "Repository as owner/name (default: GITHUB_REPOSITORY)")
	cmd.Flags().StringVar(&o.workflow, "workflow", "", "Workflow file name (default from config: analysis.yml)")
	cmd.Flags().StringVar(&o.ref, "ref", "", "Branch to run on (default: the configured branch)")
	cmd.Flags().StringVar(&o.apiURL, "api-url", "", "GitHub API base URL (default: GITHUB_API_URL or api.github.com)")

	return cmd
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
