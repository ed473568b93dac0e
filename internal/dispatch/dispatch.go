// Package dispatch starts the hosted workflow's manual trigger through the
// GitHub API.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/google/go-github/v72/github"
	"golang.org/x/oauth2"

	"github.com/bartekus/cadence/internal/logging"
)

const defaultAPIURL = "https://api.github.com/"

var (
	ErrMissingToken = errors.New("GitHub token is required")
	ErrInvalidRepo  = errors.New("repository must be owner/name")
)

// Client triggers workflow_dispatch events.
type Client struct {
	gh  *github.Client
	log *log.Logger
}

// New returns a Client authenticated with token. baseURL points at a GitHub
// Enterprise API root, for example the runner's GITHUB_API_URL; empty means
// api.github.com.
func New(ctx context.Context, token, baseURL string, logger *log.Logger) (*Client, error) {
	if token == "" {
		return nil, ErrMissingToken
	}

	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	return newClient(oauth2.NewClient(ctx, ts), baseURL, logger)
}

func newClient(hc *http.Client, baseURL string, logger *log.Logger) (*Client, error) {
	gh := github.NewClient(hc)
	if baseURL != "" && strings.TrimSuffix(baseURL, "/")+"/" != defaultAPIURL {
		u, err := url.Parse(strings.TrimSuffix(baseURL, "/") + "/")
		if err != nil {
			return nil, fmt.Errorf("parsing API URL %q: %w", baseURL, err)
		}
		gh.BaseURL = u
	}
	return &Client{gh: gh, log: logging.OrDiscard(logger)}, nil
}

// Dispatch fires the manual trigger of workflow (a file name such as
// analysis.yml) in repo on ref. The run takes no inputs.
func (c *Client) Dispatch(ctx context.Context, repo, workflow, ref string) error {
	owner, name, err := SplitRepo(repo)
	if err != nil {
		return err
	}

	c.log.Info("dispatching workflow", "repo", repo, "workflow", workflow, "ref", ref)
	_, err = c.gh.Actions.CreateWorkflowDispatchEventByFileName(ctx, owner, name, workflow,
		github.CreateWorkflowDispatchEventRequest{Ref: ref})
	if err != nil {
		return fmt.Errorf("dispatching %s on %s@%s: %w", workflow, repo, ref, err)
	}
	return nil
}

// SplitRepo splits "owner/name".
func SplitRepo(repo string) (string, string, error) {
	owner, name, ok := strings.Cut(repo, "/")
	if !ok || owner == "" || name == "" || strings.Contains(name, "/") {
		return "", "", fmt.Errorf("%w: %q", ErrInvalidRepo, repo)
	}
	return owner, name, nil
}
