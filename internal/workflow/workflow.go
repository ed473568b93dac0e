// Package workflow renders and checks the hosted CI workflow that runs the
// pipeline.
package workflow

import (
	"bytes"
	"errors"
	"fmt"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/bartekus/cadence/internal/config"
)

var (
	ErrMissingTrigger = errors.New("workflow is missing trigger")
	ErrBranchMismatch = errors.New("push trigger does not cover branch")
	ErrCronMismatch   = errors.New("schedule does not contain cron")
)

// Trigger names as they appear under "on".
const (
	OnPush     = "push"
	OnSchedule = "schedule"
	OnDispatch = "workflow_dispatch"
)

// Options are the values baked into the workflow.
type Options struct {
	Name          string
	Branch        string
	Cron          string
	PythonVersion string
	GoVersion     string
	SecretName    string
	TokenEnv      string
}

// FromConfig derives Options from the runner configuration.
func FromConfig(cfg *config.Config) Options {
	return Options{
		Name:          "Weekly conversation analysis",
		Branch:        cfg.Branch,
		Cron:          cfg.Schedule.Cron,
		PythonVersion: cfg.Workflow.PythonVersion,
		GoVersion:     cfg.Workflow.GoVersion,
		SecretName:    cfg.Secret.Name,
		TokenEnv:      cfg.Publish.TokenEnv,
	}
}

type document struct {
	Name        string            `yaml:"name"`
	On          triggers          `yaml:"on"`
	Permissions map[string]string `yaml:"permissions"`
	Jobs        map[string]job    `yaml:"jobs"`
}

type triggers struct {
	Push             branches    `yaml:"push"`
	Schedule         []cronEntry `yaml:"schedule"`
	WorkflowDispatch struct{}    `yaml:"workflow_dispatch"`
}

type branches struct {
	Branches []string `yaml:"branches"`
}

type cronEntry struct {
	Cron string `yaml:"cron"`
}

type job struct {
	RunsOn string `yaml:"runs-on"`
	Steps  []step `yaml:"steps"`
}

type step struct {
	Name string            `yaml:"name,omitempty"`
	Uses string            `yaml:"uses,omitempty"`
	With map[string]string `yaml:"with,omitempty"`
	Run  string            `yaml:"run,omitempty"`
	Env  map[string]string `yaml:"env,omitempty"`
}

// Render produces the workflow YAML.
func Render(o Options) ([]byte, error) {
	doc := document{
		Name: o.Name,
		On: triggers{
			Push:     branches{Branches: []string{o.Branch}},
			Schedule: []cronEntry{{Cron: o.Cron}},
		},
		// the publish step pushes the report back
		Permissions: map[string]string{"contents": "write"},
		Jobs: map[string]job{
			"analyze": {
				RunsOn: "ubuntu-latest",
				Steps: []step{
					{Name: "Check out repository", Uses: "actions/checkout@v4", With: map[string]string{"fetch-depth": "0"}},
					{Name: "Set up Python", Uses: "actions/setup-python@v5", With: map[string]string{"python-version": o.PythonVersion}},
					{Name: "Set up Go", Uses: "actions/setup-go@v5", With: map[string]string{"go-version": o.GoVersion}},
					{
						Name: "Run analysis",
						Run:  "go run ./cmd/cadence run --trigger ${{ github.event_name }}",
						Env: map[string]string{
							o.SecretName: "${{ secrets." + o.SecretName + " }}",
							o.TokenEnv:   "${{ secrets.GITHUB_TOKEN }}",
						},
					},
				},
			},
		},
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return nil, fmt.Errorf("encoding workflow: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Check parses a workflow file and verifies that it runs on a push to the
// branch, on the cron schedule and on manual dispatch.
func Check(data []byte, o Options) error {
	var doc struct {
		On yaml.Node `yaml:"on"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("parsing workflow: %w", err)
	}

	on, err := parseTriggers(&doc.On)
	if err != nil {
		return err
	}

	var errs []error
	for _, name := range []string{OnPush, OnSchedule, OnDispatch} {
		if _, ok := on[name]; !ok {
			errs = append(errs, fmt.Errorf("%w: %s", ErrMissingTrigger, name))
		}
	}

	if n := on[OnPush]; n != nil && n.Kind == yaml.MappingNode {
		var push struct {
			Branches []string `yaml:"branches"`
		}
		if err := n.Decode(&push); err != nil {
			return fmt.Errorf("parsing push trigger: %w", err)
		}
		if len(push.Branches) > 0 && !slices.Contains(push.Branches, o.Branch) {
			errs = append(errs, fmt.Errorf("%w: %s", ErrBranchMismatch, o.Branch))
		}
	}

	if n := on[OnSchedule]; n != nil {
		var entries []cronEntry
		if err := n.Decode(&entries); err != nil {
			return fmt.Errorf("parsing schedule trigger: %w", err)
		}
		if !slices.ContainsFunc(entries, func(e cronEntry) bool { return e.Cron == o.Cron }) {
			errs = append(errs, fmt.Errorf("%w: %q", ErrCronMismatch, o.Cron))
		}
	}
	return errors.Join(errs...)
}

// parseTriggers accepts the three shapes "on" may take: a single event name,
// a list of names or a mapping of name to settings. List and scalar entries
// map to a nil node.
func parseTriggers(n *yaml.Node) (map[string]*yaml.Node, error) {
	out := map[string]*yaml.Node{}
	switch n.Kind {
	case 0:
		// no "on" key
	case yaml.ScalarNode:
		out[n.Value] = nil
	case yaml.SequenceNode:
		for _, item := range n.Content {
			out[item.Value] = nil
		}
	case yaml.MappingNode:
		for i := 0; i+1 < len(n.Content); i += 2 {
			out[n.Content[i].Value] = n.Content[i+1]
		}
	default:
		return nil, fmt.Errorf("parsing workflow: unexpected \"on\" of kind %d", n.Kind)
	}
	return out, nil
}
