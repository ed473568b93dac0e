package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/hashicorp/go-version"
	"github.com/ilyakaznacheev/cleanenv"
)

// DefaultPath is the config file picked up from the repository root when no
// explicit path is given.
const DefaultPath = "cadence.yaml"

// Config is the full runner configuration. Every field can be set from the
// YAML file or overridden through its CADENCE_* environment variable.
type Config struct {
	Branch   string `yaml:"branch" env:"CADENCE_BRANCH" env-default:"main"`
	StateDir string `yaml:"state_dir" env:"CADENCE_STATE_DIR" env-default:".cadence/run"`

	Log      LogConfig      `yaml:"log"`
	Runtime  RuntimeConfig  `yaml:"runtime"`
	Secret   SecretConfig   `yaml:"secret"`
	Analysis AnalysisConfig `yaml:"analysis"`
	Publish  PublishConfig  `yaml:"publish"`
	Schedule ScheduleConfig `yaml:"schedule"`
	Workflow WorkflowConfig `yaml:"workflow"`
}

type LogConfig struct {
	Level string `yaml:"level" env:"CADENCE_LOG_LEVEL" env-default:"info"`
}

// RuntimeConfig describes the scripting runtime the analysis runs on and the
// packages installed into it before every run.
type RuntimeConfig struct {
	Binary     string   `yaml:"binary" env:"CADENCE_RUNTIME_BINARY" env-default:"python3"`
	Constraint string   `yaml:"constraint" env:"CADENCE_RUNTIME_CONSTRAINT" env-default:"~> 3.9.0"`
	Packages   []string `yaml:"packages" env:"CADENCE_RUNTIME_PACKAGES" env-default:"pandas,openai,python-dotenv" env-separator:","`
	// Installer defaults to "<binary> -m pip install" when empty.
	Installer []string `yaml:"installer" env:"CADENCE_RUNTIME_INSTALLER" env-separator:" "`
}

// SecretConfig selects where the credential comes from and where it lands.
type SecretConfig struct {
	Name   string `yaml:"name" env:"CADENCE_SECRET_NAME" env-default:"OPENAI_API_KEY"`
	File   string `yaml:"file" env:"CADENCE_SECRET_FILE" env-default:".env"`
	Source string `yaml:"source" env:"CADENCE_SECRET_SOURCE" env-default:"env"`

	KeyringService string `yaml:"keyring_service" env:"CADENCE_SECRET_KEYRING_SERVICE" env-default:"cadence"`
	SSMPrefix      string `yaml:"ssm_prefix" env:"CADENCE_SECRET_SSM_PREFIX"`
	SSMRegion      string `yaml:"ssm_region" env:"CADENCE_SECRET_SSM_REGION"`
}

type AnalysisConfig struct {
	Command []string      `yaml:"command" env:"CADENCE_ANALYSIS_COMMAND" env-default:"python3 run_analysis.py" env-separator:" "`
	Timeout time.Duration `yaml:"timeout" env:"CADENCE_ANALYSIS_TIMEOUT"`
}

// PublishConfig controls how the report is committed and pushed.
type PublishConfig struct {
	Report      string `yaml:"report" env:"CADENCE_PUBLISH_REPORT" env-default:"conversation_analysis.md"`
	Message     string `yaml:"message" env:"CADENCE_PUBLISH_MESSAGE" env-default:"Update analysis report"`
	AuthorName  string `yaml:"author_name" env:"CADENCE_PUBLISH_AUTHOR_NAME" env-default:"github-actions[bot]"`
	AuthorEmail string `yaml:"author_email" env:"CADENCE_PUBLISH_AUTHOR_EMAIL" env-default:"41898282+github-actions[bot]@users.noreply.github.com"`
	Remote      string `yaml:"remote" env:"CADENCE_PUBLISH_REMOTE" env-default:"origin"`
	// TokenEnv names the variable holding the push token; the token itself is
	// never part of the config.
	TokenEnv string `yaml:"token_env" env:"CADENCE_PUBLISH_TOKEN_ENV" env-default:"GITHUB_TOKEN"`
}

type ScheduleConfig struct {
	Cron string `yaml:"cron" env:"CADENCE_SCHEDULE_CRON" env-default:"0 9 * * MON"`
}

// WorkflowConfig feeds the generated CI workflow and the manual dispatch.
type WorkflowConfig struct {
	File          string `yaml:"file" env:"CADENCE_WORKFLOW_FILE" env-default:"analysis.yml"`
	Repository    string `yaml:"repository" env:"GITHUB_REPOSITORY"`
	PythonVersion string `yaml:"python_version" env:"CADENCE_WORKFLOW_PYTHON_VERSION" env-default:"3.9"`
	GoVersion     string `yaml:"go_version" env:"CADENCE_WORKFLOW_GO_VERSION" env-default:"1.24"`
	APIBaseURL    string `yaml:"api_base_url" env:"GITHUB_API_URL"`
}

// Load reads the config at path. An empty path falls back to DefaultPath
// under dir when that file exists, and to environment-only config otherwise.
func Load(dir, path string) (*Config, error) {
	var cfg Config

	if path == "" {
		candidate := filepath.Join(dir, DefaultPath)
		if _, err := os.Stat(candidate); err == nil {
			path = candidate
		}
	}

	if path == "" {
		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return nil, fmt.Errorf("reading config from environment: %w", err)
		}
	} else {
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

var envKey = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Validate checks the configuration for values the pipeline cannot run with.
func (c *Config) Validate() error {
	if c.Branch == "" {
		return ErrMissingBranch
	}
	if c.Runtime.Binary == "" {
		return ErrMissingRuntime
	}
	if _, err := version.NewConstraint(c.Runtime.Constraint); err != nil {
		return fmt.Errorf("%w: %q: %w", ErrInvalidConstraint, c.Runtime.Constraint, err)
	}
	if !envKey.MatchString(c.Secret.Name) {
		return fmt.Errorf("%w: %q", ErrInvalidSecretName, c.Secret.Name)
	}
	if c.Secret.File == "" {
		return ErrMissingSecretFile
	}
	switch c.Secret.Source {
	case SourceEnv, SourceKeyring:
	case SourceSSM:
		if c.Secret.SSMRegion == "" {
			return ErrMissingSSMRegion
		}
	default:
		return fmt.Errorf("%w: %q", ErrInvalidSecretSource, c.Secret.Source)
	}
	if len(c.Analysis.Command) == 0 || c.Analysis.Command[0] == "" {
		return ErrMissingCommand
	}
	if c.Publish.Report == "" {
		return ErrMissingReport
	}
	if filepath.Clean(c.Publish.Report) == filepath.Clean(c.Secret.File) {
		return ErrReportIsSecretFile
	}
	if c.Publish.AuthorName == "" || c.Publish.AuthorEmail == "" {
		return ErrMissingAuthor
	}
	if c.Publish.Message == "" {
		return ErrMissingMessage
	}
	return nil
}

// InstallerCommand returns the package installer invocation.
func (r RuntimeConfig) InstallerCommand() []string {
	if len(r.Installer) > 0 {
		return r.Installer
	}
	return []string{r.Binary, "-m", "pip", "install"}
}
