package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(t.TempDir(), "")
	require.NoError(t, err)

	assert.Equal(t, "main", cfg.Branch)
	assert.Equal(t, ".cadence/run", cfg.StateDir)
	assert.Equal(t, "python3", cfg.Runtime.Binary)
	assert.Equal(t, "~> 3.9.0", cfg.Runtime.Constraint)
	assert.Equal(t, []string{"pandas", "openai", "python-dotenv"}, cfg.Runtime.Packages)
	assert.Equal(t, []string{"python3", "-m", "pip", "install"}, cfg.Runtime.InstallerCommand())
	assert.Equal(t, "OPENAI_API_KEY", cfg.Secret.Name)
	assert.Equal(t, ".env", cfg.Secret.File)
	assert.Equal(t, SourceEnv, cfg.Secret.Source)
	assert.Equal(t, []string{"python3", "run_analysis.py"}, cfg.Analysis.Command)
	assert.Equal(t, "conversation_analysis.md", cfg.Publish.Report)
	assert.Equal(t, "Update analysis report", cfg.Publish.Message)
	assert.Equal(t, "github-actions[bot]", cfg.Publish.AuthorName)
	assert.Equal(t, "0 9 * * MON", cfg.Schedule.Cron)
}

func TestLoad_FileAndEnvOverride(t *testing.T) {
	dir := t.TempDir()
	content := `branch: develop
runtime:
  binary: python3.9
  packages:
    - pandas
    - openai
publish:
  report: reports/analysis.md
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, DefaultPath), []byte(content), 0o600))

	t.Setenv("CADENCE_ANALYSIS_TIMEOUT", "90s")

	cfg, err := Load(dir, "")
	require.NoError(t, err)

	assert.Equal(t, "develop", cfg.Branch)
	assert.Equal(t, "python3.9", cfg.Runtime.Binary)
	assert.Equal(t, []string{"pandas", "openai"}, cfg.Runtime.Packages)
	assert.Equal(t, []string{"python3.9", "-m", "pip", "install"}, cfg.Runtime.InstallerCommand())
	assert.Equal(t, "reports/analysis.md", cfg.Publish.Report)
	assert.Equal(t, 90*time.Second, cfg.Analysis.Timeout)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(t.TempDir(), filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	base := func() Config {
		cfg, err := Load(t.TempDir(), "")
		require.NoError(t, err)
		return *cfg
	}

	tests := []struct {
		name   string
		mutate func(c *Config)
		want   error
	}{
		{"empty branch", func(c *Config) { c.Branch = "" }, ErrMissingBranch},
		{"empty runtime", func(c *Config) { c.Runtime.Binary = "" }, ErrMissingRuntime},
		{"bad constraint", func(c *Config) { c.Runtime.Constraint = "not a version" }, ErrInvalidConstraint},
		{"bad secret name", func(c *Config) { c.Secret.Name = "OPENAI-KEY" }, ErrInvalidSecretName},
		{"unknown source", func(c *Config) { c.Secret.Source = "vault" }, ErrInvalidSecretSource},
		{"ssm without region", func(c *Config) { c.Secret.Source = SourceSSM }, ErrMissingSSMRegion},
		{"empty command", func(c *Config) { c.Analysis.Command = nil }, ErrMissingCommand},
		{"report is secret file", func(c *Config) { c.Publish.Report = "./.env" }, ErrReportIsSecretFile},
		{"no author", func(c *Config) { c.Publish.AuthorEmail = "" }, ErrMissingAuthor},
		{"no message", func(c *Config) { c.Publish.Message = "" }, ErrMissingMessage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(&cfg)
			assert.ErrorIs(t, cfg.Validate(), tt.want)
		})
	}
}
