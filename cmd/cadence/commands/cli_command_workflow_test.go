package commands

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bartekus/cadence/internal/workflow"
)

func TestWorkflowPrintThenCheck(t *testing.T) {
	dir := newProject(t)

	out, err := execute(t, "-C", dir, "workflow", "print")
	require.NoError(t, err)
	assert.Contains(t, out, "workflow_dispatch")
	assert.Contains(t, out, "0 9 * * MON")

	path := filepath.Join(dir, "analysis.yml")
	require.NoError(t, os.WriteFile(path, []byte(out), 0o644))

	out, err = execute(t, "-C", dir, "workflow", "check", "analysis.yml")
	require.NoError(t, err)
	assert.Equal(t, "OK\n", out)
}

func TestWorkflowCheck_MissingTrigger(t *testing.T) {
	dir := newProject(t)
	path := filepath.Join(dir, "ci.yml")
	require.NoError(t, os.WriteFile(path, []byte("on: [push]\n"), 0o644))

	_, err := execute(t, "-C", dir, "workflow", "check", "ci.yml")
	require.Error(t, err)
	assert.ErrorIs(t, err, workflow.ErrMissingTrigger)
	assert.Contains(t, err.Error(), "schedule")
}

func TestScheduleNext(t *testing.T) {
	dir := newProject(t)

	out, err := execute(t, "-C", dir, "schedule", "--next", "2")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	for _, l := range lines {
		assert.True(t, strings.HasSuffix(l, "T09:00:00Z"), l)
	}
}

func TestDispatch(t *testing.T) {
	var gotPath string
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	t.Setenv("GITHUB_TOKEN", "ghs_token")
	t.Setenv("GITHUB_REPOSITORY", "acme/support")
	dir := newProject(t)

	out, err := execute(t, "-C", dir, "dispatch", "--api-url", srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "Dispatched analysis.yml on acme/support@main\n", out)
	assert.Equal(t, "/repos/acme/support/actions/workflows/analysis.yml/dispatches", gotPath)
	assert.Equal(t, map[string]any{"ref": "main"}, gotBody)
}

func TestDispatch_NoToken(t *testing.T) {
	t.Setenv("GITHUB_TOKEN", "")
	dir := newProject(t)

	_, err := execute(t, "-C", dir, "dispatch", "--repo", "acme/support")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "GITHUB_TOKEN")
}
