package scanner

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/go-git/go-git/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScanner_TrackedFiles(t *testing.T) {
	dir := t.TempDir()
	repo, err := git.PlainInit(dir, false)
	require.NoError(t, err)
	wt, err := repo.Worktree()
	require.NoError(t, err)

	require.NoError(t, os.MkdirAll(filepath.Join(dir, "data"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "run_analysis.py"), []byte("print(1)\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "data", "support.csv"), []byte("a,b\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("OPENAI_API_KEY=x\n"), 0o600))

	_, err = wt.Add("run_analysis.py")
	require.NoError(t, err)
	_, err = wt.Add("data/support.csv")
	require.NoError(t, err)

	s := New(dir)
	files, err := s.TrackedFiles()
	require.NoError(t, err)
	assert.Equal(t, []string{"data/support.csv", "run_analysis.py"}, files)

	tracked, err := s.IsTracked(filepath.Join("data", "support.csv"))
	require.NoError(t, err)
	assert.True(t, tracked)

	tracked, err = s.IsTracked("./.env")
	require.NoError(t, err)
	assert.False(t, tracked)
}

func TestScanner_NotARepository(t *testing.T) {
	_, err := New(t.TempDir()).TrackedFiles()
	require.Error(t, err)
}
