package projectroot

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/go-git/go-git/v5"
)

// ErrNotFound is returned when no git working tree encloses the start path.
var ErrNotFound = errors.New("not inside a git repository")

// Find returns the root of the git working tree containing start.
func Find(start string) (string, error) {
	abs, err := filepath.Abs(start)
	if err != nil {
		return "", fmt.Errorf("resolving %s: %w", start, err)
	}

	repo, err := git.PlainOpenWithOptions(abs, &git.PlainOpenOptions{
		DetectDotGit:          true,
		EnableDotGitCommonDir: true,
	})
	if errors.Is(err, git.ErrRepositoryNotExists) {
		return "", fmt.Errorf("%w: %s", ErrNotFound, abs)
	}
	if err != nil {
		return "", fmt.Errorf("opening repository at %s: %w", abs, err)
	}

	wt, err := repo.Worktree()
	if err != nil {
		return "", fmt.Errorf("%w: %s has no working tree", ErrNotFound, abs)
	}
	return wt.Filesystem.Root(), nil
}
