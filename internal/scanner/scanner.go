package scanner

import (
	"fmt"
	"path/filepath"
	"sort"
	"sync"

	"github.com/go-git/go-git/v5"
)

// Scanner answers questions about which files the repository tracks.
type Scanner struct {
	repoRoot string

	mu           sync.Mutex
	trackedCache map[string]struct{}
}

// New creates a new Scanner for the given repository root.
func New(repoRoot string) *Scanner {
	return &Scanner{
		repoRoot: repoRoot,
	}
}

// TrackedFiles returns all paths in the git index, slash separated and sorted.
// The index is read once per Scanner.
func (s *Scanner) TrackedFiles() ([]string, error) {
	tracked, err := s.load()
	if err != nil {
		return nil, err
	}
	files := make([]string, 0, len(tracked))
	for f := range tracked {
		files = append(files, f)
	}
	sort.Strings(files)
	return files, nil
}

// IsTracked reports whether path (relative to the repo root) is in the index.
func (s *Scanner) IsTracked(path string) (bool, error) {
	tracked, err := s.load()
	if err != nil {
		return false, err
	}
	_, ok := tracked[filepath.ToSlash(filepath.Clean(path))]
	return ok, nil
}

func (s *Scanner) load() (map[string]struct{}, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.trackedCache != nil {
		return s.trackedCache, nil
	}

	repo, err := git.PlainOpen(s.repoRoot)
	if err != nil {
		return nil, fmt.Errorf("opening repository: %w", err)
	}
	idx, err := repo.Storer.Index()
	if err != nil {
		return nil, fmt.Errorf("reading git index: %w", err)
	}

	tracked := make(map[string]struct{}, len(idx.Entries))
	for _, e := range idx.Entries {
		tracked[e.Name] = struct{}{}
	}
	s.trackedCache = tracked
	return s.trackedCache, nil
}
