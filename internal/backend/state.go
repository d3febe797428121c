package backend

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"
)

// StateBackend is an in-process virtual filesystem. Files live in a flat
// map for the lifetime of the agent run; nothing touches the host disk. It
// has no execute capability.
type StateBackend struct {
	mu    sync.RWMutex
	files map[string]stateFile

	// now is swappable so tests can control modification times.
	now func() time.Time
}

type stateFile struct {
	content    string
	modifiedAt time.Time
}

// NewState returns an empty in-memory backend.
func NewState() *StateBackend {
	return &StateBackend{files: map[string]stateFile{}, now: time.Now}
}

func (s *StateBackend) ID() string {
	return "state"
}

func (s *StateBackend) Read(_ context.Context, path string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	file, ok := s.files[path]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	return file.content, nil
}

func (s *StateBackend) Write(_ context.Context, path string, content string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files[path] = stateFile{content: content, modifiedAt: s.now()}
	return nil
}

func (s *StateBackend) ListDir(_ context.Context, path string) ([]DirEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sizes := make(map[string]int64, len(s.files))
	for p, file := range s.files {
		sizes[p] = int64(len(file.content))
	}
	return listKeyDir(sizes, path), nil
}

func (s *StateBackend) Glob(_ context.Context, pattern string, root string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	modTimes := make(map[string]time.Time, len(s.files))
	for p, file := range s.files {
		modTimes[p] = file.modifiedAt
	}
	return globKeys(modTimes, pattern, root), nil
}

func (s *StateBackend) Grep(_ context.Context, pattern string, root string) ([]GrepMatch, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("compile grep pattern: %w", err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var matches []GrepMatch
	for p, file := range s.files {
		if _, ok := relativeTo(p, root); !ok && p != root {
			continue
		}
		for i, line := range strings.Split(file.content, "\n") {
			if re.MatchString(line) {
				matches = append(matches, GrepMatch{File: p, Line: i + 1, Text: line})
			}
		}
	}
	sortGrepMatches(matches)
	return matches, nil
}
