package backend

import (
	"context"
	"testing"
	"time"

	"github.com/deepagents/deepagents/internal/testutil"
)

// seedState fills a StateBackend with files at fixed modification times.
func seedState(t *testing.T) *StateBackend {
	t.Helper()
	s := NewState()
	base := time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)
	files := []struct {
		path string
		mod  time.Duration
	}{
		{path: "/docs/readme.md", mod: 0},
		{path: "/src/utils/common.py", mod: 1 * time.Hour},
		{path: "/src/main.py", mod: 2 * time.Hour},
		{path: "/src/utils/helper.py", mod: 3 * time.Hour},
		{path: "/test.py", mod: 4 * time.Hour},
	}
	for _, f := range files {
		at := base.Add(f.mod)
		s.now = func() time.Time { return at }
		testutil.RequireNoError(t, s.Write(context.Background(), f.path, "content of "+f.path), "seed write")
	}
	s.now = time.Now
	return s
}

func TestStateReadWrite(t *testing.T) {
	s := NewState()
	ctx := context.Background()

	_, err := s.Read(ctx, "/missing.txt")
	testutil.RequireErrorIs(t, err, ErrNotFound, "missing file")

	testutil.RequireNoError(t, s.Write(ctx, "/notes.txt", "hello"), "write")
	got, err := s.Read(ctx, "/notes.txt")
	testutil.RequireNoError(t, err, "read back")
	testutil.RequireEqual(t, got, "hello", "content")

	testutil.RequireNoError(t, s.Write(ctx, "/notes.txt", "updated"), "overwrite")
	got, err = s.Read(ctx, "/notes.txt")
	testutil.RequireNoError(t, err, "read after overwrite")
	testutil.RequireEqual(t, got, "updated", "updated content")
}

func TestStateGlob(t *testing.T) {
	s := seedState(t)
	ctx := context.Background()

	// A single-segment pattern matches only the top level of the root.
	got, err := s.Glob(ctx, "*.py", "/")
	testutil.RequireNoError(t, err, "glob *.py")
	testutil.RequireEqual(t, got, []string{"/test.py"}, "top-level matches only")

	// "**" spans directories, most recently modified first.
	got, err = s.Glob(ctx, "**/*.py", "/")
	testutil.RequireNoError(t, err, "glob **/*.py")
	testutil.RequireEqual(t, got, []string{
		"/test.py",
		"/src/utils/helper.py",
		"/src/main.py",
		"/src/utils/common.py",
	}, "recursive matches sorted by modification time")

	// The root parameter scopes the search.
	got, err = s.Glob(ctx, "*.py", "/src/utils/")
	testutil.RequireNoError(t, err, "scoped glob")
	testutil.RequireEqual(t, got, []string{"/src/utils/helper.py", "/src/utils/common.py"}, "scoped matches")

	// No matches is an empty result, not an error.
	got, err = s.Glob(ctx, "*.xyz", "/")
	testutil.RequireNoError(t, err, "glob with no matches")
	testutil.RequireEqual(t, len(got), 0, "empty result")

	// A traversal root degrades to no matches.
	got, err = s.Glob(ctx, "*.py", "../etc/")
	testutil.RequireNoError(t, err, "traversal root")
	testutil.RequireEqual(t, len(got), 0, "traversal root yields nothing")
}

func TestStateListDir(t *testing.T) {
	s := seedState(t)
	entries, err := s.ListDir(context.Background(), "/src")
	testutil.RequireNoError(t, err, "list /src")
	testutil.RequireEqual(t, entries, []DirEntry{
		{Name: "main.py", Type: "file", Size: int64(len("content of /src/main.py"))},
		{Name: "utils", Type: "dir"},
	}, "direct children only, dirs implicit")
}

func TestStateGrep(t *testing.T) {
	s := NewState()
	ctx := context.Background()
	testutil.RequireNoError(t, s.Write(ctx, "/a.txt", "alpha\nbeta\ngamma"), "write a")
	testutil.RequireNoError(t, s.Write(ctx, "/sub/b.txt", "beta max\ndelta"), "write b")

	matches, err := s.Grep(ctx, "beta", "/")
	testutil.RequireNoError(t, err, "grep")
	testutil.RequireEqual(t, matches, []GrepMatch{
		{File: "/a.txt", Line: 2, Text: "beta"},
		{File: "/sub/b.txt", Line: 1, Text: "beta max"},
	}, "matches ordered by file then line")

	_, err = s.Grep(ctx, "(", "/")
	testutil.RequireErrorContains(t, err, "compile grep pattern", "bad pattern surfaces")
}
