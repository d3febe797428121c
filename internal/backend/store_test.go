package backend

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/deepagents/deepagents/internal/testutil"
)

func newTestStore(t *testing.T) *StoreBackend {
	t.Helper()
	s, err := OpenStore(filepath.Join(t.TempDir(), "store.db"))
	testutil.RequireNoError(t, err, "open store")
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStoreReadWrite(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	testutil.RequireNoError(t, s.Write(ctx, "/memories/AGENTS.md", "persist me"), "write")
	got, err := s.Read(ctx, "/memories/AGENTS.md")
	testutil.RequireNoError(t, err, "read back")
	testutil.RequireEqual(t, got, "persist me", "content round-trips")

	testutil.RequireNoError(t, s.Write(ctx, "/memories/AGENTS.md", "updated"), "overwrite")
	got, err = s.Read(ctx, "/memories/AGENTS.md")
	testutil.RequireNoError(t, err, "read updated")
	testutil.RequireEqual(t, got, "updated", "overwrite wins")

	_, err = s.Read(ctx, "/memories/missing.md")
	testutil.RequireErrorIs(t, err, ErrNotFound, "missing file")
}

func TestStorePersistsAcrossOpens(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "store.db")

	s, err := OpenStore(dbPath)
	testutil.RequireNoError(t, err, "first open")
	testutil.RequireNoError(t, s.Write(ctx, "/memories/notes.md", "survives"), "write")
	testutil.RequireNoError(t, s.Close(), "close")

	s, err = OpenStore(dbPath)
	testutil.RequireNoError(t, err, "reopen")
	defer s.Close()
	got, err := s.Read(ctx, "/memories/notes.md")
	testutil.RequireNoError(t, err, "read after reopen")
	testutil.RequireEqual(t, got, "survives", "content persisted")
}

func TestStoreListGlobGrep(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	testutil.RequireNoError(t, s.Write(ctx, "/memories/AGENTS.md", "topic: routing"), "write agents")
	testutil.RequireNoError(t, s.Write(ctx, "/memories/daily/log.md", "topic: standup"), "write log")
	testutil.RequireNoError(t, s.Write(ctx, "/memories/daily/todo.txt", "buy milk"), "write todo")

	entries, err := s.ListDir(ctx, "/memories")
	testutil.RequireNoError(t, err, "list")
	testutil.RequireEqual(t, entries, []DirEntry{
		{Name: "AGENTS.md", Type: "file", Size: int64(len("topic: routing"))},
		{Name: "daily", Type: "dir", Size: 0},
	}, "implicit directories surface in listings")

	files, err := s.Glob(ctx, "**/*.md", "/memories")
	testutil.RequireNoError(t, err, "glob")
	testutil.RequireEqual(t, len(files), 2, "two markdown files")

	matches, err := s.Grep(ctx, "topic:", "/memories/daily")
	testutil.RequireNoError(t, err, "grep scoped")
	testutil.RequireEqual(t, matches, []GrepMatch{
		{File: "/memories/daily/log.md", Line: 1, Text: "topic: standup"},
	}, "grep honors its root")
}

func TestStoreDelete(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	testutil.RequireNoError(t, s.Write(ctx, "/memories/tmp.md", "scratch"), "write")
	testutil.RequireNoError(t, s.Delete(ctx, "/memories/tmp.md"), "delete")
	_, err := s.Read(ctx, "/memories/tmp.md")
	testutil.RequireErrorIs(t, err, ErrNotFound, "deleted file is gone")
}
