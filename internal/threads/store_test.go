package threads

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/deepagents/deepagents/internal/testutil"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "threads.db"))
	testutil.RequireNoError(t, err, "open store")
	t.Cleanup(func() { s.Close() })
	return s
}

func TestNewThreadID(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 20; i++ {
		id := NewThreadID()
		testutil.RequireEqual(t, len(id), 8, "eight characters")
		for _, c := range id {
			hex := (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f')
			testutil.RequireTrue(t, hex, "hex characters only: "+id)
		}
		seen[id] = true
	}
	testutil.RequireTrue(t, len(seen) > 1, "ids vary")
}

func TestThreadLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	exists, err := s.Exists(ctx, "deadbeef")
	testutil.RequireNoError(t, err, "exists on empty store")
	testutil.RequireTrue(t, !exists, "unknown id")

	testutil.RequireNoError(t, s.Create(ctx, "deadbeef", "default"), "create")
	exists, err = s.Exists(ctx, "deadbeef")
	testutil.RequireNoError(t, err, "exists")
	testutil.RequireTrue(t, exists, "created id found")

	testutil.RequireNoError(t, s.AppendMessage(ctx, "deadbeef", "user", "hello"), "append user")
	testutil.RequireNoError(t, s.AppendMessage(ctx, "deadbeef", "assistant", "hi"), "append assistant")

	messages, err := s.Messages(ctx, "deadbeef")
	testutil.RequireNoError(t, err, "load messages")
	testutil.RequireEqual(t, len(messages), 2, "two messages")
	testutil.RequireEqual(t, messages[0].Role, "user", "insertion order")
	testutil.RequireEqual(t, messages[1].Content, "hi", "content")

	testutil.RequireNoError(t, s.Delete(ctx, "deadbeef"), "delete")
	exists, err = s.Exists(ctx, "deadbeef")
	testutil.RequireNoError(t, err, "exists after delete")
	testutil.RequireTrue(t, !exists, "gone")

	testutil.RequireNoError(t, s.Delete(ctx, "deadbeef"), "deleting a missing thread is fine")
}

func TestListAndMostRecent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id, err := s.MostRecent(ctx)
	testutil.RequireNoError(t, err, "most recent on empty store")
	testutil.RequireEqual(t, id, "", "empty store")

	testutil.RequireNoError(t, s.Create(ctx, "aaaa0001", "default"), "create first")
	testutil.RequireNoError(t, s.Create(ctx, "bbbb0002", "research"), "create second")
	testutil.RequireNoError(t, s.AppendMessage(ctx, "aaaa0001", "user", "ping"), "bump first")

	id, err = s.MostRecent(ctx)
	testutil.RequireNoError(t, err, "most recent")
	testutil.RequireEqual(t, id, "aaaa0001", "append bumps updated_at")

	all, err := s.List(ctx, 0, "")
	testutil.RequireNoError(t, err, "list all")
	testutil.RequireEqual(t, len(all), 2, "two threads")
	testutil.RequireEqual(t, all[0].ID, "aaaa0001", "newest first")
	testutil.RequireEqual(t, all[0].MessageCount, 1, "message count")
	testutil.RequireEqual(t, all[1].MessageCount, 0, "empty thread count")

	filtered, err := s.List(ctx, 0, "research")
	testutil.RequireNoError(t, err, "list by agent")
	testutil.RequireEqual(t, len(filtered), 1, "agent filter")
	testutil.RequireEqual(t, filtered[0].ID, "bbbb0002", "matching thread")

	limited, err := s.List(ctx, 1, "")
	testutil.RequireNoError(t, err, "list limited")
	testutil.RequireEqual(t, len(limited), 1, "limit applied")
}

func TestFindSimilar(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	testutil.RequireNoError(t, s.Create(ctx, "abc12345", ""), "create one")
	testutil.RequireNoError(t, s.Create(ctx, "abc99999", ""), "create two")
	testutil.RequireNoError(t, s.Create(ctx, "xyz00000", ""), "create three")

	ids, err := s.FindSimilar(ctx, "abc")
	testutil.RequireNoError(t, err, "find")
	testutil.RequireEqual(t, len(ids), 2, "prefix matches")

	ids, err = s.FindSimilar(ctx, "zzz")
	testutil.RequireNoError(t, err, "find miss")
	testutil.RequireEqual(t, len(ids), 0, "no matches")
}

func TestFormatTimestamp(t *testing.T) {
	ts := time.Date(2026, time.March, 7, 15, 4, 0, 0, time.UTC)
	testutil.RequireEqual(t, FormatTimestamp(ts), "Mar 07, 3:04pm", "listing format")
}
