package backend

import (
	"context"
	"testing"
	"time"

	"github.com/deepagents/deepagents/internal/testutil"
)

// recordingBackend is a Backend that records the last path it served and
// answers reads with its id, so routing tests can see who handled a call.
type recordingBackend struct {
	id       string
	lastPath string
}

func (r *recordingBackend) ID() string { return r.id }

func (r *recordingBackend) Read(_ context.Context, path string) (string, error) {
	r.lastPath = path
	return r.id, nil
}

func (r *recordingBackend) Write(_ context.Context, path string, _ string) error {
	r.lastPath = path
	return nil
}

func (r *recordingBackend) ListDir(_ context.Context, path string) ([]DirEntry, error) {
	r.lastPath = path
	return nil, nil
}

func (r *recordingBackend) Glob(_ context.Context, _ string, root string) ([]string, error) {
	r.lastPath = root
	return nil, nil
}

func (r *recordingBackend) Grep(_ context.Context, _ string, root string) ([]GrepMatch, error) {
	r.lastPath = root
	return nil, nil
}

// modernRoutedBackend is a recordingBackend with the current execute shape.
type modernRoutedBackend struct {
	recordingBackend
	lastTimeout time.Duration
}

func (m *modernRoutedBackend) Execute(_ context.Context, command string, timeout time.Duration) (ExecuteResponse, error) {
	m.lastTimeout = timeout
	return ExecuteResponse{Output: command, ExitCode: 0}, nil
}

// legacyRoutedBackend is a recordingBackend with the pre-timeout execute
// shape.
type legacyRoutedBackend struct {
	recordingBackend
}

func (l *legacyRoutedBackend) Execute(_ context.Context, command string) (ExecuteResponse, error) {
	return ExecuteResponse{Output: command, ExitCode: 0}, nil
}

func TestCompositeRoutesByPrefix(t *testing.T) {
	memories := &recordingBackend{id: "memories"}
	def := &recordingBackend{id: "default"}
	comp := NewComposite(def, map[string]Backend{"/memories/": memories})

	got, err := comp.Read(context.Background(), "/memories/AGENTS.md")
	testutil.RequireNoError(t, err, "routed read")
	testutil.RequireEqual(t, got, "memories", "served by the routed backend")
	testutil.RequireEqual(t, memories.lastPath, "/memories/AGENTS.md", "routed backend sees full path")

	got, err = comp.Read(context.Background(), "/other/file.txt")
	testutil.RequireNoError(t, err, "default read")
	testutil.RequireEqual(t, got, "default", "served by the default backend")
}

func TestCompositeLongestPrefixWins(t *testing.T) {
	outer := &recordingBackend{id: "outer"}
	inner := &recordingBackend{id: "inner"}
	def := &recordingBackend{id: "default"}
	comp := NewComposite(def, map[string]Backend{
		"/data/":         outer,
		"/data/archive/": inner,
	})

	got, err := comp.Read(context.Background(), "/data/archive/old.txt")
	testutil.RequireNoError(t, err, "nested read")
	testutil.RequireEqual(t, got, "inner", "longest prefix wins")

	got, err = comp.Read(context.Background(), "/data/current.txt")
	testutil.RequireNoError(t, err, "outer read")
	testutil.RequireEqual(t, got, "outer", "shorter prefix still matches its own subtree")
}

func TestCompositePrefixBoundary(t *testing.T) {
	memories := &recordingBackend{id: "memories"}
	def := &recordingBackend{id: "default"}
	comp := NewComposite(def, map[string]Backend{"/memories/": memories})

	// The bare route directory itself belongs to the routed backend.
	_, err := comp.ListDir(context.Background(), "/memories")
	testutil.RequireNoError(t, err, "list route root")
	testutil.RequireEqual(t, memories.lastPath, "/memories", "route root handled by routed backend")

	// A sibling with the prefix as a string prefix does not match.
	got, err := comp.Read(context.Background(), "/memories-old/file")
	testutil.RequireNoError(t, err, "sibling read")
	testutil.RequireEqual(t, got, "default", "sibling path falls back to default")
}

func TestCompositeValidatesBeforeRouting(t *testing.T) {
	def := &recordingBackend{id: "default"}
	comp := NewComposite(def, nil)

	_, err := comp.Read(context.Background(), "../etc/passwd")
	testutil.RequireErrorContains(t, err, "Path traversal not allowed", "validation precedes dispatch")
	testutil.RequireEqual(t, def.lastPath, "", "backend never sees the rejected path")

	err = comp.Write(context.Background(), "C:\\Users\\x.txt", "data")
	testutil.RequireErrorContains(t, err, "Windows absolute paths are not supported", "write validation")
}

func TestCompositeNormalizesBeforeRouting(t *testing.T) {
	memories := &recordingBackend{id: "memories"}
	def := &recordingBackend{id: "default"}
	comp := NewComposite(def, map[string]Backend{"/memories/": memories})

	// A relative, backslashed spelling of a routed path still routes.
	got, err := comp.Read(context.Background(), "memories\\notes.md")
	testutil.RequireNoError(t, err, "normalized read")
	testutil.RequireEqual(t, got, "memories", "normalization happens before routing")
	testutil.RequireEqual(t, memories.lastPath, "/memories/notes.md", "backend sees the validated path")
}
