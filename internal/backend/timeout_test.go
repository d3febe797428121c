package backend

import (
	"context"
	"testing"
	"time"

	"github.com/deepagents/deepagents/internal/testutil"
)

// modernExecBackend declares the current execute shape with a trailing
// timeout parameter.
type modernExecBackend struct {
	lastCommand string
	lastTimeout time.Duration
	calls       int
}

func (m *modernExecBackend) Execute(_ context.Context, command string, timeout time.Duration) (ExecuteResponse, error) {
	m.lastCommand = command
	m.lastTimeout = timeout
	m.calls++
	return ExecuteResponse{Output: command, ExitCode: 0}, nil
}

// legacyExecBackend predates per-command timeouts.
type legacyExecBackend struct {
	lastCommand string
	calls       int
}

func (l *legacyExecBackend) Execute(_ context.Context, command string) (ExecuteResponse, error) {
	l.lastCommand = command
	l.calls++
	return ExecuteResponse{Output: command, ExitCode: 0}, nil
}

// variadicExecBackend takes an option bag, the closest Go analog of a
// kwargs catch-all.
type variadicExecBackend struct{}

func (v *variadicExecBackend) Execute(_ context.Context, command string, _ ...any) (ExecuteResponse, error) {
	return ExecuteResponse{Output: command, ExitCode: 0}, nil
}

// noExecBackend has no Execute method at all.
type noExecBackend struct{}

func TestExecuteAcceptsTimeout(t *testing.T) {
	t.Cleanup(CacheClear)

	cases := []struct {
		name    string
		backend any
		want    bool
	}{
		{name: "modern backend", backend: &modernExecBackend{}, want: true},
		{name: "legacy backend", backend: &legacyExecBackend{}, want: false},
		{name: "variadic option bag does not count", backend: &variadicExecBackend{}, want: false},
		{name: "no execute method", backend: &noExecBackend{}, want: false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			CacheClear()
			testutil.RequireEqual(t, ExecuteAcceptsTimeout(tc.backend), tc.want, "capability")
		})
	}
}

func TestExecuteAcceptsTimeoutNilBackend(t *testing.T) {
	t.Cleanup(CacheClear)
	testutil.RequireEqual(t, ExecuteAcceptsTimeout(nil), false, "nil backend")
}

func TestExecuteAcceptsTimeoutMemoized(t *testing.T) {
	t.Cleanup(CacheClear)
	CacheClear()

	first := ExecuteAcceptsTimeout(&modernExecBackend{})
	second := ExecuteAcceptsTimeout(&modernExecBackend{})
	testutil.RequireEqual(t, second, first, "memoized result is stable")

	hits, size := CacheStats()
	testutil.RequireTrue(t, hits >= 1, "second call served from cache")
	testutil.RequireEqual(t, size, 1, "one entry per concrete type")

	CacheClear()
	hits, size = CacheStats()
	testutil.RequireEqual(t, hits, 0, "clear resets hits")
	testutil.RequireEqual(t, size, 0, "clear drops entries")
}

func TestExecuteWithTimeoutForwardsToModern(t *testing.T) {
	t.Cleanup(CacheClear)
	CacheClear()

	b := &modernExecBackend{}
	resp, err := ExecuteWithTimeout(context.Background(), b, "ls", 42*time.Second)
	testutil.RequireNoError(t, err, "execute")
	testutil.RequireEqual(t, resp.Output, "ls", "output")
	testutil.RequireEqual(t, b.lastTimeout, 42*time.Second, "timeout forwarded verbatim")
}

func TestExecuteWithTimeoutDropsForLegacy(t *testing.T) {
	t.Cleanup(CacheClear)
	CacheClear()

	b := &legacyExecBackend{}
	resp, err := ExecuteWithTimeout(context.Background(), b, "ls", 30*time.Second)
	testutil.RequireNoError(t, err, "legacy execute must not fail on timeout")
	testutil.RequireEqual(t, resp.Output, "ls", "output")
	testutil.RequireEqual(t, b.calls, 1, "legacy backend invoked once")
}

func TestExecuteWithTimeoutZeroSkipsDetection(t *testing.T) {
	t.Cleanup(CacheClear)
	CacheClear()

	b := &modernExecBackend{}
	resp, err := ExecuteWithTimeout(context.Background(), b, "echo hi", 0)
	testutil.RequireNoError(t, err, "execute without timeout")
	testutil.RequireEqual(t, resp.Output, "echo hi", "output")
	testutil.RequireEqual(t, b.lastTimeout, time.Duration(0), "zero timeout passed through")

	// No timeout requested means no reflection and no cache writes.
	_, size := CacheStats()
	testutil.RequireEqual(t, size, 0, "capability cache untouched")
}

func TestExecuteWithTimeoutUnsupportedBackend(t *testing.T) {
	t.Cleanup(CacheClear)
	CacheClear()

	_, err := ExecuteWithTimeout(context.Background(), &noExecBackend{}, "ls", time.Second)
	testutil.RequireErrorIs(t, err, ErrExecuteUnsupported, "backend without execute")
}

func TestCompositeExecuteForwardsTimeout(t *testing.T) {
	t.Cleanup(CacheClear)
	CacheClear()

	// Composite delegates Execute to its default backend through the guard.
	def := &modernRoutedBackend{}
	routed := NewComposite(def, map[string]Backend{})
	resp, err := routed.Execute(context.Background(), "ls", 60*time.Second)
	testutil.RequireNoError(t, err, "composite execute")
	testutil.RequireEqual(t, resp.Output, "ls", "output")
	testutil.RequireEqual(t, def.lastTimeout, 60*time.Second, "timeout reached the default backend")
}

func TestCompositeExecuteDropsTimeoutForLegacyDefault(t *testing.T) {
	t.Cleanup(CacheClear)
	CacheClear()

	def := &legacyRoutedBackend{}
	comp := NewComposite(def, map[string]Backend{})
	resp, err := comp.Execute(context.Background(), "ls", 60*time.Second)
	testutil.RequireNoError(t, err, "composite execute with legacy default")
	testutil.RequireEqual(t, resp.Output, "ls", "output")
}
