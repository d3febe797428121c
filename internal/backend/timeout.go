package backend

import (
	"context"
	"reflect"
	"sync"
	"time"

	"github.com/deepagents/deepagents/internal/logging"
)

// capabilityCache memoizes timeout-acceptance facts per concrete backend
// type. A type's method set cannot change at runtime, so entries are never
// invalidated; Clear exists for test isolation only.
type capabilityCache struct {
	mu      sync.RWMutex
	results map[reflect.Type]bool
	hits    int
}

func newCapabilityCache() *capabilityCache {
	return &capabilityCache{results: map[reflect.Type]bool{}}
}

func (c *capabilityCache) lookup(t reflect.Type) (bool, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	result, ok := c.results[t]
	if ok {
		c.hits++
	}
	return result, ok
}

func (c *capabilityCache) store(t reflect.Type, result bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.results[t] = result
}

// Clear drops all memoized entries and resets the hit counter.
func (c *capabilityCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.results = map[reflect.Type]bool{}
	c.hits = 0
}

// Stats returns the cache hit count and entry count.
func (c *capabilityCache) Stats() (hits int, size int) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.hits, len(c.results)
}

// timeoutCaps is the process-wide memo table backing ExecuteAcceptsTimeout.
var timeoutCaps = newCapabilityCache()

// CacheClear resets the timeout-acceptance memo table. Tests that register
// backends with colliding types must call this between cases.
func CacheClear() {
	timeoutCaps.Clear()
}

// CacheStats exposes the memo table's hit and entry counts.
func CacheStats() (hits int, size int) {
	return timeoutCaps.Stats()
}

var durationType = reflect.TypeOf(time.Duration(0))

// ExecuteAcceptsTimeout reports whether the backend's Execute method declares
// a trailing per-command timeout parameter. The check inspects the concrete
// type's method signature so backends compiled against the pre-timeout SDK
// are detected without a speculative call. A variadic option bag does not
// count as timeout support: it cannot be told apart from "no support" without
// invoking it.
//
// The result is memoized per concrete type for the process lifetime. If the
// type has no inspectable Execute method at all, a warning is logged and the
// answer is a conservative false.
func ExecuteAcceptsTimeout(b any) bool {
	t := reflect.TypeOf(b)
	if t == nil {
		return false
	}
	if result, ok := timeoutCaps.lookup(t); ok {
		return result
	}

	result := executeTakesTimeout(t)
	timeoutCaps.store(t, result)
	return result
}

// executeTakesTimeout performs the uncached signature inspection.
func executeTakesTimeout(t reflect.Type) bool {
	method, ok := t.MethodByName("Execute")
	if !ok {
		// No Execute in the method set: either the backend has no execute
		// capability or Execute is a plain func field, which reflection
		// cannot attribute to the type. Treat both as "no timeout support".
		logging.Logger("backend").Warn("could not inspect Execute signature", "type", t.String())
		return false
	}
	sig := method.Type
	if sig.IsVariadic() {
		return false
	}
	// Receiver, context, command, timeout.
	if sig.NumIn() != 4 {
		return false
	}
	return sig.In(3) == durationType
}

// ExecuteWithTimeout runs a command against whichever execute shape the
// backend provides. A zero timeout skips capability detection entirely and
// prefers the legacy shape. A requested timeout is forwarded when the backend
// accepts one and silently dropped when it does not; surfacing "this sandbox
// has no timeout support" to the user is a concern for higher layers.
//
// The guard itself never fails: any error comes from the backend's Execute
// or from the backend lacking an execute capability altogether.
func ExecuteWithTimeout(ctx context.Context, b any, command string, timeout time.Duration) (ExecuteResponse, error) {
	if timeout <= 0 {
		switch ex := b.(type) {
		case Executor:
			return ex.Execute(ctx, command)
		case TimeoutExecutor:
			return ex.Execute(ctx, command, 0)
		}
		return ExecuteResponse{}, ErrExecuteUnsupported
	}

	if ExecuteAcceptsTimeout(b) {
		if ex, ok := b.(TimeoutExecutor); ok {
			return ex.Execute(ctx, command, timeout)
		}
	}
	if ex, ok := b.(Executor); ok {
		return ex.Execute(ctx, command)
	}
	return ExecuteResponse{}, ErrExecuteUnsupported
}
