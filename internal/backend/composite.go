package backend

import (
	"context"
	"strings"
	"time"
)

// CompositeBackend presents a single backend facade over several concrete
// backends. Filesystem operations validate their path and dispatch to the
// backend whose registered route prefix is the longest match; command
// execution always goes to the default backend through the timeout guard.
//
// The composite holds no mutable state beyond its fixed route table and adds
// no error kinds of its own: validation errors and backend errors propagate
// unchanged.
type CompositeBackend struct {
	def    Backend
	routes map[string]Backend
}

// NewComposite builds a router over def and the given prefix routes. Route
// keys are virtual path prefixes such as "/memories/".
func NewComposite(def Backend, routes map[string]Backend) *CompositeBackend {
	copied := make(map[string]Backend, len(routes))
	for prefix, b := range routes {
		if prefix == "" || b == nil {
			continue
		}
		copied[prefix] = b
	}
	return &CompositeBackend{def: def, routes: copied}
}

// ID identifies the composite by its default backend.
func (c *CompositeBackend) ID() string {
	return "composite:" + c.def.ID()
}

// Default returns the backend handling execution and unrouted paths.
func (c *CompositeBackend) Default() Backend {
	return c.def
}

// route returns the backend registered for the longest prefix matching the
// validated path, or the default backend. Longest-match is well-ordered by
// string length, so ties are impossible.
func (c *CompositeBackend) route(validated string) Backend {
	selected := c.def
	longest := -1
	for prefix, b := range c.routes {
		if !routeMatches(validated, prefix) {
			continue
		}
		if len(prefix) > longest {
			selected = b
			longest = len(prefix)
		}
	}
	return selected
}

// routeMatches reports whether the validated path lives at or under the
// route prefix.
func routeMatches(validated string, prefix string) bool {
	if strings.HasPrefix(validated, prefix) {
		return true
	}
	return validated == strings.TrimSuffix(prefix, "/")
}

func (c *CompositeBackend) Read(ctx context.Context, path string) (string, error) {
	validated, err := ValidatePath(path)
	if err != nil {
		return "", err
	}
	return c.route(validated).Read(ctx, validated)
}

func (c *CompositeBackend) Write(ctx context.Context, path string, content string) error {
	validated, err := ValidatePath(path)
	if err != nil {
		return err
	}
	return c.route(validated).Write(ctx, validated, content)
}

func (c *CompositeBackend) ListDir(ctx context.Context, path string) ([]DirEntry, error) {
	validated, err := ValidatePath(path)
	if err != nil {
		return nil, err
	}
	return c.route(validated).ListDir(ctx, validated)
}

func (c *CompositeBackend) Glob(ctx context.Context, pattern string, root string) ([]string, error) {
	validated, err := ValidatePath(root)
	if err != nil {
		return nil, err
	}
	return c.route(validated).Glob(ctx, pattern, validated)
}

func (c *CompositeBackend) Grep(ctx context.Context, pattern string, root string) ([]GrepMatch, error) {
	validated, err := ValidatePath(root)
	if err != nil {
		return nil, err
	}
	return c.route(validated).Grep(ctx, pattern, validated)
}

// Execute delegates to the default backend; execution has no path to route
// on. The timeout guard picks the call shape the backend actually supports.
func (c *CompositeBackend) Execute(ctx context.Context, command string, timeout time.Duration) (ExecuteResponse, error) {
	return ExecuteWithTimeout(ctx, c.def, command, timeout)
}
