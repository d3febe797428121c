package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/deepagents/deepagents/internal/backend"
	"github.com/deepagents/deepagents/internal/llm/openai"
)

// ToolContext provides shared context to tool implementations.
type ToolContext struct {
	// FS routes file operations across the configured backends.
	FS *backend.CompositeBackend
	// Workdir labels the workspace in tool output. File paths are always
	// virtual absolute paths resolved by FS.
	Workdir string
	// ExecuteTimeout is the default timeout applied when the model does not
	// pass one explicitly. Zero means the backend's own default.
	ExecuteTimeout time.Duration
	// Todos holds the shared todo list for the current run.
	Todos *TodoList
}

// ToolResult is the result of a tool invocation.
type ToolResult struct {
	// Content holds the tool output payload.
	Content string
	// IsError reports whether the tool failed.
	IsError bool
}

// errorResult wraps a message as a failed tool result. Tool failures are
// surfaced to the model as results, never as Go errors.
func errorResult(format string, args ...any) ToolResult {
	return ToolResult{IsError: true, Content: fmt.Sprintf(format, args...)}
}

// Tool defines a callable tool.
type Tool interface {
	Name() string
	Description() string
	Schema() map[string]any
	Run(ctx context.Context, input json.RawMessage, toolCtx ToolContext) (ToolResult, error)
}

// Runner executes tools with validation.
type Runner struct {
	// Tools stores tool implementations keyed by name.
	Tools map[string]Tool
	// Order preserves the deterministic tool ordering for output payloads.
	Order []string
}

// NewRunner constructs a tool runner.
func NewRunner(tools []Tool) *Runner {
	toolMap := make(map[string]Tool, len(tools))
	order := make([]string, 0, len(tools))
	for _, tool := range tools {
		if tool == nil {
			continue
		}
		name := tool.Name()
		if name == "" {
			continue
		}
		if _, exists := toolMap[name]; exists {
			continue
		}
		// Preserve input order while de-duplicating tool names.
		toolMap[name] = tool
		order = append(order, name)
	}
	return &Runner{Tools: toolMap, Order: order}
}

// ToolSpecs returns OpenAI-compatible tool definitions.
func (r *Runner) ToolSpecs() []openai.Tool {
	specs := make([]openai.Tool, 0, len(r.Tools))
	names := r.ToolNames()
	for _, name := range names {
		tool, ok := r.Tools[name]
		if !ok {
			continue
		}
		specs = append(specs, openai.Tool{
			Type: "function",
			Function: openai.ToolFunction{
				Name:        tool.Name(),
				Description: tool.Description(),
				Parameters:  tool.Schema(),
			},
		})
	}
	return specs
}

// ToolNames returns the configured tool names in deterministic order.
func (r *Runner) ToolNames() []string {
	if r == nil {
		return nil
	}
	if len(r.Order) > 0 {
		names := make([]string, 0, len(r.Order))
		names = append(names, r.Order...)
		return names
	}
	if len(r.Tools) == 0 {
		return nil
	}
	names := make([]string, 0, len(r.Tools))
	for name := range r.Tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Run executes a tool by name.
func (r *Runner) Run(ctx context.Context, name string, args json.RawMessage, toolCtx ToolContext) (ToolResult, error) {
	tool, ok := r.Tools[name]
	if !ok {
		return errorResult("tool not found: %s", name), nil
	}
	return tool.Run(ctx, args, toolCtx)
}

// FilterTools applies allow/deny constraints.
func FilterTools(tools []Tool, allowed []string, disallowed []string) ([]Tool, error) {
	allowedSet := toNameSet(allowed)
	disallowedSet := toNameSet(disallowed)

	var filtered []Tool
	for _, tool := range tools {
		name := tool.Name()
		if len(allowedSet) > 0 && !allowedSet[name] {
			continue
		}
		if disallowedSet[name] {
			continue
		}
		filtered = append(filtered, tool)
	}

	if len(filtered) == 0 {
		return nil, errors.New("no tools available after filtering")
	}
	return filtered, nil
}

// toNameSet converts a list of names to a lookup set.
func toNameSet(names []string) map[string]bool {
	set := make(map[string]bool)
	for _, name := range names {
		if name == "" {
			continue
		}
		set[name] = true
	}
	return set
}

// DefaultTools returns the built-in tool set.
func DefaultTools() []Tool {
	return []Tool{
		&LsTool{},
		&ReadFileTool{},
		&WriteFileTool{},
		&EditFileTool{},
		&GlobTool{},
		&GrepTool{},
		&ExecuteTool{},
		&WriteTodosTool{},
	}
}
