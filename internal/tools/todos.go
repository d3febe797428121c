package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
)

// TodoItem is a single entry in the shared todo list.
type TodoItem struct {
	Content string `json:"content"`
	Status  string `json:"status"`
}

// TodoList holds the todo items for the current run. It is shared between
// the tool and whatever surface renders progress.
type TodoList struct {
	mu    sync.Mutex
	items []TodoItem
}

// Set replaces the list contents.
func (l *TodoList) Set(items []TodoItem) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.items = append([]TodoItem(nil), items...)
}

// Items returns a copy of the current list.
func (l *TodoList) Items() []TodoItem {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]TodoItem(nil), l.items...)
}

var todoStatuses = map[string]bool{
	"pending":     true,
	"in_progress": true,
	"completed":   true,
}

// WriteTodosTool replaces the current todo list. The model calls it to plan
// multi-step work and to mark steps done.
type WriteTodosTool struct{}

func (t *WriteTodosTool) Name() string {
	return "write_todos"
}

func (t *WriteTodosTool) Description() string {
	return "Replace the todo list used to track multi-step work."
}

func (t *WriteTodosTool) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"todos": map[string]any{
				"type":        "array",
				"description": "The full todo list. Each call replaces the previous list.",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"content": map[string]any{"type": "string"},
						"status": map[string]any{
							"type": "string",
							"enum": []string{"pending", "in_progress", "completed"},
						},
					},
					"required": []string{"content", "status"},
				},
			},
		},
		"required": []string{"todos"},
	}
}

func (t *WriteTodosTool) Run(ctx context.Context, input json.RawMessage, toolCtx ToolContext) (ToolResult, error) {
	_ = ctx

	var payload struct {
		Todos []TodoItem `json:"todos"`
	}
	if err := json.Unmarshal(input, &payload); err != nil {
		return errorResult("invalid input: %v", err), nil
	}
	for i, item := range payload.Todos {
		if item.Content == "" {
			return errorResult("todo %d is missing content", i+1), nil
		}
		if !todoStatuses[item.Status] {
			return errorResult("todo %d has invalid status %q", i+1, item.Status), nil
		}
	}

	if toolCtx.Todos != nil {
		toolCtx.Todos.Set(payload.Todos)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Updated todo list (%d items)\n", len(payload.Todos))
	for _, item := range payload.Todos {
		marker := " "
		switch item.Status {
		case "in_progress":
			marker = ">"
		case "completed":
			marker = "x"
		}
		fmt.Fprintf(&b, "[%s] %s\n", marker, item.Content)
	}
	return ToolResult{Content: strings.TrimSuffix(b.String(), "\n")}, nil
}
