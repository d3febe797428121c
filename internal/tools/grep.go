package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// grepMatchLimit caps grep output so a broad pattern cannot flood the
// conversation.
const grepMatchLimit = 200

// GrepTool searches file contents for a regular expression.
type GrepTool struct{}

func (t *GrepTool) Name() string {
	return "grep"
}

func (t *GrepTool) Description() string {
	return "Search file contents for a regular expression."
}

func (t *GrepTool) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"pattern": map[string]any{
				"type":        "string",
				"description": "Regular expression to search for.",
			},
			"path": map[string]any{
				"type":        "string",
				"description": "Directory to search under. Defaults to the workspace root.",
			},
		},
		"required": []string{"pattern"},
	}
}

func (t *GrepTool) Run(ctx context.Context, input json.RawMessage, toolCtx ToolContext) (ToolResult, error) {
	var payload struct {
		Pattern string `json:"pattern"`
		Path    string `json:"path"`
	}
	if err := json.Unmarshal(input, &payload); err != nil {
		return errorResult("invalid input: %v", err), nil
	}
	if payload.Pattern == "" {
		return errorResult("pattern is required"), nil
	}
	if payload.Path == "" {
		payload.Path = "/"
	}

	matches, err := toolCtx.FS.Grep(ctx, payload.Pattern, payload.Path)
	if err != nil {
		return errorResult("%v", err), nil
	}
	if len(matches) == 0 {
		return ToolResult{Content: "No matches found"}, nil
	}

	truncated := false
	if len(matches) > grepMatchLimit {
		matches = matches[:grepMatchLimit]
		truncated = true
	}
	var b strings.Builder
	for _, m := range matches {
		fmt.Fprintf(&b, "%s:%d:%s\n", m.File, m.Line, m.Text)
	}
	if truncated {
		fmt.Fprintf(&b, "... results truncated at %d matches\n", grepMatchLimit)
	}
	return ToolResult{Content: strings.TrimSuffix(b.String(), "\n")}, nil
}
