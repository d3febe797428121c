package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// LsTool lists a directory through the backend router.
type LsTool struct{}

func (t *LsTool) Name() string {
	return "ls"
}

func (t *LsTool) Description() string {
	return "List files and directories under a path."
}

func (t *LsTool) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"path": map[string]any{
				"type":        "string",
				"description": "Directory to list. Defaults to the workspace root.",
			},
		},
	}
}

func (t *LsTool) Run(ctx context.Context, input json.RawMessage, toolCtx ToolContext) (ToolResult, error) {
	var payload struct {
		Path string `json:"path"`
	}
	if len(input) > 0 {
		if err := json.Unmarshal(input, &payload); err != nil {
			return errorResult("invalid input: %v", err), nil
		}
	}
	if payload.Path == "" {
		payload.Path = "/"
	}

	entries, err := toolCtx.FS.ListDir(ctx, payload.Path)
	if err != nil {
		return errorResult("%v", err), nil
	}
	if len(entries) == 0 {
		return ToolResult{Content: "(empty directory)"}, nil
	}

	var b strings.Builder
	for _, entry := range entries {
		if entry.Type == "dir" {
			fmt.Fprintf(&b, "%s/\n", entry.Name)
			continue
		}
		fmt.Fprintf(&b, "%s (%d bytes)\n", entry.Name, entry.Size)
	}
	return ToolResult{Content: strings.TrimSuffix(b.String(), "\n")}, nil
}
