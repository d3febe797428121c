package tools

import (
	"context"
	"encoding/json"
	"strings"
)

// GlobTool finds files matching a pattern, newest first.
type GlobTool struct{}

func (t *GlobTool) Name() string {
	return "glob"
}

func (t *GlobTool) Description() string {
	return "Find files matching a glob pattern, most recently modified first."
}

func (t *GlobTool) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"pattern": map[string]any{
				"type":        "string",
				"description": "Glob pattern, e.g. **/*.go.",
			},
			"path": map[string]any{
				"type":        "string",
				"description": "Directory to search under. Defaults to the workspace root.",
			},
		},
		"required": []string{"pattern"},
	}
}

func (t *GlobTool) Run(ctx context.Context, input json.RawMessage, toolCtx ToolContext) (ToolResult, error) {
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

	files, err := toolCtx.FS.Glob(ctx, payload.Pattern, payload.Path)
	if err != nil {
		return errorResult("%v", err), nil
	}
	if len(files) == 0 {
		return ToolResult{Content: "No files found"}, nil
	}
	return ToolResult{Content: strings.Join(files, "\n")}, nil
}
