package tools

import (
	"context"
	"encoding/json"
	"fmt"
)

// WriteFileTool creates or replaces a file through the backend router.
type WriteFileTool struct{}

func (t *WriteFileTool) Name() string {
	return "write_file"
}

func (t *WriteFileTool) Description() string {
	return "Create or overwrite a file with the given content."
}

func (t *WriteFileTool) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"file_path": map[string]any{
				"type":        "string",
				"description": "Path to the file to write.",
			},
			"content": map[string]any{
				"type":        "string",
				"description": "Full content of the file.",
			},
		},
		"required": []string{"file_path", "content"},
	}
}

func (t *WriteFileTool) Run(ctx context.Context, input json.RawMessage, toolCtx ToolContext) (ToolResult, error) {
	var payload struct {
		FilePath string `json:"file_path"`
		Content  string `json:"content"`
	}
	if err := json.Unmarshal(input, &payload); err != nil {
		return errorResult("invalid input: %v", err), nil
	}
	if payload.FilePath == "" {
		return errorResult("file_path is required"), nil
	}

	if err := toolCtx.FS.Write(ctx, payload.FilePath, payload.Content); err != nil {
		return errorResult("%v", err), nil
	}
	return ToolResult{Content: fmt.Sprintf("Updated file %s", payload.FilePath)}, nil
}
