package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// EditFileTool replaces a string in a file. It reads and rewrites the file
// through the backend router, so edits work on any backend that supports
// read and write.
type EditFileTool struct{}

func (t *EditFileTool) Name() string {
	return "edit_file"
}

func (t *EditFileTool) Description() string {
	return "Replace old_string with new_string in a file."
}

func (t *EditFileTool) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"file_path": map[string]any{
				"type":        "string",
				"description": "Path to the file to modify.",
			},
			"old_string": map[string]any{
				"type":        "string",
				"description": "The exact text to replace.",
			},
			"new_string": map[string]any{
				"type":        "string",
				"description": "Replacement text.",
			},
			"replace_all": map[string]any{
				"type":        "boolean",
				"description": "Replace every occurrence instead of requiring a unique match.",
			},
		},
		"required": []string{"file_path", "old_string", "new_string"},
	}
}

func (t *EditFileTool) Run(ctx context.Context, input json.RawMessage, toolCtx ToolContext) (ToolResult, error) {
	var payload struct {
		FilePath   string `json:"file_path"`
		OldString  string `json:"old_string"`
		NewString  string `json:"new_string"`
		ReplaceAll bool   `json:"replace_all"`
	}
	if err := json.Unmarshal(input, &payload); err != nil {
		return errorResult("invalid input: %v", err), nil
	}
	if payload.FilePath == "" {
		return errorResult("file_path is required"), nil
	}
	if payload.OldString == "" {
		return errorResult("old_string is required"), nil
	}
	if payload.OldString == payload.NewString {
		return errorResult("old_string and new_string must differ"), nil
	}

	content, err := toolCtx.FS.Read(ctx, payload.FilePath)
	if err != nil {
		return errorResult("%v", err), nil
	}

	occurrences := strings.Count(content, payload.OldString)
	switch {
	case occurrences == 0:
		return errorResult("string not found in file: %q", payload.OldString), nil
	case occurrences > 1 && !payload.ReplaceAll:
		return errorResult("string appears %d times in file; provide a larger unique context or set replace_all", occurrences), nil
	}

	count := 1
	if payload.ReplaceAll {
		count = occurrences
	}
	updated := strings.Replace(content, payload.OldString, payload.NewString, count)
	if err := toolCtx.FS.Write(ctx, payload.FilePath, updated); err != nil {
		return errorResult("%v", err), nil
	}

	if payload.ReplaceAll {
		return ToolResult{Content: fmt.Sprintf("Replaced %d occurrences in %s", occurrences, payload.FilePath)}, nil
	}
	return ToolResult{Content: fmt.Sprintf("Updated file %s", payload.FilePath)}, nil
}
