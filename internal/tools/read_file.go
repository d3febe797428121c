package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

const (
	// defaultReadLimit caps how many lines a single read returns.
	defaultReadLimit = 2000
	// maxLineLength truncates pathological single lines.
	maxLineLength = 2000
)

// ReadFileTool reads a file through the backend router, returning its content
// with cat -n style line numbers.
type ReadFileTool struct{}

func (t *ReadFileTool) Name() string {
	return "read_file"
}

func (t *ReadFileTool) Description() string {
	return "Read the contents of a file. Returns numbered lines."
}

func (t *ReadFileTool) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"file_path": map[string]any{
				"type":        "string",
				"description": "Path to the file to read.",
			},
			"offset": map[string]any{
				"type":        "integer",
				"description": "Line number to start reading from (1-indexed).",
			},
			"limit": map[string]any{
				"type":        "integer",
				"description": "Maximum number of lines to read.",
			},
		},
		"required": []string{"file_path"},
	}
}

func (t *ReadFileTool) Run(ctx context.Context, input json.RawMessage, toolCtx ToolContext) (ToolResult, error) {
	var payload struct {
		FilePath string `json:"file_path"`
		Offset   *int   `json:"offset"`
		Limit    *int   `json:"limit"`
	}
	if err := json.Unmarshal(input, &payload); err != nil {
		return errorResult("invalid input: %v", err), nil
	}
	if payload.FilePath == "" {
		return errorResult("file_path is required"), nil
	}

	content, err := toolCtx.FS.Read(ctx, payload.FilePath)
	if err != nil {
		return errorResult("%v", err), nil
	}
	if content == "" {
		return ToolResult{Content: "System reminder: file exists but has empty contents"}, nil
	}

	lines := strings.Split(content, "\n")
	start := 0
	if payload.Offset != nil && *payload.Offset > 0 {
		start = *payload.Offset - 1
	}
	if start >= len(lines) {
		return errorResult("offset exceeds file length"), nil
	}
	limit := defaultReadLimit
	if payload.Limit != nil && *payload.Limit > 0 {
		limit = *payload.Limit
	}
	end := start + limit
	if end > len(lines) {
		end = len(lines)
	}

	var b strings.Builder
	for i := start; i < end; i++ {
		line := lines[i]
		if len(line) > maxLineLength {
			line = line[:maxLineLength]
		}
		fmt.Fprintf(&b, "%6d\t%s\n", i+1, line)
	}
	return ToolResult{Content: strings.TrimSuffix(b.String(), "\n")}, nil
}
