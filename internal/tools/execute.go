package tools

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/deepagents/deepagents/internal/backend"
)

// ExecuteTool runs a shell command on the default backend. The optional
// timeout argument is forwarded only when the backend accepts one.
type ExecuteTool struct{}

func (t *ExecuteTool) Name() string {
	return "execute"
}

func (t *ExecuteTool) Description() string {
	return "Run a shell command in the workspace."
}

func (t *ExecuteTool) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"command": map[string]any{
				"type":        "string",
				"description": "Shell command to execute.",
			},
			"timeout": map[string]any{
				"type":        "integer",
				"description": "Timeout in seconds for long-running commands.",
			},
		},
		"required": []string{"command"},
	}
}

func (t *ExecuteTool) Run(ctx context.Context, input json.RawMessage, toolCtx ToolContext) (ToolResult, error) {
	var payload struct {
		Command string `json:"command"`
		Timeout *int   `json:"timeout"`
	}
	if err := json.Unmarshal(input, &payload); err != nil {
		return errorResult("invalid input: %v", err), nil
	}
	if payload.Command == "" {
		return errorResult("command is required"), nil
	}

	timeout := toolCtx.ExecuteTimeout
	if payload.Timeout != nil {
		if *payload.Timeout <= 0 {
			return errorResult("timeout must be positive"), nil
		}
		timeout = time.Duration(*payload.Timeout) * time.Second
	}

	resp, err := toolCtx.FS.Execute(ctx, payload.Command, timeout)
	if errors.Is(err, backend.ErrExecuteUnsupported) {
		return errorResult("command execution is not available on this backend"), nil
	}
	if err != nil {
		return errorResult("%v", err), nil
	}
	return ToolResult{Content: resp.Output, IsError: resp.ExitCode != 0}, nil
}
