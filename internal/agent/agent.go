package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/deepagents/deepagents/internal/llm/openai"
	"github.com/deepagents/deepagents/internal/logging"
	"github.com/deepagents/deepagents/internal/tools"
)

// ToolEvent captures tool call/result events for progress output.
type ToolEvent struct {
	// Type is either "tool_call" or "tool_result".
	Type string `json:"type"`
	// ToolName is the function name, if available.
	ToolName string `json:"tool_name,omitempty"`
	// ToolID associates tool results with calls.
	ToolID string `json:"tool_id,omitempty"`
	// Arguments stores serialized tool arguments.
	Arguments json.RawMessage `json:"arguments,omitempty"`
	// Result stores tool output content.
	Result string `json:"result,omitempty"`
	// IsError indicates whether the tool result represents a failure.
	IsError bool `json:"is_error,omitempty"`
}

// RunResult captures the outcome of a single user turn.
type RunResult struct {
	// Messages is the full conversation history.
	Messages []openai.Message
	// Final is the last assistant message in the turn.
	Final openai.Message
	// Usage reports token counts for the last call.
	Usage openai.Usage
	// Events contains tool call and result events.
	Events []ToolEvent
}

// EventSink receives tool events as they happen. Optional.
type EventSink func(ToolEvent)

// Runner executes the agent loop.
type Runner struct {
	// Client executes OpenAI-compatible requests.
	Client *openai.Client
	// ToolRunner dispatches tool calls.
	ToolRunner *tools.Runner
	// ToolContext provides backend and workspace context to tools.
	ToolContext tools.ToolContext
	// MaxTurns limits the number of tool-assisted turns.
	MaxTurns int
	// OnEvent is invoked for each tool call and result, when set.
	OnEvent EventSink
}

// Run executes a single user turn with tool handling.
func (r *Runner) Run(
	ctx context.Context,
	messages []openai.Message,
	systemPrompt string,
	model string,
) (*RunResult, error) {
	if r.Client == nil {
		return nil, errors.New("client is required")
	}
	maxTurns := r.MaxTurns
	if maxTurns <= 0 {
		maxTurns = 8
	}
	log := logging.Logger("agent")

	if systemPrompt != "" {
		messages = prependSystem(messages, systemPrompt)
	}

	result := &RunResult{
		Messages: messages,
	}

	for turn := 0; turn < maxTurns; turn++ {
		req := &openai.ChatRequest{
			Model:    model,
			Messages: result.Messages,
		}
		if r.ToolRunner != nil {
			req.Tools = r.ToolRunner.ToolSpecs()
			req.ToolChoice = "auto"
		}

		resp, err := r.Client.ChatCompletions(ctx, req)
		if err != nil {
			return nil, err
		}

		choice := resp.Choices[0]
		result.Usage = resp.Usage
		result.Messages = append(result.Messages, choice.Message)
		result.Final = choice.Message

		// No tool calls means the model is done with this turn.
		if len(choice.Message.ToolCalls) == 0 || r.ToolRunner == nil {
			return result, nil
		}

		for _, call := range choice.Message.ToolCalls {
			args := json.RawMessage(call.Function.Arguments)
			r.emit(result, ToolEvent{
				Type:      "tool_call",
				ToolName:  call.Function.Name,
				ToolID:    call.ID,
				Arguments: args,
			})

			toolResult, err := r.ToolRunner.Run(ctx, call.Function.Name, args, r.ToolContext)
			if err != nil {
				toolResult = tools.ToolResult{IsError: true, Content: err.Error()}
			}
			if toolResult.IsError {
				log.Debug("tool failed", "tool", call.Function.Name, "result", toolResult.Content)
			}

			r.emit(result, ToolEvent{
				Type:     "tool_result",
				ToolName: call.Function.Name,
				ToolID:   call.ID,
				Result:   toolResult.Content,
				IsError:  toolResult.IsError,
			})

			result.Messages = append(result.Messages, openai.Message{
				Role:       "tool",
				ToolCallID: call.ID,
				Content:    toolResult.Content,
			})
		}
	}

	return result, fmt.Errorf("max turns exceeded")
}

func (r *Runner) emit(result *RunResult, event ToolEvent) {
	result.Events = append(result.Events, event)
	if r.OnEvent != nil {
		r.OnEvent(event)
	}
}

// prependSystem injects a system message at the start of the conversation.
func prependSystem(messages []openai.Message, prompt string) []openai.Message {
	if len(messages) > 0 && messages[0].Role == "system" {
		messages[0].Content = fmt.Sprintf("%v\n\n%v", messages[0].Content, prompt)
		return messages
	}
	system := openai.Message{Role: "system", Content: prompt}
	return append([]openai.Message{system}, messages...)
}
