package agent

import "strings"

// DefaultSystemPrompt returns the base system prompt for tool usage.
func DefaultSystemPrompt(toolNames []string) string {
	builder := strings.Builder{}
	builder.WriteString("You are a general-purpose coding agent.\n")
	builder.WriteString("Use tools when you need to read or modify files or run commands.\n")
	builder.WriteString("File paths are virtual absolute paths rooted at /. Files under /memories/ persist across runs; record durable notes there.\n")
	if len(toolNames) > 0 {
		builder.WriteString("Available tools: ")
		builder.WriteString(strings.Join(toolNames, ", "))
		builder.WriteString(".\n")
	}
	builder.WriteString("For multi-step work, maintain a plan with write_todos and keep it current.\n")
	builder.WriteString("When a tool is required, call it instead of guessing.\n")
	builder.WriteString("Provide clear, concise responses.")
	return builder.String()
}
