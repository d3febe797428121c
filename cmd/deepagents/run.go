package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/deepagents/deepagents/internal/agent"
	"github.com/deepagents/deepagents/internal/llm/openai"
	"github.com/deepagents/deepagents/internal/threads"
	"github.com/deepagents/deepagents/internal/ui"
)

// runRoot dispatches between interactive and print modes.
func runRoot(cmd *cobra.Command, opts *options, args []string) error {
	rt, err := buildRuntime(opts)
	if err != nil {
		return err
	}
	defer rt.Close()

	ctx := cmd.Context()
	threadID, history, err := resolveThread(ctx, rt, opts)
	if err != nil {
		return err
	}

	if opts.Print {
		prompt, err := readPrompt(args)
		if err != nil {
			return err
		}
		return runPrint(ctx, rt, threadID, history, prompt)
	}
	return runInteractive(rt, threadID, history)
}

// resolveThread picks the thread for this run: --thread (prefixes allowed),
// --continue for the most recent, or a fresh id.
func resolveThread(ctx context.Context, rt *runtime, opts *options) (string, []openai.Message, error) {
	var threadID string
	switch {
	case opts.Thread != "":
		exists, err := rt.threads.Exists(ctx, opts.Thread)
		if err != nil {
			return "", nil, err
		}
		if exists {
			threadID = opts.Thread
			break
		}
		similar, err := rt.threads.FindSimilar(ctx, opts.Thread)
		if err != nil {
			return "", nil, err
		}
		if len(similar) == 1 {
			threadID = similar[0]
			break
		}
		if len(similar) > 1 {
			return "", nil, fmt.Errorf("ambiguous thread %q: matches %s", opts.Thread, strings.Join(similar, ", "))
		}
		return "", nil, fmt.Errorf("no thread matching %q", opts.Thread)
	case opts.Continue:
		recent, err := rt.threads.MostRecent(ctx)
		if err != nil {
			return "", nil, err
		}
		if recent == "" {
			return "", nil, fmt.Errorf("no threads to continue")
		}
		threadID = recent
	default:
		threadID = threads.NewThreadID()
		agentName := ""
		if rt.profile != nil {
			agentName = rt.profile.Name
		}
		if err := rt.threads.Create(ctx, threadID, agentName); err != nil {
			return "", nil, err
		}
		return threadID, nil, nil
	}

	stored, err := rt.threads.Messages(ctx, threadID)
	if err != nil {
		return "", nil, err
	}
	history := make([]openai.Message, 0, len(stored))
	for _, m := range stored {
		history = append(history, openai.Message{Role: m.Role, Content: m.Content})
	}
	return threadID, history, nil
}

// readPrompt takes the prompt from args, or stdin when piped.
func readPrompt(args []string) (string, error) {
	if len(args) > 0 {
		return strings.Join(args, " "), nil
	}
	info, err := os.Stdin.Stat()
	if err == nil && info.Mode()&os.ModeCharDevice == 0 {
		raw, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		if prompt := strings.TrimSpace(string(raw)); prompt != "" {
			return prompt, nil
		}
	}
	return "", fmt.Errorf("print mode requires a prompt argument or piped stdin")
}

// runPrint executes one turn non-interactively with progress on stderr.
func runPrint(ctx context.Context, rt *runtime, threadID string, history []openai.Message, prompt string) error {
	spin := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(os.Stderr))
	spin.Suffix = " thinking..."
	if isTerminal(os.Stderr) {
		spin.Start()
	}

	toolColor := color.New(color.FgHiBlack)
	rt.runner.OnEvent = func(e agent.ToolEvent) {
		if e.Type != "tool_call" {
			return
		}
		spin.Stop()
		toolColor.Fprintf(os.Stderr, "  • %s %s\n", e.ToolName, summarizeArgs(e.Arguments))
		if isTerminal(os.Stderr) {
			spin.Start()
		}
	}

	history = append(history, openai.Message{Role: "user", Content: prompt})
	result, err := rt.runner.Run(ctx, history, rt.system, rt.model)
	spin.Stop()
	if err != nil {
		return err
	}

	if err := persistTurn(ctx, rt, threadID, prompt, result); err != nil {
		return err
	}

	if text, ok := result.Final.Content.(string); ok {
		fmt.Println(text)
	}
	color.New(color.FgHiBlack).Fprintf(os.Stderr, "thread %s | %d tokens\n", threadID, result.Usage.TotalTokens)
	return nil
}

// runInteractive starts the chat TUI.
func runInteractive(rt *runtime, threadID string, history []openai.Message) error {
	lastSaved := len(history)
	session := &ui.Session{
		Runner:       rt.runner,
		Model:        rt.model,
		SystemPrompt: rt.system,
		History:      history,
		OnTurn: func(updated []openai.Message) {
			ctx := context.Background()
			for _, msg := range updated[lastSaved:] {
				if text, ok := msg.Content.(string); ok && (msg.Role == "user" || msg.Role == "assistant") && text != "" {
					rt.threads.AppendMessage(ctx, threadID, msg.Role, text)
				}
			}
			lastSaved = len(updated)
		},
	}
	return session.Run()
}

// persistTurn stores the user prompt and final assistant message.
func persistTurn(ctx context.Context, rt *runtime, threadID string, prompt string, result *agent.RunResult) error {
	if err := rt.threads.AppendMessage(ctx, threadID, "user", prompt); err != nil {
		return err
	}
	if text, ok := result.Final.Content.(string); ok && text != "" {
		if err := rt.threads.AppendMessage(ctx, threadID, "assistant", text); err != nil {
			return err
		}
	}
	return nil
}

// summarizeArgs renders tool arguments compactly for progress lines.
func summarizeArgs(raw json.RawMessage) string {
	var args map[string]any
	if err := json.Unmarshal(raw, &args); err != nil {
		return ""
	}
	for _, key := range []string{"file_path", "command", "pattern", "path"} {
		if v, ok := args[key].(string); ok && v != "" {
			if len(v) > 60 {
				v = v[:60] + "..."
			}
			return v
		}
	}
	return ""
}

func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}
