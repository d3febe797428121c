// Package ui implements the interactive chat surface.
package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/deepagents/deepagents/internal/agent"
	"github.com/deepagents/deepagents/internal/llm/openai"
)

var (
	userStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	assistantStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true)
	toolStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	errorStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	statusStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Italic(true)
)

// Session wires the chat model to the agent runner and thread persistence.
type Session struct {
	// Runner executes agent turns.
	Runner *agent.Runner
	// Model is the resolved provider model name.
	Model string
	// SystemPrompt is the full system prompt for the session.
	SystemPrompt string
	// History seeds the conversation, e.g. when resuming a thread.
	History []openai.Message
	// OnTurn is called with the updated history after each completed turn,
	// for thread persistence. Optional.
	OnTurn func(history []openai.Message)
}

// Run starts the interactive chat UI. It requires a TTY.
func (s *Session) Run() error {
	if !term.IsTerminal(0) || !term.IsTerminal(1) {
		return errors.New("interactive mode requires a TTY")
	}
	program := tea.NewProgram(newChatModel(s), tea.WithAltScreen())
	_, err := program.Run()
	return err
}

// chatEntry is a rendered transcript entry.
type chatEntry struct {
	Role    string
	Content string
}

type runDoneMsg struct {
	Result *agent.RunResult
}

type runErrMsg struct {
	Err error
}

type toolEventMsg struct {
	Event agent.ToolEvent
}

// chatModel drives the chat UI.
type chatModel struct {
	session  *Session
	history  []openai.Message
	entries  []chatEntry
	view     viewport.Model
	input    textarea.Model
	markdown *glamour.TermRenderer
	status   string
	running  bool
	events   chan tea.Msg
	cancel   context.CancelFunc
	width    int
	height   int
	quitting bool
}

func newChatModel(s *Session) *chatModel {
	input := textarea.New()
	input.Placeholder = "Type a message... (exit to quit)"
	input.Focus()
	input.CharLimit = 0
	input.Prompt = "> "
	input.SetHeight(3)
	input.SetWidth(20)

	var renderer *glamour.TermRenderer
	if glam, err := glamour.NewTermRenderer(glamour.WithAutoStyle()); err == nil {
		renderer = glam
	}

	m := &chatModel{
		session:  s,
		history:  append([]openai.Message(nil), s.History...),
		view:     viewport.New(20, 10),
		input:    input,
		markdown: renderer,
		status:   "Enter: send | Ctrl+J: newline | Ctrl+C: quit",
	}
	for _, msg := range s.History {
		if text, ok := msg.Content.(string); ok && (msg.Role == "user" || msg.Role == "assistant") {
			m.entries = append(m.entries, chatEntry{Role: msg.Role, Content: text})
		}
	}
	return m
}

func (m *chatModel) Init() tea.Cmd {
	return textarea.Blink
}

func (m *chatModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch typed := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = typed.Width
		m.height = typed.Height
		m.view.Width = typed.Width
		m.view.Height = typed.Height - m.input.Height() - 2
		m.input.SetWidth(typed.Width - 2)
		m.refresh()
		return m, nil
	case tea.KeyMsg:
		return m.handleKey(typed)
	case toolEventMsg:
		m.appendToolEvent(typed.Event)
		return m, m.listen()
	case runDoneMsg:
		m.finishRun(typed.Result)
		return m, nil
	case runErrMsg:
		m.finishError(typed.Err)
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *chatModel) View() string {
	if m.quitting {
		return ""
	}
	if m.width == 0 {
		return "Initializing..."
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		m.view.View(),
		m.input.View(),
		statusStyle.Render(m.status),
	)
}

func (m *chatModel) handleKey(key tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch key.String() {
	case "ctrl+c":
		if m.running {
			m.cancelRun()
			return m, nil
		}
		m.quitting = true
		return m, tea.Quit
	case "ctrl+j":
		m.input.InsertString("\n")
		return m, nil
	case "pgup":
		m.view.LineUp(10)
		return m, nil
	case "pgdown":
		m.view.LineDown(10)
		return m, nil
	}

	if key.Type == tea.KeyEnter && !key.Alt {
		return m.submit()
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(key)
	return m, cmd
}

func (m *chatModel) submit() (tea.Model, tea.Cmd) {
	if m.running {
		m.status = "Wait for the current response or cancel with Ctrl+C."
		return m, nil
	}
	value := strings.TrimSpace(m.input.Value())
	if value == "" {
		return m, nil
	}
	if value == "exit" || value == "quit" {
		m.quitting = true
		return m, tea.Quit
	}
	m.input.SetValue("")

	m.entries = append(m.entries, chatEntry{Role: "user", Content: value})
	m.history = append(m.history, openai.Message{Role: "user", Content: value})
	m.refresh()

	m.running = true
	m.status = "Thinking..."
	m.events = make(chan tea.Msg, 64)
	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel

	return m, tea.Batch(m.startRun(ctx), m.listen())
}

// startRun executes the agent turn on a goroutine, feeding tool events and
// the final result into the update loop.
func (m *chatModel) startRun(ctx context.Context) tea.Cmd {
	runner := *m.session.Runner
	events := m.events
	runner.OnEvent = func(e agent.ToolEvent) {
		select {
		case events <- toolEventMsg{Event: e}:
		case <-ctx.Done():
		}
	}
	history := append([]openai.Message(nil), m.history...)

	return func() tea.Msg {
		go func() {
			result, err := runner.Run(ctx, history, m.session.SystemPrompt, m.session.Model)
			if err != nil {
				events <- runErrMsg{Err: err}
				return
			}
			events <- runDoneMsg{Result: result}
		}()
		return nil
	}
}

// listen waits for the next message from the in-flight run.
func (m *chatModel) listen() tea.Cmd {
	events := m.events
	if events == nil {
		return nil
	}
	return func() tea.Msg {
		return <-events
	}
}

func (m *chatModel) appendToolEvent(event agent.ToolEvent) {
	switch event.Type {
	case "tool_call":
		m.status = fmt.Sprintf("Running %s...", event.ToolName)
	case "tool_result":
		line := fmt.Sprintf("%s done", event.ToolName)
		if event.IsError {
			line = fmt.Sprintf("%s failed", event.ToolName)
		}
		m.entries = append(m.entries, chatEntry{Role: "tool", Content: line})
		m.refresh()
	}
}

func (m *chatModel) finishRun(result *agent.RunResult) {
	m.running = false
	m.cancel = nil
	m.events = nil
	m.history = result.Messages
	if text, ok := result.Final.Content.(string); ok && text != "" {
		m.entries = append(m.entries, chatEntry{Role: "assistant", Content: text})
	}
	m.status = fmt.Sprintf("%d tokens | Enter: send | Ctrl+C: quit", result.Usage.TotalTokens)
	m.refresh()
	if m.session.OnTurn != nil {
		m.session.OnTurn(m.history)
	}
}

func (m *chatModel) finishError(err error) {
	m.running = false
	m.cancel = nil
	m.events = nil
	m.entries = append(m.entries, chatEntry{Role: "error", Content: err.Error()})
	m.status = "Enter: send | Ctrl+C: quit"
	m.refresh()
}

func (m *chatModel) cancelRun() {
	if m.cancel != nil {
		m.cancel()
	}
	m.running = false
	m.cancel = nil
	m.events = nil
	m.status = "Cancelled."
	m.refresh()
}

// refresh re-renders the transcript and pins the viewport to the bottom.
func (m *chatModel) refresh() {
	var b strings.Builder
	for _, entry := range m.entries {
		switch entry.Role {
		case "user":
			b.WriteString(userStyle.Render("You") + "\n" + entry.Content + "\n\n")
		case "assistant":
			b.WriteString(assistantStyle.Render("Agent") + "\n" + m.renderMarkdown(entry.Content) + "\n")
		case "tool":
			b.WriteString(toolStyle.Render("  • "+entry.Content) + "\n")
		case "error":
			b.WriteString(errorStyle.Render("Error: "+entry.Content) + "\n\n")
		}
	}
	m.view.SetContent(b.String())
	m.view.GotoBottom()
}

func (m *chatModel) renderMarkdown(text string) string {
	if m.markdown == nil {
		return text
	}
	rendered, err := m.markdown.Render(text)
	if err != nil {
		return text
	}
	return strings.TrimRight(rendered, "\n") + "\n"
}
