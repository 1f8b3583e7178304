// Package shell provides an interactive line-oriented terminal shell.
// Each line entered is passed to an Evaluator and its output
// is appended to a scrolling transcript.
package shell

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// An Evaluator runs one line of shell input.
type Evaluator interface {
	Eval(ctx context.Context, line string) (string, error)
}

// EvalFunc adapts a function to an Evaluator.
type EvalFunc func(ctx context.Context, line string) (string, error)

func (f EvalFunc) Eval(ctx context.Context, line string) (string, error) {
	return f(ctx, line)
}

var (
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	echoStyle   = lipgloss.NewStyle().Bold(true)
	statusStyle = lipgloss.NewStyle().Faint(true)
)

type resultMsg struct {
	out string
	err error
}

type Model struct {
	ctx   context.Context
	eval  Evaluator
	input textinput.Model
	vp    viewport.Model

	transcript strings.Builder
	history    []string
	hpos       int // index into history while recalling; len(history) when not
	busy       bool
	ready      bool
}

// New returns a shell model evaluating lines with ev.
func New(ctx context.Context, ev Evaluator, prompt string) *Model {
	in := textinput.New()
	in.Prompt = prompt
	in.Focus()
	return &Model{
		ctx:   ctx,
		eval:  ev,
		input: in,
		vp:    viewport.New(80, 20),
	}
}

// Run runs an interactive shell on the terminal until the user exits
// or ctx is cancelled.
func Run(ctx context.Context, ev Evaluator, prompt string) error {
	p := tea.NewProgram(New(ctx, ev, prompt), tea.WithContext(ctx), tea.WithAltScreen())
	_, err := p.Run()
	return err
}

func (m *Model) Init() tea.Cmd { return textinput.Blink }

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.vp.Width = msg.Width
		m.vp.Height = max(msg.Height-2, 1)
		m.input.Width = msg.Width - len(m.input.Prompt) - 1
		m.ready = true
		m.refresh()
		return m, nil
	case resultMsg:
		m.busy = false
		if msg.err != nil {
			m.appendLine(errorStyle.Render(msg.err.Error()))
		} else if msg.out != "" {
			m.appendLine(strings.TrimRight(msg.out, "\n"))
		}
		return m, nil
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyCtrlD:
			return m, tea.Quit
		case tea.KeyEnter:
			return m.submit()
		case tea.KeyUp:
			m.recall(-1)
			return m, nil
		case tea.KeyDown:
			m.recall(1)
			return m, nil
		case tea.KeyPgUp, tea.KeyPgDown:
			var cmd tea.Cmd
			m.vp, cmd = m.vp.Update(msg)
			return m, cmd
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) submit() (tea.Model, tea.Cmd) {
	line := strings.TrimSpace(m.input.Value())
	m.input.Reset()
	if line == "" || m.busy {
		return m, nil
	}
	m.history = append(m.history, line)
	m.hpos = len(m.history)
	m.appendLine(echoStyle.Render(m.input.Prompt + line))
	if line == "exit" || line == "quit" {
		return m, tea.Quit
	}
	m.busy = true
	ctx, ev := m.ctx, m.eval
	return m, func() tea.Msg {
		out, err := ev.Eval(ctx, line)
		return resultMsg{out, err}
	}
}

func (m *Model) recall(dir int) {
	if len(m.history) == 0 {
		return
	}
	m.hpos = min(max(m.hpos+dir, 0), len(m.history))
	if m.hpos == len(m.history) {
		m.input.Reset()
		return
	}
	m.input.SetValue(m.history[m.hpos])
	m.input.CursorEnd()
}

func (m *Model) appendLine(s string) {
	m.transcript.WriteString(s)
	m.transcript.WriteString("\n")
	m.refresh()
}

func (m *Model) refresh() {
	m.vp.SetContent(m.transcript.String())
	m.vp.GotoBottom()
}

// Transcript returns everything the shell has printed so far.
func (m *Model) Transcript() string { return m.transcript.String() }

func (m *Model) View() string {
	status := ""
	if m.busy {
		status = statusStyle.Render("working...")
	}
	return lipgloss.JoinVertical(lipgloss.Left, m.vp.View(), status, m.input.View())
}
