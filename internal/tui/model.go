// Package tui is an interactive terminal view of the process table.
package tui

import (
	"context"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"go-process-table-ui/internal/render"
	"go-process-table-ui/internal/render/term"
)

// Runner runs display and regeneration cycles.
type Runner interface {
	DisplayCurrentData(ctx context.Context) error
	RegenerateAndDisplay(ctx context.Context) error
}

// StateMsg carries a render state transition into the program.
type StateMsg render.State

type cycleDoneMsg struct {
	op  string
	err error
}

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FAFAFA")).Background(lipgloss.Color("#0E5D8F")).Padding(0, 1)
	helpStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	busyStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
)

// Model is the bubbletea model. The printer is the render target the
// runner's renderer draws into.
type Model struct {
	runner  Runner
	printer *term.Printer
	timeout time.Duration

	state    render.State
	busy     string
	quitting bool
}

func New(runner Runner, printer *term.Printer, timeout time.Duration) Model {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return Model{runner: runner, printer: printer, timeout: timeout, state: render.State{Phase: render.PhaseIdle}}
}

// Init loads the current table.
func (m Model) Init() tea.Cmd {
	return m.run("display", m.runner.DisplayCurrentData)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			m.quitting = true
			return m, tea.Quit
		case "g":
			if m.busy != "" {
				return m, nil
			}
			m.busy = "generate"
			return m, m.run("generate", m.runner.RegenerateAndDisplay)
		case "r":
			if m.busy != "" {
				return m, nil
			}
			m.busy = "display"
			return m, m.run("display", m.runner.DisplayCurrentData)
		}
	case StateMsg:
		m.state = render.State(msg)
	case cycleDoneMsg:
		if m.busy == msg.op {
			m.busy = ""
		}
	}
	return m, nil
}

func (m Model) run(op string, fn func(context.Context) error) tea.Cmd {
	timeout := m.timeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		return cycleDoneMsg{op: op, err: fn(ctx)}
	}
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("Process Table"))
	b.WriteString("\n\n")

	if banner := m.printer.Status(); banner.Text != "" {
		b.WriteString(term.Banner(banner))
		b.WriteString("\n\n")
	}
	if table := m.printer.String(); table != "" {
		b.WriteString(table)
		b.WriteString("\n")
	}
	if m.busy != "" {
		b.WriteString(busyStyle.Render("working..."))
		b.WriteString("\n")
	} else if !m.state.ChangedAt.IsZero() {
		b.WriteString(helpStyle.Render(string(m.state.Phase) + " at " + m.state.ChangedAt.Local().Format("15:04:05")))
		b.WriteString("\n")
	}
	b.WriteString(helpStyle.Render("g generate • r refresh • q quit"))
	b.WriteString("\n")
	return b.String()
}

// Run starts the program until the user quits or ctx is done.
func Run(ctx context.Context, runner Runner, renderer *render.Renderer, printer *term.Printer, timeout time.Duration) error {
	p := tea.NewProgram(New(runner, printer, timeout), tea.WithContext(ctx), tea.WithAltScreen())
	unsubscribe := renderer.Subscribe(func(s render.State) {
		p.Send(StateMsg(s))
	})
	defer unsubscribe()

	_, err := p.Run()
	return err
}
