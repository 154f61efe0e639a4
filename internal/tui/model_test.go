package tui

import (
	"context"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-process-table-ui/internal/process"
	"go-process-table-ui/internal/render"
	"go-process-table-ui/internal/render/term"
)

func init() {
	color.NoColor = true
}

type fakeRunner struct {
	renderer  *render.Renderer
	displays  int
	generates int
}

func (f *fakeRunner) DisplayCurrentData(context.Context) error {
	f.displays++
	f.renderer.ShowRows([]process.Record{{ID: "P1", ArrivalTime: 0, BurstTime: 4, Priority: "3"}})
	return nil
}

func (f *fakeRunner) RegenerateAndDisplay(ctx context.Context) error {
	f.generates++
	f.renderer.ShowSuccess("Processes generated successfully!")
	return f.DisplayCurrentData(ctx)
}

func newModel() (Model, *fakeRunner) {
	printer := term.NewPrinter(nil)
	runner := &fakeRunner{renderer: render.NewRenderer(printer, render.Options{})}
	return New(runner, printer, time.Second), runner
}

func key(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestInitLoadsTable(t *testing.T) {
	m, runner := newModel()

	msg := m.Init()()
	updated, _ := m.Update(msg)

	assert.Equal(t, 1, runner.displays)
	view := updated.View()
	assert.Contains(t, view, "P1")
	assert.Contains(t, view, "4.00")
	assert.Contains(t, view, render.LoadedMessage)
}

func TestGenerateKey(t *testing.T) {
	m, runner := newModel()

	next, cmd := m.Update(key("g"))
	require.NotNil(t, cmd)
	assert.Contains(t, next.View(), "working...")

	again, none := next.Update(key("g"))
	assert.Nil(t, none, "generate ignored while busy")

	done, _ := again.Update(cmd())
	assert.Equal(t, 1, runner.generates)
	assert.NotContains(t, done.View(), "working...")
}

func TestStateMsgIsKept(t *testing.T) {
	m, _ := newModel()

	next, _ := m.Update(StateMsg(render.State{Phase: render.PhaseError, Message: "boom"}))
	assert.Equal(t, render.PhaseError, next.(Model).state.Phase)
}

func TestQuit(t *testing.T) {
	m, _ := newModel()

	next, cmd := m.Update(key("q"))
	require.NotNil(t, cmd)
	_, ok := cmd().(tea.QuitMsg)
	assert.True(t, ok)
	assert.True(t, strings.TrimSpace(next.View()) == "")
}
