package term

import (
	"bytes"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-process-table-ui/internal/process"
	"go-process-table-ui/internal/render"
)

func init() {
	color.NoColor = true
}

func TestPrinter_Rows(t *testing.T) {
	p := NewPrinter(nil)
	r := render.NewRenderer(p, render.Options{})
	r.ShowRows([]process.Record{
		{ID: "P1", ArrivalTime: 0, BurstTime: 5, Priority: "2"},
		{ID: "P2", ArrivalTime: 1.5, BurstTime: 3, Priority: "1"},
	})

	out := p.String()
	assert.Contains(t, out, "Generated Processes (2 processes)")
	assert.Contains(t, out, "Arrival Time")
	assert.Contains(t, out, "1.50")
	assert.Less(t, strings.Index(out, "P1"), strings.Index(out, "P2"))

	var buf bytes.Buffer
	require.NoError(t, p.Flush(&buf))
	assert.Equal(t, out, buf.String())
}

func TestPrinter_PlainString(t *testing.T) {
	p := NewPrinter(nil)
	r := render.NewRenderer(p, render.Options{})
	r.ShowRows([]process.Record{{ID: "P1", ArrivalTime: 0, BurstTime: 5, Priority: "2"}})

	lines := strings.Split(strings.TrimSpace(p.PlainString()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, []string{"Process", "ID", "Arrival", "Time", "Burst", "Time", "Priority"}, strings.Fields(lines[0]))
	assert.Equal(t, []string{"P1", "0.00", "5.00", "2"}, strings.Fields(lines[1]))
}

func TestPrinter_Error(t *testing.T) {
	var live bytes.Buffer
	p := NewPrinter(&live)
	r := render.NewRenderer(p, render.Options{})

	r.ShowLoading("Generating new processes...")
	r.ShowError("disk full")

	assert.Contains(t, p.String(), "disk full")
	assert.Equal(t, "error: disk full\n", p.PlainString())
	assert.Equal(t, render.Banner{Level: render.LevelError, Text: "Error: disk full"}, p.Status())
	assert.Equal(t, "… Generating new processes...\n✖ Error: disk full\n", live.String())
}

func TestPrinter_HiddenRendersNothing(t *testing.T) {
	p := NewPrinter(nil)
	r := render.NewRenderer(p, render.Options{HideWhileLoading: true})
	r.ShowLoading("Generating new processes...")
	assert.Empty(t, p.String())
}
