// Package term renders the process table for a terminal.
package term

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/fatih/color"

	"go-process-table-ui/internal/render"
)

var (
	infoStyle    = color.New(color.FgCyan).SprintFunc()
	successStyle = color.New(color.Bold, color.FgGreen).SprintFunc()
	errorStyle   = color.New(color.Bold, color.FgRed).SprintFunc()
	captionStyle = color.New(color.Bold).SprintFunc()

	headerCell = lipgloss.NewStyle().Bold(true).Padding(0, 1).Align(lipgloss.Center)
	bodyCell   = lipgloss.NewStyle().Padding(0, 1).Align(lipgloss.Center)
	errorCell  = lipgloss.NewStyle().Padding(0, 1).Foreground(lipgloss.Color("9"))
)

// Printer is a render.Target that keeps the latest table in memory and
// writes it on Flush. With a live writer, banners are written as they
// change.
type Printer struct {
	live io.Writer

	mu       sync.Mutex
	visible  bool
	banner   render.Banner
	caption  string
	header   []string
	rows     [][]string
	errorMsg string
	hasError bool
}

var _ render.Target = (*Printer)(nil)

// NewPrinter returns a Printer. live may be nil.
func NewPrinter(live io.Writer) *Printer {
	return &Printer{live: live}
}

func (p *Printer) SetVisible(visible bool) {
	p.mu.Lock()
	p.visible = visible
	p.mu.Unlock()
}

func (p *Printer) SetStatus(b render.Banner) {
	p.mu.Lock()
	p.banner = b
	live := p.live
	p.mu.Unlock()

	if live != nil && b.Text != "" {
		_, _ = fmt.Fprintln(live, Banner(b))
	}
}

func (p *Printer) SetCaption(text string) {
	p.mu.Lock()
	p.caption = text
	p.mu.Unlock()
}

func (p *Printer) SetRows(header []string, rows [][]string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.header = append([]string(nil), header...)
	p.rows = make([][]string, 0, len(rows))
	for _, r := range rows {
		p.rows = append(p.rows, append([]string(nil), r...))
	}
	p.hasError = false
	p.errorMsg = ""
}

func (p *Printer) SetError(message string, _ int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.rows = nil
	p.hasError = true
	p.errorMsg = message
}

// Status returns the last banner set.
func (p *Printer) Status() render.Banner {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.banner
}

// Banner formats a status banner for a terminal line.
func Banner(b render.Banner) string {
	switch b.Level {
	case render.LevelSuccess:
		return successStyle("✔ " + b.Text)
	case render.LevelError:
		return errorStyle("✖ " + b.Text)
	default:
		return infoStyle("… " + b.Text)
	}
}

// String renders the caption and table, or the error row.
func (p *Printer) String() string {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.visible {
		return ""
	}

	var b strings.Builder
	if p.caption != "" {
		b.WriteString(captionStyle(p.caption))
		b.WriteString("\n")
	}

	header := p.header
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers(header...)

	if p.hasError {
		row := make([]string, len(header))
		if len(row) == 0 {
			row = []string{""}
		}
		row[0] = p.errorMsg
		t = t.Row(row...).StyleFunc(func(r, _ int) lipgloss.Style {
			if r == table.HeaderRow {
				return headerCell
			}
			return errorCell
		})
	} else {
		t = t.Rows(p.rows...).StyleFunc(func(r, _ int) lipgloss.Style {
			if r == table.HeaderRow {
				return headerCell
			}
			return bodyCell
		})
	}
	b.WriteString(t.String())
	b.WriteString("\n")
	return b.String()
}

// Flush writes the current table to w.
func (p *Printer) Flush(w io.Writer) error {
	_, err := io.WriteString(w, p.String())
	return err
}

// PlainString renders the current table without styling or borders.
func (p *Printer) PlainString() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.visible {
		return ""
	}
	if p.hasError {
		return "error: " + p.errorMsg + "\n"
	}
	return Plain(p.header, p.rows)
}

// Plain renders rows as a whitespace-aligned table without styling.
func Plain(header []string, rows [][]string) string {
	widths := make([]int, len(header))
	for i, h := range header {
		widths[i] = len(h)
	}
	for _, r := range rows {
		for i, c := range r {
			if i < len(widths) && len(c) > widths[i] {
				widths[i] = len(c)
			}
		}
	}

	var b strings.Builder
	writeRow := func(cells []string) {
		for i, c := range cells {
			if i >= len(widths) {
				break
			}
			if i > 0 {
				b.WriteString("  ")
			}
			b.WriteString(c)
			if i < len(cells)-1 {
				b.WriteString(strings.Repeat(" ", widths[i]-len(c)))
			}
		}
		b.WriteString("\n")
	}
	writeRow(header)
	for _, r := range rows {
		writeRow(r)
	}
	return b.String()
}
