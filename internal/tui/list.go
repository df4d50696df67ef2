// Package tui renders task lists for the terminal.
package tui

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"

	"github.com/basket/go-t/internal/task"
)

// IDMode selects how much of each task id a listing shows.
type IDMode int

const (
	// IDPrefix shows the shortest unique prefix.
	IDPrefix IDMode = iota
	// IDFull shows the whole id.
	IDFull
	// IDNone shows text only.
	IDNone
)

// ListView renders a list of tasks, one per line.
type ListView struct {
	IDs   IDMode
	Color bool
}

// NewListView returns a view that styles output only when out is a terminal.
func NewListView(out *os.File, ids IDMode) ListView {
	return ListView{IDs: ids, Color: IsTerminal(out)}
}

// IsTerminal reports whether f is attached to a terminal.
func IsTerminal(f *os.File) bool {
	if f == nil {
		return false
	}
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// Render writes tasks to w. prefixes maps ids to their unique prefixes.
func (v ListView) Render(w io.Writer, tasks []task.Task, prefixes map[task.ID]string) error {
	idS := lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Bold(true)
	sepS := lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	textS := lipgloss.NewStyle().Foreground(lipgloss.Color("252"))

	var out strings.Builder
	for _, t := range tasks {
		text := t.Text
		if v.IDs == IDNone {
			out.WriteString(v.style(textS, text) + "\n")
			continue
		}
		id := t.ID.String()
		if v.IDs == IDPrefix {
			if p, ok := prefixes[t.ID]; ok {
				id = p
			}
		}
		fmt.Fprintf(&out, "%s %s %s\n", v.style(idS, id), v.style(sepS, "-"), v.style(textS, text))
	}
	_, err := io.WriteString(w, out.String())
	return err
}

func (v ListView) style(s lipgloss.Style, text string) string {
	if !v.Color {
		return text
	}
	return s.Render(text)
}
