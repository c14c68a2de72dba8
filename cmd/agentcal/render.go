package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fatih/color"

	"github.com/kazz187/agentcal/internal/grid"
	"github.com/kazz187/agentcal/internal/task"
	palette "github.com/kazz187/agentcal/pkg/color"
)

const cellWidth = 16

type renderer struct {
	useColor bool
	header   *color.Color
	bucket   *color.Color
}

func newRenderer(useColor bool) *renderer {
	return &renderer{
		useColor: useColor,
		header:   palette.New(useColor, color.Bold, color.FgCyan),
		bucket:   palette.New(useColor, color.FgYellow),
	}
}

// render writes the board as a fixed-width table, one agent per row, with
// the unassigned bucket underneath.
func (r *renderer) render(w io.Writer, m *grid.Matrix) {
	fmt.Fprintf(w, "%s view of %s (version %d)\n", m.View, m.CurrentDate.Format(time.DateOnly), m.Version)

	cols := []string{pad("agent")}
	for _, d := range m.Days {
		cols = append(cols, pad(d.Format("Mon 01-02")))
	}
	r.header.Fprintln(w, strings.Join(cols, " | "))

	for _, row := range m.Rows {
		agentColor := palette.Agent(row.Agent.ID, r.useColor)
		height := 1
		for _, c := range row.Cells {
			height = max(height, len(c.Tasks))
		}
		for line := range height {
			name := ""
			if line == 0 {
				name = row.Agent.Name
			}
			agentColor.Fprint(w, pad(name))
			for _, c := range row.Cells {
				fmt.Fprint(w, " | ")
				if line < len(c.Tasks) {
					fmt.Fprint(w, pad(label(c.Tasks[line])))
				} else {
					fmt.Fprint(w, pad(""))
				}
			}
			fmt.Fprintln(w)
		}
	}

	r.bucket.Fprintf(w, "unassigned (%d)\n", len(m.Bucket.Tasks))
	for _, t := range m.Bucket.Tasks {
		fmt.Fprintf(w, "  - %s\n", label(t))
	}
}

func label(t task.Task) string {
	if t.Title == "" {
		return t.ID
	}
	return t.ID + " " + t.Title
}

func pad(s string) string {
	runes := []rune(s)
	if len(runes) > cellWidth {
		return string(runes[:cellWidth-1]) + "~"
	}
	return s + strings.Repeat(" ", cellWidth-len(runes))
}
