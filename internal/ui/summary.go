package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Field is one labelled value of a summary block.
type Field struct {
	Label string
	Value any
}

// Summary renders title followed by one "label  value" line per field, labels padded to the widest.
func (p *Palette) Summary(title string, fields ...Field) string {
	width := 0
	for _, f := range fields {
		width = max(width, lipgloss.Width(f.Label))
	}
	label := lipgloss.NewStyle().Width(width + 2)

	lines := []string{p.Title(title)}
	for _, f := range fields {
		lines = append(lines, label.Render(f.Label)+fmt.Sprint(f.Value))
	}
	return strings.Join(lines, "\n") + "\n"
}

// Progress renders one progress line: "[step/total] message", or just the message when total is unknown.
func (p *Palette) Progress(step, total int, message string) string {
	if total <= 0 {
		return p.Help(message)
	}
	return p.Help(fmt.Sprintf("[%d/%d]", step, total)) + " " + message
}
