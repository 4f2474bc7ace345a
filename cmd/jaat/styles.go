package main

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
)

type palette struct {
	err     lipgloss.Style
	warn    lipgloss.Style
	success lipgloss.Style
	info    lipgloss.Style
	dim     lipgloss.Style
	bold    lipgloss.Style
	header  lipgloss.Style
	user    lipgloss.Style
}

var styles = palette{
	err: lipgloss.NewStyle().
		Foreground(lipgloss.AdaptiveColor{Light: "#D00000", Dark: "#FF5555"}).
		Bold(true),
	warn: lipgloss.NewStyle().
		Foreground(lipgloss.AdaptiveColor{Light: "#B8860B", Dark: "#FFAA00"}),
	success: lipgloss.NewStyle().
		Foreground(lipgloss.AdaptiveColor{Light: "#008000", Dark: "#55FF55"}),
	info: lipgloss.NewStyle().
		Foreground(lipgloss.AdaptiveColor{Light: "#0066CC", Dark: "#5599FF"}),
	dim: lipgloss.NewStyle().
		Foreground(lipgloss.AdaptiveColor{Light: "#666666", Dark: "#888888"}),
	bold: lipgloss.NewStyle().Bold(true),
	header: lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.AdaptiveColor{Light: "#5A189A", Dark: "#C77DFF"}).
		BorderStyle(lipgloss.NormalBorder()).
		BorderBottom(true),
	user: lipgloss.NewStyle().
		Foreground(lipgloss.AdaptiveColor{Light: "#0066CC", Dark: "#5599FF"}).
		Bold(true),
}

// personaStyle colors a persona's name with its configured color.
func personaStyle(color string) lipgloss.Style {
	s := lipgloss.NewStyle().Bold(true)
	if color != "" {
		s = s.Foreground(lipgloss.Color(color))
	}
	return s
}

func printWarn(w io.Writer, format string, args ...any) {
	fmt.Fprintln(w, styles.warn.Render(fmt.Sprintf(format, args...)))
}

func printSuccess(w io.Writer, format string, args ...any) {
	fmt.Fprintln(w, styles.success.Render(fmt.Sprintf(format, args...)))
}
