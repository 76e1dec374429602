package tui

import "github.com/charmbracelet/lipgloss"

var (
	// HeaderStyle styles the column header row.
	HeaderStyle = lipgloss.NewStyle().Bold(true)
	// CursorStyle marks the highlighted chooser row.
	CursorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("4")).Bold(true)
	// HelpStyle renders key hints.
	HelpStyle = lipgloss.NewStyle().Faint(true)

	markerStyles = map[string]lipgloss.Style{
		"active":  lipgloss.NewStyle().Foreground(lipgloss.Color("2")).Bold(true),
		"missing": lipgloss.NewStyle().Foreground(lipgloss.Color("1")),
	}
)

// MarkerStyle returns the lipgloss style for a row marker.
func MarkerStyle(marker string) lipgloss.Style {
	if s, ok := markerStyles[marker]; ok {
		return s
	}
	return lipgloss.NewStyle()
}
