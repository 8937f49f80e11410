// Package tui is a read-only viewer for a coordinator Result or a
// loaded recording.Snapshot: a table of signal statuses (with a stage
// column) plus summary lines. Styles defines a colour per status, but
// the table rows are rendered without them. Grounded on internal/wizard/wizard.go's
// Bubbletea framework and Styles struct, repurposed here from an input
// wizard into an output viewer — there is no user input to collect,
// only a finished run to render.
package tui

import "github.com/charmbracelet/lipgloss"

// Styles holds the viewer's visual styling, mirroring the shape (if
// not every field) of wizard.Styles.
type Styles struct {
	Title     lipgloss.Style
	Succeeded lipgloss.Style
	Failed    lipgloss.Style
	TimedOut  lipgloss.Style
	Skipped   lipgloss.Style
	Cancelled lipgloss.Style
	Subtle    lipgloss.Style
}

// DefaultStyles returns the viewer's default styling.
func DefaultStyles() Styles {
	return Styles{
		Title: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205")).MarginBottom(1),
		Succeeded: lipgloss.NewStyle().Foreground(lipgloss.Color("46")),
		Failed:    lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
		TimedOut:  lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
		Skipped:   lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
		Cancelled: lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
		Subtle:    lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
	}
}

func (s Styles) statusStyle(status string) lipgloss.Style {
	switch status {
	case "succeeded":
		return s.Succeeded
	case "failed":
		return s.Failed
	case "timed_out":
		return s.TimedOut
	case "skipped":
		return s.Skipped
	case "cancelled":
		return s.Cancelled
	default:
		return s.Subtle
	}
}
