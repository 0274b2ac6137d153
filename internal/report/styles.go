package report

import "github.com/charmbracelet/lipgloss"

// Color palette shared by the text report.
const (
	colorSuccess   = lipgloss.Color("#10B981")
	colorError     = lipgloss.Color("#EF4444")
	colorHighlight = lipgloss.Color("#3B82F6")
)

type styles struct {
	ok   lipgloss.Style
	err  lipgloss.Style
	link lipgloss.Style
}

// newStyles binds the palette to a renderer, which drops colors when its
// output is not a terminal.
func newStyles(r *lipgloss.Renderer) styles {
	return styles{
		ok:   r.NewStyle().Bold(true).Foreground(colorSuccess),
		err:  r.NewStyle().Bold(true).Foreground(colorError),
		link: r.NewStyle().Underline(true).Foreground(colorHighlight),
	}
}
