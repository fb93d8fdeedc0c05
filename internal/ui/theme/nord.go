package theme

import "github.com/charmbracelet/lipgloss"

// Nord theme - Arctic, north-bluish color palette
// https://www.nordtheme.com/
var Nord = Theme{
	Name: "nord",

	Background: lipgloss.Color("#2E3440"),
	Foreground: lipgloss.Color("#ECEFF4"),
	Subtle:     lipgloss.Color("#4C566A"),
	Highlight:  lipgloss.Color("#3B4252"),
	Border:     lipgloss.Color("#4C566A"),

	Primary:   lipgloss.Color("#88C0D0"), // Nord8
	Secondary: lipgloss.Color("#81A1C1"), // Nord9
	Info:      lipgloss.Color("#5E81AC"), // Nord10

	Success: lipgloss.Color("#A3BE8C"), // Nord14
	Warning: lipgloss.Color("#EBCB8B"), // Nord13
	Error:   lipgloss.Color("#BF616A"), // Nord11

	StatusBacklog:    lipgloss.Color("#4C566A"),
	StatusPending:    lipgloss.Color("#EBCB8B"),
	StatusInProgress: lipgloss.Color("#88C0D0"),
	StatusDone:       lipgloss.Color("#A3BE8C"),

	Today:   lipgloss.Color("#D08770"), // Nord12
	Weekend: lipgloss.Color("#616E88"),
}
