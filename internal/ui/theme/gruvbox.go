package theme

import "github.com/charmbracelet/lipgloss"

// Gruvbox theme - Retro groove color scheme
// https://github.com/morhetz/gruvbox
var Gruvbox = Theme{
	Name: "gruvbox",

	Background: lipgloss.Color("#282828"),
	Foreground: lipgloss.Color("#EBDBB2"),
	Subtle:     lipgloss.Color("#928374"),
	Highlight:  lipgloss.Color("#3C3836"),
	Border:     lipgloss.Color("#504945"),

	Primary:   lipgloss.Color("#83A598"), // Aqua
	Secondary: lipgloss.Color("#8EC07C"),
	Info:      lipgloss.Color("#83A598"),

	Success: lipgloss.Color("#B8BB26"),
	Warning: lipgloss.Color("#FABD2F"),
	Error:   lipgloss.Color("#FB4934"),

	StatusBacklog:    lipgloss.Color("#928374"),
	StatusPending:    lipgloss.Color("#FABD2F"),
	StatusInProgress: lipgloss.Color("#83A598"),
	StatusDone:       lipgloss.Color("#B8BB26"),

	Today:   lipgloss.Color("#FE8019"), // Orange
	Weekend: lipgloss.Color("#7C6F64"),
}
