package ui

import (
	"github.com/charmbracelet/bubbles/key"
)

// KeyMap defines the global keybindings; views handle their own keys
type KeyMap struct {
	WeekView  key.Binding
	TasksView key.Binding

	Help       key.Binding
	ThemeCycle key.Binding
	Quit       key.Binding
}

// DefaultKeyMap returns the default keybindings
func DefaultKeyMap() KeyMap {
	return KeyMap{
		WeekView: key.NewBinding(
			key.WithKeys("1"),
			key.WithHelp("1", "week"),
		),
		TasksView: key.NewBinding(
			key.WithKeys("2"),
			key.WithHelp("2", "tasks"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "help"),
		),
		ThemeCycle: key.NewBinding(
			key.WithKeys("ctrl+t"),
			key.WithHelp("C-t", "theme"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

// ShortHelp returns short help bindings (for status bar)
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.WeekView, k.TasksView, k.Help, k.Quit}
}

// FullHelp returns full help bindings (for help view)
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.WeekView, k.TasksView},
		{k.Help, k.ThemeCycle, k.Quit},
	}
}
