package theme

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/dori/tempo/internal/model"
)

// Theme defines the color scheme and styles for the UI
type Theme struct {
	Name string

	// Base colors
	Background lipgloss.Color
	Foreground lipgloss.Color
	Subtle     lipgloss.Color
	Highlight  lipgloss.Color
	Border     lipgloss.Color

	// Semantic colors
	Primary   lipgloss.Color
	Secondary lipgloss.Color
	Success   lipgloss.Color
	Warning   lipgloss.Color
	Error     lipgloss.Color
	Info      lipgloss.Color

	// Task status colors
	StatusBacklog    lipgloss.Color
	StatusPending    lipgloss.Color
	StatusInProgress lipgloss.Color
	StatusDone       lipgloss.Color

	// Week grid
	Today   lipgloss.Color
	Weekend lipgloss.Color
}

// StatusColor returns the color of a task status
func (t Theme) StatusColor(s model.Status) lipgloss.Color {
	switch s {
	case model.StatusPending:
		return t.StatusPending
	case model.StatusInProgress:
		return t.StatusInProgress
	case model.StatusDone:
		return t.StatusDone
	default:
		return t.StatusBacklog
	}
}

// Styles holds pre-computed lipgloss styles based on theme
type Styles struct {
	Header lipgloss.Style
	Footer lipgloss.Style

	// Rows of the week grid and the task board
	Row         lipgloss.Style
	RowSelected lipgloss.Style
	RowMuted    lipgloss.Style
	Cell        lipgloss.Style
	CellEmpty   lipgloss.Style
	CellToday   lipgloss.Style
	Total       lipgloss.Style

	Title    lipgloss.Style
	Subtitle lipgloss.Style
	Label    lipgloss.Style
	Pinned   lipgloss.Style

	// Progress bar
	ProgressFill  lipgloss.Style
	ProgressEmpty lipgloss.Style

	// Input styles
	Input        lipgloss.Style
	InputFocused lipgloss.Style

	Panel lipgloss.Style

	// Help styles
	HelpKey       lipgloss.Style
	HelpDesc      lipgloss.Style
	HelpSeparator lipgloss.Style
}

// NewStyles creates styles from a theme
func NewStyles(t Theme) Styles {
	return Styles{
		Header: lipgloss.NewStyle().
			Foreground(t.Primary).
			Bold(true).
			Padding(0, 1),

		Footer: lipgloss.NewStyle().
			Foreground(t.Subtle).
			Padding(0, 1),

		Row: lipgloss.NewStyle().
			Foreground(t.Foreground),

		RowSelected: lipgloss.NewStyle().
			Foreground(t.Foreground).
			Background(t.Highlight).
			Bold(true),

		RowMuted: lipgloss.NewStyle().
			Foreground(t.Subtle),

		Cell: lipgloss.NewStyle().
			Foreground(t.Foreground).
			Align(lipgloss.Right),

		CellEmpty: lipgloss.NewStyle().
			Foreground(t.Subtle).
			Align(lipgloss.Right),

		CellToday: lipgloss.NewStyle().
			Foreground(t.Today).
			Bold(true).
			Align(lipgloss.Right),

		Total: lipgloss.NewStyle().
			Foreground(t.Secondary).
			Bold(true).
			Align(lipgloss.Right),

		Title: lipgloss.NewStyle().
			Foreground(t.Primary).
			Bold(true).
			MarginBottom(1),

		Subtitle: lipgloss.NewStyle().
			Foreground(t.Secondary).
			Italic(true),

		Label: lipgloss.NewStyle().
			Foreground(t.Subtle),

		Pinned: lipgloss.NewStyle().
			Foreground(t.Warning),

		ProgressFill: lipgloss.NewStyle().
			Foreground(t.Success),

		ProgressEmpty: lipgloss.NewStyle().
			Foreground(t.Border),

		Input: lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(t.Border).
			Padding(0, 1),

		InputFocused: lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(t.Primary).
			Padding(0, 1),

		Panel: lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(t.Border).
			Padding(1, 2),

		HelpKey: lipgloss.NewStyle().
			Foreground(t.Primary).
			Bold(true),

		HelpDesc: lipgloss.NewStyle().
			Foreground(t.Subtle),

		HelpSeparator: lipgloss.NewStyle().
			Foreground(t.Border),
	}
}

// Current holds the current active theme and styles
var Current = struct {
	Theme  Theme
	Styles Styles
}{
	Theme:  Nord,
	Styles: NewStyles(Nord),
}

// SetTheme changes the current theme
func SetTheme(t Theme) {
	Current.Theme = t
	Current.Styles = NewStyles(t)
}

// Available returns all available themes
func Available() []Theme {
	return []Theme{Nord, Gruvbox}
}

// ByName returns a theme by its name
func ByName(name string) (Theme, bool) {
	for _, t := range Available() {
		if t.Name == name {
			return t, true
		}
	}
	return Theme{}, false
}
