package ui

// View represents the current active view
type View int

const (
	ViewWeek View = iota
	ViewTasks
)

// String returns the display name for a view
func (v View) String() string {
	switch v {
	case ViewWeek:
		return "Week"
	case ViewTasks:
		return "Tasks"
	default:
		return "Unknown"
	}
}

// SwitchViewMsg requests a view change
type SwitchViewMsg struct {
	View View
}

// ThemeChangedMsg indicates the theme was changed
type ThemeChangedMsg struct {
	ThemeName string
}
