// Package ui is the terminal interface: a root model switching between the
// week grid and the task board.
package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"github.com/dori/tempo/internal/api"
	"github.com/dori/tempo/internal/app"
	"github.com/dori/tempo/internal/ui/theme"
	"github.com/dori/tempo/internal/ui/views"
)

// RootModel is the main application model that manages views
type RootModel struct {
	keys   KeyMap
	help   help.Model
	log    *zap.Logger
	width  int
	height int

	currentView View
	weekView    views.WeekView
	tasksView   views.TasksView
	helpVisible bool

	// Status message
	statusMsg string
	errorMsg  string
}

// NewRootModel creates the root model over application
func NewRootModel(application *app.App) RootModel {
	board := application.Board(api.TaskQuery{})
	week := views.NewWeekView(views.WeekDeps{
		Loader:   application.Loader(board),
		Entries:  application.API,
		Session:  application.Session,
		Employee: application.Config.EmployeeID,
	})
	tasks := views.NewTasksView(board, application.Session)
	return newRootModel(week, tasks, application.Log.Named("ui"))
}

func newRootModel(week views.WeekView, tasks views.TasksView, log *zap.Logger) RootModel {
	if log == nil {
		log = zap.NewNop()
	}
	h := help.New()
	h.ShowAll = false

	return RootModel{
		keys:        DefaultKeyMap(),
		help:        h,
		log:         log,
		currentView: ViewWeek,
		weekView:    week,
		tasksView:   tasks,
	}
}

// Init loads both views; the task titles label the week rows
func (m RootModel) Init() tea.Cmd {
	return tea.Batch(m.tasksView.Init(), m.weekView.Init())
}

func (m RootModel) isInputMode() bool {
	switch m.currentView {
	case ViewWeek:
		return m.weekView.IsInputMode()
	case ViewTasks:
		return m.tasksView.IsInputMode()
	}
	return false
}

// Update handles messages
func (m RootModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width

		// Reserve space for header (1 line) and footer (3 lines)
		contentHeight := m.height - 4
		m.weekView = m.weekView.SetSize(m.width, contentHeight)
		m.tasksView = m.tasksView.SetSize(m.width, contentHeight)
		return m, nil

	case tea.KeyMsg:
		m.statusMsg = ""
		inputMode := m.isInputMode()

		switch {
		case key.Matches(msg, m.keys.Quit):
			// ctrl+c always quits, 'q' only outside input mode
			if msg.String() == "ctrl+c" || !inputMode {
				return m, tea.Quit
			}
		case key.Matches(msg, m.keys.ThemeCycle):
			m.cycleTheme()
			return m, nil
		}

		if !inputMode {
			switch {
			case key.Matches(msg, m.keys.Help):
				m.helpVisible = !m.helpVisible
				m.help.ShowAll = m.helpVisible
				return m, nil
			case key.Matches(msg, m.keys.WeekView):
				return m.switchTo(ViewWeek)
			case key.Matches(msg, m.keys.TasksView):
				return m.switchTo(ViewTasks)
			}
		}

		return m.delegateKey(msg)

	case SwitchViewMsg:
		return m.switchTo(msg.View)

	case views.SessionExpiredMsg:
		m.log.Warn("session expired", zap.String("reason", msg.Reason))
		m.errorMsg = "Session expired. Run `tempo login` to sign in again."
		return m, nil

	case views.StatusMsg:
		if msg.Err {
			m.errorMsg = msg.Message
		} else {
			m.statusMsg = msg.Message
		}
		return m, nil

	case ThemeChangedMsg:
		m.statusMsg = fmt.Sprintf("Theme: %s", msg.ThemeName)
		return m, nil
	}

	// Results of background calls go to both views: a task edit must settle
	// even when the user has moved to the week grid meanwhile
	var cmds []tea.Cmd
	week, cmd := m.weekView.Update(msg)
	m.weekView = week.(views.WeekView)
	cmds = append(cmds, cmd)

	tasks, cmd := m.tasksView.Update(msg)
	m.tasksView = tasks.(views.TasksView)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

func (m RootModel) switchTo(v View) (tea.Model, tea.Cmd) {
	if m.currentView == v {
		return m, nil
	}
	m.currentView = v
	m.helpVisible = false
	if v == ViewWeek {
		// Task titles may have changed the row labels
		return m, m.weekView.Init()
	}
	return m, nil
}

func (m RootModel) delegateKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.currentView {
	case ViewWeek:
		var next tea.Model
		next, cmd = m.weekView.Update(msg)
		m.weekView = next.(views.WeekView)
	case ViewTasks:
		var next tea.Model
		next, cmd = m.tasksView.Update(msg)
		m.tasksView = next.(views.TasksView)
	}
	return m, cmd
}

// View renders the UI
func (m RootModel) View() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	var sections []string
	sections = append(sections, m.renderHeader())

	contentHeight := m.height - 4
	if m.errorMsg != "" || m.statusMsg != "" {
		contentHeight--
	}

	var content string
	switch {
	case m.helpVisible:
		content = m.renderHelp()
	case m.currentView == ViewTasks:
		content = m.tasksView.View()
	default:
		content = m.weekView.View()
	}

	// Ensure content fills available space
	contentLines := strings.Count(content, "\n") + 1
	if contentLines < contentHeight {
		content += strings.Repeat("\n", contentHeight-contentLines)
	}
	sections = append(sections, content)
	sections = append(sections, m.renderFooter())

	return strings.Join(sections, "\n")
}

// renderHeader renders the header bar
func (m RootModel) renderHeader() string {
	styles := theme.Current.Styles
	t := theme.Current.Theme

	title := styles.Header.Render("tempo")

	viewStyle := lipgloss.NewStyle().
		Foreground(t.Subtle).
		Padding(0, 1)
	viewIndicator := viewStyle.Render(fmt.Sprintf("[%s]", m.currentView.String()))
	themeIndicator := viewStyle.Render(fmt.Sprintf("theme: %s", t.Name))

	leftSide := lipgloss.JoinHorizontal(lipgloss.Center, title, viewIndicator)
	gap := max(m.width-lipgloss.Width(leftSide)-lipgloss.Width(themeIndicator), 0)

	return leftSide + strings.Repeat(" ", gap) + themeIndicator
}

// renderFooter renders the footer/status bar
func (m RootModel) renderFooter() string {
	styles := theme.Current.Styles
	t := theme.Current.Theme

	key := func(k, desc string) string {
		return styles.HelpKey.Render(k) + styles.HelpDesc.Render(" "+desc)
	}
	sep := styles.HelpSeparator.Render(" │ ")

	var lines []string
	if m.errorMsg != "" {
		lines = append(lines, lipgloss.NewStyle().Foreground(t.Error).Render(m.errorMsg))
	} else if m.statusMsg != "" {
		lines = append(lines, lipgloss.NewStyle().Foreground(t.Info).Render(m.statusMsg))
	}

	switch {
	case m.isInputMode() && m.currentView == ViewWeek:
		lines = append(lines, key("tab", "next field")+sep+key("enter", "save")+sep+key("esc", "cancel"))
	case m.isInputMode():
		lines = append(lines, key("y", "confirm")+sep+key("any", "cancel"))
	case m.currentView == ViewWeek:
		lines = append(lines,
			key("h/l", "prev/next week")+sep+key("t", "this week")+sep+key("a", "add entry")+sep+key("S", "seed week")+sep+key("r", "refresh"),
			key("1/2", "views")+sep+key("ctrl+t", "theme")+sep+key("?", "help")+sep+key("q", "quit"))
	case m.currentView == ViewTasks:
		lines = append(lines,
			key("+/-", "progress")+sep+key("s", "status")+sep+key("p", "pin")+sep+key("a", "archive")+sep+key("d", "delete"),
			key("A", "show archived")+sep+key("r", "refresh")+sep+key("1/2", "views")+sep+key("?", "help")+sep+key("q", "quit"))
	}

	return strings.Join(lines, "\n")
}

// renderHelp renders the help overlay
func (m RootModel) renderHelp() string {
	t := theme.Current.Theme

	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(t.Primary).
		MarginBottom(1)

	sectionStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(t.Secondary).
		MarginTop(1)

	keyStyle := lipgloss.NewStyle().
		Foreground(t.Foreground).
		Bold(true).
		Width(12)

	descStyle := lipgloss.NewStyle().
		Foreground(t.Subtle)

	sections := []struct {
		title string
		keys  [][2]string
	}{
		{"Week", [][2]string{
			{"h / l", "Previous / next week"},
			{"t", "Back to this week"},
			{"a", "Add an entry (duration shown as you type)"},
			{"S", "Ask the server to seed the week's logs"},
			{"r", "Reload the week"},
		}},
		{"Tasks", [][2]string{
			{"+ / -", "Move progress by 10%"},
			{"s", "Cycle status"},
			{"p", "Pin / unpin"},
			{"a", "Archive / restore"},
			{"A", "Show archived tasks"},
			{"d", "Delete (asks first)"},
		}},
		{"System", [][2]string{
			{"1 / 2", "Week / tasks"},
			{"ctrl+t", "Cycle theme"},
			{"q / ctrl+c", "Quit"},
		}},
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("tempo help"))
	b.WriteString("\n")
	for _, s := range sections {
		b.WriteString(sectionStyle.Render(s.title))
		b.WriteString("\n")
		for _, kv := range s.keys {
			b.WriteString(keyStyle.Render(kv[0]))
			b.WriteString(descStyle.Render(kv[1]))
			b.WriteString("\n")
		}
	}
	b.WriteString("\n")
	b.WriteString(m.help.View(m.keys))
	b.WriteString("\n")
	b.WriteString(descStyle.Render("Changes show immediately and are undone if the server rejects them. Press ? to close."))

	return b.String()
}

// cycleTheme cycles through available themes
func (m *RootModel) cycleTheme() {
	themes := theme.Available()
	current := theme.Current.Theme.Name

	for i, t := range themes {
		if t.Name == current {
			next := themes[(i+1)%len(themes)]
			theme.SetTheme(next)
			m.statusMsg = fmt.Sprintf("Theme: %s", next.Name)
			return
		}
	}
}
