package views

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/dori/tempo/internal/api"
	"github.com/dori/tempo/internal/model"
	"github.com/dori/tempo/internal/optimistic"
	"github.com/dori/tempo/internal/tasks"
	"github.com/dori/tempo/internal/ui/theme"
)

// progressStep is how far one +/- press moves the slider
const progressStep = 10

// Local message types for the task board
type tasksLoadedMsg struct{ err error }

type taskSettledMsg struct {
	mutation *optimistic.Mutation[model.Task]
	server   *model.Task
	err      error
}

// TasksView is the task board. Every edit shows at once and is confirmed or
// reverted when the backend answers.
type TasksView struct {
	board   *tasks.Board
	session optimistic.Invalidator
	width   int
	height  int

	selected      int
	showArchived  bool
	loading       bool
	confirmDelete bool

	statusMsg string
	errorMsg  string
}

// NewTasksView creates the task board view
func NewTasksView(board *tasks.Board, session optimistic.Invalidator) TasksView {
	return TasksView{board: board, session: session}
}

// Init loads the tasks
func (v TasksView) Init() tea.Cmd {
	return v.load()
}

// SetSize sets the view dimensions
func (v TasksView) SetSize(width, height int) TasksView {
	v.width = width
	v.height = height
	return v
}

// IsInputMode returns true while a delete awaits confirmation
func (v TasksView) IsInputMode() bool {
	return v.confirmDelete
}

func (v TasksView) load() tea.Cmd {
	board := v.board
	return func() tea.Msg {
		return tasksLoadedMsg{err: board.Load(context.Background())}
	}
}

// run sends the call behind p; the answer comes back as a taskSettledMsg
func run(p optimistic.Pending[model.Task]) tea.Cmd {
	return func() tea.Msg {
		server, err := p.Call(context.Background())
		return taskSettledMsg{mutation: p.Mutation, server: server, err: err}
	}
}

func (v TasksView) visible() []model.Task {
	return v.board.Tasks(v.showArchived)
}

func (v TasksView) current() (model.Task, bool) {
	list := v.visible()
	if v.selected < 0 || v.selected >= len(list) {
		return model.Task{}, false
	}
	return list[v.selected], true
}

func (v *TasksView) clamp() {
	n := len(v.visible())
	if v.selected >= n {
		v.selected = n - 1
	}
	if v.selected < 0 {
		v.selected = 0
	}
}

// Update handles messages
func (v TasksView) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tasksLoadedMsg:
		v.loading = false
		v.clamp()
		if msg.err != nil {
			v.errorMsg = api.Message(msg.err)
			if expired := expireOn401(v.session, msg.err, "task list"); expired != nil {
				e := *expired
				return v, func() tea.Msg { return e }
			}
			return v, nil
		}
		v.errorMsg = ""
		return v, nil

	case taskSettledMsg:
		res := v.board.Settle(msg.mutation, msg.server, msg.err)
		v.clamp()
		var cmds []tea.Cmd
		if res.Notice != "" {
			v.errorMsg = res.Notice
		}
		if res.Kind == api.KindUnauthorized {
			reason := "task update rejected with 401"
			cmds = append(cmds, func() tea.Msg { return SessionExpiredMsg{Reason: reason} })
		}
		if res.Outcome == optimistic.NeedsReload {
			v.loading = true
			cmds = append(cmds, v.load())
		}
		return v, tea.Batch(cmds...)

	case tea.KeyMsg:
		return v.handleKey(msg)
	}
	return v, nil
}

func (v TasksView) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if v.confirmDelete {
		v.confirmDelete = false
		if msg.String() != "y" {
			v.statusMsg = "Delete cancelled"
			return v, nil
		}
		t, ok := v.current()
		if !ok {
			return v, nil
		}
		return v.begin(v.board.Delete(t.ID))
	}

	v.statusMsg = ""
	v.errorMsg = ""

	switch msg.String() {
	case "j", "down":
		if v.selected < len(v.visible())-1 {
			v.selected++
		}
		return v, nil
	case "k", "up":
		if v.selected > 0 {
			v.selected--
		}
		return v, nil
	case "g":
		v.selected = 0
		return v, nil
	case "G":
		v.selected = len(v.visible()) - 1
		v.clamp()
		return v, nil
	case "r":
		v.loading = true
		return v, v.load()
	case "A":
		v.showArchived = !v.showArchived
		v.clamp()
		return v, nil
	}

	t, ok := v.current()
	if !ok {
		return v, nil
	}

	switch msg.String() {
	case "+", "=", "l", "right":
		return v.begin(v.board.Nudge(t.ID, progressStep))
	case "-", "h", "left":
		return v.begin(v.board.Nudge(t.ID, -progressStep))
	case "s", "tab":
		return v.begin(v.board.CycleStatus(t.ID))
	case "p":
		return v.begin(v.board.SetPinned(t.ID, !t.Pinned))
	case "a":
		return v.begin(v.board.SetArchived(t.ID, !t.Archived))
	case "d":
		v.confirmDelete = true
		v.statusMsg = fmt.Sprintf("Delete %q? (y/n)", t.Title)
		return v, nil
	}
	return v, nil
}

func (v TasksView) begin(p optimistic.Pending[model.Task], err error) (tea.Model, tea.Cmd) {
	if err != nil {
		v.errorMsg = err.Error()
		return v, nil
	}
	v.clamp()
	return v, run(p)
}

// View renders the board
func (v TasksView) View() string {
	if v.width == 0 || v.height == 0 {
		return "Loading..."
	}

	styles := theme.Current.Styles
	t := theme.Current.Theme

	var b strings.Builder
	title := "Tasks"
	if v.showArchived {
		title += " (with archived)"
	}
	b.WriteString(styles.Title.Render(title))
	if v.loading {
		b.WriteString(styles.Label.Render("  loading..."))
	}
	b.WriteString("\n")

	list := v.visible()
	if len(list) == 0 {
		b.WriteString(styles.RowMuted.Render("No tasks"))
	}

	barWidth := 20
	titleWidth := max(v.width-barWidth-30, 16)
	for i, task := range list {
		b.WriteString(v.renderTask(task, i == v.selected, titleWidth, barWidth))
		b.WriteString("\n")
	}

	if v.errorMsg != "" {
		b.WriteString("\n")
		b.WriteString(lipgloss.NewStyle().Foreground(t.Error).Render(v.errorMsg))
	} else if v.statusMsg != "" {
		b.WriteString("\n")
		b.WriteString(lipgloss.NewStyle().Foreground(t.Info).Render(v.statusMsg))
	}
	return b.String()
}

func (v TasksView) renderTask(task model.Task, selected bool, titleWidth, barWidth int) string {
	styles := theme.Current.Styles
	t := theme.Current.Theme

	rowStyle := styles.Row
	switch {
	case selected:
		rowStyle = styles.RowSelected
	case task.Archived:
		rowStyle = styles.RowMuted
	}

	pin := "  "
	if task.Pinned {
		pin = styles.Pinned.Render("▲ ")
	}
	busy := " "
	if v.board.Busy(task.ID) {
		busy = styles.Label.Render("…")
	}

	pct := v.board.Progress(task)
	status := lipgloss.NewStyle().
		Foreground(t.StatusColor(task.Status)).
		Width(12).
		Render(task.Status.Label())

	return pin +
		rowStyle.Width(titleWidth).MaxWidth(titleWidth).Render(truncate(task.Title, titleWidth-1)) +
		status +
		progressBar(pct, barWidth) +
		styles.Label.Render(fmt.Sprintf(" %3d%%", pct)) +
		busy
}

func progressBar(pct, width int) string {
	styles := theme.Current.Styles
	filled := model.ClampProgress(pct) * width / 100
	return styles.ProgressFill.Render(strings.Repeat("█", filled)) +
		styles.ProgressEmpty.Render(strings.Repeat("░", width-filled))
}
