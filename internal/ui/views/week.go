package views

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/dori/tempo/internal/aggregate"
	"github.com/dori/tempo/internal/api"
	"github.com/dori/tempo/internal/model"
	"github.com/dori/tempo/internal/optimistic"
	"github.com/dori/tempo/internal/timecalc"
	"github.com/dori/tempo/internal/ui/theme"
	"github.com/dori/tempo/internal/weekly"
)

// EntryCreator saves a new timesheet entry
type EntryCreator interface {
	CreateTimesheet(ctx context.Context, in model.EntryInput) (*model.TimeLogEntry, error)
}

// WeekDeps is what the week view needs
type WeekDeps struct {
	Loader   *weekly.Loader
	Entries  EntryCreator
	Session  optimistic.Invalidator
	Employee string

	// Now defaults to time.Now
	Now func() time.Time
}

// Local message types for the week view. Results carry the week they were
// requested for so answers for a week no longer shown are dropped.
type weekLoadedMsg struct {
	week  string
	sheet *weekly.Sheet
	err   error
}

type weekSeededMsg struct {
	week    string
	created int
	err     error
}

type entrySavedMsg struct {
	week string
	err  error
}

// WeekView is the weekly timesheet grid
type WeekView struct {
	deps   WeekDeps
	width  int
	height int

	week     timecalc.Week
	sheet    *weekly.Sheet
	loading  bool
	selected int

	form       entryForm
	formActive bool

	statusMsg string
	errorMsg  string
}

// NewWeekView creates a week view showing the current week
func NewWeekView(deps WeekDeps) WeekView {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return WeekView{
		deps: deps,
		week: timecalc.WeekOf(deps.Now()),
	}
}

// Init initializes the week view
func (v WeekView) Init() tea.Cmd {
	return v.load()
}

// SetSize sets the view dimensions
func (v WeekView) SetSize(width, height int) WeekView {
	v.width = width
	v.height = height
	return v
}

// IsInputMode returns true while the entry form is open
func (v WeekView) IsInputMode() bool {
	return v.formActive
}

// Week returns the displayed week
func (v WeekView) Week() timecalc.Week {
	return v.week
}

func (v *WeekView) show(week timecalc.Week) tea.Cmd {
	v.week = week
	v.sheet = nil
	v.selected = 0
	return v.load()
}

func (v *WeekView) load() tea.Cmd {
	v.loading = true
	loader := v.deps.Loader
	week := v.week
	return func() tea.Msg {
		sheet, err := loader.Load(context.Background(), week.Monday)
		return weekLoadedMsg{week: week.Start(), sheet: sheet, err: err}
	}
}

func (v *WeekView) seed() tea.Cmd {
	v.statusMsg = "Seeding week..."
	loader := v.deps.Loader
	week := v.week
	return func() tea.Msg {
		created, err := loader.Seed(context.Background(), week.Monday)
		return weekSeededMsg{week: week.Start(), created: len(created), err: err}
	}
}

func (v *WeekView) save(in model.EntryInput) tea.Cmd {
	entries := v.deps.Entries
	week := v.week.Start()
	return func() tea.Msg {
		_, err := entries.CreateTimesheet(context.Background(), in)
		return entrySavedMsg{week: week, err: err}
	}
}

// failure records err for the status line and reports a rejected session
func (v *WeekView) failure(err error, what string) tea.Cmd {
	v.errorMsg = api.Message(err)
	if expired := expireOn401(v.deps.Session, err, what); expired != nil {
		msg := *expired
		return func() tea.Msg { return msg }
	}
	return nil
}

// Update handles messages
func (v WeekView) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case weekLoadedMsg:
		if msg.week != v.week.Start() {
			return v, nil
		}
		v.loading = false
		if msg.err != nil {
			v.sheet = weekly.Build(v.week, nil, nil)
			return v, v.failure(msg.err, "weekly fetch")
		}
		v.errorMsg = ""
		v.sheet = msg.sheet
		if v.selected >= len(v.sheet.Rows) {
			v.selected = len(v.sheet.Rows) - 1
		}
		return v, nil

	case weekSeededMsg:
		if msg.week != v.week.Start() {
			return v, nil
		}
		if msg.err != nil {
			v.statusMsg = ""
			return v, v.failure(msg.err, "weekly seed")
		}
		v.statusMsg = fmt.Sprintf("Seeded %d logs", msg.created)
		return v, v.load()

	case entrySavedMsg:
		if msg.err != nil {
			v.formActive = true
			v.form.err = api.Message(msg.err)
			return v, v.failure(msg.err, "entry create")
		}
		v.statusMsg = "Entry saved"
		if msg.week != v.week.Start() {
			return v, nil
		}
		return v, v.load()

	case tea.KeyMsg:
		if v.formActive {
			return v.updateForm(msg)
		}
		return v.updateGrid(msg)
	}

	if v.formActive {
		var cmd tea.Cmd
		v.form, cmd = v.form.update(msg)
		return v, cmd
	}
	return v, nil
}

func (v WeekView) updateForm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		v.formActive = false
		return v, nil
	case "enter":
		in, err := v.form.input(v.deps.Employee)
		if err != nil {
			v.form.err = err.Error()
			return v, nil
		}
		v.formActive = false
		v.statusMsg = "Saving entry..."
		return v, v.save(in)
	}

	var cmd tea.Cmd
	v.form, cmd = v.form.update(msg)
	return v, cmd
}

func (v WeekView) updateGrid(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	v.statusMsg = ""
	switch msg.String() {
	case "h", "left", "[":
		return v, v.show(v.week.Prev())
	case "l", "right", "]":
		return v, v.show(v.week.Next())
	case "t":
		return v, v.show(timecalc.WeekOf(v.deps.Now()))
	case "r":
		return v, v.load()
	case "S":
		return v, v.seed()
	case "a":
		date := v.week.Start()
		if v.week.Contains(v.deps.Now()) {
			date = timecalc.Midnight(v.deps.Now()).Format(timecalc.DateLayout)
		}
		v.form = newEntryForm(date)
		v.formActive = true
		return v, textinput.Blink
	case "j", "down":
		if v.sheet != nil && v.selected < len(v.sheet.Rows)-1 {
			v.selected++
		}
	case "k", "up":
		if v.selected > 0 {
			v.selected--
		}
	}
	return v, nil
}

const (
	dayColWidth   = 7
	totalColWidth = 8
)

// View renders the week grid
func (v WeekView) View() string {
	if v.width == 0 || v.height == 0 {
		return "Loading..."
	}

	styles := theme.Current.Styles
	t := theme.Current.Theme

	var b strings.Builder
	title := styles.Title.Render("Week of " + v.week.Title())
	if v.loading {
		title += styles.Label.Render("  loading...")
	}
	b.WriteString(title)
	b.WriteString("\n")

	if v.formActive {
		b.WriteString(v.form.view(v.width))
		return b.String()
	}

	labelWidth := max(v.width-dayColWidth*timecalc.DaysPerWeek-totalColWidth-2, 12)
	today := timecalc.Midnight(v.deps.Now())

	header := lipgloss.NewStyle().Width(labelWidth).Foreground(t.Subtle).Render("Task")
	for _, d := range v.week.Days {
		style := styles.Label.Width(dayColWidth).Align(lipgloss.Right)
		if d.Date.Equal(today) {
			style = styles.CellToday.Width(dayColWidth)
		}
		header += style.Render(fmt.Sprintf("%s %02d", d.Weekday, d.Date.Day()))
	}
	header += styles.Label.Width(totalColWidth).Align(lipgloss.Right).Render("Total")
	b.WriteString(header)
	b.WriteString("\n")

	var rows []aggregate.Row
	if v.sheet != nil {
		rows = v.sheet.Rows
	}
	for i, row := range rows {
		b.WriteString(v.renderRow(row, i == v.selected, labelWidth))
		b.WriteString("\n")
	}

	b.WriteString(lipgloss.NewStyle().Foreground(t.Border).Render(strings.Repeat("─", labelWidth+dayColWidth*timecalc.DaysPerWeek+totalColWidth)))
	b.WriteString("\n")

	footer := lipgloss.NewStyle().Width(labelWidth).Bold(true).Render("Total")
	var dayTotals [timecalc.DaysPerWeek]float64
	var total float64
	if v.sheet != nil {
		dayTotals = v.sheet.DayTotals
		total = v.sheet.Total
	}
	for _, h := range dayTotals {
		footer += styles.Total.Width(dayColWidth).Render(formatHours(h))
	}
	footer += styles.Total.Width(totalColWidth).Render(formatHours(total))
	b.WriteString(footer)

	if v.errorMsg != "" {
		b.WriteString("\n\n")
		b.WriteString(lipgloss.NewStyle().Foreground(t.Error).Render(v.errorMsg))
	} else if v.statusMsg != "" {
		b.WriteString("\n\n")
		b.WriteString(lipgloss.NewStyle().Foreground(t.Info).Render(v.statusMsg))
	}

	return b.String()
}

func (v WeekView) renderRow(row aggregate.Row, selected bool, labelWidth int) string {
	styles := theme.Current.Styles

	labelStyle := styles.Row
	if selected {
		labelStyle = styles.RowSelected
	}
	label := row.Label
	if row.IsBlank() {
		label = "No entries this week"
		labelStyle = styles.RowMuted
	}
	line := labelStyle.Width(labelWidth).MaxWidth(labelWidth).Render(truncate(label, labelWidth-1))

	for _, h := range row.HoursByDay {
		style := styles.Cell
		if h == 0 {
			style = styles.CellEmpty
		}
		line += style.Width(dayColWidth).Render(formatHours(h))
	}
	line += styles.Total.Width(totalColWidth).Render(formatHours(row.Total()))
	return line
}

// formatHours prints hours with at most two decimals; zero is a dot
func formatHours(h float64) string {
	if h == 0 {
		return "·"
	}
	s := fmt.Sprintf("%.2f", h)
	s = strings.TrimRight(s, "0")
	return strings.TrimSuffix(s, ".")
}

func truncate(s string, width int) string {
	if width <= 0 || lipgloss.Width(s) <= width {
		return s
	}
	r := []rune(s)
	if len(r) > width-1 {
		r = r[:max(width-1, 0)]
	}
	return string(r) + "…"
}
