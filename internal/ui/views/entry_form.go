package views

import (
	"errors"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/dori/tempo/internal/model"
	"github.com/dori/tempo/internal/timecalc"
	"github.com/dori/tempo/internal/ui/theme"
)

const (
	fieldDate = iota
	fieldStart
	fieldEnd
	fieldProject
	fieldTask
	fieldMemo
	fieldCount
)

var fieldLabels = [fieldCount]string{"Date", "Start", "End", "Project", "Task", "Memo"}

// entryForm is the quick-entry form of the week view. The duration line
// follows the inputs as they are typed.
type entryForm struct {
	inputs  [fieldCount]textinput.Model
	focused int
	err     string
}

func newEntryForm(date string) entryForm {
	var f entryForm
	placeholders := [fieldCount]string{"2006-01-02", "09:00", "17:00", "project id", "task id (optional)", "what was done"}
	for i := range f.inputs {
		ti := textinput.New()
		ti.Placeholder = placeholders[i]
		ti.CharLimit = 128
		ti.Width = 32
		f.inputs[i] = ti
	}
	f.inputs[fieldDate].SetValue(date)
	f.inputs[fieldMemo].CharLimit = 512
	f.inputs[fieldDate].Focus()
	return f
}

func (f entryForm) value(i int) string {
	return strings.TrimSpace(f.inputs[i].Value())
}

// minutes is the live duration; the form has no separate end date
func (f entryForm) minutes() int {
	date := f.value(fieldDate)
	return timecalc.ComputeDuration(date, f.value(fieldStart), date, f.value(fieldEnd))
}

// input builds the request body for employee
func (f entryForm) input(employee string) (model.EntryInput, error) {
	date := f.value(fieldDate)
	if _, ok := timecalc.ParseDate(date); !ok {
		return model.EntryInput{}, errors.New("Date must be YYYY-MM-DD")
	}
	if f.value(fieldProject) == "" {
		return model.EntryInput{}, errors.New("Project is required")
	}
	if f.minutes() == 0 {
		return model.EntryInput{}, errors.New("End must be after start")
	}
	return model.NewEntryInput(
		f.value(fieldProject), f.value(fieldTask), employee,
		date, f.value(fieldStart), date, f.value(fieldEnd),
		f.value(fieldMemo),
	), nil
}

func (f entryForm) focus(i int) entryForm {
	f.inputs[f.focused].Blur()
	f.focused = (i + fieldCount) % fieldCount
	f.inputs[f.focused].Focus()
	return f
}

func (f entryForm) update(msg tea.Msg) (entryForm, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch msg.String() {
		case "tab", "down":
			return f.focus(f.focused + 1), textinput.Blink
		case "shift+tab", "up":
			return f.focus(f.focused - 1), textinput.Blink
		}
	}
	var cmd tea.Cmd
	f.inputs[f.focused], cmd = f.inputs[f.focused].Update(msg)
	f.err = ""
	return f, cmd
}

func (f entryForm) view(width int) string {
	styles := theme.Current.Styles
	t := theme.Current.Theme

	labelStyle := lipgloss.NewStyle().Foreground(t.Subtle).Width(9)

	var lines []string
	lines = append(lines, styles.Title.Render("New entry"))
	for i, in := range f.inputs {
		label := labelStyle.Render(fieldLabels[i])
		if i == f.focused {
			label = labelStyle.Foreground(t.Primary).Bold(true).Render(fieldLabels[i])
		}
		lines = append(lines, label+in.View())
	}

	duration := "--"
	if m := f.minutes(); m > 0 {
		duration = timecalc.FormatMinutes(m)
	}
	lines = append(lines, "", labelStyle.Render("Duration")+lipgloss.NewStyle().Foreground(t.Success).Bold(true).Render(duration))

	if f.err != "" {
		lines = append(lines, lipgloss.NewStyle().Foreground(t.Error).Render(f.err))
	}

	lines = append(lines, "", styles.HelpDesc.Render("tab: next field • enter: save • esc: cancel"))

	panelWidth := min(width-4, 60)
	return styles.Panel.Width(max(panelWidth, 20)).Render(strings.Join(lines, "\n"))
}
