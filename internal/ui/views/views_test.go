package views

import (
	"context"
	"net/http"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dori/tempo/internal/api"
	"github.com/dori/tempo/internal/model"
	"github.com/dori/tempo/internal/tasks"
	"github.com/dori/tempo/internal/timecalc"
	"github.com/dori/tempo/internal/weekly"
)

var wednesday = time.Date(2024, time.June, 5, 10, 0, 0, 0, time.UTC)

type stubSource struct {
	entries []model.TimeLogEntry
	err     error
}

func (s stubSource) ListTimesheets(ctx context.Context, q api.ListQuery) (*api.Page, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &api.Page{Items: s.entries, TotalPages: 1}, nil
}

func (s stubSource) SeedWeek(ctx context.Context, weekStart string) ([]model.TimeLogEntry, error) {
	return nil, s.err
}

type stubCreator struct {
	got []model.EntryInput
}

func (c *stubCreator) CreateTimesheet(ctx context.Context, in model.EntryInput) (*model.TimeLogEntry, error) {
	c.got = append(c.got, in)
	return &model.TimeLogEntry{ID: "new"}, nil
}

type stubSession struct{ reasons []string }

func (s *stubSession) Invalidate(reason string) error {
	s.reasons = append(s.reasons, reason)
	return nil
}

func newWeekView(src stubSource, creator *stubCreator, sess *stubSession) WeekView {
	v := NewWeekView(WeekDeps{
		Loader:   weekly.NewLoader(src, weekly.Options{}),
		Entries:  creator,
		Session:  sess,
		Employee: "emp-1",
		Now:      func() time.Time { return wednesday },
	})
	return v.SetSize(120, 40)
}

func key(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// expand runs cmd and flattens batches
func expand(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	msg := cmd()
	batch, ok := msg.(tea.BatchMsg)
	if !ok {
		return []tea.Msg{msg}
	}
	var out []tea.Msg
	for _, c := range batch {
		out = append(out, expand(c)...)
	}
	return out
}

func typeText(t *testing.T, v WeekView, s string) WeekView {
	t.Helper()
	for _, r := range s {
		m, _ := v.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
		v = m.(WeekView)
	}
	return v
}

func TestWeekViewLoads(t *testing.T) {
	src := stubSource{entries: []model.TimeLogEntry{
		{ID: "1", TaskID: "t1", ProjectID: "p1", StartDate: "2024-06-05", DurationMinutes: 90},
	}}
	v := newWeekView(src, &stubCreator{}, &stubSession{})

	msg := v.Init()()
	m, _ := v.Update(msg)
	v = m.(WeekView)

	require.NotNil(t, v.sheet)
	assert.InDelta(t, 1.5, v.sheet.Total, 1e-9)
	assert.Contains(t, v.View(), "t1 · p1")
	assert.Contains(t, v.View(), "1.5")
}

func TestWeekViewIgnoresSeedFailureForOtherWeek(t *testing.T) {
	src := stubSource{err: &api.StatusError{Status: http.StatusInternalServerError, Message: "seed failed"}}
	v := newWeekView(src, &stubCreator{}, &stubSession{})

	_, cmd := v.Update(key("S"))
	require.NotNil(t, cmd)
	seeded := cmd()

	m, _ := v.Update(key("l"))
	v = m.(WeekView)

	m, cmd = v.Update(seeded)
	v = m.(WeekView)
	assert.Nil(t, cmd)
	assert.Empty(t, v.errorMsg)
	assert.NotContains(t, v.View(), "seed failed")
}

func TestWeekViewDropsStaleWeek(t *testing.T) {
	v := newWeekView(stubSource{}, &stubCreator{}, &stubSession{})
	stale := v.Init()()

	m, _ := v.Update(key("l"))
	v = m.(WeekView)
	assert.Equal(t, "2024-06-10", v.Week().Start())

	m, _ = v.Update(stale)
	v = m.(WeekView)
	assert.Nil(t, v.sheet, "result for the previous week is ignored")
	assert.True(t, v.loading)
}

func TestWeekViewNavigation(t *testing.T) {
	v := newWeekView(stubSource{}, &stubCreator{}, &stubSession{})

	m, _ := v.Update(key("h"))
	v = m.(WeekView)
	assert.Equal(t, "2024-05-27", v.Week().Start())

	m, _ = v.Update(key("t"))
	v = m.(WeekView)
	assert.Equal(t, "2024-06-03", v.Week().Start())
}

func TestWeekViewUnauthorizedExpiresSession(t *testing.T) {
	sess := &stubSession{}
	v := newWeekView(stubSource{err: &api.StatusError{Status: http.StatusUnauthorized}}, &stubCreator{}, sess)

	m, cmd := v.Update(v.Init()())
	v = m.(WeekView)

	require.NotNil(t, cmd)
	_, ok := cmd().(SessionExpiredMsg)
	assert.True(t, ok)
	assert.Len(t, sess.reasons, 1)
	assert.Equal(t, "Session expired. Sign in again.", v.errorMsg)
	require.NotNil(t, v.sheet)
	assert.True(t, v.sheet.Rows[0].IsBlank())
}

func TestEntryFormLiveDurationAndSave(t *testing.T) {
	creator := &stubCreator{}
	v := newWeekView(stubSource{}, creator, &stubSession{})

	m, _ := v.Update(key("a"))
	v = m.(WeekView)
	require.True(t, v.IsInputMode())
	assert.Equal(t, "2024-06-05", v.form.value(fieldDate))

	m, _ = v.Update(key("tab"))
	v = typeText(t, m.(WeekView), "09:00")
	m, _ = v.Update(key("tab"))
	v = typeText(t, m.(WeekView), "11:30")
	assert.Equal(t, 150, v.form.minutes())
	assert.Contains(t, v.View(), "2h 30m")

	m, _ = v.Update(key("enter"))
	v = m.(WeekView)
	assert.True(t, v.IsInputMode(), "project is required")
	assert.Equal(t, "Project is required", v.form.err)

	m, _ = v.Update(key("tab"))
	v = typeText(t, m.(WeekView), "p1")

	m, cmd := v.Update(key("enter"))
	v = m.(WeekView)
	assert.False(t, v.IsInputMode())
	require.NotNil(t, cmd)

	saved := cmd()
	require.Len(t, creator.got, 1)
	in := creator.got[0]
	assert.Equal(t, "p1", in.ProjectID)
	assert.Equal(t, "emp-1", in.EmployeeID)
	assert.Equal(t, 3.0, in.DurationHours)

	_, cmd = v.Update(saved)
	assert.NotNil(t, cmd, "a saved entry reloads the week")
}

func TestEntryFormRejectsInvertedRange(t *testing.T) {
	f := newEntryForm("2024-06-05")
	f.inputs[fieldStart].SetValue("17:00")
	f.inputs[fieldEnd].SetValue("09:00")
	f.inputs[fieldProject].SetValue("p1")

	assert.Zero(t, f.minutes())
	_, err := f.input("emp")
	assert.EqualError(t, err, "End must be after start")
}

type boardAPI struct {
	tasks []model.Task
	err   error
}

func (b *boardAPI) ListTasks(ctx context.Context, q api.TaskQuery) ([]model.Task, error) {
	return b.tasks, nil
}

func (b *boardAPI) PatchTask(ctx context.Context, id string, patch api.TaskPatch) (*model.Task, error) {
	if b.err != nil {
		return nil, b.err
	}
	return nil, nil
}

func (b *boardAPI) DeleteTask(ctx context.Context, id string) error {
	return b.err
}

func newTasksView(t *testing.T, fake *boardAPI, sess *stubSession) TasksView {
	t.Helper()
	board := tasks.New(tasks.Config{API: fake, Session: sess})
	v := NewTasksView(board, sess).SetSize(100, 30)
	m, _ := v.Update(v.Init()())
	return m.(TasksView)
}

func TestTasksViewSliderRevertsOnFailure(t *testing.T) {
	fake := &boardAPI{
		tasks: []model.Task{{ID: "t1", Title: "Write report", Status: model.StatusInProgress, Progress: 40}},
		err:   &api.StatusError{Status: 500, Message: "boom"},
	}
	v := newTasksView(t, fake, &stubSession{})

	m, cmd := v.Update(key("+"))
	v = m.(TasksView)
	task, _ := v.current()
	assert.Equal(t, 50, task.Progress)
	assert.Contains(t, v.View(), " 50%")

	m, _ = v.Update(cmd())
	v = m.(TasksView)
	task, _ = v.current()
	assert.Equal(t, 40, task.Progress)
	assert.Equal(t, "Could not update task: boom", v.errorMsg)
}

func TestTasksViewReloadsWhenServerSendsNoBody(t *testing.T) {
	fake := &boardAPI{tasks: []model.Task{{ID: "t1", Title: "a", Status: model.StatusBacklog}}}
	v := newTasksView(t, fake, &stubSession{})

	m, cmd := v.Update(key("s"))
	v = m.(TasksView)
	task, _ := v.current()
	assert.Equal(t, model.StatusPending, task.Status)

	m, cmd = v.Update(cmd())
	v = m.(TasksView)
	assert.True(t, v.loading)
	require.NotNil(t, cmd)
}

func TestTasksViewUnauthorized(t *testing.T) {
	sess := &stubSession{}
	fake := &boardAPI{
		tasks: []model.Task{{ID: "t1", Title: "a"}},
		err:   &api.StatusError{Status: http.StatusUnauthorized},
	}
	v := newTasksView(t, fake, sess)

	_, cmd := v.Update(key("p"))
	_, cmd = v.Update(cmd())
	require.NotNil(t, cmd)

	var expired bool
	for _, msg := range expand(cmd) {
		if _, ok := msg.(SessionExpiredMsg); ok {
			expired = true
		}
	}
	assert.True(t, expired)
	assert.Len(t, sess.reasons, 1)
}

func TestTasksViewDeleteNeedsConfirmation(t *testing.T) {
	fake := &boardAPI{tasks: []model.Task{{ID: "t1", Title: "a"}, {ID: "t2", Title: "b"}}}
	v := newTasksView(t, fake, &stubSession{})

	m, _ := v.Update(key("d"))
	v = m.(TasksView)
	assert.True(t, v.IsInputMode())

	m, _ = v.Update(key("n"))
	v = m.(TasksView)
	assert.Len(t, v.visible(), 2)

	m, _ = v.Update(key("d"))
	m, cmd := m.(TasksView).Update(key("y"))
	v = m.(TasksView)
	assert.Len(t, v.visible(), 1)

	m, _ = v.Update(cmd())
	v = m.(TasksView)
	assert.Len(t, v.visible(), 1)
	assert.Empty(t, v.errorMsg)
}

func TestFormatHours(t *testing.T) {
	assert.Equal(t, "·", formatHours(0))
	assert.Equal(t, "1.5", formatHours(1.5))
	assert.Equal(t, "8", formatHours(8))
	assert.Equal(t, "0.33", formatHours(1.0/3))
}

func TestBlankWeekRendersPlaceholder(t *testing.T) {
	v := newWeekView(stubSource{}, &stubCreator{}, &stubSession{})
	v.sheet = weekly.Build(timecalc.WeekOf(wednesday), nil, nil)
	assert.Contains(t, v.View(), "No entries this week")
}

