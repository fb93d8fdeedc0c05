package tasks

import (
	"context"
	"errors"
	"net/http"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dori/tempo/internal/api"
	"github.com/dori/tempo/internal/db"
	"github.com/dori/tempo/internal/model"
	"github.com/dori/tempo/internal/optimistic"
	"github.com/dori/tempo/internal/session"
)

type fakeAPI struct {
	mu      sync.Mutex
	tasks   []model.Task
	patches []api.TaskPatch
	deleted []string
	err     error
	echo    bool
}

func (f *fakeAPI) ListTasks(ctx context.Context, q api.TaskQuery) ([]model.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]model.Task(nil), f.tasks...), nil
}

func (f *fakeAPI) PatchTask(ctx context.Context, id string, patch api.TaskPatch) (*model.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.patches = append(f.patches, patch)
	if f.err != nil {
		return nil, f.err
	}
	if !f.echo {
		return nil, nil
	}
	for _, t := range f.tasks {
		if t.ID != id {
			continue
		}
		if patch.Progress != nil {
			t.Progress = *patch.Progress
		}
		if patch.Status != nil {
			t.Status = *patch.Status
		}
		if patch.Pinned != nil {
			t.Pinned = *patch.Pinned
		}
		if patch.Archived != nil {
			t.Archived = *patch.Archived
		}
		return &t, nil
	}
	return nil, &api.StatusError{Status: http.StatusNotFound, Message: "no such task"}
}

func (f *fakeAPI) DeleteTask(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.deleted = append(f.deleted, id)
	return nil
}

type memOverrides map[string]int

func (m memOverrides) Lookup(id string) (int, bool) {
	pct, ok := m[id]
	return pct, ok
}

func (m memOverrides) Set(id string, pct int) error {
	m[id] = pct
	return nil
}

func (m memOverrides) Forget(id string) error {
	delete(m, id)
	return nil
}

func sampleTasks() []model.Task {
	return []model.Task{
		{ID: "t1", ProjectID: "p1", Title: "Write report", Status: model.StatusInProgress, Progress: 40},
		{ID: "t2", ProjectID: "p1", Title: "Review budget", Status: model.StatusBacklog, Progress: 0, Pinned: true},
		{ID: "t3", ProjectID: "p2", Title: "Old migration", Status: model.StatusDone, Progress: 100, Archived: true},
	}
}

func newBoard(t *testing.T, fake *fakeAPI, overrides OverrideStore) *Board {
	t.Helper()
	b := New(Config{API: fake, Overrides: overrides})
	require.NoError(t, b.Load(context.Background()))
	return b
}

func TestLoadAndOrdering(t *testing.T) {
	b := newBoard(t, &fakeAPI{tasks: sampleTasks()}, nil)

	visible := b.Tasks(false)
	require.Len(t, visible, 2)
	assert.Equal(t, "t2", visible[0].ID, "pinned first")
	assert.Equal(t, "t1", visible[1].ID)

	assert.Len(t, b.Tasks(true), 3)
}

// A slider moved from 40 to 70 and rejected by the server shows 40 again,
// and the override written for 70 is gone.
func TestProgressRevertsOnServerError(t *testing.T) {
	fake := &fakeAPI{tasks: sampleTasks(), err: &api.StatusError{Status: 500, Message: "boom"}}
	overrides := memOverrides{}
	b := newBoard(t, fake, overrides)

	p, err := b.SetProgress("t1", 70)
	require.NoError(t, err)

	task, _ := b.Get("t1")
	assert.Equal(t, 70, task.Progress)
	assert.Equal(t, 70, b.Progress(task))
	assert.True(t, b.Busy("t1"))

	res := b.Do(context.Background(), p)
	assert.Equal(t, optimistic.RolledBack, res.Outcome)
	assert.Equal(t, "Could not update task: boom", res.Notice)

	task, _ = b.Get("t1")
	assert.Equal(t, 40, task.Progress)
	assert.Equal(t, 40, b.Progress(task))
	assert.Empty(t, overrides)
	assert.False(t, b.Busy("t1"))
}

func TestProgressCommitDropsOverride(t *testing.T) {
	fake := &fakeAPI{tasks: sampleTasks(), echo: true}
	overrides := memOverrides{}
	b := newBoard(t, fake, overrides)

	p, err := b.SetProgress("t1", 55)
	require.NoError(t, err)
	assert.Equal(t, 55, overrides["t1"])

	res := b.Do(context.Background(), p)
	assert.Equal(t, optimistic.Committed, res.Outcome)
	assert.Empty(t, overrides)

	task, _ := b.Get("t1")
	assert.Equal(t, 55, task.Progress)
	require.Len(t, fake.patches, 1)
	require.NotNil(t, fake.patches[0].Progress)
	assert.Equal(t, 55, *fake.patches[0].Progress)
	assert.Nil(t, fake.patches[0].Status)
}

func TestProgressIsClamped(t *testing.T) {
	b := newBoard(t, &fakeAPI{tasks: sampleTasks(), echo: true}, memOverrides{})

	p, err := b.Nudge("t1", 90)
	require.NoError(t, err)
	task, _ := b.Get("t1")
	assert.Equal(t, 100, task.Progress)
	b.Do(context.Background(), p)

	p, err = b.SetProgress("t1", -5)
	require.NoError(t, err)
	task, _ = b.Get("t1")
	assert.Equal(t, 0, task.Progress)
	b.Do(context.Background(), p)
}

func TestEmptyBodyAsksForReload(t *testing.T) {
	b := newBoard(t, &fakeAPI{tasks: sampleTasks()}, nil)

	p, err := b.CycleStatus("t2")
	require.NoError(t, err)
	task, _ := b.Get("t2")
	assert.Equal(t, model.StatusPending, task.Status)

	res := b.Do(context.Background(), p)
	assert.Equal(t, optimistic.NeedsReload, res.Outcome)
}

func TestSetStatusRejectsUnknown(t *testing.T) {
	b := newBoard(t, &fakeAPI{tasks: sampleTasks()}, nil)
	_, err := b.SetStatus("t1", model.Status("someday"))
	assert.Error(t, err)
}

func TestPinArchiveAndDelete(t *testing.T) {
	fake := &fakeAPI{tasks: sampleTasks(), echo: true}
	b := newBoard(t, fake, nil)
	ctx := context.Background()

	p, err := b.SetPinned("t1", true)
	require.NoError(t, err)
	assert.False(t, b.Do(ctx, p).Failed())

	p, err = b.SetArchived("t2", true)
	require.NoError(t, err)
	assert.False(t, b.Do(ctx, p).Failed())

	visible := b.Tasks(false)
	require.Len(t, visible, 1)
	assert.Equal(t, "t1", visible[0].ID)

	p, err = b.Delete("t1")
	require.NoError(t, err)
	_, ok := b.Get("t1")
	assert.False(t, ok)
	assert.False(t, b.Do(ctx, p).Failed())
	assert.Equal(t, []string{"t1"}, fake.deleted)
}

func TestDeleteFailureRestoresTask(t *testing.T) {
	b := newBoard(t, &fakeAPI{tasks: sampleTasks(), err: errors.New("connection reset")}, nil)

	p, err := b.Delete("t2")
	require.NoError(t, err)
	res := b.Do(context.Background(), p)

	assert.Equal(t, optimistic.RolledBack, res.Outcome)
	all := b.Tasks(true)
	require.Len(t, all, 3)
	assert.Equal(t, "t2", all[0].ID)
}

func TestUnknownTask(t *testing.T) {
	b := newBoard(t, &fakeAPI{tasks: sampleTasks()}, nil)
	_, err := b.Nudge("missing", 10)
	assert.ErrorIs(t, err, optimistic.ErrNotFound)
	_, err = b.Delete("missing")
	assert.ErrorIs(t, err, optimistic.ErrNotFound)
}

func TestLoadDropsStaleOverrides(t *testing.T) {
	overrides := memOverrides{"t1": 40, "t2": 25}
	b := newBoard(t, &fakeAPI{tasks: sampleTasks()}, overrides)

	assert.Empty(t, overrides)

	task, _ := b.Get("t2")
	assert.Equal(t, 0, b.Progress(task), "server value shows after a reload")

	p, err := b.Nudge("t2", 10)
	require.NoError(t, err)
	task, _ = b.Get(p.Mutation.ID)
	assert.Equal(t, 10, b.Progress(task))
}

func TestReloadKeepsOverrideOfEditInFlight(t *testing.T) {
	overrides := memOverrides{}
	b := newBoard(t, &fakeAPI{tasks: sampleTasks()}, overrides)

	_, err := b.SetProgress("t1", 70)
	require.NoError(t, err)
	b.Replace(sampleTasks())

	assert.Equal(t, 70, overrides["t1"])
	task, _ := b.Get("t1")
	assert.Equal(t, 70, b.Progress(task))
}

func TestUnauthorizedClearsStoredToken(t *testing.T) {
	store, err := db.Open(filepath.Join(t.TempDir(), "tempo.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	sess := session.New(store, nil)
	require.NoError(t, sess.Login("opaque-token"))

	fake := &fakeAPI{tasks: sampleTasks(), err: &api.StatusError{Status: http.StatusUnauthorized}}
	b := New(Config{API: fake, Overrides: sess.Overrides(), Session: sess})
	require.NoError(t, b.Load(context.Background()))

	p, err := b.SetProgress("t1", 90)
	require.NoError(t, err)
	pct, ok := sess.Overrides().Lookup("t1")
	require.True(t, ok)
	assert.Equal(t, 90, pct)

	res := b.Do(context.Background(), p)
	assert.Equal(t, api.KindUnauthorized, res.Kind)
	assert.Equal(t, session.StateLoggedOut, sess.State())

	token, err := sess.Token()
	require.NoError(t, err)
	assert.Empty(t, token)

	_, ok = sess.Overrides().Lookup("t1")
	assert.False(t, ok)
	task, _ := b.Get("t1")
	assert.Equal(t, 40, task.Progress)
}

func TestLabel(t *testing.T) {
	b := newBoard(t, &fakeAPI{tasks: sampleTasks()}, nil)

	assert.Equal(t, "Write report · p1", b.Label("t1", "p1"))
	assert.Equal(t, "Write report", b.Label("t1", ""))
	assert.Equal(t, "t9 · p1", b.Label("t9", "p1"))
	assert.Equal(t, "Ungrouped", b.Label("", ""))
}
