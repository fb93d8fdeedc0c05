// Package tasks is the task board: the task list, the user's edits applied
// optimistically, and the progress overrides that shadow the server value
// while an edit is in flight.
package tasks

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/dori/tempo/internal/aggregate"
	"github.com/dori/tempo/internal/api"
	"github.com/dori/tempo/internal/model"
	"github.com/dori/tempo/internal/optimistic"
)

// API is the part of the backend client the board talks to
type API interface {
	ListTasks(ctx context.Context, q api.TaskQuery) ([]model.Task, error)
	PatchTask(ctx context.Context, id string, patch api.TaskPatch) (*model.Task, error)
	DeleteTask(ctx context.Context, id string) error
}

// OverrideStore holds local progress percentages keyed by task id
type OverrideStore interface {
	Lookup(id string) (int, bool)
	Set(id string, pct int) error
	Forget(id string) error
}

// Board is the optimistic task collection plus the calls that confirm edits
type Board struct {
	api       API
	overrides OverrideStore
	ctrl      *optimistic.Controller[model.Task]
	query     api.TaskQuery
	log       *zap.Logger
}

// Config wires a Board
type Config struct {
	API       API
	Overrides OverrideStore
	Session   optimistic.Invalidator
	Notifier  optimistic.Notifier
	Query     api.TaskQuery
	Logger    *zap.Logger
}

func taskKey(t model.Task) string { return t.ID }

// New creates an empty board; call Load to fill it
func New(cfg Config) *Board {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}

	coll := optimistic.NewCollection(taskKey)
	if cfg.Overrides != nil {
		coll.WithSidecar(overrideSidecar{store: cfg.Overrides, log: log})
	}

	opts := []optimistic.ControllerOption{optimistic.WithLogger(log)}
	if cfg.Session != nil {
		opts = append(opts, optimistic.WithSession(cfg.Session))
	}
	if cfg.Notifier != nil {
		opts = append(opts, optimistic.WithNotifier(cfg.Notifier))
	}

	return &Board{
		api:       cfg.API,
		overrides: cfg.Overrides,
		ctrl:      optimistic.NewController("task", coll, opts...),
		query:     cfg.Query,
		log:       log,
	}
}

// Load replaces the board with the backend's task list
func (b *Board) Load(ctx context.Context) error {
	list, err := b.api.ListTasks(ctx, b.query)
	if err != nil {
		return fmt.Errorf("load tasks: %w", err)
	}
	b.Replace(list)
	return nil
}

// Replace installs a freshly loaded list. The loaded values are server
// confirmed, so the override of every task without an edit in flight is
// dropped.
func (b *Board) Replace(list []model.Task) {
	coll := b.ctrl.Collection()
	coll.Replace(list)
	if b.overrides == nil {
		return
	}
	for _, t := range list {
		if coll.Pending(t.ID) {
			continue
		}
		if _, ok := b.overrides.Lookup(t.ID); ok {
			if err := b.overrides.Forget(t.ID); err != nil {
				b.log.Warn("dropping stale override failed", zap.String("id", t.ID), zap.Error(err))
			}
		}
	}
}

// Tasks returns the board's tasks, pinned first. Archived tasks are left out
// unless withArchived is set.
func (b *Board) Tasks(withArchived bool) []model.Task {
	items := b.ctrl.Collection().Items()
	out := items[:0]
	for _, t := range items {
		if t.Archived && !withArchived {
			continue
		}
		out = append(out, t)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Pinned && !out[j].Pinned
	})
	return out
}

// Get returns the task with id
func (b *Board) Get(id string) (model.Task, bool) {
	return b.ctrl.Collection().Get(id)
}

// Progress is the percent to display for t: the local override while one
// exists, the task's own value otherwise
func (b *Board) Progress(t model.Task) int {
	if b.overrides != nil {
		if pct, ok := b.overrides.Lookup(t.ID); ok {
			return pct
		}
	}
	return t.Progress
}

// Busy reports whether an edit to id is in flight
func (b *Board) Busy(id string) bool {
	return b.ctrl.Collection().Pending(id)
}

// SetProgress moves id's progress to pct at once and returns the call that
// confirms it
func (b *Board) SetProgress(id string, pct int) (optimistic.Pending[model.Task], error) {
	pct = model.ClampProgress(pct)
	m, err := b.ctrl.Collection().Begin(id, func(t *model.Task) {
		t.Progress = pct
	})
	if err != nil {
		return optimistic.Pending[model.Task]{}, err
	}
	if b.overrides != nil {
		if err := b.overrides.Set(id, pct); err != nil {
			b.log.Warn("storing progress override failed", zap.String("id", id), zap.Error(err))
		}
	}
	return b.patch(m, api.TaskPatch{Progress: &pct}), nil
}

// Nudge changes id's progress by delta
func (b *Board) Nudge(id string, delta int) (optimistic.Pending[model.Task], error) {
	t, ok := b.Get(id)
	if !ok {
		return optimistic.Pending[model.Task]{}, fmt.Errorf("%w: %s", optimistic.ErrNotFound, id)
	}
	return b.SetProgress(id, b.Progress(t)+delta)
}

// SetStatus moves id to status
func (b *Board) SetStatus(id string, status model.Status) (optimistic.Pending[model.Task], error) {
	if !status.Valid() {
		return optimistic.Pending[model.Task]{}, fmt.Errorf("invalid status %q", status)
	}
	m, err := b.ctrl.Collection().Begin(id, func(t *model.Task) {
		t.Status = status
	})
	if err != nil {
		return optimistic.Pending[model.Task]{}, err
	}
	return b.patch(m, api.TaskPatch{Status: &status}), nil
}

// CycleStatus moves id to the status after its current one
func (b *Board) CycleStatus(id string) (optimistic.Pending[model.Task], error) {
	t, ok := b.Get(id)
	if !ok {
		return optimistic.Pending[model.Task]{}, fmt.Errorf("%w: %s", optimistic.ErrNotFound, id)
	}
	return b.SetStatus(id, t.Status.Next())
}

// SetPinned pins or unpins id
func (b *Board) SetPinned(id string, pinned bool) (optimistic.Pending[model.Task], error) {
	m, err := b.ctrl.Collection().Begin(id, func(t *model.Task) {
		t.Pinned = pinned
	})
	if err != nil {
		return optimistic.Pending[model.Task]{}, err
	}
	return b.patch(m, api.TaskPatch{Pinned: &pinned}), nil
}

// SetArchived archives or restores id
func (b *Board) SetArchived(id string, archived bool) (optimistic.Pending[model.Task], error) {
	m, err := b.ctrl.Collection().Begin(id, func(t *model.Task) {
		t.Archived = archived
	})
	if err != nil {
		return optimistic.Pending[model.Task]{}, err
	}
	return b.patch(m, api.TaskPatch{Archived: &archived}), nil
}

// Delete removes id at once
func (b *Board) Delete(id string) (optimistic.Pending[model.Task], error) {
	m, err := b.ctrl.Collection().BeginDelete(id)
	if err != nil {
		return optimistic.Pending[model.Task]{}, err
	}
	return optimistic.Pending[model.Task]{
		Mutation: m,
		Call: func(ctx context.Context) (*model.Task, error) {
			return nil, b.api.DeleteTask(ctx, id)
		},
	}, nil
}

// Settle applies the result of a pending call
func (b *Board) Settle(m *optimistic.Mutation[model.Task], server *model.Task, err error) optimistic.Result {
	return b.ctrl.Settle(m, server, err)
}

// Do runs p synchronously and settles it
func (b *Board) Do(ctx context.Context, p optimistic.Pending[model.Task]) optimistic.Result {
	return b.ctrl.Do(ctx, p)
}

func (b *Board) patch(m *optimistic.Mutation[model.Task], patch api.TaskPatch) optimistic.Pending[model.Task] {
	id := m.ID
	return optimistic.Pending[model.Task]{
		Mutation: m,
		Call: func(ctx context.Context) (*model.Task, error) {
			return b.api.PatchTask(ctx, id, patch)
		},
	}
}

// Label names a weekly row after its task's title when the board knows it
func (b *Board) Label(taskID, projectID string) string {
	if t, ok := b.Get(taskID); ok && t.Title != "" {
		if projectID == "" {
			return t.Title
		}
		return t.Title + " · " + projectID
	}
	return aggregate.DefaultLabel(taskID, projectID)
}
