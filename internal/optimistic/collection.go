// Package optimistic applies user edits to an in-memory collection before the
// backend confirms them, then commits the server's answer or rolls back.
//
// Each entity carries a monotonically increasing sequence number. Begin issues
// the next one; a success older than the last one applied is discarded, so a
// slow reply to an earlier edit can never overwrite a newer one. Failures do
// not advance the mark: the server state did not change.
package optimistic

import (
	"errors"
	"fmt"
	"sync"
)

// ErrNotFound is returned by Begin for an id not in the collection
var ErrNotFound = errors.New("entity not found")

// Outcome is how a mutation settled
type Outcome int

const (
	// Committed: the server accepted the change; its representation, when
	// it sent one, replaced the optimistic value
	Committed Outcome = iota

	// NeedsReload: the server accepted the change without echoing the
	// entity; the caller should reload the collection
	NeedsReload

	// RolledBack: the change failed and the entity was restored
	RolledBack

	// Superseded: the change failed while a newer change to the same entity
	// was still in flight; the display is left to the newer change
	Superseded

	// Discarded: the response arrived after a newer success was applied, or
	// the mutation had already settled
	Discarded
)

func (o Outcome) String() string {
	switch o {
	case Committed:
		return "committed"
	case NeedsReload:
		return "needs_reload"
	case RolledBack:
		return "rolled_back"
	case Superseded:
		return "superseded"
	case Discarded:
		return "discarded"
	default:
		return "unknown"
	}
}

// Sidecar is local state derived from an entity that must be rolled back
// together with it, such as a stored progress override
type Sidecar interface {
	// Capture returns the current side state for id
	Capture(id string) any
	// Restore puts back a value returned by Capture
	Restore(id string, saved any)
	// Confirm drops side state superseded by a server-confirmed value
	Confirm(id string)
}

type slot[T any] struct {
	value   T
	present bool
	index   int
}

// entityState is the bookkeeping for one id
type entityState[T any] struct {
	issued   uint64
	applied  uint64
	inFlight map[uint64]struct{}

	// base is the last server-confirmed state, captured when the first of a
	// run of overlapping mutations began
	base          slot[T]
	baseSide      any
	baseConfirmed bool
}

// Collection is an ordered set of entities keyed by id.
// T should be a value type without shared references so that copies are
// independent snapshots.
type Collection[T any] struct {
	mu      sync.Mutex
	key     func(T) string
	items   []T
	states  map[string]*entityState[T]
	sidecar Sidecar
}

// NewCollection creates a collection; key extracts an entity's id
func NewCollection[T any](key func(T) string, items ...T) *Collection[T] {
	c := &Collection[T]{
		key:    key,
		states: make(map[string]*entityState[T]),
	}
	c.items = append(c.items, items...)
	return c
}

// WithSidecar attaches side state that is captured and restored with each
// mutation
func (c *Collection[T]) WithSidecar(s Sidecar) *Collection[T] {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sidecar = s
	return c
}

// Replace swaps in a freshly loaded list. The loaded values become the
// confirmed base for entities with changes still in flight.
func (c *Collection[T]) Replace(items []T) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = append([]T(nil), items...)
	for id, st := range c.states {
		idx := c.indexOf(id)
		if idx < 0 {
			st.base = slot[T]{}
		} else {
			st.base = slot[T]{value: c.items[idx], present: true, index: idx}
		}
		st.baseSide = nil
		st.baseConfirmed = true
	}
}

// Items returns a copy of the current list
func (c *Collection[T]) Items() []T {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]T(nil), c.items...)
}

// Get returns the current value of id
func (c *Collection[T]) Get(id string) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if idx := c.indexOf(id); idx >= 0 {
		return c.items[idx], true
	}
	var zero T
	return zero, false
}

// Len returns the number of entities
func (c *Collection[T]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Pending reports whether id has changes in flight
func (c *Collection[T]) Pending(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	st, ok := c.states[id]
	return ok && len(st.inFlight) > 0
}

// Begin snapshots id and applies change to it immediately
func (c *Collection[T]) Begin(id string, change func(*T)) (*Mutation[T], error) {
	return c.begin(id, change, false)
}

// BeginDelete snapshots id and removes it immediately
func (c *Collection[T]) BeginDelete(id string) (*Mutation[T], error) {
	return c.begin(id, nil, true)
}

func (c *Collection[T]) begin(id string, change func(*T), remove bool) (*Mutation[T], error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	idx := c.indexOf(id)
	if idx < 0 {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	current := slot[T]{value: c.items[idx], present: true, index: idx}
	st := c.state(id)
	var side any
	if c.sidecar != nil {
		side = c.sidecar.Capture(id)
	}
	if len(st.inFlight) == 0 {
		st.base = current
		st.baseConfirmed = false
		st.baseSide = side
	}
	st.issued++
	st.inFlight[st.issued] = struct{}{}

	m := &Mutation[T]{
		ID:       id,
		Seq:      st.issued,
		Delete:   remove,
		snapshot: current,
		side:     side,
		state:    statePending,
	}

	if remove {
		c.items = append(c.items[:idx], c.items[idx+1:]...)
	} else {
		next := c.items[idx]
		change(&next)
		c.items[idx] = next
		m.applied = slot[T]{value: next, present: true, index: idx}
	}
	return m, nil
}

// Commit settles m as accepted. server is the backend's representation of
// the entity, or nil when it sent none.
func (c *Collection[T]) Commit(m *Mutation[T], server *T) Outcome {
	c.mu.Lock()
	out, confirm := c.commit(m, server)
	sidecar := c.sidecar
	c.mu.Unlock()

	if confirm && sidecar != nil {
		sidecar.Confirm(m.ID)
	}
	return out
}

func (c *Collection[T]) commit(m *Mutation[T], server *T) (Outcome, bool) {
	st, ok := c.settle(m)
	if !ok {
		return Discarded, false
	}
	if m.Seq < st.applied {
		m.state = Discarded
		return Discarded, false
	}
	st.applied = m.Seq
	latest := !st.newerInFlight(m.Seq)

	st.baseSide = nil
	st.baseConfirmed = true

	switch {
	case m.Delete:
		st.base = slot[T]{}
		if latest {
			c.remove(m.ID)
		}
		m.state = Committed
		return Committed, latest

	case server != nil:
		st.base = slot[T]{value: *server, present: true, index: m.snapshot.index}
		if latest {
			c.put(m.ID, *server, m.snapshot.index)
		}
		m.state = Committed
		return Committed, latest

	default:
		// The server kept what this mutation applied, not whatever a newer
		// one shows now
		st.base = m.applied
		if latest {
			c.put(m.ID, m.applied.value, m.applied.index)
		}
		m.state = NeedsReload
		return NeedsReload, latest
	}
}

// Rollback settles m as failed and restores the entity when m is the newest
// change to it still in flight. With older changes still in flight the entity
// returns to what it was just before m; otherwise to the last confirmed value.
func (c *Collection[T]) Rollback(m *Mutation[T]) Outcome {
	c.mu.Lock()
	out, side, confirmed := c.rollback(m)
	sidecar := c.sidecar
	c.mu.Unlock()

	if out == RolledBack && sidecar != nil {
		if confirmed {
			sidecar.Confirm(m.ID)
		} else {
			sidecar.Restore(m.ID, side)
		}
	}
	return out
}

func (c *Collection[T]) rollback(m *Mutation[T]) (Outcome, any, bool) {
	st, ok := c.settle(m)
	if !ok {
		return Discarded, nil, false
	}
	if m.Seq < st.applied {
		m.state = Discarded
		return Discarded, nil, false
	}

	if st.newerInFlight(m.Seq) {
		m.state = Superseded
		return Superseded, nil, false
	}

	m.state = RolledBack
	if len(st.inFlight) > 0 {
		c.put(m.ID, m.snapshot.value, m.snapshot.index)
		return RolledBack, m.side, false
	}

	if st.base.present {
		c.put(m.ID, st.base.value, st.base.index)
	} else {
		c.remove(m.ID)
	}
	return RolledBack, st.baseSide, st.baseConfirmed
}

// settle marks m as no longer pending. ok is false if m already settled.
func (c *Collection[T]) settle(m *Mutation[T]) (*entityState[T], bool) {
	if m == nil || m.state != statePending {
		return nil, false
	}
	st := c.state(m.ID)
	delete(st.inFlight, m.Seq)
	m.state = Discarded
	return st, true
}

func (c *Collection[T]) state(id string) *entityState[T] {
	st, ok := c.states[id]
	if !ok {
		st = &entityState[T]{inFlight: make(map[uint64]struct{})}
		c.states[id] = st
	}
	return st
}

func (st *entityState[T]) newerInFlight(seq uint64) bool {
	for s := range st.inFlight {
		if s > seq {
			return true
		}
	}
	return false
}

func (c *Collection[T]) indexOf(id string) int {
	for i, item := range c.items {
		if c.key(item) == id {
			return i
		}
	}
	return -1
}

// put replaces id in place, or reinserts it at index
func (c *Collection[T]) put(id string, value T, index int) {
	if idx := c.indexOf(id); idx >= 0 {
		c.items[idx] = value
		return
	}
	if index < 0 || index > len(c.items) {
		index = len(c.items)
	}
	c.items = append(c.items, value)
	copy(c.items[index+1:], c.items[index:])
	c.items[index] = value
}

func (c *Collection[T]) remove(id string) {
	if idx := c.indexOf(id); idx >= 0 {
		c.items = append(c.items[:idx], c.items[idx+1:]...)
	}
}
