package optimistic

import (
	"context"
)

// statePending marks a mutation that has not settled yet
const statePending Outcome = -1

// Mutation is the record of one user-initiated change, alive from Begin
// until Commit or Rollback
type Mutation[T any] struct {
	ID     string
	Seq    uint64
	Delete bool

	snapshot slot[T]
	applied  slot[T]
	side     any
	state    Outcome
}

// Snapshot returns the entity as it was just before the change, and false
// if it did not exist
func (m *Mutation[T]) Snapshot() (T, bool) {
	return m.snapshot.value, m.snapshot.present
}

// Settled reports whether the mutation has been committed or rolled back
func (m *Mutation[T]) Settled() bool {
	return m.state != statePending
}

// Pending pairs a begun mutation with the network call that confirms it
type Pending[T any] struct {
	Mutation *Mutation[T]
	Call     func(ctx context.Context) (*T, error)
}

// Outcome returns how the mutation settled; ok is false while it is pending
func (m *Mutation[T]) Outcome() (Outcome, bool) {
	if m.state == statePending {
		return 0, false
	}
	return m.state, true
}
