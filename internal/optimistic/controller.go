package optimistic

import (
	"context"
	"fmt"

	"github.com/dori/tempo/internal/api"
	"github.com/dori/tempo/internal/metrics"
	"go.uber.org/zap"
)

// Invalidator is the session hook called when the backend answers 401
type Invalidator interface {
	Invalidate(reason string) error
}

// Notifier surfaces a failure to the user outside the UI
type Notifier interface {
	SendSyncFailed(entity, message string) error
}

// Result is the settled state of one mutation as the caller sees it
type Result struct {
	ID      string
	Outcome Outcome
	Kind    api.Kind
	Err     error

	// Notice is the user-visible failure text; empty on success
	Notice string
}

// Failed reports whether the change did not go through
func (r Result) Failed() bool {
	return r.Err != nil
}

// Controller settles mutations of one entity type against the backend.
// It owns the error policy: every failure rolls back, a 401 also
// invalidates the session, nothing is retried.
type Controller[T any] struct {
	entity   string
	coll     *Collection[T]
	session  Invalidator
	notifier Notifier
	log      *zap.Logger
}

// ControllerOption configures a Controller
type ControllerOption func(*controllerOptions)

type controllerOptions struct {
	session  Invalidator
	notifier Notifier
	log      *zap.Logger
}

// WithSession invalidates s when the backend rejects the credential
func WithSession(s Invalidator) ControllerOption {
	return func(o *controllerOptions) { o.session = s }
}

// WithNotifier sends failure notices through n
func WithNotifier(n Notifier) ControllerOption {
	return func(o *controllerOptions) { o.notifier = n }
}

// WithLogger sets the logger
func WithLogger(l *zap.Logger) ControllerOption {
	return func(o *controllerOptions) { o.log = l }
}

// NewController creates a controller for coll. entity names the type in
// logs, metrics and notices.
func NewController[T any](entity string, coll *Collection[T], opts ...ControllerOption) *Controller[T] {
	o := controllerOptions{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.log == nil {
		o.log = zap.NewNop()
	}
	return &Controller[T]{
		entity:   entity,
		coll:     coll,
		session:  o.session,
		notifier: o.notifier,
		log:      o.log.With(zap.String("entity", entity)),
	}
}

// Collection returns the collection the controller mutates
func (c *Controller[T]) Collection() *Collection[T] {
	return c.coll
}

// Settle applies the network outcome of m: server/err are what the call
// returned
func (c *Controller[T]) Settle(m *Mutation[T], server *T, err error) Result {
	res := Result{ID: m.ID}

	if err == nil {
		res.Outcome = c.coll.Commit(m, server)
		c.record(m, res)
		return res
	}

	res.Err = err
	res.Kind = api.KindOf(err)

	if res.Kind == api.KindUnauthorized && c.session != nil {
		if ierr := c.session.Invalidate(fmt.Sprintf("%s %s rejected with 401", c.entity, m.ID)); ierr != nil {
			c.log.Error("clearing credential failed", zap.Error(ierr))
		}
	}

	res.Outcome = c.coll.Rollback(m)
	if res.Outcome != Discarded {
		res.Notice = fmt.Sprintf("Could not update %s: %s", c.entity, api.Message(err))
		if c.notifier != nil {
			if nerr := c.notifier.SendSyncFailed(c.entity, res.Notice); nerr != nil {
				c.log.Debug("desktop notice failed", zap.Error(nerr))
			}
		}
	}

	c.record(m, res)
	return res
}

// Do runs p's call and settles it; used where no event loop is involved
func (c *Controller[T]) Do(ctx context.Context, p Pending[T]) Result {
	server, err := p.Call(ctx)
	return c.Settle(p.Mutation, server, err)
}

func (c *Controller[T]) record(m *Mutation[T], res Result) {
	metrics.RecordMutation(c.entity, res.Outcome.String())

	fields := []zap.Field{
		zap.String("id", m.ID),
		zap.Uint64("seq", m.Seq),
		zap.Bool("delete", m.Delete),
		zap.Stringer("outcome", res.Outcome),
	}
	if res.Err != nil {
		fields = append(fields, zap.Stringer("kind", res.Kind), zap.Error(res.Err))
		c.log.Warn("mutation failed", fields...)
		return
	}
	c.log.Debug("mutation settled", fields...)
}
