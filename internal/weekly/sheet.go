// Package weekly loads the timesheet entries of one week and turns them into
// the aggregated grid.
package weekly

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/dori/tempo/internal/aggregate"
	"github.com/dori/tempo/internal/api"
	"github.com/dori/tempo/internal/model"
	"github.com/dori/tempo/internal/timecalc"
)

const (
	// DefaultTimeout bounds the whole weekly fetch, every page included
	DefaultTimeout = 12 * time.Second

	// DefaultPageSize is the page size asked of the backend
	DefaultPageSize = 100

	// maxInFlight caps concurrent page requests
	maxInFlight = 4
)

// Source is the part of the backend client the loader needs
type Source interface {
	ListTimesheets(ctx context.Context, q api.ListQuery) (*api.Page, error)
	SeedWeek(ctx context.Context, weekStart string) ([]model.TimeLogEntry, error)
}

// Sheet is one loaded week
type Sheet struct {
	Week      timecalc.Week
	Entries   []model.TimeLogEntry
	Rows      []aggregate.Row
	DayTotals [timecalc.DaysPerWeek]float64
	Total     float64
}

// Options configures a Loader
type Options struct {
	Employee   string
	Department string
	PageSize   int
	Timeout    time.Duration
	Label      aggregate.Labeler
	Logger     *zap.Logger
}

// Loader fetches weeks from a Source
type Loader struct {
	src  Source
	opts Options
	log  *zap.Logger
}

// NewLoader creates a loader; zero options take their defaults
func NewLoader(src Source, opts Options) *Loader {
	if opts.PageSize <= 0 {
		opts.PageSize = DefaultPageSize
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Loader{src: src, opts: opts, log: log}
}

// Load fetches every entry visible to the configured employee and builds the
// sheet of the week containing ref
func (l *Loader) Load(ctx context.Context, ref time.Time) (*Sheet, error) {
	week := timecalc.WeekOf(ref)

	ctx, cancel := context.WithTimeout(ctx, l.opts.Timeout)
	defer cancel()

	all, err := l.fetchAll(ctx)
	if err != nil {
		return nil, timeoutError(ctx, fmt.Errorf("load week of %s: %w", week.Start(), err))
	}

	var entries []model.TimeLogEntry
	for _, e := range all {
		if _, ok := timecalc.DayIndexOfDate(week.Monday, e.StartDate); ok {
			entries = append(entries, e)
		}
	}

	l.log.Debug("week loaded",
		zap.String("week", week.Start()),
		zap.Int("fetched", len(all)),
		zap.Int("in_week", len(entries)))

	return Build(week, entries, l.opts.Label), nil
}

// Build aggregates entries into the sheet of week
func Build(week timecalc.Week, entries []model.TimeLogEntry, label aggregate.Labeler) *Sheet {
	rows := aggregate.Aggregate(entries, week.Monday, aggregate.Options{Label: label})
	return &Sheet{
		Week:      week,
		Entries:   entries,
		Rows:      rows,
		DayTotals: aggregate.Totals(rows),
		Total:     aggregate.GrandTotal(rows),
	}
}

// Seed asks the backend to create the logs of the week starting at monday.
// It shares the weekly timeout.
func (l *Loader) Seed(ctx context.Context, monday time.Time) ([]model.TimeLogEntry, error) {
	start := timecalc.MondayOf(monday).Format(timecalc.DateLayout)

	ctx, cancel := context.WithTimeout(ctx, l.opts.Timeout)
	defer cancel()

	created, err := l.src.SeedWeek(ctx, start)
	if err != nil {
		return nil, timeoutError(ctx, fmt.Errorf("seed week of %s: %w", start, err))
	}
	l.log.Info("week seeded", zap.String("week", start), zap.Int("created", len(created)))
	return created, nil
}

// fetchAll reads page 1, then the remaining pages concurrently. Pages are
// concatenated in page order whatever order they arrive in.
func (l *Loader) fetchAll(ctx context.Context) ([]model.TimeLogEntry, error) {
	first, err := l.src.ListTimesheets(ctx, l.query(1))
	if err != nil {
		return nil, err
	}
	if first.TotalPages <= 1 {
		return first.Items, nil
	}

	pages := make([][]model.TimeLogEntry, first.TotalPages)
	pages[0] = first.Items

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxInFlight)
	for n := 2; n <= first.TotalPages; n++ {
		g.Go(func() error {
			page, err := l.src.ListTimesheets(gctx, l.query(n))
			if err != nil {
				return fmt.Errorf("page %d: %w", n, err)
			}
			pages[n-1] = page.Items
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var all []model.TimeLogEntry
	for _, items := range pages {
		all = append(all, items...)
	}
	return all, nil
}

func (l *Loader) query(page int) api.ListQuery {
	return api.ListQuery{
		Page:       page,
		Limit:      l.opts.PageSize,
		Employee:   l.opts.Employee,
		Department: l.opts.Department,
	}
}

// timeoutError makes a blown weekly deadline classify as api.ErrTimeout even
// when the source returned a bare context error
func timeoutError(ctx context.Context, err error) error {
	if errors.Is(err, api.ErrTimeout) {
		return err
	}
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", api.ErrTimeout, err)
	}
	return err
}
