// Package app wires tempo's long-lived pieces together: configuration,
// logger, local store, session, backend client and notifier.
package app

import (
	"errors"
	"fmt"
	"net/http"
	"os"

	"github.com/gofrs/flock"
	"go.uber.org/zap"

	"github.com/dori/tempo/internal/api"
	"github.com/dori/tempo/internal/config"
	"github.com/dori/tempo/internal/db"
	"github.com/dori/tempo/internal/notify"
	"github.com/dori/tempo/internal/session"
	"github.com/dori/tempo/internal/tasks"
	"github.com/dori/tempo/internal/weekly"
)

// ErrAlreadyRunning is returned when another TUI holds the data directory
var ErrAlreadyRunning = errors.New("another instance of tempo is already running")

// App holds the application state and dependencies
type App struct {
	Config   config.Config
	Log      *zap.Logger
	DB       *db.DB
	Session  *session.Session
	API      *api.Client
	Notifier *notify.Notifier
	lockFile *flock.Flock
}

// Options tune New
type Options struct {
	// Exclusive takes the single-instance lock; the TUI sets it, one-shot
	// commands do not
	Exclusive bool

	HTTPClient *http.Client
}

// New creates a new application instance
func New(cfg config.Config, log *zap.Logger, opts Options) (*App, error) {
	if log == nil {
		log = zap.NewNop()
	}

	if err := os.MkdirAll(cfg.DataDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	a := &App{
		Config:   cfg,
		Log:      log,
		Notifier: notify.NewNotifier(cfg.Notifications),
	}

	if opts.Exclusive {
		if err := a.acquireLock(); err != nil {
			return nil, err
		}
	}

	database, err := db.Open(cfg.DBPath())
	if err != nil {
		a.releaseLock()
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	a.DB = database

	a.Session = session.New(database, log.Named("session"))
	a.Session.OnInvalidate(func(string) {
		if err := a.Notifier.SendSessionExpired(); err != nil {
			log.Debug("desktop notice failed", zap.Error(err))
		}
	})

	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: cfg.API.Timeout}
	}
	client, err := api.New(cfg.API.BaseURL, a.Session,
		api.WithHTTPClient(hc),
		api.WithLogger(log.Named("api")))
	if err != nil {
		a.Close()
		return nil, err
	}
	a.API = client

	return a, nil
}

// Board creates the task board over the app's client and session
func (a *App) Board(q api.TaskQuery) *tasks.Board {
	return tasks.New(tasks.Config{
		API:       a.API,
		Overrides: a.Session.Overrides(),
		Session:   a.Session,
		Notifier:  a.Notifier,
		Query:     q,
		Logger:    a.Log.Named("tasks"),
	})
}

// Loader creates the weekly loader. Row labels use task titles from board
// when it is non-nil.
func (a *App) Loader(board *tasks.Board) *weekly.Loader {
	opts := weekly.Options{
		Employee:   a.Config.EmployeeID,
		Department: a.Config.Department,
		PageSize:   a.Config.API.PageSize,
		Timeout:    a.Config.API.WeeklyTimeout,
		Logger:     a.Log.Named("weekly"),
	}
	if board != nil {
		opts.Label = board.Label
	}
	return weekly.NewLoader(a.API, opts)
}

// acquireLock acquires an exclusive file lock to prevent multiple instances
func (a *App) acquireLock() error {
	a.lockFile = flock.New(a.Config.LockPath())

	locked, err := a.lockFile.TryLock()
	if err != nil {
		return fmt.Errorf("failed to acquire lock: %w", err)
	}
	if !locked {
		return ErrAlreadyRunning
	}
	return nil
}

// releaseLock releases the file lock
func (a *App) releaseLock() {
	if a.lockFile != nil {
		a.lockFile.Unlock()
	}
}

// Close cleans up application resources
func (a *App) Close() error {
	var errs []error

	if a.DB != nil {
		if err := a.DB.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close database: %w", err))
		}
	}

	a.releaseLock()
	_ = a.Log.Sync()

	return errors.Join(errs...)
}
