// Package session owns the client-side credential and the local progress
// overrides. A Session is created at startup and handed to the components
// that need it; a 401 from the backend invalidates it.
package session

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/dori/tempo/internal/db"
	"github.com/dori/tempo/internal/metrics"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

// Store is the key-value persistence the session sits on
type Store interface {
	GetSetting(key string) (string, bool, error)
	SetSetting(key, value string) error
	DeleteSetting(key string) error
	GetProgressOverride(entityID string) (int, bool, error)
	SetProgressOverride(entityID string, percent int) error
	DeleteProgressOverride(entityID string) error
	ProgressOverrides() (map[string]int, error)
	ClearSession() error
}

// State is the lifecycle state of a session
type State int

const (
	StateLoggedOut State = iota
	StateActive
	StateExpired
)

func (s State) String() string {
	switch s {
	case StateActive:
		return "active"
	case StateExpired:
		return "expired"
	default:
		return "logged out"
	}
}

// ErrEmptyToken is returned by Login for a blank token
var ErrEmptyToken = errors.New("token is empty")

// Claims is what tempo can read from a JWT bearer token without verifying it
type Claims struct {
	Subject   string
	Name      string
	Email     string
	ExpiresAt time.Time
}

// Session tracks the credential
type Session struct {
	store Store
	log   *zap.Logger
	now   func() time.Time

	mu        sync.Mutex
	state     State
	onInvalid []func(reason string)
}

// New creates a session over store and derives its initial state from the
// stored token
func New(store Store, log *zap.Logger) *Session {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Session{store: store, log: log, now: time.Now}
	if _, err := s.Token(); err != nil {
		log.Warn("reading stored token failed", zap.Error(err))
	}
	return s
}

// Login stores a new bearer token
func (s *Session) Login(token string) error {
	token = strings.TrimSpace(token)
	token = strings.TrimPrefix(token, "Bearer ")
	if token == "" {
		return ErrEmptyToken
	}
	if exp, ok := expiry(token); ok && !exp.After(s.now()) {
		return fmt.Errorf("token expired at %s", exp.Format(time.RFC3339))
	}

	if err := s.store.SetSetting(db.SettingToken, token); err != nil {
		return fmt.Errorf("store token: %w", err)
	}

	s.mu.Lock()
	s.state = StateActive
	s.mu.Unlock()
	s.log.Info("session started")
	return nil
}

// Token reads the credential from the store on every call. A missing token,
// or a JWT whose exp claim has passed, yields "" so callers short-circuit
// before touching the network.
func (s *Session) Token() (string, error) {
	token, ok, err := s.store.GetSetting(db.SettingToken)
	if err != nil {
		return "", fmt.Errorf("read token: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !ok || token == "" {
		s.state = StateLoggedOut
		return "", nil
	}
	if exp, ok := expiry(token); ok && !exp.After(s.now()) {
		s.state = StateExpired
		return "", nil
	}
	s.state = StateActive
	return token, nil
}

// State returns the state observed by the last Token, Login or Invalidate
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// OnInvalidate registers fn to run after the session is invalidated
func (s *Session) OnInvalidate(fn func(reason string)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onInvalid = append(s.onInvalid, fn)
}

// Invalidate clears the stored credential and forces the logged out state
func (s *Session) Invalidate(reason string) error {
	err := s.store.DeleteSetting(db.SettingToken)

	s.mu.Lock()
	wasActive := s.state == StateActive
	s.state = StateLoggedOut
	listeners := append([]func(string){}, s.onInvalid...)
	s.mu.Unlock()

	if wasActive {
		metrics.RecordSessionInvalidated()
	}
	s.log.Warn("session invalidated", zap.String("reason", reason))
	for _, fn := range listeners {
		fn(reason)
	}

	if err != nil {
		return fmt.Errorf("clear token: %w", err)
	}
	return nil
}

// Logout signs out at the user's request. It also drops the local progress
// overrides and, unlike Invalidate, does not notify listeners.
func (s *Session) Logout() error {
	if err := s.store.ClearSession(); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}

	s.mu.Lock()
	s.state = StateLoggedOut
	s.mu.Unlock()
	s.log.Info("signed out")
	return nil
}

// Claims decodes the stored token's claims. Opaque tokens yield an error.
func (s *Session) Claims() (*Claims, error) {
	token, ok, err := s.store.GetSetting(db.SettingToken)
	if err != nil {
		return nil, fmt.Errorf("read token: %w", err)
	}
	if !ok {
		return nil, errors.New("not signed in")
	}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, fmt.Errorf("token is not a JWT: %w", err)
	}

	out := &Claims{}
	out.Subject, _ = claims.GetSubject()
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		out.ExpiresAt = exp.Time
	}
	if name, ok := claims["name"].(string); ok {
		out.Name = name
	}
	if email, ok := claims["email"].(string); ok {
		out.Email = email
	}
	return out, nil
}

// Overrides returns the progress override map bound to this session
func (s *Session) Overrides() *Overrides {
	return &Overrides{store: s.store, log: s.log}
}

// expiry returns the exp claim of a JWT. Opaque tokens report ok=false.
func expiry(token string) (time.Time, bool) {
	if strings.Count(token, ".") != 2 {
		return time.Time{}, false
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}
