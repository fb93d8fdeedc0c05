package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

var (
	// ErrUnauthenticated means no credential is stored; no request was sent
	ErrUnauthenticated = errors.New("not signed in")

	// ErrUnauthorized means the backend rejected the credential (401)
	ErrUnauthorized = errors.New("session expired, sign in again")

	// ErrTimeout means the request did not finish in time
	ErrTimeout = errors.New("request timed out")

	// ErrNetwork means the request never got a response
	ErrNetwork = errors.New("network error")
)

// StatusError is a non-2xx response
type StatusError struct {
	Method  string
	Path    string
	Status  int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s %s: %d: %s", e.Method, e.Path, e.Status, e.Message)
	}
	return fmt.Sprintf("%s %s: %d %s", e.Method, e.Path, e.Status, http.StatusText(e.Status))
}

// Unwrap lets errors.Is(err, ErrUnauthorized) match a 401
func (e *StatusError) Unwrap() error {
	if e.Status == http.StatusUnauthorized {
		return ErrUnauthorized
	}
	return nil
}

// Kind classifies an error for user messaging and rollback decisions
type Kind int

const (
	KindNone Kind = iota
	KindUnauthenticated
	KindUnauthorized
	KindRequestFailed
	KindTimeout
	KindNetwork
)

func (k Kind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindUnauthenticated:
		return "unauthenticated"
	case KindUnauthorized:
		return "unauthorized"
	case KindRequestFailed:
		return "request_failed"
	case KindTimeout:
		return "timeout"
	case KindNetwork:
		return "network"
	default:
		return "unknown"
	}
}

// KindOf classifies err. Anything unrecognised counts as a failed request.
func KindOf(err error) Kind {
	if err == nil {
		return KindNone
	}

	switch {
	case errors.Is(err, ErrUnauthenticated):
		return KindUnauthenticated
	case errors.Is(err, ErrUnauthorized):
		return KindUnauthorized
	case errors.Is(err, ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return KindTimeout
	}

	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return KindRequestFailed
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return KindTimeout
	}
	if errors.Is(err, ErrNetwork) || errors.As(err, &netErr) {
		return KindNetwork
	}
	return KindRequestFailed
}

// Message returns the text shown to the user for err
func Message(err error) string {
	switch KindOf(err) {
	case KindNone:
		return ""
	case KindUnauthenticated:
		return "Not signed in. Run `tempo login` first."
	case KindUnauthorized:
		return "Session expired. Sign in again."
	case KindTimeout:
		return "The server took too long to answer."
	case KindNetwork:
		return "Could not reach the server."
	}

	var statusErr *StatusError
	if errors.As(err, &statusErr) && statusErr.Message != "" {
		return statusErr.Message
	}
	return "Request failed. Please try again."
}
