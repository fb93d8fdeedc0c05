package views

import (
	"github.com/dori/tempo/internal/api"
	"github.com/dori/tempo/internal/optimistic"
)

// SessionExpiredMsg tells the root view the backend rejected the credential
type SessionExpiredMsg struct {
	Reason string
}

// StatusMsg is a one-line notice for the root status bar
type StatusMsg struct {
	Message string
	Err     bool
}

// expireOn401 invalidates sess when err is a 401 and returns the message to
// send upward, or nil
func expireOn401(sess optimistic.Invalidator, err error, what string) *SessionExpiredMsg {
	if api.KindOf(err) != api.KindUnauthorized {
		return nil
	}
	reason := what + " rejected with 401"
	if sess != nil {
		_ = sess.Invalidate(reason)
	}
	return &SessionExpiredMsg{Reason: reason}
}
