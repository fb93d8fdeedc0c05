// Package notify sends desktop notifications through notify-send
package notify

import (
	"os/exec"
	"strconv"
	"time"
)

// Urgency levels for notifications
type Urgency int

const (
	UrgencyLow Urgency = iota
	UrgencyNormal
	UrgencyCritical
)

// Notification represents a desktop notification
type Notification struct {
	Title   string
	Body    string
	Urgency Urgency
	Timeout time.Duration
	Icon    string // Optional icon name
}

// Notifier handles sending desktop notifications
type Notifier struct {
	enabled bool
	run     func(name string, args ...string) error
}

// NewNotifier creates a notifier; a disabled one drops everything
func NewNotifier(enabled bool) *Notifier {
	return &Notifier{
		enabled: enabled,
		run: func(name string, args ...string) error {
			return exec.Command(name, args...).Run()
		},
	}
}

// SetEnabled enables or disables notifications
func (n *Notifier) SetEnabled(enabled bool) {
	n.enabled = enabled
}

// IsEnabled returns whether notifications are enabled
func (n *Notifier) IsEnabled() bool {
	return n.enabled
}

// Args builds the notify-send argument list for notification
func Args(notification Notification) []string {
	args := []string{}

	switch notification.Urgency {
	case UrgencyLow:
		args = append(args, "-u", "low")
	case UrgencyCritical:
		args = append(args, "-u", "critical")
	default:
		args = append(args, "-u", "normal")
	}

	if notification.Timeout > 0 {
		args = append(args, "-t", strconv.Itoa(int(notification.Timeout.Milliseconds())))
	}
	if notification.Icon != "" {
		args = append(args, "-i", notification.Icon)
	}

	args = append(args, "-a", "tempo", notification.Title)
	if notification.Body != "" {
		args = append(args, notification.Body)
	}
	return args
}

// Send sends a desktop notification using notify-send
func (n *Notifier) Send(notification Notification) error {
	if n == nil || !n.enabled {
		return nil
	}
	return n.run("notify-send", Args(notification)...)
}

// SendSyncFailed reports a change the backend did not accept
func (n *Notifier) SendSyncFailed(entity, message string) error {
	return n.Send(Notification{
		Title:   "tempo: " + entity + " not saved",
		Body:    message,
		Urgency: UrgencyNormal,
		Timeout: 8 * time.Second,
		Icon:    "dialog-warning-symbolic",
	})
}

// SendSessionExpired tells the user to sign in again
func (n *Notifier) SendSessionExpired() error {
	return n.Send(Notification{
		Title:   "tempo: session expired",
		Body:    "Run `tempo login` to sign in again.",
		Urgency: UrgencyCritical,
		Timeout: 15 * time.Second,
		Icon:    "changes-prevent-symbolic",
	})
}

// SendWeekSeeded reports how many logs the backend created for a week
func (n *Notifier) SendWeekSeeded(week string, created int) error {
	return n.Send(Notification{
		Title:   "tempo: week of " + week + " seeded",
		Body:    strconv.Itoa(created) + " logs created",
		Urgency: UrgencyLow,
		Timeout: 5 * time.Second,
	})
}
