package model

import (
	"time"
)

// Status represents the current state of a task
type Status string

const (
	StatusBacklog    Status = "backlog"
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusDone       Status = "done"
)

// Statuses lists the statuses in the order the board cycles through them
var Statuses = []Status{StatusBacklog, StatusPending, StatusInProgress, StatusDone}

// Next returns the status that follows s in the board cycle
func (s Status) Next() Status {
	for i, st := range Statuses {
		if st == s {
			return Statuses[(i+1)%len(Statuses)]
		}
	}
	return StatusPending
}

// Valid reports whether s is a known status
func (s Status) Valid() bool {
	for _, st := range Statuses {
		if st == s {
			return true
		}
	}
	return false
}

// Label returns a display name for the status
func (s Status) Label() string {
	switch s {
	case StatusBacklog:
		return "Backlog"
	case StatusPending:
		return "Pending"
	case StatusInProgress:
		return "In progress"
	case StatusDone:
		return "Done"
	default:
		return string(s)
	}
}

// Task is a project task whose progress, status, pin and archive flags can be
// changed from the board
type Task struct {
	ID        string    `json:"id"`
	ProjectID string    `json:"projectId,omitempty"`
	Title     string    `json:"title"`
	Status    Status    `json:"status"`
	Progress  int       `json:"progress"` // Percent, 0-100
	Pinned    bool      `json:"pinned"`
	Archived  bool      `json:"archived"`
	UpdatedAt time.Time `json:"updatedAt,omitempty"`
}

// ClampProgress limits a percentage to 0-100
func ClampProgress(pct int) int {
	if pct < 0 {
		return 0
	}
	if pct > 100 {
		return 100
	}
	return pct
}

// IsComplete returns true if the task is done or fully progressed
func (t *Task) IsComplete() bool {
	return t.Status == StatusDone || t.Progress >= 100
}
