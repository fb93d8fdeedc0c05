package model

import (
	"github.com/dori/tempo/internal/timecalc"
)

// TimeLogEntry is one recorded work interval as the timesheet endpoints return it
type TimeLogEntry struct {
	ID              string `json:"id"`
	ProjectID       string `json:"projectId,omitempty"`
	TaskID          string `json:"taskId,omitempty"`
	EmployeeID      string `json:"employeeId,omitempty"`
	StartDate       string `json:"startDate"`
	StartTime       string `json:"startTime,omitempty"`
	EndDate         string `json:"endDate,omitempty"`
	EndTime         string `json:"endTime,omitempty"`
	Memo            string `json:"memo,omitempty"`
	DurationMinutes int    `json:"durationMinutes,omitempty"`
}

// HasEnd returns true if both end fields are filled in
func (e *TimeLogEntry) HasEnd() bool {
	return e.EndDate != "" && e.EndTime != ""
}

// Minutes returns the worked minutes for the entry.
// When the end pair is present the value is computed from the timestamps and
// the stored DurationMinutes is ignored; otherwise the stored value is used.
func (e *TimeLogEntry) Minutes() int {
	if e.EndDate != "" || e.EndTime != "" {
		return timecalc.ComputeDuration(e.StartDate, e.StartTime, e.EndDate, e.EndTime)
	}
	if e.DurationMinutes < 0 {
		return 0
	}
	return e.DurationMinutes
}

// Hours returns Minutes as fractional hours
func (e *TimeLogEntry) Hours() float64 {
	return float64(e.Minutes()) / 60
}

// EntryInput is the body sent when creating or updating a timesheet entry
type EntryInput struct {
	ProjectID     string  `json:"projectId"`
	TaskID        string  `json:"taskId"`
	EmployeeID    string  `json:"employeeId"`
	StartDate     string  `json:"startDate"`
	StartTime     string  `json:"startTime"`
	EndDate       string  `json:"endDate"`
	EndTime       string  `json:"endTime"`
	Memo          string  `json:"memo"`
	DurationHours float64 `json:"durationHours"`
}

// NewEntryInput builds an EntryInput and fills DurationHours from the
// start/end pair, rounded to whole hours as the quick-entry form does.
func NewEntryInput(projectID, taskID, employeeID, startDate, startTime, endDate, endTime, memo string) EntryInput {
	return EntryInput{
		ProjectID:     projectID,
		TaskID:        taskID,
		EmployeeID:    employeeID,
		StartDate:     startDate,
		StartTime:     startTime,
		EndDate:       endDate,
		EndTime:       endTime,
		Memo:          memo,
		DurationHours: float64(timecalc.ComputeWholeHours(startDate, startTime, endDate, endTime)),
	}
}
