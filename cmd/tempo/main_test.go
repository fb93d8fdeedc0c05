package main

import (
	"bytes"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/dori/tempo/internal/api"
	"github.com/dori/tempo/internal/app"
	"github.com/dori/tempo/internal/model"
	"github.com/dori/tempo/internal/timecalc"
	"github.com/dori/tempo/internal/weekly"
)

func TestDescribe(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"unauthenticated", fmt.Errorf("list: %w", api.ErrUnauthenticated), "Not signed in. Run `tempo login` first."},
		{"timeout", fmt.Errorf("load week: %w", api.ErrTimeout), "The server took too long to answer."},
		{"server message", &api.StatusError{Method: "POST", Path: "/timesheets", Status: 422, Message: "project is closed"}, "project is closed"},
		{"locked", app.ErrAlreadyRunning, "tempo is already open in another terminal"},
		{"other", errors.New("end \"08:00\" must be after start \"09:00\""), "end \"08:00\" must be after start \"09:00\""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, describe(tt.err))
		})
	}
}

func TestPrintSheet(t *testing.T) {
	monday := time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC)
	entries := []model.TimeLogEntry{
		{ID: "e1", ProjectID: "p1", TaskID: "t1", StartDate: "2024-06-03", DurationMinutes: 120},
		{ID: "e2", ProjectID: "p1", TaskID: "t1", StartDate: "2024-06-05", DurationMinutes: 90},
	}
	sheet := weekly.Build(timecalc.BuildWeek(monday), entries, func(taskID, projectID string) string {
		return "Report"
	})

	var buf bytes.Buffer
	printSheet(&buf, sheet)
	out := buf.String()

	assert.Contains(t, out, "Week of Jun 03 - Jun 09, 2024")
	assert.Contains(t, out, "Mon 03")
	assert.Contains(t, out, "Report")
	assert.Contains(t, out, "3.50")
	assert.Contains(t, out, "1.50")
}

func TestPrintSheetEmptyWeek(t *testing.T) {
	sheet := weekly.Build(timecalc.WeekOf(time.Date(2024, 6, 5, 0, 0, 0, 0, time.UTC)), nil, nil)

	var buf bytes.Buffer
	printSheet(&buf, sheet)

	assert.Contains(t, buf.String(), "(no entries)")
}
