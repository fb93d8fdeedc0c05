package aggregate

import (
	"testing"
	"time"

	"github.com/dori/tempo/internal/model"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var june3 = time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC)

func entry(id, task, project, date, start, end string) model.TimeLogEntry {
	return model.TimeLogEntry{
		ID:        id,
		TaskID:    task,
		ProjectID: project,
		StartDate: date,
		StartTime: start,
		EndDate:   date,
		EndTime:   end,
	}
}

func TestAggregateEmptyWeekHasOneBlankRow(t *testing.T) {
	rows := Aggregate(nil, june3)

	require.Len(t, rows, 1)
	assert.True(t, rows[0].IsBlank())
	assert.Equal(t, [7]float64{}, rows[0].HoursByDay)
	assert.Zero(t, GrandTotal(rows))
}

func TestAggregateSingleMondayEntry(t *testing.T) {
	rows := Aggregate([]model.TimeLogEntry{
		entry("e1", "t1", "p1", "2024-06-03", "09:00", "17:00"),
	}, june3)

	require.Len(t, rows, 1)
	assert.Equal(t, "t1|p1", rows[0].GroupKey)
	assert.Equal(t, 8.0, rows[0].HoursByDay[0])
	assert.Equal(t, 8.0, rows[0].Total())
}

func TestAggregateInvertedRangeContributesZero(t *testing.T) {
	e := entry("e1", "t1", "p1", "2024-06-04", "09:00", "17:00")
	e.EndDate = "2024-06-02"

	rows := Aggregate([]model.TimeLogEntry{e}, june3)

	require.Len(t, rows, 1)
	assert.False(t, rows[0].IsBlank())
	assert.Equal(t, []string{"e1"}, rows[0].EntryIDs)
	assert.Equal(t, [7]float64{}, rows[0].HoursByDay)
}

func TestAggregateSameTaskDifferentDays(t *testing.T) {
	rows := Aggregate([]model.TimeLogEntry{
		entry("e1", "t1", "p1", "2024-06-03", "09:00", "11:00"),
		entry("e2", "t1", "p1", "2024-06-05", "13:00", "16:30"),
	}, june3)

	require.Len(t, rows, 1)
	assert.Equal(t, [7]float64{2, 0, 3.5, 0, 0, 0, 0}, rows[0].HoursByDay)
}

func TestAggregateOrderIsFirstSeen(t *testing.T) {
	rows := Aggregate([]model.TimeLogEntry{
		entry("e1", "t2", "p1", "2024-06-04", "09:00", "10:00"),
		entry("e2", "", "", "2024-06-04", "10:00", "11:00"),
		entry("e3", "t1", "p1", "2024-06-04", "11:00", "12:00"),
		entry("e4", "t2", "p1", "2024-06-05", "09:00", "10:00"),
		entry("e5", "", "p9", "2024-06-06", "09:00", "10:00"),
		entry("e6", "t1", "p2", "2024-06-06", "09:00", "10:00"),
	}, june3)

	var keys []string
	for _, r := range rows {
		keys = append(keys, r.GroupKey)
	}
	assert.Equal(t, []string{"t2|p1", UngroupedKey, "t1|p1", "t1|p2"}, keys)
	assert.Equal(t, "Ungrouped", rows[1].Label)
	assert.Equal(t, 2.0, rows[1].Total())
}

func TestAggregateSkipsEntriesOutsideWeek(t *testing.T) {
	rows := Aggregate([]model.TimeLogEntry{
		entry("e1", "t1", "p1", "2024-06-02", "09:00", "10:00"),
		entry("e2", "t2", "p1", "2024-06-10", "09:00", "10:00"),
		entry("e3", "t3", "p1", "2024-06-09", "09:00", "10:00"),
		entry("e4", "t4", "p1", "garbage", "09:00", "10:00"),
	}, june3)

	require.Len(t, rows, 1)
	assert.Equal(t, "t3|p1", rows[0].GroupKey)
	assert.Equal(t, 1.0, rows[0].HoursByDay[6])
}

func TestAggregateUsesStoredDurationWithoutEnd(t *testing.T) {
	rows := Aggregate([]model.TimeLogEntry{
		{ID: "e1", TaskID: "t1", StartDate: "2024-06-07", DurationMinutes: 90},
	}, june3)

	require.Len(t, rows, 1)
	assert.Equal(t, 1.5, rows[0].HoursByDay[4])
}

func TestAggregateIsIdempotent(t *testing.T) {
	entries := []model.TimeLogEntry{
		entry("e1", "t1", "p1", "2024-06-03", "09:00", "17:00"),
		entry("e2", "t2", "p1", "2024-06-04", "09:00", "09:45"),
		entry("e3", "", "", "2024-06-08", "22:00", "23:15"),
	}

	first := Aggregate(entries, june3)
	second := Aggregate(entries, june3)
	if diff := cmp.Diff(first, second); diff != "" {
		t.Fatalf("aggregate not idempotent (-first +second):\n%s", diff)
	}
}

func TestEachEntryLandsInExactlyOneSlot(t *testing.T) {
	var entries []model.TimeLogEntry
	for i := 0; i < 7; i++ {
		date := june3.AddDate(0, 0, i).Format("2006-01-02")
		entries = append(entries, entry(date, "t1", "p1", date, "08:00", "09:00"))
	}

	rows := Aggregate(entries, june3)
	require.Len(t, rows, 1)
	assert.Equal(t, [7]float64{1, 1, 1, 1, 1, 1, 1}, rows[0].HoursByDay)
	assert.Equal(t, 7.0, GrandTotal(rows))
}

func TestTotals(t *testing.T) {
	rows := Aggregate([]model.TimeLogEntry{
		entry("e1", "t1", "p1", "2024-06-03", "09:00", "12:00"),
		entry("e2", "t2", "p1", "2024-06-03", "13:00", "14:30"),
		entry("e3", "t2", "p1", "2024-06-05", "13:00", "14:00"),
	}, june3)

	assert.Equal(t, 4.5, TotalPerDay(rows, 0))
	assert.Equal(t, 1.0, TotalPerDay(rows, 2))
	assert.Zero(t, TotalPerDay(rows, 7))
	assert.Zero(t, TotalPerDay(rows, -1))
	assert.Equal(t, [7]float64{4.5, 0, 1, 0, 0, 0, 0}, Totals(rows))
	assert.Equal(t, 5.5, GrandTotal(rows))
}

func TestAggregateCustomLabeler(t *testing.T) {
	titles := map[string]string{"t1": "Write report"}
	rows := Aggregate([]model.TimeLogEntry{
		entry("e1", "t1", "p1", "2024-06-03", "09:00", "10:00"),
	}, june3, Options{Label: func(taskID, projectID string) string {
		if title, ok := titles[taskID]; ok {
			return title
		}
		return DefaultLabel(taskID, projectID)
	}})

	assert.Equal(t, "Write report", rows[0].Label)
}
