// Package aggregate builds the weekly grid: one row per task/project pair with
// hours summed into seven day slots.
package aggregate

import (
	"time"

	"github.com/dori/tempo/internal/model"
	"github.com/dori/tempo/internal/timecalc"
)

// UngroupedKey is the group key shared by entries without a task
const UngroupedKey = "ungrouped"

// Row is one line of the weekly grid
type Row struct {
	GroupKey   string
	TaskID     string
	ProjectID  string
	Label      string
	HoursByDay [timecalc.DaysPerWeek]float64
	EntryIDs   []string
}

// Total returns the hours of the row across the week
func (r Row) Total() float64 {
	var sum float64
	for _, h := range r.HoursByDay {
		sum += h
	}
	return sum
}

// IsBlank returns true for the placeholder row of an empty week
func (r Row) IsBlank() bool {
	return r.GroupKey == "" && len(r.EntryIDs) == 0
}

// Labeler resolves the display label of a row
type Labeler func(taskID, projectID string) string

// Options tune Aggregate
type Options struct {
	Label Labeler
}

// GroupKey returns the composite key an entry is grouped under
func GroupKey(e model.TimeLogEntry) string {
	if e.TaskID == "" {
		return UngroupedKey
	}
	return e.TaskID + "|" + e.ProjectID
}

// DefaultLabel renders "task · project", or "Ungrouped"
func DefaultLabel(taskID, projectID string) string {
	switch {
	case taskID == "":
		return "Ungrouped"
	case projectID == "":
		return taskID
	default:
		return taskID + " · " + projectID
	}
}

// Aggregate sums the entries falling in the week that starts at monday.
// Rows come out in the order their keys are first seen. Entries outside the
// week are skipped; an entry with a zero duration still creates its row.
// When no row results, a single blank row is returned so the grid always has
// an editable line.
func Aggregate(entries []model.TimeLogEntry, monday time.Time, opts ...Options) []Row {
	label := DefaultLabel
	for _, o := range opts {
		if o.Label != nil {
			label = o.Label
		}
	}

	var rows []Row
	index := make(map[string]int)

	for _, e := range entries {
		day, ok := timecalc.DayIndexOfDate(monday, e.StartDate)
		if !ok {
			continue
		}

		key := GroupKey(e)
		i, seen := index[key]
		if !seen {
			row := Row{GroupKey: key}
			if key != UngroupedKey {
				row.TaskID = e.TaskID
				row.ProjectID = e.ProjectID
			}
			row.Label = label(row.TaskID, row.ProjectID)
			rows = append(rows, row)
			i = len(rows) - 1
			index[key] = i
		}

		rows[i].HoursByDay[day] += e.Hours()
		rows[i].EntryIDs = append(rows[i].EntryIDs, e.ID)
	}

	if len(rows) == 0 {
		return []Row{{}}
	}
	return rows
}

// TotalPerDay sums one day slot across rows
func TotalPerDay(rows []Row, day int) float64 {
	if day < 0 || day >= timecalc.DaysPerWeek {
		return 0
	}
	var sum float64
	for _, r := range rows {
		sum += r.HoursByDay[day]
	}
	return sum
}

// Totals returns the footer line: the total of every day slot
func Totals(rows []Row) [timecalc.DaysPerWeek]float64 {
	var out [timecalc.DaysPerWeek]float64
	for day := range out {
		out[day] = TotalPerDay(rows, day)
	}
	return out
}

// GrandTotal sums every slot of every row
func GrandTotal(rows []Row) float64 {
	var sum float64
	for _, r := range rows {
		sum += r.Total()
	}
	return sum
}
