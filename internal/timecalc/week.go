package timecalc

import (
	"fmt"
	"time"
)

// DaysPerWeek is the number of slots in a week window
const DaysPerWeek = 7

// Day is one slot of a week window
type Day struct {
	Date    time.Time
	Weekday string // Mon..Sun
	Month   string // Jan..Dec
}

// ISO returns the date as YYYY-MM-DD
func (d Day) ISO() string {
	return d.Date.Format(DateLayout)
}

// Label returns a short header like "Mon 03 Jun"
func (d Day) Label() string {
	return fmt.Sprintf("%s %02d %s", d.Weekday, d.Date.Day(), d.Month)
}

// Week is the Monday to Sunday window used to bucket entries
type Week struct {
	Monday time.Time
	Sunday time.Time
	Days   [DaysPerWeek]Day
}

// Midnight returns the wall-clock date of t at 00:00 UTC
func Midnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// MondayOf returns the Monday on or before ref.
// Weekdays are shifted so that Monday is 0 and Sunday is 6.
func MondayOf(ref time.Time) time.Time {
	day := Midnight(ref)
	offset := (int(day.Weekday()) + 6) % 7
	return day.AddDate(0, 0, -offset)
}

// BuildWeek lays out the seven consecutive days starting at monday
func BuildWeek(monday time.Time) Week {
	start := Midnight(monday)
	w := Week{Monday: start, Sunday: start.AddDate(0, 0, DaysPerWeek-1)}
	for i := range w.Days {
		date := start.AddDate(0, 0, i)
		w.Days[i] = Day{
			Date:    date,
			Weekday: date.Format("Mon"),
			Month:   date.Format("Jan"),
		}
	}
	return w
}

// WeekOf is BuildWeek(MondayOf(ref))
func WeekOf(ref time.Time) Week {
	return BuildWeek(MondayOf(ref))
}

// DayIndexOf returns the slot of date within the week starting at monday.
// The second value is false when the date falls outside [0, 6].
func DayIndexOf(monday, date time.Time) (int, bool) {
	diff := Midnight(date).Sub(Midnight(monday))
	days := int(diff / (24 * time.Hour))
	if diff < 0 || days >= DaysPerWeek {
		return -1, false
	}
	return days, true
}

// DayIndexOfDate is DayIndexOf for a YYYY-MM-DD string
func DayIndexOfDate(monday time.Time, date string) (int, bool) {
	d, ok := ParseDate(date)
	if !ok {
		return -1, false
	}
	return DayIndexOf(monday, d)
}

// Contains reports whether date falls inside the week
func (w Week) Contains(date time.Time) bool {
	_, ok := DayIndexOf(w.Monday, date)
	return ok
}

// Prev returns the week before w
func (w Week) Prev() Week {
	return BuildWeek(w.Monday.AddDate(0, 0, -DaysPerWeek))
}

// Next returns the week after w
func (w Week) Next() Week {
	return BuildWeek(w.Monday.AddDate(0, 0, DaysPerWeek))
}

// Start returns the Monday as YYYY-MM-DD
func (w Week) Start() string {
	return w.Monday.Format(DateLayout)
}

// Title returns a range like "Jun 03 - Jun 09, 2024"
func (w Week) Title() string {
	return fmt.Sprintf("%s - %s", w.Monday.Format("Jan 02"), w.Sunday.Format("Jan 02, 2006"))
}
