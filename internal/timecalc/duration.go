// Package timecalc holds the date arithmetic behind timesheets: worked
// duration from start/end pairs and the Monday-anchored week window.
//
// All values are wall-clock readings. Dates and times are combined in a single
// fixed frame (UTC) so the host's zone and its DST transitions never shift a
// result.
package timecalc

import (
	"math"
	"strconv"
	"strings"
	"time"
)

const (
	DateLayout  = "2006-01-02"
	ClockLayout = "15:04"
)

var clockLayouts = []string{"15:04", "15:04:05", "3:04PM", "3:04 PM"}

// ParseDate parses a calendar date. A full RFC 3339 timestamp is accepted and
// reduced to its date part. The result is midnight UTC.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(DateLayout, s); err == nil {
		return t, true
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return Midnight(t), true
	}
	return time.Time{}, false
}

// ParseClock parses a time of day and returns its offset from midnight
func ParseClock(s string) (time.Duration, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	for _, layout := range clockLayouts {
		t, err := time.Parse(layout, s)
		if err != nil {
			continue
		}
		return time.Duration(t.Hour())*time.Hour +
			time.Duration(t.Minute())*time.Minute +
			time.Duration(t.Second())*time.Second, true
	}
	return 0, false
}

// Combine joins a date and a time of day into one instant
func Combine(date, clock string) (time.Time, bool) {
	d, ok := ParseDate(date)
	if !ok {
		return time.Time{}, false
	}
	c, ok := ParseClock(clock)
	if !ok {
		return time.Time{}, false
	}
	return d.Add(c), true
}

// ComputeDuration returns the minutes between the start and end pairs.
// It never fails: a missing or unparseable field, or an end that is not
// strictly after the start, yields 0.
func ComputeDuration(startDate, startTime, endDate, endTime string) int {
	start, ok := Combine(startDate, startTime)
	if !ok {
		return 0
	}
	end, ok := Combine(endDate, endTime)
	if !ok {
		return 0
	}
	if !end.After(start) {
		return 0
	}
	return int(end.Sub(start) / time.Minute)
}

// ComputeWholeHours is ComputeDuration rounded to the nearest hour
func ComputeWholeHours(startDate, startTime, endDate, endTime string) int {
	minutes := ComputeDuration(startDate, startTime, endDate, endTime)
	return int(math.Round(float64(minutes) / 60))
}

// FormatMinutes renders minutes as "7h 30m"
func FormatMinutes(minutes int) string {
	if minutes <= 0 {
		return "0m"
	}
	h, m := minutes/60, minutes%60
	switch {
	case h == 0:
		return strconv.Itoa(m) + "m"
	case m == 0:
		return strconv.Itoa(h) + "h"
	default:
		return strconv.Itoa(h) + "h " + strconv.Itoa(m) + "m"
	}
}
