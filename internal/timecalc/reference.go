package timecalc

import (
	"fmt"
	"strings"
	"time"
)

var referenceLayouts = []string{
	DateLayout,
	"01/02/2006",
	"01-02-2006",
	"Jan 2",
	"Jan 2, 2006",
}

var weekdayNames = map[string]time.Weekday{
	"monday": time.Monday, "mon": time.Monday,
	"tuesday": time.Tuesday, "tue": time.Tuesday,
	"wednesday": time.Wednesday, "wed": time.Wednesday,
	"thursday": time.Thursday, "thu": time.Thursday,
	"friday": time.Friday, "fri": time.Friday,
	"saturday": time.Saturday, "sat": time.Saturday,
	"sunday": time.Sunday, "sun": time.Sunday,
}

// ParseReference turns a user supplied date into a reference date.
// Accepts today, yesterday, tomorrow, lastweek, nextweek, weekday names
// (the most recent one on or before now) and a few literal layouts.
// An empty string means now.
func ParseReference(s string, now time.Time) (time.Time, error) {
	today := Midnight(now)
	s = strings.ToLower(strings.TrimSpace(s))

	switch s {
	case "", "today", "now":
		return today, nil
	case "yesterday":
		return today.AddDate(0, 0, -1), nil
	case "tomorrow", "tom":
		return today.AddDate(0, 0, 1), nil
	case "lastweek", "last-week":
		return today.AddDate(0, 0, -DaysPerWeek), nil
	case "nextweek", "next-week":
		return today.AddDate(0, 0, DaysPerWeek), nil
	}

	if day, ok := weekdayNames[s]; ok {
		back := (int(today.Weekday()) - int(day) + 7) % 7
		return today.AddDate(0, 0, -back), nil
	}

	for _, layout := range referenceLayouts {
		t, err := time.Parse(layout, s)
		if err != nil {
			// Month names are case sensitive in Go layouts
			t, err = time.Parse(layout, strings.ToUpper(s[:1])+s[1:])
			if err != nil {
				continue
			}
		}
		if t.Year() == 0 {
			t = time.Date(now.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
		}
		return Midnight(t), nil
	}

	return time.Time{}, fmt.Errorf("unrecognised date %q", s)
}
