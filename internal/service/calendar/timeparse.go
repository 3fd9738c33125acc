package calendar

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// clockPattern matches the first clock expression in a message, e.g. "2 pm",
// "2:30pm" or "14:30". A bare number is read as a 24-hour value.
var clockPattern = regexp.MustCompile(`\b(\d{1,2})(?::(\d{2}))?\s*(am|pm)?\b`)

// ParseEventTime extracts a concrete start time from free text such as
// "book me tomorrow at 2 PM". Times resolve against now's location; a range
// like "2 to 3 pm" takes the start. Past times are rejected.
func ParseEventTime(raw string, now time.Time) (time.Time, error) {
	s := strings.ToLower(strings.TrimSpace(raw))
	s = strings.NewReplacer(`"`, "", "'", "").Replace(s)

	base := now
	if strings.Contains(s, "tomorrow") {
		base = now.AddDate(0, 0, 1)
		s = strings.ReplaceAll(s, "tomorrow", " ")
	}

	if idx := strings.Index(s, " to "); idx >= 0 {
		s = s[:idx]
	}

	m := clockPattern.FindStringSubmatch(s)
	if m == nil {
		return time.Time{}, fmt.Errorf("could not parse a time from %q, please use a format like '2 PM' or '2:30 PM'", raw)
	}

	hour, _ := strconv.Atoi(m[1])
	minute := 0
	if m[2] != "" {
		minute, _ = strconv.Atoi(m[2])
	}

	switch m[3] {
	case "pm":
		if hour != 12 {
			hour += 12
		}
	case "am":
		if hour == 12 {
			hour = 0
		}
	}

	if hour > 23 || minute > 59 {
		return time.Time{}, fmt.Errorf("invalid time of day in %q", raw)
	}

	event := time.Date(base.Year(), base.Month(), base.Day(), hour, minute, 0, 0, now.Location())
	if !event.After(now) {
		return time.Time{}, fmt.Errorf("cannot schedule a time in the past")
	}
	return event, nil
}

// FormatEventTime renders a start time the way confirmations and transcripts
// show it, e.g. "March 14, 2025 at 02:00 PM".
func FormatEventTime(t time.Time) string {
	return t.Format("January 02, 2006 at 03:04 PM")
}
