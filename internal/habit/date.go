package habit

import (
	"fmt"
	"strings"
	"time"
)

// DateLayout is the calendar-day format used in storage and on the wire.
const DateLayout = "2006-01-02"

// Day truncates t to midnight UTC of its calendar day in t's own location.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a YYYY-MM-DD string into a calendar day.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return t, nil
}

// FormatDate renders a calendar day as YYYY-MM-DD.
func FormatDate(t time.Time) string {
	return Day(t).Format(DateLayout)
}

func daysBetween(from, to time.Time) int {
	return int(Day(to).Sub(Day(from)).Hours() / 24)
}

// ISOWeekRange returns the Monday and Sunday of the given ISO-8601 week.
// Week 1 is the week containing January 4th.
func ISOWeekRange(year, week int) (monday, sunday time.Time) {
	jan4 := time.Date(year, time.January, 4, 0, 0, 0, 0, time.UTC)
	offset := (int(jan4.Weekday()) + 6) % 7
	monday = jan4.AddDate(0, 0, -offset+(week-1)*7)
	return monday, monday.AddDate(0, 0, 6)
}

// Level derives the level from an XP total.
func Level(total int) int {
	if total < 0 {
		return 1
	}
	return total/100 + 1
}

// NormalizeTitle folds a book title into the key used to link it to its habit.
func NormalizeTitle(title string) string {
	return strings.ToLower(strings.Join(strings.Fields(title), " "))
}

// FormatWeekdays encodes a weekday set as a comma list of 0..6.
func FormatWeekdays(days []time.Weekday) string {
	parts := make([]string, 0, len(days))
	for _, d := range SortWeekdays(days) {
		parts = append(parts, fmt.Sprint(int(d)))
	}
	return strings.Join(parts, ",")
}

// ParseWeekdays decodes a comma list produced by FormatWeekdays.
func ParseWeekdays(s string) ([]time.Weekday, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	var days []time.Weekday
	for _, p := range strings.Split(s, ",") {
		var n int
		if _, err := fmt.Sscanf(strings.TrimSpace(p), "%d", &n); err != nil {
			return nil, fmt.Errorf("parse weekday %q: %w", p, err)
		}
		if n < 0 || n > 6 {
			return nil, fmt.Errorf("weekday %d out of range", n)
		}
		days = append(days, time.Weekday(n))
	}
	return SortWeekdays(days), nil
}

// SortWeekdays returns the distinct weekdays of days in Sunday-first order.
func SortWeekdays(days []time.Weekday) []time.Weekday {
	var seen [7]bool
	for _, d := range days {
		if d >= time.Sunday && d <= time.Saturday {
			seen[d] = true
		}
	}
	out := make([]time.Weekday, 0, len(days))
	for d := time.Sunday; d <= time.Saturday; d++ {
		if seen[d] {
			out = append(out, d)
		}
	}
	return out
}
