package schedule

import (
	"errors"
	"fmt"
	"time"
)

// Day numbers are Monday-first: Monday=1 … Sunday=7.
const (
	Monday    = 1
	Tuesday   = 2
	Wednesday = 3
	Thursday  = 4
	Friday    = 5
	Saturday  = 6
	Sunday    = 7
)

// ClockLayout is the wall-clock format for session start times.
const ClockLayout = "15:04"

// BookingWindow is how far ahead of an occurrence booking opens.
// The bound is inclusive: an occurrence exactly 72h away is bookable.
const BookingWindow = 72 * time.Hour

// Domain errors
var (
	ErrInvalidDay       = errors.New("day of week must be between 1 (Monday) and 7 (Sunday)")
	ErrInvalidStartTime = errors.New("start time must be HH:MM in 24-hour format")
	ErrBookingClosed    = errors.New("booking is not open yet for this class")
)

var dayNames = [...]string{"", "Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"}

// IsValidDay reports whether day is within 1..7.
func IsValidDay(day int) bool {
	return day >= Monday && day <= Sunday
}

// DayName returns the English day name for a Monday-first day number.
// PRE: day is within 1..7
// POST: Returns "" for out-of-range values
func DayName(day int) string {
	if !IsValidDay(day) {
		return ""
	}
	return dayNames[day]
}

// Weekday converts t's weekday to the Monday-first numbering, with Sunday as 7.
func Weekday(t time.Time) int {
	if wd := int(t.Weekday()); wd != 0 {
		return wd
	}
	return Sunday
}

// ParseClock parses a strict "HH:MM" 24-hour clock value.
// PRE: none
// POST: Returns hour 0..23 and minute 0..59, or ErrInvalidStartTime
func ParseClock(s string) (hour, minute int, err error) {
	if len(s) != len(ClockLayout) {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidStartTime, s)
	}
	t, err := time.Parse(ClockLayout, s)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidStartTime, s)
	}
	return t.Hour(), t.Minute(), nil
}

// NextOccurrence projects a weekly (day, start time) pattern onto the nearest
// occurrence at or after now, in now's location.
// PRE: day is within 1..7, startTime is HH:MM
// POST: Returns an occurrence >= now with seconds and sub-seconds zeroed
func NextOccurrence(day int, startTime string, now time.Time) (time.Time, error) {
	if !IsValidDay(day) {
		return time.Time{}, ErrInvalidDay
	}
	hour, minute, err := ParseClock(startTime)
	if err != nil {
		return time.Time{}, err
	}

	sameDay := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location())
	diff := day - Weekday(now)
	if diff < 0 {
		diff += 7
	} else if diff == 0 && now.After(sameDay) {
		diff = 7
	}
	return sameDay.AddDate(0, 0, diff), nil
}

// IsBookingOpen reports whether an occurrence is close enough to book.
// There is no lower bound: a negative difference also counts as open.
func IsBookingOpen(occurrence, now time.Time) bool {
	return occurrence.Sub(now) <= BookingWindow
}

// FormatRecurring renders a weekly pattern for humans, e.g. "every Wednesday at 12:00".
func FormatRecurring(day int, startTime string) string {
	return fmt.Sprintf("every %s at %s", DayName(day), startTime)
}

// BookingRuleText is the rule shown alongside the timetable.
func BookingRuleText() string {
	return fmt.Sprintf("Weekly timetable. Booking opens %d hours before each class starts.", int(BookingWindow.Hours()))
}
