package domain

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrMalformedClock   = errors.New("malformed clock time, want HH:MM")
	ErrInvertedInterval = errors.New("interval end must be after start")
)

// TimeInterval is a half-open [start, end) time range on a single calendar
// day. Start and end are minutes from midnight, so comparison is total and
// stable. Immutable once constructed.
type TimeInterval struct {
	Day         time.Time
	StartMinute int
	EndMinute   int
}

// NewInterval builds an interval from "HH:MM" clock strings.
func NewInterval(day time.Time, startClock, endClock string) (TimeInterval, error) {
	start, err := ParseClock(startClock)
	if err != nil {
		return TimeInterval{}, err
	}
	end, err := ParseClock(endClock)
	if err != nil {
		return TimeInterval{}, err
	}
	return NewIntervalMinutes(day, start, end)
}

// NewIntervalMinutes builds an interval from minute-of-day values.
func NewIntervalMinutes(day time.Time, startMinute, endMinute int) (TimeInterval, error) {
	if startMinute < 0 || startMinute >= minutesPerDay || endMinute < 0 || endMinute > minutesPerDay {
		return TimeInterval{}, ErrMalformedClock
	}
	if endMinute <= startMinute {
		return TimeInterval{}, ErrInvertedInterval
	}
	return TimeInterval{Day: DateOnly(day), StartMinute: startMinute, EndMinute: endMinute}, nil
}

const minutesPerDay = 24 * 60

// ParseClock converts a zero-padded 24h "HH:MM" string to minute of day.
func ParseClock(s string) (int, error) {
	if len(s) != 5 || s[2] != ':' {
		return 0, ErrMalformedClock
	}
	var h, m int
	if _, err := fmt.Sscanf(s, "%02d:%02d", &h, &m); err != nil {
		return 0, ErrMalformedClock
	}
	if h < 0 || h > 24 || m < 0 || m > 59 || (h == 24 && m != 0) {
		return 0, ErrMalformedClock
	}
	return h*60 + m, nil
}

// ClockString formats a minute of day back to "HH:MM".
func ClockString(minute int) string {
	return fmt.Sprintf("%02d:%02d", minute/60, minute%60)
}

// DateOnly truncates t to its UTC calendar date.
func DateOnly(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// Overlaps reports whether two intervals clash. Half-open semantics: an
// appointment ending at 10:00 does not overlap one starting at 10:00.
func (i TimeInterval) Overlaps(other TimeInterval) bool {
	if !i.Day.Equal(other.Day) {
		return false
	}
	return i.StartMinute < other.EndMinute && other.StartMinute < i.EndMinute
}

// Contains reports whether the given minute of day falls inside the interval.
func (i TimeInterval) Contains(minute int) bool {
	return minute >= i.StartMinute && minute < i.EndMinute
}

func (i TimeInterval) StartClock() string { return ClockString(i.StartMinute) }

func (i TimeInterval) EndClock() string { return ClockString(i.EndMinute) }

func (i TimeInterval) String() string {
	return fmt.Sprintf("%s %s-%s", i.Day.Format("2006-01-02"), i.StartClock(), i.EndClock())
}
