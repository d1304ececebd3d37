package domain

import (
	"errors"
	"time"
)

type RecurrenceFrequency string

const (
	RecurrenceFrequencyDaily   RecurrenceFrequency = "daily"
	RecurrenceFrequencyWeekly  RecurrenceFrequency = "weekly"
	RecurrenceFrequencyMonthly RecurrenceFrequency = "monthly"
)

func (f RecurrenceFrequency) Valid() bool {
	return f == RecurrenceFrequencyDaily || f == RecurrenceFrequencyWeekly || f == RecurrenceFrequencyMonthly
}

var (
	ErrUnsupportedFrequency = errors.New("unsupported recurrence frequency")
	ErrInvertedDateRange    = errors.New("end date must not be before start date")
)

// OccurrenceDates steps from startDate to endDate (inclusive) by the
// frequency's calendar unit and returns each occurrence date, date-only UTC.
//
// Monthly stepping anchors on startDate's day of month and clamps to the last
// valid day when the target month is shorter, so Jan 31 yields Feb 28 (or 29)
// and then Mar 31 again rather than drifting.
func OccurrenceDates(freq RecurrenceFrequency, startDate, endDate time.Time) ([]time.Time, error) {
	start := DateOnly(startDate)
	end := DateOnly(endDate)
	if end.Before(start) {
		return nil, ErrInvertedDateRange
	}

	out := make([]time.Time, 0, 8)
	switch freq {
	case RecurrenceFrequencyDaily:
		for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
			out = append(out, d)
		}
	case RecurrenceFrequencyWeekly:
		for d := start; !d.After(end); d = d.AddDate(0, 0, 7) {
			out = append(out, d)
		}
	case RecurrenceFrequencyMonthly:
		anchorDay := start.Day()
		for i := 0; ; i++ {
			d := monthStep(start, anchorDay, i)
			if d.After(end) {
				break
			}
			out = append(out, d)
		}
	default:
		return nil, ErrUnsupportedFrequency
	}

	return out, nil
}

func monthStep(start time.Time, anchorDay, months int) time.Time {
	firstOfTarget := time.Date(start.Year(), start.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, months, 0)
	day := anchorDay
	if last := daysInMonth(firstOfTarget.Year(), firstOfTarget.Month()); day > last {
		day = last
	}
	return time.Date(firstOfTarget.Year(), firstOfTarget.Month(), day, 0, 0, 0, 0, time.UTC)
}

func daysInMonth(year int, month time.Month) int {
	return time.Date(year, month, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 1, -1).Day()
}
