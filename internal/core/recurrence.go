package core

import (
	"fmt"
	"time"
)

// NextOccurrence projects a periodic obligation one step forward from its
// anchor. It is a pure function: no I/O, exactly one step per call, and the
// same (anchor, frequency) always yields the same date.
//
// Monthly, quarterly and yearly steps keep the anchor's day of month,
// clamped to the last valid day when the target month is shorter: Jan 31
// steps to Feb 29 in a leap year and Feb 28 otherwise; a Feb 29 anchor steps
// yearly to Feb 28 in non-leap years.
func NextOccurrence(anchor time.Time, f Frequency) (time.Time, error) {
	anchor = DateOnly(anchor)
	switch f {
	case Daily:
		return anchor.AddDate(0, 0, 1), nil
	case Weekly:
		return anchor.AddDate(0, 0, 7), nil
	case Monthly:
		return addMonthsClamped(anchor, 1), nil
	case Quarterly:
		return addMonthsClamped(anchor, 3), nil
	case Yearly:
		return addMonthsClamped(anchor, 12), nil
	default:
		return time.Time{}, fmt.Errorf("next occurrence: unknown frequency %q", f)
	}
}

// NextOnOrAfter walks the projection forward until the occurrence is on or
// after ref. Used to catch up an obligation after a period of inactivity;
// the anchor itself counts when it is already on or after ref.
func NextOnOrAfter(anchor time.Time, f Frequency, ref time.Time) (time.Time, error) {
	d := DateOnly(anchor)
	ref = DateOnly(ref)
	for d.Before(ref) {
		next, err := NextOccurrence(d, f)
		if err != nil {
			return time.Time{}, err
		}
		d = next
	}
	return d, nil
}

// addMonthsClamped adds whole months, clamping the day of month to the last
// valid day of the target month. time.AddDate would normalize Jan 31 + 1
// month into Mar 2/3, which is exactly the drift this avoids.
func addMonthsClamped(t time.Time, months int) time.Time {
	first := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, months, 0)
	day := t.Day()
	if last := daysInMonth(first.Year(), first.Month()); day > last {
		day = last
	}
	return time.Date(first.Year(), first.Month(), day, 0, 0, 0, 0, time.UTC)
}

func daysInMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
