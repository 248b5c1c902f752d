package core

import (
	"fmt"
	"time"
)

const monthLayout = "2006-01"

// MonthBucket is a calendar month label in "YYYY-MM" form. Lexicographic order
// of buckets is chronological order.
type MonthBucket string

// MonthOf truncates a date to its calendar month. The year and month are read
// from the value's own location, so no timezone shift can move a row into a
// neighbouring bucket. Every month key in the system must come from here.
func MonthOf(t time.Time) MonthBucket {
	return MonthBucket(fmt.Sprintf("%04d-%02d", t.Year(), int(t.Month())))
}

// ParseMonthBucket validates a "YYYY-MM" label.
func ParseMonthBucket(s string) (MonthBucket, error) {
	t, err := time.Parse(monthLayout, s)
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidMonth, s)
	}
	return MonthOf(t), nil
}

// Start returns midnight UTC on the first day of the month.
func (m MonthBucket) Start() time.Time {
	t, err := time.Parse(monthLayout, string(m))
	if err != nil {
		return time.Time{}
	}
	return t
}

func (m MonthBucket) String() string {
	return string(m)
}
