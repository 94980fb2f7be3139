package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Period selects one of the calendar buckets entries are grouped by.
type Period int

const (
	Day Period = iota
	Week
	Month
)

func (p Period) String() string {
	switch p {
	case Day:
		return "day"
	case Week:
		return "week"
	case Month:
		return "month"
	}
	return fmt.Sprintf("period(%d)", int(p))
}

// ParsePeriod maps "day", "week" or "month" to a Period.
func ParsePeriod(s string) (Period, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "day", "today":
		return Day, nil
	case "week":
		return Week, nil
	case "month":
		return Month, nil
	}
	return Day, fmt.Errorf("unknown period %q", s)
}

// KeyFor returns the bucket key of t for the period.
func (p Period) KeyFor(t time.Time) int {
	switch p {
	case Week:
		return WeekKey(t)
	case Month:
		return MonthKey(t)
	}
	return DateKey(t)
}

// DateKey encodes the calendar date of t as YYYYMMDD.
func DateKey(t time.Time) int {
	y, m, d := t.Date()
	return y*10000 + int(m)*100 + d
}

// WeekKey encodes the ISO week of t as YYYYWW using the ISO year, so
// 2024-12-30 maps to 202501.
func WeekKey(t time.Time) int {
	y, w := t.ISOWeek()
	return y*100 + w
}

// MonthKey encodes the year and month of t as YYYYMM.
func MonthKey(t time.Time) int {
	return t.Year()*100 + int(t.Month())
}

// ValidKey reports whether key is a well-formed bucket key for the period.
func ValidKey(p Period, key int) bool {
	switch p {
	case Day:
		y, m, d := key/10000, (key/100)%100, key%100
		if y < 1 || m < 1 || m > 12 || d < 1 {
			return false
		}
		t := time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
		return t.Day() == d && int(t.Month()) == m
	case Week:
		y, w := key/100, key%100
		if y < 1 || w < 1 || w > 53 {
			return false
		}
		if w == 53 {
			// Dec 28th always falls in the last ISO week of its year.
			_, last := time.Date(y, time.December, 28, 0, 0, 0, 0, time.UTC).ISOWeek()
			return last == 53
		}
		return true
	case Month:
		y, m := key/100, key%100
		return y >= 1 && m >= 1 && m <= 12
	}
	return false
}

// ParseKey parses a bucket key given either as the integer encoding
// ("20240101") or as a timestamp accepted by ParseTimestamp.
func ParseKey(p Period, s string, loc *time.Location) (int, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.Atoi(s); err == nil {
		if !ValidKey(p, n) {
			return 0, fmt.Errorf("%w: bad %s key %d", ErrInvalidTimestamp, p, n)
		}
		return n, nil
	}
	t, err := ParseTimestamp(s, loc)
	if err != nil {
		return 0, err
	}
	return p.KeyFor(t), nil
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"2006-01-02",
	"20060102",
}

// ParseTimestamp parses s in one of the supported layouts, interpreting
// zone-less values in loc. Eight digits that form a valid date are read as
// YYYYMMDD; any other integer is taken as Unix seconds.
func ParseTimestamp(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("%w: empty", ErrInvalidTimestamp)
	}
	if loc == nil {
		loc = time.Local
	}
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	if secs, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(secs, 0).In(loc), nil
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidTimestamp, s)
}
