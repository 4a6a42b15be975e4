// Package daterange resolves dashboard period tokens into concrete intervals.
// Every function takes the current time as an argument.
package daterange

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrUnknownToken is returned for an unsupported period name.
var ErrUnknownToken = errors.New("unknown date range")

// Token names a dashboard period.
type Token string

const (
	ThisWeek     Token = "this_week"
	ThisMonth    Token = "this_month"
	LastMonth    Token = "last_month"
	Last3Months  Token = "last_3_months"
	ThisYear     Token = "this_year"
	LastYear     Token = "last_year"
	Last12Months Token = "last_12_months"
	AllTime      Token = "all_time"
)

// Tokens lists every supported token.
var Tokens = []Token{ThisWeek, ThisMonth, LastMonth, Last3Months, ThisYear, LastYear, Last12Months, AllTime}

// ParseToken validates a period name. Matching ignores case and surrounding space.
func ParseToken(s string) (Token, error) {
	t := Token(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Tokens {
		if t == known {
			return t, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownToken, s)
}

// Bucketing is the time-series granularity of a period.
type Bucketing int

const (
	Day Bucketing = iota
	Month
)

// Layout returns the bucket key format.
func (b Bucketing) Layout() string {
	if b == Month {
		return "2006-01"
	}
	return "2006-01-02"
}

// Granularity buckets year-scale periods by month and the rest by day.
func Granularity(t Token) Bucketing {
	switch t {
	case ThisYear, AllTime, Last3Months, LastYear, Last12Months:
		return Month
	}
	return Day
}

// Range is an interval with both ends inclusive.
type Range struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether t lies within the range.
func (r Range) Contains(t time.Time) bool {
	return !t.Before(r.Start) && !t.After(r.End)
}

// Dates returns the first and last calendar day of the range as UTC midnights,
// the form transaction dates are stored in.
func (r Range) Dates() (from, to time.Time) {
	return civil(r.Start), civil(r.End)
}

// Days returns the number of calendar days the range touches.
func (r Range) Days() int {
	from, to := r.Dates()
	return int(to.Sub(from).Hours()/24) + 1
}

// epochFloor precedes every real transaction.
func epochFloor(loc *time.Location) time.Time {
	return time.Date(1970, 1, 1, 0, 0, 0, 0, loc)
}

// Resolve turns a token into a range relative to now, in now's location.
func Resolve(t Token, now time.Time) (Range, error) {
	loc := now.Location()
	y, m, d := now.Date()

	switch t {
	case ThisWeek:
		start := time.Date(y, m, d-int(now.Weekday()), 0, 0, 0, 0, loc)
		return Range{Start: start, End: now}, nil
	case ThisMonth:
		return month(y, m, loc), nil
	case LastMonth:
		return month(y, m-1, loc), nil
	case Last3Months:
		return Range{Start: now.AddDate(0, -3, 0), End: now}, nil
	case ThisYear:
		return year(y, loc), nil
	case LastYear:
		return year(y-1, loc), nil
	case Last12Months:
		return Range{Start: now.AddDate(0, -12, 0), End: now}, nil
	case AllTime:
		return Range{Start: epochFloor(loc), End: now}, nil
	}
	return Range{}, fmt.Errorf("%w: %q", ErrUnknownToken, string(t))
}

// ActiveDays is the divisor for average daily spending: the calendar days the
// range covers, except this_month which counts only the days elapsed so far.
// It is never below 1.
func ActiveDays(t Token, now time.Time) int {
	if t == ThisMonth {
		return now.Day()
	}
	r, err := Resolve(t, now)
	if err != nil {
		return 1
	}
	if days := r.Days(); days > 1 {
		return days
	}
	return 1
}

func month(y int, m time.Month, loc *time.Location) Range {
	start := time.Date(y, m, 1, 0, 0, 0, 0, loc)
	return Range{Start: start, End: start.AddDate(0, 1, 0).Add(-time.Nanosecond)}
}

func year(y int, loc *time.Location) Range {
	start := time.Date(y, time.January, 1, 0, 0, 0, 0, loc)
	return Range{Start: start, End: start.AddDate(1, 0, 0).Add(-time.Nanosecond)}
}

func civil(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
