// Package calendar holds the date arithmetic shared by attendance, reports and
// the dashboard. Dates are carried as YYYY-MM-DD strings and parsed at UTC
// midnight so that day arithmetic never crosses a DST boundary.
package calendar

import (
	"errors"
	"fmt"
	"time"
)

// Layout is the wire format of every date in the API.
const Layout = time.DateOnly

// MaxRangeDays bounds reporting ranges and calendar selections.
const MaxRangeDays = 366

var (
	ErrInvalidDate  = errors.New("invalid date")
	ErrInvalidRange = errors.New("invalid date range")
	ErrRangeTooLong = errors.New("date range too long")
)

// Parse parses a strict YYYY-MM-DD date.
func Parse(s string) (time.Time, error) {
	if len(s) != len(Layout) {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	t, err := time.Parse(Layout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return t, nil
}

// Format renders t as YYYY-MM-DD.
func Format(t time.Time) string {
	return t.Format(Layout)
}

// Valid reports whether s is a strict date.
func Valid(s string) bool {
	_, err := Parse(s)
	return err == nil
}

// Today returns the calendar date of now in loc.
func Today(loc *time.Location, now time.Time) string {
	if loc == nil {
		loc = time.UTC
	}
	return Format(now.In(loc))
}

// AddDays shifts a valid date by n days.
func AddDays(date string, n int) (string, error) {
	t, err := Parse(date)
	if err != nil {
		return "", err
	}
	return Format(t.AddDate(0, 0, n)), nil
}

// DaysBetween returns to - from in whole days.
func DaysBetween(from, to string) (int, error) {
	a, err := Parse(from)
	if err != nil {
		return 0, err
	}
	b, err := Parse(to)
	if err != nil {
		return 0, err
	}
	return int(b.Sub(a).Hours() / 24), nil
}

// IsWeekend reports whether the date falls on Saturday or Sunday.
func IsWeekend(date string) bool {
	t, err := Parse(date)
	if err != nil {
		return false
	}
	wd := t.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

// Range is an inclusive span of dates.
type Range struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// NewRange validates both ends and the span limit.
func NewRange(start, end string) (Range, error) {
	days, err := DaysBetween(start, end)
	if err != nil {
		return Range{}, err
	}
	if days < 0 {
		return Range{}, fmt.Errorf("%w: %s after %s", ErrInvalidRange, start, end)
	}
	if days+1 > MaxRangeDays {
		return Range{}, fmt.Errorf("%w: %d days", ErrRangeTooLong, days+1)
	}
	return Range{Start: start, End: end}, nil
}

// Days is the number of dates in the range.
func (r Range) Days() int {
	n, err := DaysBetween(r.Start, r.End)
	if err != nil || n < 0 {
		return 0
	}
	return n + 1
}

// Contains reports whether date lies inside the range.
func (r Range) Contains(date string) bool {
	return date >= r.Start && date <= r.End
}

// Dates lists every date of the range in order.
func (r Range) Dates() []string {
	start, err := Parse(r.Start)
	if err != nil {
		return nil
	}
	n := r.Days()
	out := make([]string, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, Format(start.AddDate(0, 0, i)))
	}
	return out
}

// SchoolDays lists the weekdays of the range that are not holidays.
func SchoolDays(r Range, holidays map[string]bool) []string {
	var out []string
	for _, d := range r.Dates() {
		if IsWeekend(d) || holidays[d] {
			continue
		}
		out = append(out, d)
	}
	return out
}

// LastSchoolDays walks back from end (inclusive) collecting n school days, oldest first.
// The walk stops after MaxRangeDays days.
func LastSchoolDays(end string, n int, holidays map[string]bool) []string {
	t, err := Parse(end)
	if err != nil || n <= 0 {
		return nil
	}
	out := make([]string, 0, n)
	for i := 0; i < MaxRangeDays && len(out) < n; i++ {
		d := Format(t.AddDate(0, 0, -i))
		if IsWeekend(d) || holidays[d] {
			continue
		}
		out = append(out, d)
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out
}

// Month is a calendar month laid out for a Monday-first grid.
type Month struct {
	Year    int      `json:"year"`
	Month   int      `json:"month"`
	Leading int      `json:"leading_blanks"`
	Days    []string `json:"days"`
}

// ParseMonth parses YYYY-MM.
func ParseMonth(s string) (int, time.Month, error) {
	t, err := time.Parse("2006-01", s)
	if err != nil || len(s) != 7 {
		return 0, 0, fmt.Errorf("%w: month %q", ErrInvalidDate, s)
	}
	return t.Year(), t.Month(), nil
}

// MonthGrid returns the days of the month and the number of blank cells
// before the first day in a grid that starts on Monday.
func MonthGrid(year int, month time.Month) Month {
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	last := first.AddDate(0, 1, -1)

	m := Month{
		Year:    year,
		Month:   int(month),
		Leading: (int(first.Weekday()) + 6) % 7,
		Days:    make([]string, 0, last.Day()),
	}
	for d := first; !d.After(last); d = d.AddDate(0, 0, 1) {
		m.Days = append(m.Days, Format(d))
	}
	return m
}

// Range returns the inclusive range covering the month.
func (m Month) Range() Range {
	if len(m.Days) == 0 {
		return Range{}
	}
	return Range{Start: m.Days[0], End: m.Days[len(m.Days)-1]}
}
