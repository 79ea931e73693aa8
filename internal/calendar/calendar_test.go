package calendar

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseIsStrict(t *testing.T) {
	_, err := Parse("2024-02-29")
	require.NoError(t, err)

	for _, bad := range []string{"2023-02-29", "2024-2-9", "24-02-01", "2024/02/01", ""} {
		_, err := Parse(bad)
		assert.ErrorIs(t, err, ErrInvalidDate, bad)
	}
}

func TestTodayUsesLocation(t *testing.T) {
	jakarta := time.FixedZone("WIB", 7*3600)
	now := time.Date(2024, 3, 4, 20, 0, 0, 0, time.UTC)

	assert.Equal(t, "2024-03-05", Today(jakarta, now))
	assert.Equal(t, "2024-03-04", Today(nil, now))
}

func TestNewRange(t *testing.T) {
	r, err := NewRange("2024-01-30", "2024-02-02")
	require.NoError(t, err)
	assert.Equal(t, 4, r.Days())
	assert.Equal(t, []string{"2024-01-30", "2024-01-31", "2024-02-01", "2024-02-02"}, r.Dates())
	assert.True(t, r.Contains("2024-02-01"))
	assert.False(t, r.Contains("2024-02-03"))

	_, err = NewRange("2024-02-02", "2024-01-30")
	assert.ErrorIs(t, err, ErrInvalidRange)

	_, err = NewRange("2024-01-01", "2024-12-31")
	require.NoError(t, err, "366 days in a leap year is allowed")

	_, err = NewRange("2024-01-01", "2025-01-01")
	assert.ErrorIs(t, err, ErrRangeTooLong)
}

func TestSchoolDaysSkipWeekendsAndHolidays(t *testing.T) {
	// 2024-03-04 is a Monday.
	r, err := NewRange("2024-03-04", "2024-03-12")
	require.NoError(t, err)

	days := SchoolDays(r, map[string]bool{"2024-03-11": true})
	assert.Equal(t, []string{
		"2024-03-04", "2024-03-05", "2024-03-06", "2024-03-07", "2024-03-08", "2024-03-12",
	}, days)
}

func TestLastSchoolDays(t *testing.T) {
	days := LastSchoolDays("2024-03-12", 3, map[string]bool{"2024-03-11": true})
	assert.Equal(t, []string{"2024-03-07", "2024-03-08", "2024-03-12"}, days)
	assert.Nil(t, LastSchoolDays("bad", 3, nil))
}

func TestMonthGrid(t *testing.T) {
	// February 2024 starts on a Thursday.
	m := MonthGrid(2024, time.February)
	assert.Equal(t, 3, m.Leading)
	assert.Len(t, m.Days, 29)
	assert.Equal(t, Range{Start: "2024-02-01", End: "2024-02-29"}, m.Range())

	// September 2024 starts on a Sunday.
	assert.Equal(t, 6, MonthGrid(2024, time.September).Leading)
	// April 2024 starts on a Monday.
	assert.Equal(t, 0, MonthGrid(2024, time.April).Leading)
}

func TestParseMonth(t *testing.T) {
	y, m, err := ParseMonth("2024-11")
	require.NoError(t, err)
	assert.Equal(t, 2024, y)
	assert.Equal(t, time.November, m)

	_, _, err = ParseMonth("2024-13")
	assert.ErrorIs(t, err, ErrInvalidDate)
}

func TestSelectionFlow(t *testing.T) {
	s := NewSelection()
	_, ok := s.Range()
	assert.False(t, ok)

	s, err := s.Click("2024-03-10")
	require.NoError(t, err)
	assert.Equal(t, Selection{State: StateStartSelected, Start: "2024-03-10"}, s)

	s, err = s.Click("2024-03-02")
	require.NoError(t, err)
	r, ok := s.Range()
	require.True(t, ok)
	assert.Equal(t, Range{Start: "2024-03-02", End: "2024-03-10"}, r)

	s, err = s.Click("2024-04-01")
	require.NoError(t, err)
	assert.Equal(t, Selection{State: StateStartSelected, Start: "2024-04-01"}, s)

	assert.Equal(t, NewSelection(), s.Reset())
}

func TestSelectionSameDay(t *testing.T) {
	s, _ := NewSelection().Click("2024-03-05")
	s, err := s.Click("2024-03-05")
	require.NoError(t, err)

	r, ok := s.Range()
	require.True(t, ok)
	assert.Equal(t, 1, r.Days())
}

func TestSelectionRejectsBadClicks(t *testing.T) {
	s, _ := NewSelection().Click("2024-01-01")

	next, err := s.Click("2025-06-01")
	assert.ErrorIs(t, err, ErrRangeTooLong)
	assert.Equal(t, s, next)

	next, err = s.Click("not-a-date")
	assert.ErrorIs(t, err, ErrInvalidDate)
	assert.Equal(t, s, next)
}
