package fiscal

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestYear_StringAndParse(t *testing.T) {
	assert.Equal(t, "2024-25", Year(2024).String())
	assert.Equal(t, "1999-00", Year(1999).String())

	y, err := ParseYear("2024-25")
	require.NoError(t, err)
	assert.Equal(t, Year(2024), y)

	for _, bad := range []string{"2024", "2024-26", "24-25", "abcd-ef", ""} {
		_, err := ParseYear(bad)
		assert.Error(t, err, bad)
	}
}

func TestCalendar_YearOf_UsesLocalTime(t *testing.T) {
	cal := IST()

	// 31 March 2025 20:00 UTC is already 1 April 01:30 in Kolkata.
	boundary := time.Date(2025, time.March, 31, 20, 0, 0, 0, time.UTC)
	assert.Equal(t, Year(2025), cal.YearOf(boundary))

	before := time.Date(2025, time.March, 31, 18, 0, 0, 0, time.UTC)
	assert.Equal(t, Year(2024), cal.YearOf(before))

	assert.Equal(t, Year(2024), cal.YearOf(time.Date(2024, time.April, 1, 12, 0, 0, 0, time.UTC)))
	assert.Equal(t, Year(2023), cal.YearOf(time.Date(2024, time.January, 15, 12, 0, 0, 0, time.UTC)))
}

func TestCalendar_YearRange(t *testing.T) {
	cal := IST()
	from, to := cal.YearRange(Year(2024))

	assert.Equal(t, time.Date(2024, time.March, 31, 18, 30, 0, 0, time.UTC), from)
	assert.Equal(t, time.Date(2025, time.March, 31, 18, 30, 0, 0, time.UTC), to)
	assert.True(t, cal.Contains(Year(2024), from))
	assert.False(t, cal.Contains(Year(2024), to))
}

func TestCalendar_Months(t *testing.T) {
	months := IST().Months(Year(2024))
	require.Len(t, months, 12)
	assert.Equal(t, "2024-04", IST().MonthKey(months[0]))
	assert.Equal(t, "2025-03", IST().MonthKey(months[11]))
}

func TestCalendar_MonthAndDayRange(t *testing.T) {
	cal := IST()

	from, to, err := cal.MonthRange("2024-07")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, time.June, 30, 18, 30, 0, 0, time.UTC), from)
	assert.Equal(t, time.Date(2024, time.July, 31, 18, 30, 0, 0, time.UTC), to)

	from, to, err = cal.DayRange("2024-07-15")
	require.NoError(t, err)
	assert.Equal(t, 24*time.Hour, to.Sub(from))

	_, _, err = cal.MonthRange("July")
	assert.Error(t, err)
}

func TestCalendar_DaysBetween(t *testing.T) {
	cal := IST()
	a := time.Date(2024, time.July, 1, 20, 0, 0, 0, time.UTC) // 2 July local
	b := time.Date(2024, time.July, 4, 1, 0, 0, 0, time.UTC)  // 4 July local

	assert.Equal(t, 2, cal.DaysBetween(a, b))
	assert.Equal(t, -2, cal.DaysBetween(b, a))
}
