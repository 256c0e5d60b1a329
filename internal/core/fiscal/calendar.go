// Package fiscal converts local calendar periods (Indian fiscal years running
// April to March, months, days) into UTC ranges for queries.
package fiscal

import (
	"fmt"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"
)

// DefaultTimezone is used when no timezone is configured.
const DefaultTimezone = "Asia/Kolkata"

// Year is a fiscal year identified by the calendar year in which it starts:
// Year(2024) runs from 1 April 2024 to 31 March 2025 and prints as "2024-25".
type Year int

// String formats the year as YYYY-YY.
func (y Year) String() string {
	return fmt.Sprintf("%d-%02d", int(y), (int(y)+1)%100)
}

// ParseYear parses "YYYY-YY". The suffix must be the year after the start.
func ParseYear(s string) (Year, error) {
	start, end, ok := strings.Cut(strings.TrimSpace(s), "-")
	if !ok || len(start) != 4 || len(end) != 2 {
		return 0, fmt.Errorf("financial year %q must look like 2024-25", s)
	}
	y, err := strconv.Atoi(start)
	if err != nil {
		return 0, fmt.Errorf("financial year %q: %w", s, err)
	}
	suffix, err := strconv.Atoi(end)
	if err != nil {
		return 0, fmt.Errorf("financial year %q: %w", s, err)
	}
	if (y+1)%100 != suffix {
		return 0, fmt.Errorf("financial year %q: %02d does not follow %d", s, suffix, y)
	}
	return Year(y), nil
}

// Calendar holds the business timezone. It is immutable and safe for concurrent use.
type Calendar struct {
	loc *time.Location
}

// NewCalendar loads the named timezone; empty name means Asia/Kolkata.
func NewCalendar(tz string) (*Calendar, error) {
	if tz == "" {
		tz = DefaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", tz, err)
	}
	return &Calendar{loc: loc}, nil
}

// IST returns the Asia/Kolkata calendar.
func IST() *Calendar {
	c, err := NewCalendar(DefaultTimezone)
	if err != nil {
		panic(err)
	}
	return c
}

// Location returns the business timezone.
func (c *Calendar) Location() *time.Location {
	return c.loc
}

// Local converts t into the business timezone.
func (c *Calendar) Local(t time.Time) time.Time {
	return t.In(c.loc)
}

// YearOf returns the fiscal year containing t.
func (c *Calendar) YearOf(t time.Time) Year {
	l := t.In(c.loc)
	if l.Month() >= time.April {
		return Year(l.Year())
	}
	return Year(l.Year() - 1)
}

// Current returns the fiscal year containing now.
func (c *Calendar) Current(now time.Time) Year {
	return c.YearOf(now)
}

// YearRange returns [1 April local, next 1 April local) as UTC instants.
func (c *Calendar) YearRange(y Year) (from, to time.Time) {
	start := time.Date(int(y), time.April, 1, 0, 0, 0, 0, c.loc)
	return start.UTC(), start.AddDate(1, 0, 0).UTC()
}

// Contains reports whether t falls inside fiscal year y.
func (c *Calendar) Contains(y Year, t time.Time) bool {
	from, to := c.YearRange(y)
	return !t.Before(from) && t.Before(to)
}

// Months returns the first instant (UTC) of each of the twelve months of y, April first.
func (c *Calendar) Months(y Year) []time.Time {
	months := make([]time.Time, 0, 12)
	start := time.Date(int(y), time.April, 1, 0, 0, 0, 0, c.loc)
	for i := 0; i < 12; i++ {
		months = append(months, start.AddDate(0, i, 0).UTC())
	}
	return months
}

// MonthRange parses "YYYY-MM" and returns its local month as a UTC range.
func (c *Calendar) MonthRange(month string) (from, to time.Time, err error) {
	t, err := time.ParseInLocation("2006-01", strings.TrimSpace(month), c.loc)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("month %q must look like 2024-07", month)
	}
	return t.UTC(), t.AddDate(0, 1, 0).UTC(), nil
}

// DayRange parses "YYYY-MM-DD" and returns the local day as a UTC range.
func (c *Calendar) DayRange(day string) (from, to time.Time, err error) {
	t, err := time.ParseInLocation("2006-01-02", strings.TrimSpace(day), c.loc)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("date %q must look like 2024-07-15", day)
	}
	return t.UTC(), t.AddDate(0, 0, 1).UTC(), nil
}

// StartOfDay returns local midnight of the day containing t, in UTC.
func (c *Calendar) StartOfDay(t time.Time) time.Time {
	l := t.In(c.loc)
	return time.Date(l.Year(), l.Month(), l.Day(), 0, 0, 0, 0, c.loc).UTC()
}

// DaysBetween counts whole local calendar days from a to b (negative when b is earlier).
func (c *Calendar) DaysBetween(a, b time.Time) int {
	da := c.StartOfDay(a)
	db := c.StartOfDay(b)
	return int(db.Sub(da).Hours() / 24)
}

// DateKey formats t as its local calendar date (YYYY-MM-DD).
func (c *Calendar) DateKey(t time.Time) string {
	return t.In(c.loc).Format("2006-01-02")
}

// MonthKey formats t as its local calendar month (YYYY-MM).
func (c *Calendar) MonthKey(t time.Time) string {
	return t.In(c.loc).Format("2006-01")
}
