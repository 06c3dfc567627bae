package model

import (
	"fmt"
	"time"
)

// CalendarDate is a plain day/month/year triple. Fields are 1-based and are
// not normalised: the simplified rollback can produce days such as 31 Feb.
type CalendarDate struct {
	Day   int
	Month int
	Year  int
}

// DateOf returns the calendar date of t in t's location.
func DateOf(t time.Time) CalendarDate {
	y, m, d := t.Date()
	return CalendarDate{Day: d, Month: int(m), Year: y}
}

// Rollback steps back one day using the simplified calendar: every month is
// treated as having 31 days and leap years are ignored.
func (d CalendarDate) Rollback() CalendarDate {
	d.Day--
	if d.Day < 1 {
		d.Day = 31
		d.Month--
		if d.Month < 1 {
			d.Month = 12
			d.Year--
		}
	}
	return d
}

// PreviousDay steps back one day on the Gregorian calendar.
func (d CalendarDate) PreviousDay() CalendarDate {
	return d.AddDays(-1)
}

// AddDays moves n days on the Gregorian calendar. Invalid dates are
// normalised the way time.Date does.
func (d CalendarDate) AddDays(n int) CalendarDate {
	return DateOf(d.Time().AddDate(0, 0, n))
}

// Time returns midnight UTC of the date.
func (d CalendarDate) Time() time.Time {
	return time.Date(d.Year, time.Month(d.Month), d.Day, 0, 0, 0, 0, time.UTC)
}

// Valid reports whether the date names a real Gregorian day.
func (d CalendarDate) Valid() bool {
	if d.Month < 1 || d.Month > 12 || d.Day < 1 {
		return false
	}
	return DateOf(d.Time()) == d
}

// String formats the raw fields as YYYY-MM-DD.
func (d CalendarDate) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, d.Month, d.Day)
}

// Calendar selects the rollback arithmetic.
type Calendar string

const (
	CalendarSimplified Calendar = "simplified"
	CalendarGregorian  Calendar = "gregorian"
)

// Previous returns the day before d under c. Unknown calendars fall back to
// the Gregorian rule.
func (c Calendar) Previous(d CalendarDate) CalendarDate {
	if c == CalendarSimplified {
		return d.Rollback()
	}
	return d.PreviousDay()
}

// Valid reports whether c is a known calendar.
func (c Calendar) Valid() bool {
	return c == CalendarSimplified || c == CalendarGregorian
}
