package calendar

import (
	"fmt"
	"time"
)

// Layout is the wire format for calendar dates everywhere in the API.
const Layout = "2006-01-02"

// Date is a calendar day with no time-of-day and no timezone attached.
// Which calendar day an instant belongs to is decided once, at the edge,
// by FromTime with an explicit UTC offset - never by the process-local zone.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// FromTime maps an instant to the calendar day it falls on for a user whose
// timezone is the given fixed offset (in minutes east of UTC).
func FromTime(t time.Time, offsetMinutes int) Date {
	shifted := t.UTC().Add(time.Duration(offsetMinutes) * time.Minute)
	y, m, d := shifted.Date()
	return Date{Year: y, Month: m, Day: d}
}

// Today resolves the current calendar day in the given fixed offset.
func Today(offsetMinutes int) Date {
	return FromTime(time.Now(), offsetMinutes)
}

// Parse reads a YYYY-MM-DD string.
func Parse(s string) (Date, error) {
	t, err := time.Parse(Layout, s)
	if err != nil {
		return Date{}, fmt.Errorf("invalid calendar date %q: %w", s, err)
	}
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}, nil
}

func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, d.Month, d.Day)
}

// UTCMidnight is the canonical stored representation of a calendar day:
// 00:00:00 UTC on that date, independent of any user offset. All per-day
// record lookups key on this single instant.
func (d Date) UTCMidnight() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

func (d Date) AddDays(n int) Date {
	t := d.UTCMidnight().AddDate(0, 0, n)
	y, m, dd := t.Date()
	return Date{Year: y, Month: m, Day: dd}
}

func (d Date) Weekday() time.Weekday {
	return d.UTCMidnight().Weekday()
}

func (d Date) IsZero() bool {
	return d == Date{}
}

func (d Date) Equal(o Date) bool {
	return d == o
}

func (d Date) Before(o Date) bool {
	return d.UTCMidnight().Before(o.UTCMidnight())
}

func (d Date) After(o Date) bool {
	return d.UTCMidnight().After(o.UTCMidnight())
}

// DaysBetween returns the number of whole days from a to b (negative if b
// precedes a).
func DaysBetween(a, b Date) int {
	return int(b.UTCMidnight().Sub(a.UTCMidnight()) / (24 * time.Hour))
}

func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

func (d *Date) UnmarshalJSON(b []byte) error {
	if len(b) < 2 || b[0] != '"' || b[len(b)-1] != '"' {
		return fmt.Errorf("invalid calendar date %s", b)
	}
	parsed, err := Parse(string(b[1 : len(b)-1]))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
