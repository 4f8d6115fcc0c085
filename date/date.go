// Package date provides a calendar date with day granularity.
//
// Prices are observed per day and conversions are queried per day, so this
// type carries no time of day and no location. Two Dates for the same day
// always compare equal with ==, which makes Date usable as a map key.
package date

import (
	"encoding/json"
	"fmt"
	"time"
)

// Format is the canonical ISO-8601 representation used when writing dates.
const Format = "2006-01-02"

// readFormat is more permissive than Format and accepts 2020-1-2.
const readFormat = "2006-1-2"

// Date is a calendar day. The zero value represents a missing date.
type Date struct {
	y int
	m time.Month
	d int
}

// New returns a normalized Date, so New(2020, 1, 32) is 2020-02-01.
func New(year int, month time.Month, day int) Date {
	d := Date{year, month, day}
	d.y, d.m, d.d = d.time().Date()
	return d
}

// FromTime returns the calendar day of t in t's location.
func FromTime(t time.Time) Date { return New(t.Date()) }

// Today returns the current local date.
func Today() Date { return FromTime(time.Now()) }

// Parse parses a date in YYYY-MM-DD form. Single-digit months and days are accepted.
func Parse(str string) (Date, error) {
	t, err := time.Parse(readFormat, str)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q, want format %q", str, Format)
	}
	return FromTime(t), nil
}

// MustParse is like Parse but panics on error.
func MustParse(str string) Date {
	d, err := Parse(str)
	if err != nil {
		panic(err.Error())
	}
	return d
}

// time returns the canonical time.Time for the day, midnight UTC.
func (d Date) time() time.Time { return time.Date(d.y, d.m, d.d, 0, 0, 0, 0, time.UTC) }

// Time returns the day as a time.Time at midnight UTC.
func (d Date) Time() time.Time { return d.time() }

func (d Date) Year() int { return d.y }
func (d Date) Month() time.Month { return d.m }
func (d Date) Day() int { return d.d }
func (d Date) IsZero() bool { return d == Date{} }
func (d Date) Before(x Date) bool { return d.Compare(x) < 0 }
func (d Date) After(x Date) bool { return d.Compare(x) > 0 }

// AddDays returns the date n days later (or earlier when n is negative).
func (d Date) AddDays(n int) Date { return New(d.y, d.m, d.d+n) }

// Compare returns -1, 0 or +1 depending on whether d is before, equal to or after x.
func (d Date) Compare(x Date) int {
	switch {
	case d.y != x.y:
		return cmpInt(d.y, x.y)
	case d.m != x.m:
		return cmpInt(int(d.m), int(x.m))
	default:
		return cmpInt(d.d, x.d)
	}
}

func cmpInt(a, b int) int {
	if a < b {
		return -1
	}
	if a > b {
		return 1
	}
	return 0
}

// String formats the date as YYYY-MM-DD.
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.time().Format(Format)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(b []byte) error {
	var str string
	if err := json.Unmarshal(b, &str); err != nil {
		return err
	}
	if str == "" {
		*d = Date{}
		return nil
	}
	parsed, err := Parse(str)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

var _ json.Marshaler = Date{}
var _ json.Unmarshaler = (*Date)(nil)
