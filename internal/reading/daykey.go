package reading

import (
	"fmt"
	"regexp"
	"time"
)

// A day key is a YYYY-MM-DD calendar-date string anchored to one reference
// timezone. It is a plain calendar date, not an instant: arithmetic below
// never routes through the local clock.

var dayKeyRe = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// Date is a pure calendar date.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// ParseDayKey parses a YYYY-MM-DD string into a calendar date.
func ParseDayKey(key string) (Date, error) {
	if !dayKeyRe.MatchString(key) {
		return Date{}, fmt.Errorf("invalid day key %q", key)
	}
	t, err := time.ParseInLocation("2006-01-02", key, time.UTC)
	if err != nil {
		return Date{}, fmt.Errorf("invalid day key %q", key)
	}
	return Date{Year: t.Year(), Month: t.Month(), Day: t.Day()}, nil
}

// Key formats the date back into YYYY-MM-DD.
func (d Date) Key() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// AddDays shifts the date by n calendar days. Noon UTC keeps the arithmetic
// clear of any DST edge.
func (d Date) AddDays(n int) Date {
	t := time.Date(d.Year, d.Month, d.Day, 12, 0, 0, 0, time.UTC).AddDate(0, 0, n)
	return Date{Year: t.Year(), Month: t.Month(), Day: t.Day()}
}

// PrevDayKey returns the day key one calendar day before key.
func PrevDayKey(key string) (string, error) {
	d, err := ParseDayKey(key)
	if err != nil {
		return "", err
	}
	return d.AddDays(-1).Key(), nil
}

// Today computes the current day key in the named timezone. This is the
// single shared "today" function; everything downstream takes a day key
// parameter so tests can pin a fixed value.
func Today(timezone string) (string, error) {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return "", fmt.Errorf("load timezone %q: %w", timezone, err)
	}
	return time.Now().In(loc).Format("2006-01-02"), nil
}
