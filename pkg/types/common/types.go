// Package common holds shared primitive types used across the engine's domain,
// application, and infrastructure layers.
package common

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ID is a string alias for UUID v4.
type ID string

// NewID generates a fresh random ID.
func NewID() ID {
	return ID(uuid.NewString())
}

// Validate checks the ID parses as a UUID.
func (id ID) Validate() error {
	if _, err := uuid.Parse(string(id)); err != nil {
		return fmt.Errorf("common: invalid ID %q: %w", string(id), err)
	}
	return nil
}

func (id ID) String() string { return string(id) }

// OwnerID is a string alias for an investor account identifier.  The engine
// treats it as opaque; identity management lives outside this repository.
type OwnerID string

func (o OwnerID) String() string { return string(o) }

// Date is a calendar day with no time-of-day component, the granularity at
// which closing prices and rebalance schedules operate.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// NewDate constructs a Date from its components.
func NewDate(year int, month time.Month, day int) Date {
	return Date{Year: year, Month: month, Day: day}
}

// DateOf truncates t to its calendar day in UTC.
func DateOf(t time.Time) Date {
	u := t.UTC()
	return Date{Year: u.Year(), Month: u.Month(), Day: u.Day()}
}

// Time returns the Date as midnight UTC.
func (d Date) Time() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

// String formats the date as ISO-8601 (YYYY-MM-DD), the format exchanged with
// the market-data provider.
func (d Date) String() string {
	return d.Time().Format("2006-01-02")
}

// Before reports whether d is strictly earlier than other.
func (d Date) Before(other Date) bool {
	return d.Time().Before(other.Time())
}

// After reports whether d is strictly later than other.
func (d Date) After(other Date) bool {
	return d.Time().After(other.Time())
}

// AddYears returns the date shifted by n calendar years.
func (d Date) AddYears(n int) Date {
	return DateOf(d.Time().AddDate(n, 0, 0))
}

// ParseDate parses an ISO-8601 (YYYY-MM-DD) date string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return Date{}, fmt.Errorf("common: invalid date %q: %w", s, err)
	}
	return DateOf(t), nil
}
