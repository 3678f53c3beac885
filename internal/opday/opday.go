// Package opday maps wall-clock instants onto business dates.
//
// An operational day starts at a fixed local hour instead of midnight, so a
// sale at 01:30 belongs to the previous calendar date. The hours between
// midnight and the start hour form the daily-close window: the date a new
// instant belongs to is about to flip, and day-closing actions are refused.
package opday

import (
	"errors"
	"fmt"
	"time"
)

// DateLayout is the wire format of an operational date.
const DateLayout = "2006-01-02"

var ErrInvalidStartHour = errors.New("day start hour must be between 0 and 23")

// OperationalDate returns the business date of instant in loc, as midnight
// of that date in loc.
func OperationalDate(instant time.Time, loc *time.Location, dayStartHour int) time.Time {
	local := instant.In(loc)
	y, m, d := local.Date()
	if local.Hour() < dayStartHour {
		// Step back on the civil date, not by 24h: DST days are not 24h long.
		return time.Date(y, m, d-1, 0, 0, 0, 0, loc)
	}
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

// IsLocked reports whether instant falls in [00:00, dayStartHour) local time.
func IsLocked(instant time.Time, loc *time.Location, dayStartHour int) bool {
	return instant.In(loc).Hour() < dayStartHour
}

// Calendar binds a location and a day start hour.
type Calendar struct {
	loc          *time.Location
	dayStartHour int
}

func NewCalendar(loc *time.Location, dayStartHour int) (*Calendar, error) {
	if dayStartHour < 0 || dayStartHour > 23 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidStartHour, dayStartHour)
	}
	if loc == nil {
		loc = time.Local
	}
	return &Calendar{loc: loc, dayStartHour: dayStartHour}, nil
}

func (c *Calendar) Location() *time.Location { return c.loc }

func (c *Calendar) DayStartHour() int { return c.dayStartHour }

func (c *Calendar) Date(instant time.Time) time.Time {
	return OperationalDate(instant, c.loc, c.dayStartHour)
}

func (c *Calendar) IsLocked(instant time.Time) bool {
	return IsLocked(instant, c.loc, c.dayStartHour)
}

// Bounds returns the half-open window [start, end) of instants that belong
// to the operational date.
func (c *Calendar) Bounds(date time.Time) (start, end time.Time) {
	y, m, d := date.Date()
	start = time.Date(y, m, d, c.dayStartHour, 0, 0, 0, c.loc)
	end = time.Date(y, m, d+1, c.dayStartHour, 0, 0, 0, c.loc)
	return start, end
}

// Parse reads a YYYY-MM-DD operational date in the calendar's location.
func (c *Calendar) Parse(s string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, s, c.loc)
}

func Format(date time.Time) string {
	return date.Format(DateLayout)
}
