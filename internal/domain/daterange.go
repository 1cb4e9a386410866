package domain

import (
	"fmt"
	"time"
)

// DateLayout is the format the export endpoint expects, DD/MM/YYYY HH:MM.
const DateLayout = "02/01/2006 15:04"

// DateRange is the inclusive export window.
type DateRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// ParseDate parses a DD/MM/YYYY HH:MM value in loc and rejects future dates.
func ParseDate(value string, now time.Time, loc *time.Location) (time.Time, error) {
	t, err := time.ParseInLocation(DateLayout, value, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: incorrect date format %q, should be DD/MM/YYYY HH:MM", ErrConfiguration, value)
	}
	if t.After(now) {
		return time.Time{}, fmt.Errorf("%w: date %q cannot be in the future", ErrConfiguration, value)
	}
	return t, nil
}

// ParseDateRange validates both bounds. An empty bound falls back to the default range.
func ParseDateRange(start, end string, now time.Time) (DateRange, error) {
	loc := now.Location()
	r := DefaultDateRange(now)
	var err error
	if start != "" {
		if r.Start, err = ParseDate(start, now, loc); err != nil {
			return DateRange{}, err
		}
	}
	if end != "" {
		if r.End, err = ParseDate(end, now, loc); err != nil {
			return DateRange{}, err
		}
	}
	if r.Start.After(r.End) {
		return DateRange{}, fmt.Errorf("%w: end datetime cannot be before start datetime", ErrConfiguration)
	}
	return r, nil
}

// DefaultDateRange covers yesterday midnight up to the current minute.
func DefaultDateRange(now time.Time) DateRange {
	y := now.AddDate(0, 0, -1)
	return DateRange{
		Start: time.Date(y.Year(), y.Month(), y.Day(), 0, 0, 0, 0, now.Location()),
		End:   now.Truncate(time.Minute),
	}
}

// StartString formats the lower bound for the export headers.
func (r DateRange) StartString() string {
	return r.Start.Format(DateLayout)
}

// EndString formats the upper bound for the export headers.
func (r DateRange) EndString() string {
	return r.End.Format(DateLayout)
}

func (r DateRange) String() string {
	return r.StartString() + " - " + r.EndString()
}
