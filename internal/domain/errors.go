package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrConfiguration marks invalid input detected before any network activity.
	ErrConfiguration = errors.New("configuration error")

	// ErrReportSource marks a failed export download. It only aborts the
	// category being processed.
	ErrReportSource = errors.New("report source error")

	// ErrAuthRejected means the delivery portal bounced the login. No order
	// can be resolved without a session, so the whole run stops.
	ErrAuthRejected = errors.New("authentication rejected")

	// ErrTransient marks a lookup failure that is worth retrying.
	ErrTransient = errors.New("transient lookup failure")
)

// ParseError reports that a scraped page did not have the expected structure.
type ParseError struct {
	OrderID string
	Reason  string
}

func (e *ParseError) Error() string {
	if e.OrderID == "" {
		return fmt.Sprintf("parse error: %s", e.Reason)
	}
	return fmt.Sprintf("parse error for order %s: %s", e.OrderID, e.Reason)
}
