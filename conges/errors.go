package conges

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrInvalidDateRange is returned when a leave's end date precedes
	// its start date.
	ErrInvalidDateRange = errors.New("invalid date range: end before start")

	// ErrAgentNotFound is returned for a missing agent reference.
	ErrAgentNotFound = errors.New("agent not found")

	// ErrLeaveNotFound is returned for a missing leave record.
	ErrLeaveNotFound = errors.New("leave record not found")

	// ErrHolidayNotFound is returned for a missing custom holiday.
	ErrHolidayNotFound = errors.New("holiday not found")

	// ErrLeaveNotActive rejects cancelling a record twice.
	ErrLeaveNotActive = errors.New("leave record is not active")

	// ErrInterimIsSelf rejects an agent standing in for themselves.
	ErrInterimIsSelf = errors.New("interim agent must differ from the agent on leave")

	// ErrDuplicatePPR rejects registering two agents with the same
	// personnel number.
	ErrDuplicatePPR = errors.New("duplicate PPR")
)

// InvalidDateRangeError carries the offending bounds.
type InvalidDateRangeError struct {
	Start time.Time
	End   time.Time
}

func (e *InvalidDateRangeError) Error() string {
	return fmt.Sprintf("invalid date range: end %s before start %s",
		e.End.Format("02/01/2006"), e.Start.Format("02/01/2006"))
}

func (e *InvalidDateRangeError) Unwrap() error { return ErrInvalidDateRange }
