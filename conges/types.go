/*
Package conges orchestrates the leave lifecycle.

PURPOSE:
  Creation, modification, cancellation and deletion of leave records,
  composing the calendar engine (day counts, return-to-work dates) with
  the balance ledger (deduction and restoration). Every multi-step
  mutation runs inside one store transaction: the leave record and its
  balance rows change together or not at all.

LEAVE TYPES:
  A closed enum with a per-variant day-counting rule:
    - Annual: working days over [start, end] (weekends and holidays
      excluded), deducted from the balance ledger.
    - Sick: inclusive calendar days; no balance deduction.
    - Exceptional: caller-supplied count, falling back to calendar days;
      no balance deduction.
  Adding a variant without extending countDays is a compile-time-visible
  omission in the switch, not a silent string mismatch.

STATE MACHINE:
  nonexistent -> Active -> {Cancelled, deleted}. Modification keeps the
  record Active. Both exits from Active restore the stored allocation.
*/
package conges

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/sigrh/conges/ledger"
)

// =============================================================================
// AGENT
// =============================================================================

// Agent is an employee tracked by the system. PPR (personnel number) is
// unique across agents.
type Agent struct {
	ID     string `json:"id"`
	Nom    string `json:"nom"`
	Prenom string `json:"prenom"`
	PPR    string `json:"ppr"`
	Grade  string `json:"grade"`
}

// FullName renders "NOM Prénom" for documents and listings.
func (a Agent) FullName() string { return a.Nom + " " + a.Prenom }

// =============================================================================
// LEAVE TYPE - Closed enum with per-variant day counting
// =============================================================================

type LeaveType int

const (
	LeaveAnnual LeaveType = iota
	LeaveSick
	LeaveExceptional
)

var leaveTypeCodes = map[LeaveType]string{
	LeaveAnnual:      "annual",
	LeaveSick:        "sick",
	LeaveExceptional: "exceptional",
}

var leaveTypeLabels = map[LeaveType]string{
	LeaveAnnual:      "Congé annuel",
	LeaveSick:        "Congé de maladie",
	LeaveExceptional: "Congé exceptionnel",
}

// Code is the stable identifier used on the wire and in the database.
func (t LeaveType) Code() string { return leaveTypeCodes[t] }

// Label is the French display name.
func (t LeaveType) Label() string { return leaveTypeLabels[t] }

func (t LeaveType) String() string { return t.Code() }

// ParseLeaveType accepts a wire code or a display label.
func ParseLeaveType(s string) (LeaveType, error) {
	for t, code := range leaveTypeCodes {
		if s == code || s == leaveTypeLabels[t] {
			return t, nil
		}
	}
	return 0, fmt.Errorf("unknown leave type %q", s)
}

func (t LeaveType) MarshalText() ([]byte, error) { return []byte(t.Code()), nil }

func (t *LeaveType) UnmarshalText(b []byte) error {
	parsed, err := ParseLeaveType(string(b))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// Deducts reports whether this type consumes the balance ledger.
func (t LeaveType) Deducts() bool { return t == LeaveAnnual }

// =============================================================================
// LEAVE RECORD
// =============================================================================

type LeaveStatus string

const (
	LeaveActive    LeaveStatus = "active"
	LeaveCancelled LeaveStatus = "cancelled"
)

// LeaveRecord is one leave taken by an agent. Days is derived from the
// per-type counting rule at creation; Allocation records the exact
// per-year deduction so cancellation can restore it.
type LeaveRecord struct {
	ID              string            `json:"id"`
	AgentID         string            `json:"agent_id"`
	Type            LeaveType         `json:"type"`
	Start           time.Time         `json:"start"`
	End             time.Time         `json:"end"`
	Days            decimal.Decimal   `json:"days"`
	Status          LeaveStatus       `json:"status"`
	Justification   string            `json:"justification,omitempty"`
	InterimID       string            `json:"interim_id,omitempty"`
	CertificatePath string            `json:"certificate_path,omitempty"`
	Allocation      ledger.Allocation `json:"allocation,omitempty"`
	CreatedAt       time.Time         `json:"created_at"`
}

// Covers reports whether date falls inside [Start, End].
func (r LeaveRecord) Covers(date time.Time) bool {
	d := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	return !d.Before(dayOf(r.Start)) && !d.After(dayOf(r.End))
}

func dayOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// Holiday is an organisation-specific non-working day.
type Holiday struct {
	ID    string    `json:"id"`
	Date  time.Time `json:"date"`
	Label string    `json:"label"`
}

// OnLeave is one dashboard row: who is away on a date and when they are
// back at work.
type OnLeave struct {
	Agent      Agent     `json:"agent"`
	Type       LeaveType `json:"type"`
	End        time.Time `json:"end"`
	ReturnDate time.Time `json:"return_date"`
}
