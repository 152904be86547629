package ledger

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Sentinel errors, to be matched with errors.Is.
var (
	// ErrInsufficientBalance is returned when a deduction exceeds the
	// agent's total Active balance. No row is mutated in that case.
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrNegativeCredit rejects crediting a negative day count.
	ErrNegativeCredit = errors.New("credit amount is negative")

	// ErrInvalidAllocation is defensive: a restore whose allocation is
	// malformed (negative amount). Should not occur if invariants hold.
	ErrInvalidAllocation = errors.New("invalid allocation")

	// ErrYearRetired rejects writing days into an Expired or Merged
	// year. Retired rows keep their Remaining but never go Active again.
	ErrYearRetired = errors.New("balance year is retired")
)

// InsufficientBalanceError carries the shortfall details.
type InsufficientBalanceError struct {
	AgentID   string
	Available decimal.Decimal
	Requested decimal.Decimal
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient balance for agent %s: available %s, requested %s (shortfall %s)",
		e.AgentID, e.Available, e.Requested, e.Shortfall())
}

func (e *InsufficientBalanceError) Unwrap() error { return ErrInsufficientBalance }

// Shortfall is the missing amount.
func (e *InsufficientBalanceError) Shortfall() decimal.Decimal {
	return e.Requested.Sub(e.Available)
}
