/*
Package ledger manages per-agent, per-fiscal-year leave balances.

PURPOSE:
  An agent holds one balance row per fiscal year. Taking annual leave
  consumes days from those rows oldest-year-first; cancelling a leave
  puts them back. This package owns every mutation of a balance row:
  nothing else writes Remaining directly, which is how the non-negative
  invariant survives.

KEY CONCEPTS:
  - YearlyBalance: (agent, year, remaining, status). Remaining >= 0 always.
  - Status: Active rows participate in deduction and totals. Expired rows
    are retired from allocation; Merged rows summarize folded history.
  - Allocation: the per-year breakdown of one deduction. Stored on the
    leave record so the exact amounts can be restored later and rendered
    in decision documents.

ALLOCATION POLICY:
  Deduct drains the oldest Active year first (use-it-or-lose-it) and is
  all-or-nothing. Restore is asymmetric on purpose: amounts whose year has
  since expired are redirected to the current fiscal year, so cancelling
  an old leave never resurrects an expired pool but the agent keeps the
  days.

SEE ALSO:
  - ledger.go: the operations
  - conges/: the leave manager composing deduction with record lifecycle
*/
package ledger

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// Status of a yearly balance row.
type Status string

const (
	// StatusActive rows participate in deduction and in displayed totals.
	StatusActive Status = "active"
	// StatusExpired rows are past the retention window.
	StatusExpired Status = "expired"
	// StatusMerged rows summarize several expired years folded together.
	StatusMerged Status = "merged"
)

// YearlyBalance is the leave-day entitlement an agent holds for one
// fiscal year. At most one row exists per (agent, year).
type YearlyBalance struct {
	AgentID   string          `json:"agent_id"`
	Year      int             `json:"year"`
	Remaining decimal.Decimal `json:"remaining"`
	Status    Status          `json:"status"`
}

// BalanceStore is the persistence contract the ledger operates on.
// UpsertBalance replaces the row keyed by (agent, year).
type BalanceStore interface {
	Balances(ctx context.Context, agentID string) ([]YearlyBalance, error)
	UpsertBalance(ctx context.Context, b YearlyBalance) error
	DeleteBalance(ctx context.Context, agentID string, year int) error
}

// TxRunner executes fn atomically: every balance write inside commits
// together or not at all.
type TxRunner interface {
	WithBalanceTx(ctx context.Context, fn func(BalanceStore) error) error
}

// =============================================================================
// ALLOCATION - Per-year breakdown of a deduction
// =============================================================================

// Allocation maps fiscal year to the days deducted from that year.
type Allocation map[int]decimal.Decimal

// Total returns the summed day count across years.
func (a Allocation) Total() decimal.Decimal {
	total := decimal.Zero
	for _, days := range a {
		total = total.Add(days)
	}
	return total
}

// Years returns the allocated fiscal years in ascending order.
func (a Allocation) Years() []int {
	years := make([]int, 0, len(a))
	for y := range a {
		years = append(years, y)
	}
	sort.Ints(years)
	return years
}

// IsZero reports whether nothing was allocated.
func (a Allocation) IsZero() bool { return len(a) == 0 }

// Breakdown renders the allocation for decision documents, e.g.
// "5 jours au titre de l'année 2023 et 2 jours au titre de l'année 2024".
func (a Allocation) Breakdown() string {
	parts := make([]string, 0, len(a))
	for _, year := range a.Years() {
		days := a[year]
		unit := "jours"
		if days.Equal(decimal.NewFromInt(1)) {
			unit = "jour"
		}
		parts = append(parts, fmt.Sprintf("%s %s au titre de l'année %d", days.String(), unit, year))
	}
	return strings.Join(parts, " et ")
}
