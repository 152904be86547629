package ledger

import (
	"context"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
)

// Ledger wraps standalone balance operations in their own transaction.
// Callers already inside a store transaction (the leave manager) use the
// *In functions directly on the transactional store instead.
type Ledger struct {
	store  BalanceStore
	runner TxRunner
}

func New(store BalanceStore, runner TxRunner) *Ledger {
	return &Ledger{store: store, runner: runner}
}

// CreditYear grants days to the agent's Active balance for a year,
// creating the row when absent. Crediting zero never changes the total.
// Negative amounts and Expired or Merged years are rejected.
func (l *Ledger) CreditYear(ctx context.Context, agentID string, year int, days decimal.Decimal) error {
	return l.runner.WithBalanceTx(ctx, func(s BalanceStore) error {
		return CreditYearIn(ctx, s, agentID, year, days)
	})
}

// TotalActiveBalance sums Remaining over the agent's Active rows. This is
// the displayed "current balance" and the ceiling for deduction.
func (l *Ledger) TotalActiveBalance(ctx context.Context, agentID string) (decimal.Decimal, error) {
	balances, err := l.store.Balances(ctx, agentID)
	if err != nil {
		return decimal.Zero, err
	}
	total := decimal.Zero
	for _, b := range balances {
		if b.Status == StatusActive {
			total = total.Add(b.Remaining)
		}
	}
	return total, nil
}

// Deduct consumes requested days from the agent's Active balances,
// oldest fiscal year first, and returns the per-year breakdown.
// All-or-nothing: an InsufficientBalanceError leaves every row untouched.
func (l *Ledger) Deduct(ctx context.Context, agentID string, requested decimal.Decimal) (Allocation, error) {
	var alloc Allocation
	err := l.runner.WithBalanceTx(ctx, func(s BalanceStore) error {
		var err error
		alloc, err = DeductIn(ctx, s, agentID, requested)
		return err
	})
	if err != nil {
		return nil, err
	}
	return alloc, nil
}

// Restore puts a previous allocation back, redirecting no-longer-Active
// years to currentYear.
func (l *Ledger) Restore(ctx context.Context, agentID string, alloc Allocation, currentYear int) error {
	return l.runner.WithBalanceTx(ctx, func(s BalanceStore) error {
		return RestoreIn(ctx, s, agentID, alloc, currentYear)
	})
}

// ExpireBefore retires Active rows older than cutoffYear (exclusive).
// Expired rows keep their Remaining but leave the allocation pool.
func (l *Ledger) ExpireBefore(ctx context.Context, agentID string, cutoffYear int) (int, error) {
	expired := 0
	err := l.runner.WithBalanceTx(ctx, func(s BalanceStore) error {
		var err error
		expired, err = ExpireBeforeIn(ctx, s, agentID, cutoffYear)
		return err
	})
	if err != nil {
		return 0, err
	}
	return expired, nil
}

// MergeExpired folds the agent's Expired rows into a single Merged
// summary row keyed by the oldest expired year. A no-op when fewer than
// one expired row exists.
func (l *Ledger) MergeExpired(ctx context.Context, agentID string) error {
	return l.runner.WithBalanceTx(ctx, func(s BalanceStore) error {
		return MergeExpiredIn(ctx, s, agentID)
	})
}

// =============================================================================
// TRANSACTION-SCOPED OPERATIONS
// =============================================================================
// The *In variants run against a store the caller already holds inside a
// transaction, so a leave record and its balance writes commit together.

// CreditYearIn is CreditYear against an explicit store. The row for
// (agent, year) must be Active or absent: an Expired or Merged row is
// never revived, its Remaining stays as the data model recorded it.
func CreditYearIn(ctx context.Context, s BalanceStore, agentID string, year int, days decimal.Decimal) error {
	if days.IsNegative() {
		return fmt.Errorf("credit %s days to agent %s year %d: %w", days, agentID, year, ErrNegativeCredit)
	}
	balances, err := s.Balances(ctx, agentID)
	if err != nil {
		return err
	}
	for _, b := range balances {
		if b.Year != year {
			continue
		}
		if b.Status != StatusActive {
			return fmt.Errorf("credit agent %s year %d (%s): %w", agentID, year, b.Status, ErrYearRetired)
		}
		b.Remaining = b.Remaining.Add(days)
		return s.UpsertBalance(ctx, b)
	}
	return s.UpsertBalance(ctx, YearlyBalance{
		AgentID:   agentID,
		Year:      year,
		Remaining: days,
		Status:    StatusActive,
	})
}

// DeductIn is Deduct against an explicit store.
//
// The allocation is computed in full before any write, so the
// insufficient-balance path touches nothing even without a rollback.
func DeductIn(ctx context.Context, s BalanceStore, agentID string, requested decimal.Decimal) (Allocation, error) {
	if requested.IsNegative() {
		return nil, fmt.Errorf("deduct %s days from agent %s: %w", requested, agentID, ErrInvalidAllocation)
	}
	if requested.IsZero() {
		return Allocation{}, nil
	}

	balances, err := s.Balances(ctx, agentID)
	if err != nil {
		return nil, err
	}
	active := activeAscending(balances)

	alloc, updated, remaining := allocate(active, requested)
	if remaining.IsPositive() {
		available := decimal.Zero
		for _, b := range active {
			available = available.Add(b.Remaining)
		}
		return nil, &InsufficientBalanceError{
			AgentID:   agentID,
			Available: available,
			Requested: requested,
		}
	}

	for _, b := range updated {
		if err := s.UpsertBalance(ctx, b); err != nil {
			return nil, err
		}
	}
	return alloc, nil
}

// RestoreIn is Restore against an explicit store. Years no longer Active
// are credited to currentYear instead; the original rows stay retired.
func RestoreIn(ctx context.Context, s BalanceStore, agentID string, alloc Allocation, currentYear int) error {
	if alloc.IsZero() {
		return nil
	}
	for _, days := range alloc {
		if days.IsNegative() {
			return fmt.Errorf("restore for agent %s: %w", agentID, ErrInvalidAllocation)
		}
	}

	balances, err := s.Balances(ctx, agentID)
	if err != nil {
		return err
	}
	byYear := make(map[int]YearlyBalance, len(balances))
	for _, b := range balances {
		byYear[b.Year] = b
	}

	redirected := decimal.Zero
	for _, year := range alloc.Years() {
		days := alloc[year]
		b, exists := byYear[year]
		if !exists || b.Status != StatusActive {
			redirected = redirected.Add(days)
			continue
		}
		b.Remaining = b.Remaining.Add(days)
		byYear[year] = b
		if err := s.UpsertBalance(ctx, b); err != nil {
			return err
		}
	}
	if redirected.IsPositive() {
		b, ok := byYear[currentYear]
		switch {
		case !ok:
			return s.UpsertBalance(ctx, YearlyBalance{
				AgentID:   agentID,
				Year:      currentYear,
				Remaining: redirected,
				Status:    StatusActive,
			})
		case b.Status != StatusActive:
			// Retired rows keep their recorded Remaining, even here.
			return fmt.Errorf("restore for agent %s into year %d (%s): %w", agentID, currentYear, b.Status, ErrYearRetired)
		default:
			b.Remaining = b.Remaining.Add(redirected)
			return s.UpsertBalance(ctx, b)
		}
	}
	return nil
}

// SetYearIn overwrites the Active balance for (agent, year), creating
// the row when absent. Used by the import path where a spreadsheet
// states the balance instead of granting a delta. Rejects negatives and
// retired rows, same as CreditYearIn.
func SetYearIn(ctx context.Context, s BalanceStore, agentID string, year int, days decimal.Decimal) error {
	if days.IsNegative() {
		return fmt.Errorf("set %s days for agent %s year %d: %w", days, agentID, year, ErrNegativeCredit)
	}
	balances, err := s.Balances(ctx, agentID)
	if err != nil {
		return err
	}
	for _, b := range balances {
		if b.Year != year {
			continue
		}
		if b.Status != StatusActive {
			return fmt.Errorf("set agent %s year %d (%s): %w", agentID, year, b.Status, ErrYearRetired)
		}
		b.Remaining = days
		return s.UpsertBalance(ctx, b)
	}
	return s.UpsertBalance(ctx, YearlyBalance{
		AgentID:   agentID,
		Year:      year,
		Remaining: days,
		Status:    StatusActive,
	})
}

// ExpireBeforeIn is ExpireBefore against an explicit store.
func ExpireBeforeIn(ctx context.Context, s BalanceStore, agentID string, cutoffYear int) (int, error) {
	balances, err := s.Balances(ctx, agentID)
	if err != nil {
		return 0, err
	}
	expired := 0
	for _, b := range balances {
		if b.Status != StatusActive || b.Year >= cutoffYear {
			continue
		}
		b.Status = StatusExpired
		if err := s.UpsertBalance(ctx, b); err != nil {
			return expired, err
		}
		expired++
	}
	return expired, nil
}

// MergeExpiredIn is MergeExpired against an explicit store.
func MergeExpiredIn(ctx context.Context, s BalanceStore, agentID string) error {
	balances, err := s.Balances(ctx, agentID)
	if err != nil {
		return err
	}
	var expired []YearlyBalance
	for _, b := range balances {
		if b.Status == StatusExpired {
			expired = append(expired, b)
		}
	}
	if len(expired) == 0 {
		return nil
	}
	sort.Slice(expired, func(i, j int) bool { return expired[i].Year < expired[j].Year })

	total := decimal.Zero
	for _, b := range expired {
		total = total.Add(b.Remaining)
	}
	for _, b := range expired[1:] {
		if err := s.DeleteBalance(ctx, agentID, b.Year); err != nil {
			return err
		}
	}
	summary := expired[0]
	summary.Remaining = total
	summary.Status = StatusMerged
	return s.UpsertBalance(ctx, summary)
}

// TotalActiveIn sums Active balances against an explicit store.
func TotalActiveIn(ctx context.Context, s BalanceStore, agentID string) (decimal.Decimal, error) {
	balances, err := s.Balances(ctx, agentID)
	if err != nil {
		return decimal.Zero, err
	}
	total := decimal.Zero
	for _, b := range balances {
		if b.Status == StatusActive {
			total = total.Add(b.Remaining)
		}
	}
	return total, nil
}

// =============================================================================
// ALLOCATION CORE
// =============================================================================

// activeAscending filters to Active rows sorted by fiscal year ascending.
// Years are unique per agent, so the order is total.
func activeAscending(balances []YearlyBalance) []YearlyBalance {
	var active []YearlyBalance
	for _, b := range balances {
		if b.Status == StatusActive {
			active = append(active, b)
		}
	}
	sort.Slice(active, func(i, j int) bool { return active[i].Year < active[j].Year })
	return active
}

// allocate drains rows in the given order until requested is covered.
// Returns the breakdown, the rows to write back, and what could not be
// covered. Pure: input rows are not modified.
func allocate(active []YearlyBalance, requested decimal.Decimal) (Allocation, []YearlyBalance, decimal.Decimal) {
	alloc := Allocation{}
	var updated []YearlyBalance
	remaining := requested

	for _, b := range active {
		if !remaining.IsPositive() {
			break
		}
		if !b.Remaining.IsPositive() {
			continue
		}
		take := decimal.Min(remaining, b.Remaining)
		alloc[b.Year] = take
		b.Remaining = b.Remaining.Sub(take)
		updated = append(updated, b)
		remaining = remaining.Sub(take)
	}
	return alloc, updated, remaining
}
