package ledger_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sigrh/conges/ledger"
	"github.com/sigrh/conges/store/memory"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestLedger(t *testing.T) (*ledger.Ledger, *memory.Memory) {
	t.Helper()
	store := memory.New()
	return ledger.New(store, store), store
}

func days(v float64) decimal.Decimal {
	return decimal.NewFromFloat(v)
}

func balanceByYear(t *testing.T, store *memory.Memory, agentID string) map[int]ledger.YearlyBalance {
	t.Helper()
	rows, err := store.Balances(context.Background(), agentID)
	require.NoError(t, err)
	out := make(map[int]ledger.YearlyBalance, len(rows))
	for _, b := range rows {
		out[b.Year] = b
	}
	return out
}

// =============================================================================
// DEDUCTION - OLDEST YEAR FIRST
// =============================================================================

func TestDeduct_SpansYears_OldestFirst(t *testing.T) {
	// GIVEN: 5 days from 2023 and 10 days from 2024
	l, store := newTestLedger(t)
	ctx := context.Background()
	store.Seed("a1", 2023, days(5), ledger.StatusActive)
	store.Seed("a1", 2024, days(10), ledger.StatusActive)

	// WHEN: 7 days are deducted
	alloc, err := l.Deduct(ctx, "a1", days(7))

	// THEN: 2023 is drained before 2024 is touched
	require.NoError(t, err)
	assert.True(t, alloc[2023].Equal(days(5)), "2023 share = %s", alloc[2023])
	assert.True(t, alloc[2024].Equal(days(2)), "2024 share = %s", alloc[2024])
	assert.True(t, alloc.Total().Equal(days(7)))

	rows := balanceByYear(t, store, "a1")
	assert.True(t, rows[2023].Remaining.IsZero())
	assert.True(t, rows[2024].Remaining.Equal(days(8)))
}

func TestDeduct_ExactDrain_SingleYear(t *testing.T) {
	l, store := newTestLedger(t)
	ctx := context.Background()
	store.Seed("a1", 2024, days(3), ledger.StatusActive)

	alloc, err := l.Deduct(ctx, "a1", days(3))

	require.NoError(t, err)
	assert.True(t, alloc[2024].Equal(days(3)))
	assert.True(t, balanceByYear(t, store, "a1")[2024].Remaining.IsZero())
}

func TestDeduct_HalfDays_Exact(t *testing.T) {
	// Half-day bookkeeping must not drift the way floats do.
	l, store := newTestLedger(t)
	ctx := context.Background()
	store.Seed("a1", 2024, days(2), ledger.StatusActive)

	_, err := l.Deduct(ctx, "a1", days(0.5))
	require.NoError(t, err)
	_, err = l.Deduct(ctx, "a1", days(0.5))
	require.NoError(t, err)
	_, err = l.Deduct(ctx, "a1", days(0.5))
	require.NoError(t, err)

	remaining := balanceByYear(t, store, "a1")[2024].Remaining
	assert.True(t, remaining.Equal(days(0.5)), "remaining = %s", remaining)
}

func TestDeduct_Insufficient_NothingWritten(t *testing.T) {
	// GIVEN: 15 days available across two years
	l, store := newTestLedger(t)
	ctx := context.Background()
	store.Seed("a1", 2023, days(5), ledger.StatusActive)
	store.Seed("a1", 2024, days(10), ledger.StatusActive)

	// WHEN: 20 days are requested
	alloc, err := l.Deduct(ctx, "a1", days(20))

	// THEN: typed error carries the shortfall and no row changed
	require.Error(t, err)
	assert.Nil(t, alloc)
	assert.ErrorIs(t, err, ledger.ErrInsufficientBalance)

	var insufficient *ledger.InsufficientBalanceError
	require.ErrorAs(t, err, &insufficient)
	assert.True(t, insufficient.Available.Equal(days(15)))
	assert.True(t, insufficient.Requested.Equal(days(20)))
	assert.True(t, insufficient.Shortfall().Equal(days(5)))

	rows := balanceByYear(t, store, "a1")
	assert.True(t, rows[2023].Remaining.Equal(days(5)))
	assert.True(t, rows[2024].Remaining.Equal(days(10)))
}

func TestDeduct_IgnoresExpiredAndMergedRows(t *testing.T) {
	l, store := newTestLedger(t)
	ctx := context.Background()
	store.Seed("a1", 2021, days(8), ledger.StatusExpired)
	store.Seed("a1", 2022, days(6), ledger.StatusMerged)
	store.Seed("a1", 2024, days(4), ledger.StatusActive)

	_, err := l.Deduct(ctx, "a1", days(5))

	require.ErrorIs(t, err, ledger.ErrInsufficientBalance)

	alloc, err := l.Deduct(ctx, "a1", days(4))
	require.NoError(t, err)
	assert.Equal(t, []int{2024}, alloc.Years())
}

func TestDeduct_ZeroRequested_EmptyAllocation(t *testing.T) {
	l, store := newTestLedger(t)
	ctx := context.Background()
	store.Seed("a1", 2024, days(10), ledger.StatusActive)

	alloc, err := l.Deduct(ctx, "a1", decimal.Zero)

	require.NoError(t, err)
	assert.True(t, alloc.IsZero())
	assert.True(t, balanceByYear(t, store, "a1")[2024].Remaining.Equal(days(10)))
}

func TestDeduct_NegativeRequested_Rejected(t *testing.T) {
	l, _ := newTestLedger(t)

	_, err := l.Deduct(context.Background(), "a1", days(-1))

	assert.ErrorIs(t, err, ledger.ErrInvalidAllocation)
}

// =============================================================================
// RESTORE
// =============================================================================

func TestRestore_RoundTrip_ExactInverse(t *testing.T) {
	// GIVEN: a deduction spanning 2023 and 2024
	l, store := newTestLedger(t)
	ctx := context.Background()
	store.Seed("a1", 2023, days(5), ledger.StatusActive)
	store.Seed("a1", 2024, days(10), ledger.StatusActive)

	alloc, err := l.Deduct(ctx, "a1", days(7))
	require.NoError(t, err)

	// WHEN: the same allocation is restored
	require.NoError(t, l.Restore(ctx, "a1", alloc, 2024))

	// THEN: balances are exactly as before
	rows := balanceByYear(t, store, "a1")
	assert.True(t, rows[2023].Remaining.Equal(days(5)))
	assert.True(t, rows[2024].Remaining.Equal(days(10)))
}

func TestRestore_ExpiredYear_RedirectsToCurrentYear(t *testing.T) {
	// GIVEN: a 2022 share whose source year expired since the deduction
	l, store := newTestLedger(t)
	ctx := context.Background()
	store.Seed("a1", 2022, days(0), ledger.StatusExpired)
	store.Seed("a1", 2024, days(3), ledger.StatusActive)

	alloc := ledger.Allocation{2022: days(4)}

	// WHEN: restoring with 2024 as the current fiscal year
	require.NoError(t, l.Restore(ctx, "a1", alloc, 2024))

	// THEN: the 4 days land on 2024, the expired row stays retired
	rows := balanceByYear(t, store, "a1")
	assert.True(t, rows[2024].Remaining.Equal(days(7)))
	assert.True(t, rows[2022].Remaining.IsZero())
	assert.Equal(t, ledger.StatusExpired, rows[2022].Status)
}

func TestRestore_CurrentYearRowAbsent_Created(t *testing.T) {
	l, store := newTestLedger(t)
	ctx := context.Background()
	store.Seed("a1", 2022, days(0), ledger.StatusExpired)

	require.NoError(t, l.Restore(ctx, "a1", ledger.Allocation{2022: days(2)}, 2025))

	rows := balanceByYear(t, store, "a1")
	require.Contains(t, rows, 2025)
	assert.True(t, rows[2025].Remaining.Equal(days(2)))
	assert.Equal(t, ledger.StatusActive, rows[2025].Status)
}

func TestRestore_NegativeShare_Rejected(t *testing.T) {
	l, _ := newTestLedger(t)

	err := l.Restore(context.Background(), "a1", ledger.Allocation{2024: days(-2)}, 2024)

	assert.ErrorIs(t, err, ledger.ErrInvalidAllocation)
}

func TestRestore_RetiredCurrentYear_Rejected(t *testing.T) {
	// GIVEN: the current fiscal year's row was merged away
	l, store := newTestLedger(t)
	ctx := context.Background()
	store.Seed("a1", 2022, days(0), ledger.StatusExpired)
	store.Seed("a1", 2024, days(6), ledger.StatusMerged)

	// WHEN: a redirect would land on that merged row
	err := l.Restore(ctx, "a1", ledger.Allocation{2022: days(3)}, 2024)

	// THEN: the restore is rejected and the merged row keeps its days
	assert.ErrorIs(t, err, ledger.ErrYearRetired)
	rows := balanceByYear(t, store, "a1")
	assert.True(t, rows[2024].Remaining.Equal(days(6)))
	assert.Equal(t, ledger.StatusMerged, rows[2024].Status)
}

// =============================================================================
// CREDIT
// =============================================================================

func TestCreditYear_NewAndExisting(t *testing.T) {
	l, store := newTestLedger(t)
	ctx := context.Background()

	require.NoError(t, l.CreditYear(ctx, "a1", 2024, days(22)))
	require.NoError(t, l.CreditYear(ctx, "a1", 2024, days(1.5)))

	rows := balanceByYear(t, store, "a1")
	assert.True(t, rows[2024].Remaining.Equal(days(23.5)))
}

func TestCreditYear_Zero_NoEffectOnTotal(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()
	require.NoError(t, l.CreditYear(ctx, "a1", 2024, days(10)))

	require.NoError(t, l.CreditYear(ctx, "a1", 2024, decimal.Zero))

	total, err := l.TotalActiveBalance(ctx, "a1")
	require.NoError(t, err)
	assert.True(t, total.Equal(days(10)))
}

func TestCreditYear_Negative_Rejected(t *testing.T) {
	l, _ := newTestLedger(t)

	err := l.CreditYear(context.Background(), "a1", 2024, days(-3))

	assert.ErrorIs(t, err, ledger.ErrNegativeCredit)
}

func TestCreditYear_ExpiredYear_Rejected(t *testing.T) {
	// GIVEN: an expired 2021 row still holding 7 days
	l, store := newTestLedger(t)
	ctx := context.Background()
	store.Seed("a1", 2021, days(7), ledger.StatusExpired)

	// WHEN: crediting that year
	err := l.CreditYear(ctx, "a1", 2021, days(2))

	// THEN: the row is neither revived nor overwritten
	assert.ErrorIs(t, err, ledger.ErrYearRetired)
	rows := balanceByYear(t, store, "a1")
	assert.True(t, rows[2021].Remaining.Equal(days(7)), "2021 remaining = %s", rows[2021].Remaining)
	assert.Equal(t, ledger.StatusExpired, rows[2021].Status)
}

func TestSetYear_MergedYear_Rejected(t *testing.T) {
	store := memory.New()
	ctx := context.Background()
	store.Seed("a1", 2020, days(5.5), ledger.StatusMerged)

	err := ledger.SetYearIn(ctx, store, "a1", 2020, days(10))

	assert.ErrorIs(t, err, ledger.ErrYearRetired)
	rows := balanceByYear(t, store, "a1")
	assert.True(t, rows[2020].Remaining.Equal(days(5.5)))
	assert.Equal(t, ledger.StatusMerged, rows[2020].Status)
}

func TestTotalActiveBalance_SkipsRetiredRows(t *testing.T) {
	l, store := newTestLedger(t)
	store.Seed("a1", 2021, days(9), ledger.StatusExpired)
	store.Seed("a1", 2023, days(5), ledger.StatusActive)
	store.Seed("a1", 2024, days(10), ledger.StatusActive)

	total, err := l.TotalActiveBalance(context.Background(), "a1")

	require.NoError(t, err)
	assert.True(t, total.Equal(days(15)))
}

// =============================================================================
// EXPIRY AND MERGE
// =============================================================================

func TestExpireBefore_RetiresOldYearsOnly(t *testing.T) {
	l, store := newTestLedger(t)
	ctx := context.Background()
	store.Seed("a1", 2021, days(4), ledger.StatusActive)
	store.Seed("a1", 2022, days(6), ledger.StatusActive)
	store.Seed("a1", 2023, days(8), ledger.StatusActive)

	expired, err := l.ExpireBefore(ctx, "a1", 2023)

	require.NoError(t, err)
	assert.Equal(t, 2, expired)

	rows := balanceByYear(t, store, "a1")
	assert.Equal(t, ledger.StatusExpired, rows[2021].Status)
	assert.Equal(t, ledger.StatusExpired, rows[2022].Status)
	assert.Equal(t, ledger.StatusActive, rows[2023].Status)
	// days survive expiry, they just leave the allocation pool
	assert.True(t, rows[2021].Remaining.Equal(days(4)))
}

func TestExpireBefore_Idempotent(t *testing.T) {
	l, store := newTestLedger(t)
	ctx := context.Background()
	store.Seed("a1", 2021, days(4), ledger.StatusActive)

	_, err := l.ExpireBefore(ctx, "a1", 2023)
	require.NoError(t, err)
	expired, err := l.ExpireBefore(ctx, "a1", 2023)
	require.NoError(t, err)

	assert.Equal(t, 0, expired)
}

func TestMergeExpired_FoldsIntoOldestYear(t *testing.T) {
	// GIVEN: two expired rows and one active row
	l, store := newTestLedger(t)
	ctx := context.Background()
	store.Seed("a1", 2020, days(3), ledger.StatusExpired)
	store.Seed("a1", 2021, days(2.5), ledger.StatusExpired)
	store.Seed("a1", 2024, days(10), ledger.StatusActive)

	// WHEN: expired rows are merged
	require.NoError(t, l.MergeExpired(ctx, "a1"))

	// THEN: one Merged summary row on 2020, active row untouched
	rows := balanceByYear(t, store, "a1")
	require.NotContains(t, rows, 2021)
	assert.Equal(t, ledger.StatusMerged, rows[2020].Status)
	assert.True(t, rows[2020].Remaining.Equal(days(5.5)))
	assert.Equal(t, ledger.StatusActive, rows[2024].Status)
	assert.True(t, rows[2024].Remaining.Equal(days(10)))
}

func TestMergeExpired_NoExpiredRows_NoOp(t *testing.T) {
	l, store := newTestLedger(t)
	store.Seed("a1", 2024, days(10), ledger.StatusActive)

	require.NoError(t, l.MergeExpired(context.Background(), "a1"))

	rows := balanceByYear(t, store, "a1")
	assert.Len(t, rows, 1)
	assert.Equal(t, ledger.StatusActive, rows[2024].Status)
}

// =============================================================================
// ALLOCATION HELPERS
// =============================================================================

func TestAllocation_Breakdown_French(t *testing.T) {
	alloc := ledger.Allocation{2024: days(2), 2023: days(5)}

	got := alloc.Breakdown()

	assert.Equal(t, "5 jours au titre de l'année 2023 et 2 jours au titre de l'année 2024", got)
}

func TestAllocation_Breakdown_SingularOnlyForOne(t *testing.T) {
	alloc := ledger.Allocation{2023: days(0.5), 2024: days(1)}

	got := alloc.Breakdown()

	assert.Equal(t, "0.5 jours au titre de l'année 2023 et 1 jour au titre de l'année 2024", got)
}

func TestAllocation_Years_SortedAscending(t *testing.T) {
	alloc := ledger.Allocation{2025: days(1), 2021: days(1), 2023: days(1)}

	assert.Equal(t, []int{2021, 2023, 2025}, alloc.Years())
}
