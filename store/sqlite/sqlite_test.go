package sqlite_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sigrh/conges/conges"
	"github.com/sigrh/conges/ledger"
	"github.com/sigrh/conges/store/sqlite"
)

func newTestStore(t *testing.T) *sqlite.Store {
	t.Helper()
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func testAgent(t *testing.T, store *sqlite.Store) conges.Agent {
	t.Helper()
	a := conges.Agent{Nom: "ALAMI", Prenom: "Karim", PPR: "100001", Grade: "Administrateur 2ème grade"}
	require.NoError(t, store.SaveAgent(context.Background(), &a))
	return a
}

func d(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

func TestLeaveRoundTrip_PreservesAllocationAndDates(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	agent := testAgent(t, store)

	rec := &conges.LeaveRecord{
		ID:            uuid.NewString(),
		AgentID:       agent.ID,
		Type:          conges.LeaveAnnual,
		Start:         d(2024, time.March, 4),
		End:           d(2024, time.March, 8),
		Days:          decimal.NewFromFloat(4.5),
		Status:        conges.LeaveActive,
		Justification: "Voyage familial",
		Allocation: ledger.Allocation{
			2023: decimal.NewFromFloat(2.5),
			2024: decimal.NewFromInt(2),
		},
		CreatedAt: time.Now().UTC().Truncate(time.Second),
	}
	require.NoError(t, store.InsertLeave(ctx, rec))

	got, err := store.Leave(ctx, rec.ID)

	require.NoError(t, err)
	assert.Equal(t, conges.LeaveAnnual, got.Type)
	assert.True(t, got.Start.Equal(rec.Start))
	assert.True(t, got.End.Equal(rec.End))
	assert.True(t, got.Days.Equal(decimal.NewFromFloat(4.5)), "days = %s", got.Days)
	assert.True(t, got.Allocation[2023].Equal(decimal.NewFromFloat(2.5)))
	assert.True(t, got.Allocation[2024].Equal(decimal.NewFromInt(2)))
	assert.Equal(t, "Voyage familial", got.Justification)
}

func TestBalances_UpsertKeepsOneRowPerYear(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	agent := testAgent(t, store)

	require.NoError(t, store.UpsertBalance(ctx, ledger.YearlyBalance{
		AgentID: agent.ID, Year: 2024, Remaining: decimal.NewFromInt(22), Status: ledger.StatusActive,
	}))
	require.NoError(t, store.UpsertBalance(ctx, ledger.YearlyBalance{
		AgentID: agent.ID, Year: 2024, Remaining: decimal.NewFromInt(15), Status: ledger.StatusActive,
	}))

	rows, err := store.Balances(ctx, agent.ID)

	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.True(t, rows[0].Remaining.Equal(decimal.NewFromInt(15)))
}

func TestSaveAgent_DuplicatePPR_FailsOnUniqueIndex(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	testAgent(t, store)

	dup := conges.Agent{Nom: "BENANI", Prenom: "Sara", PPR: "100001", Grade: "Technicien 3ème grade"}
	err := store.SaveAgent(ctx, &dup)

	assert.Error(t, err)
}

func TestDeleteAgent_CascadesToLeavesAndBalances(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	agent := testAgent(t, store)

	require.NoError(t, store.UpsertBalance(ctx, ledger.YearlyBalance{
		AgentID: agent.ID, Year: 2024, Remaining: decimal.NewFromInt(22), Status: ledger.StatusActive,
	}))
	require.NoError(t, store.InsertLeave(ctx, &conges.LeaveRecord{
		ID:        uuid.NewString(),
		AgentID:   agent.ID,
		Type:      conges.LeaveSick,
		Start:     d(2024, time.March, 4),
		End:       d(2024, time.March, 5),
		Days:      decimal.NewFromInt(2),
		Status:    conges.LeaveActive,
		CreatedAt: time.Now(),
	}))

	require.NoError(t, store.DeleteAgent(ctx, agent.ID))

	rows, err := store.Balances(ctx, agent.ID)
	require.NoError(t, err)
	assert.Empty(t, rows)
	records, err := store.LeavesForAgent(ctx, agent.ID)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestLeavesCovering_ActiveOnly(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	agent := testAgent(t, store)

	active := &conges.LeaveRecord{
		ID: uuid.NewString(), AgentID: agent.ID, Type: conges.LeaveAnnual,
		Start: d(2024, time.March, 4), End: d(2024, time.March, 8),
		Days: decimal.NewFromInt(5), Status: conges.LeaveActive, CreatedAt: time.Now(),
	}
	cancelled := &conges.LeaveRecord{
		ID: uuid.NewString(), AgentID: agent.ID, Type: conges.LeaveAnnual,
		Start: d(2024, time.March, 4), End: d(2024, time.March, 8),
		Days: decimal.NewFromInt(5), Status: conges.LeaveCancelled, CreatedAt: time.Now(),
	}
	require.NoError(t, store.InsertLeave(ctx, active))
	require.NoError(t, store.InsertLeave(ctx, cancelled))

	got, err := store.LeavesCovering(ctx, d(2024, time.March, 6))

	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, active.ID, got[0].ID)
}

func TestWithTx_ErrorRollsBackAllWrites(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	agent := testAgent(t, store)
	boom := errors.New("boom")

	err := store.WithTx(ctx, func(tx conges.Store) error {
		if err := tx.UpsertBalance(ctx, ledger.YearlyBalance{
			AgentID: agent.ID, Year: 2024, Remaining: decimal.NewFromInt(22), Status: ledger.StatusActive,
		}); err != nil {
			return err
		}
		if err := tx.InsertLeave(ctx, &conges.LeaveRecord{
			ID: uuid.NewString(), AgentID: agent.ID, Type: conges.LeaveAnnual,
			Start: d(2024, time.March, 4), End: d(2024, time.March, 8),
			Days: decimal.NewFromInt(5), Status: conges.LeaveActive, CreatedAt: time.Now(),
		}); err != nil {
			return err
		}
		return boom
	})

	require.ErrorIs(t, err, boom)
	rows, balErr := store.Balances(ctx, agent.ID)
	require.NoError(t, balErr)
	assert.Empty(t, rows)
	records, listErr := store.LeavesForAgent(ctx, agent.ID)
	require.NoError(t, listErr)
	assert.Empty(t, records)
}

func TestHolidaysForYear_FiltersByYear(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.AddHoliday(ctx, d(2024, time.March, 11), "Fête locale")
	require.NoError(t, err)
	_, err = store.AddHoliday(ctx, d(2025, time.January, 2), "Pont")
	require.NoError(t, err)

	got, err := store.HolidaysForYear(ctx, 2024)

	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.True(t, got[0].Date.Equal(d(2024, time.March, 11)))
	assert.Equal(t, "Fête locale", got[0].Label)
}

func TestSettings_Upsert(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SetSetting(ctx, "annee_exercice", "2024"))
	require.NoError(t, store.SetSetting(ctx, "annee_exercice", "2025"))

	got, err := store.Setting(ctx, "annee_exercice")
	require.NoError(t, err)
	assert.Equal(t, "2025", got)

	_, err = store.Setting(ctx, "absente")
	assert.Error(t, err)
}
