package conges

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/sigrh/conges/calendar"
	"github.com/sigrh/conges/ledger"
)

const settingFiscalYear = "annee_exercice"

// Manager enforces the leave lifecycle rules. Single-writer: callers must
// not run two mutating operations for the same agent concurrently.
type Manager struct {
	store          Store
	cal            *calendar.Engine
	retentionYears int
	log            zerolog.Logger

	now func() time.Time
}

func NewManager(store Store, cal *calendar.Engine, retentionYears int, log zerolog.Logger) *Manager {
	return &Manager{
		store:          store,
		cal:            cal,
		retentionYears: retentionYears,
		log:            log,
		now:            time.Now,
	}
}

// Calendar exposes the engine for read-only callers (API listings).
func (m *Manager) Calendar() *calendar.Engine { return m.cal }

// =============================================================================
// FISCAL YEAR
// =============================================================================

// FiscalYear returns the current exercise year, falling back to the
// clock when no setting is stored yet.
func (m *Manager) FiscalYear(ctx context.Context) int {
	raw, err := m.store.Setting(ctx, settingFiscalYear)
	if err == nil {
		if year, convErr := strconv.Atoi(raw); convErr == nil {
			return year
		}
	}
	return m.now().Year()
}

// SetFiscalYear stores the exercise year.
func (m *Manager) SetFiscalYear(ctx context.Context, year int) error {
	return m.store.SetSetting(ctx, settingFiscalYear, strconv.Itoa(year))
}

// CloseExercise advances the fiscal year and retires Active balances
// that fall out of the retention window, for every agent, atomically.
func (m *Manager) CloseExercise(ctx context.Context, newYear int) error {
	cutoff := newYear - m.retentionYears + 1
	return m.store.WithTx(ctx, func(tx Store) error {
		agents, err := tx.ListAgents(ctx, "")
		if err != nil {
			return err
		}
		for _, agent := range agents {
			expired, err := ledger.ExpireBeforeIn(ctx, tx, agent.ID, cutoff)
			if err != nil {
				return err
			}
			if expired > 0 {
				m.log.Info().Str("agent", agent.PPR).Int("rows", expired).
					Int("cutoff", cutoff).Msg("balances expired")
			}
		}
		return tx.SetSetting(ctx, settingFiscalYear, strconv.Itoa(newYear))
	})
}

// =============================================================================
// AGENTS
// =============================================================================

// SaveAgent creates or updates an agent, optionally setting per-year
// balances (import path). PPR stays unique across agents.
func (m *Manager) SaveAgent(ctx context.Context, a *Agent, soldes map[int]decimal.Decimal) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	return m.store.WithTx(ctx, func(tx Store) error {
		existing, err := tx.AgentByPPR(ctx, a.PPR)
		switch {
		case err == nil:
			if existing.ID != a.ID {
				return fmt.Errorf("ppr %s already registered to %s: %w", a.PPR, existing.FullName(), ErrDuplicatePPR)
			}
		case !errors.Is(err, ErrAgentNotFound):
			return err
		}
		if err := tx.SaveAgent(ctx, a); err != nil {
			return err
		}
		for year, days := range soldes {
			if err := ledger.SetYearIn(ctx, tx, a.ID, year, days); err != nil {
				return err
			}
		}
		return nil
	})
}

// DeleteAgent removes an agent; the store cascades to leaves and balances.
func (m *Manager) DeleteAgent(ctx context.Context, id string) error {
	return m.store.DeleteAgent(ctx, id)
}

// =============================================================================
// LEAVE LIFECYCLE
// =============================================================================

// LeaveInput carries the caller-supplied fields of a leave.
type LeaveInput struct {
	AgentID         string
	Type            LeaveType
	Start           time.Time
	End             time.Time
	Justification   string
	InterimID       string
	CertificatePath string

	// Days overrides the computed count for types not subject to the
	// working-day rule. Ignored for annual leave.
	Days *decimal.Decimal
}

// CreateLeave validates the request, computes the day count per leave
// type, deducts annual leave from the ledger and persists the record.
// The deduction and the insert share one transaction.
func (m *Manager) CreateLeave(ctx context.Context, in LeaveInput) (*LeaveRecord, error) {
	if err := m.validateRange(in.Start, in.End); err != nil {
		return nil, err
	}

	var rec *LeaveRecord
	err := m.store.WithTx(ctx, func(tx Store) error {
		agent, err := tx.Agent(ctx, in.AgentID)
		if err != nil {
			return err
		}
		if err := m.checkInterim(ctx, tx, in); err != nil {
			return err
		}

		days, err := m.countDays(ctx, in)
		if err != nil {
			return err
		}

		rec = &LeaveRecord{
			ID:              uuid.NewString(),
			AgentID:         in.AgentID,
			Type:            in.Type,
			Start:           dayOf(in.Start),
			End:             dayOf(in.End),
			Days:            days,
			Status:          LeaveActive,
			Justification:   in.Justification,
			InterimID:       in.InterimID,
			CertificatePath: in.CertificatePath,
			CreatedAt:       m.now(),
		}
		if in.Type.Deducts() {
			alloc, err := ledger.DeductIn(ctx, tx, in.AgentID, days)
			if err != nil {
				return err
			}
			rec.Allocation = alloc
		}
		if err := tx.InsertLeave(ctx, rec); err != nil {
			return err
		}
		m.log.Info().Str("agent", agent.PPR).Str("type", in.Type.Code()).
			Str("days", days.String()).Msg("leave created")
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// ModifyLeave restores the old allocation and re-runs the creation
// deduction with the new fields, inside one transaction. A failing
// re-deduction rolls back the restore: the record is never left double-
// or under-deducted.
func (m *Manager) ModifyLeave(ctx context.Context, id string, in LeaveInput) (*LeaveRecord, error) {
	if err := m.validateRange(in.Start, in.End); err != nil {
		return nil, err
	}

	var rec *LeaveRecord
	err := m.store.WithTx(ctx, func(tx Store) error {
		old, err := tx.Leave(ctx, id)
		if err != nil {
			return err
		}
		if old.Status != LeaveActive {
			return ErrLeaveNotActive
		}
		if err := m.checkInterim(ctx, tx, in); err != nil {
			return err
		}

		fiscal := m.fiscalYearIn(ctx, tx)
		if !old.Allocation.IsZero() {
			if err := ledger.RestoreIn(ctx, tx, old.AgentID, old.Allocation, fiscal); err != nil {
				return err
			}
		}

		days, err := m.countDays(ctx, in)
		if err != nil {
			return err
		}

		rec = &LeaveRecord{
			ID:              old.ID,
			AgentID:         old.AgentID,
			Type:            in.Type,
			Start:           dayOf(in.Start),
			End:             dayOf(in.End),
			Days:            days,
			Status:          LeaveActive,
			Justification:   in.Justification,
			InterimID:       in.InterimID,
			CertificatePath: in.CertificatePath,
			Allocation:      nil,
			CreatedAt:       old.CreatedAt,
		}
		if in.Type.Deducts() {
			alloc, err := ledger.DeductIn(ctx, tx, old.AgentID, days)
			if err != nil {
				return err
			}
			rec.Allocation = alloc
		}
		return tx.UpdateLeave(ctx, rec)
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// CancelLeave flips the record to Cancelled and restores its allocation.
// The record is retained for audit.
func (m *Manager) CancelLeave(ctx context.Context, id string) error {
	return m.store.WithTx(ctx, func(tx Store) error {
		rec, err := tx.Leave(ctx, id)
		if err != nil {
			return err
		}
		if rec.Status != LeaveActive {
			return ErrLeaveNotActive
		}
		if !rec.Allocation.IsZero() {
			if err := ledger.RestoreIn(ctx, tx, rec.AgentID, rec.Allocation, m.fiscalYearIn(ctx, tx)); err != nil {
				return err
			}
		}
		return tx.UpdateLeaveStatus(ctx, id, LeaveCancelled)
	})
}

// DeleteLeave removes the record permanently, restoring its allocation
// first when it is still Active. Deleting a Cancelled record is a pure
// removal: its days were already restored at cancellation.
func (m *Manager) DeleteLeave(ctx context.Context, id string) error {
	return m.store.WithTx(ctx, func(tx Store) error {
		rec, err := tx.Leave(ctx, id)
		if err != nil {
			return err
		}
		if rec.Status == LeaveActive && !rec.Allocation.IsZero() {
			if err := ledger.RestoreIn(ctx, tx, rec.AgentID, rec.Allocation, m.fiscalYearIn(ctx, tx)); err != nil {
				return err
			}
		}
		return tx.DeleteLeave(ctx, id)
	})
}

// =============================================================================
// QUERIES
// =============================================================================

// AgentsOnLeaveAsOf lists agents whose Active leave covers the date,
// with their return-to-work dates. Read-only.
func (m *Manager) AgentsOnLeaveAsOf(ctx context.Context, date time.Time) ([]OnLeave, error) {
	records, err := m.store.LeavesCovering(ctx, date)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}

	minYear, maxYear := records[0].End.Year(), records[0].End.Year()
	for _, r := range records {
		if y := r.End.Year(); y < minYear {
			minYear = y
		} else if y > maxYear {
			maxYear = y
		}
	}
	holidays := m.cal.HolidaySetForPeriod(ctx, minYear, maxYear)

	out := make([]OnLeave, 0, len(records))
	for _, r := range records {
		agent, err := m.store.Agent(ctx, r.AgentID)
		if err != nil {
			return nil, err
		}
		out = append(out, OnLeave{
			Agent:      *agent,
			Type:       r.Type,
			End:        r.End,
			ReturnDate: calendar.NextWorkingDay(r.End, holidays),
		})
	}
	return out, nil
}

// ReturnDate computes the return-to-work date after a leave ending on
// end.
func (m *Manager) ReturnDate(ctx context.Context, end time.Time) time.Time {
	holidays := m.cal.HolidaySetForPeriod(ctx, end.Year(), end.Year())
	return calendar.NextWorkingDay(end, holidays)
}

// MissingCertificates lists Active sick leaves with no certificate on
// file (suivi des justificatifs).
func (m *Manager) MissingCertificates(ctx context.Context) ([]LeaveRecord, error) {
	all, err := m.store.AllLeaves(ctx)
	if err != nil {
		return nil, err
	}
	var missing []LeaveRecord
	for _, r := range all {
		if r.Type == LeaveSick && r.Status == LeaveActive && r.CertificatePath == "" {
			missing = append(missing, r)
		}
	}
	return missing, nil
}

// =============================================================================
// INTERNALS
// =============================================================================

func (m *Manager) validateRange(start, end time.Time) error {
	if start.IsZero() || end.IsZero() || end.Before(start) {
		return &InvalidDateRangeError{Start: start, End: end}
	}
	return nil
}

func (m *Manager) checkInterim(ctx context.Context, tx Store, in LeaveInput) error {
	if in.InterimID == "" {
		return nil
	}
	if in.InterimID == in.AgentID {
		return ErrInterimIsSelf
	}
	_, err := tx.Agent(ctx, in.InterimID)
	return err
}

// countDays applies the per-type counting rule. The switch is exhaustive
// over the closed LeaveType enum.
func (m *Manager) countDays(ctx context.Context, in LeaveInput) (decimal.Decimal, error) {
	switch in.Type {
	case LeaveAnnual:
		holidays := m.cal.HolidaySetForPeriod(ctx, in.Start.Year(), in.End.Year())
		return decimal.NewFromInt(int64(calendar.WorkingDaysBetween(in.Start, in.End, holidays))), nil
	case LeaveSick:
		return calendarDays(in.Start, in.End), nil
	case LeaveExceptional:
		if in.Days != nil {
			if in.Days.IsNegative() {
				return decimal.Zero, fmt.Errorf("negative day count %s: %w", in.Days, ErrInvalidDateRange)
			}
			return *in.Days, nil
		}
		return calendarDays(in.Start, in.End), nil
	default:
		return decimal.Zero, fmt.Errorf("unhandled leave type %d", in.Type)
	}
}

// calendarDays is the inclusive day span, weekends and holidays included.
func calendarDays(start, end time.Time) decimal.Decimal {
	days := int64(dayOf(end).Sub(dayOf(start)).Hours()/24) + 1
	return decimal.NewFromInt(days)
}

func (m *Manager) fiscalYearIn(ctx context.Context, tx Store) int {
	raw, err := tx.Setting(ctx, settingFiscalYear)
	if err == nil {
		if year, convErr := strconv.Atoi(raw); convErr == nil {
			return year
		}
	}
	return m.now().Year()
}
